package ui

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"
)

// ReadSecret prompts for a value without echoing it when the input is a
// terminal. Cancelling ctx restores the terminal and returns ctx.Err().
func (c *Confirmer) ReadSecret(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)

	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := readMasked(ctx, int(f.Fd()))
		fmt.Fprintln(c.out)
		return secret, err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lineChan():
		if !ok {
			return "", fmt.Errorf("failed to read input: %w", c.readErr)
		}
		return line, nil
	}
}

func readMasked(ctx context.Context, fd int) (string, error) {
	state, err := term.GetState(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read terminal state: %w", err)
	}

	type result struct {
		secret []byte
		err    error
	}
	done := make(chan result, 1)
	go func() {
		secret, err := term.ReadPassword(fd)
		done <- result{secret, err}
	}()

	select {
	case <-ctx.Done():
		_ = term.Restore(fd, state)
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("failed to read input: %w", r.err)
		}
		return string(r.secret), nil
	}
}
