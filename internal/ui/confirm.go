package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/in3-cli/in3cli/pkg/types"
)

// ConfirmationResult represents the result of a confirmation prompt
type ConfirmationResult struct {
	Approved bool
	TimedOut bool
	Error    error
}

// Confirmer handles user prompts. Prompts are written to out so that
// stdout stays reserved for command output.
type Confirmer struct {
	config types.Confirmation
	in     io.Reader
	out    io.Writer

	// one goroutine reads input for every prompt; see lineChan
	linesOnce sync.Once
	lines     chan string
	readErr   error
}

// NewConfirmer creates a new confirmer reading answers from in
func NewConfirmer(config types.Confirmation, in io.Reader, out io.Writer) *Confirmer {
	return &Confirmer{
		config: config,
		in:     in,
		out:    out,
	}
}

// Confirm asks a yes/no question. With AssumeYes it approves without
// prompting. A timeout falls back to the default answer; a cancelled
// context is reported as an error.
func (c *Confirmer) Confirm(ctx context.Context, message string) *ConfirmationResult {
	if c.config.AssumeYes {
		return &ConfirmationResult{Approved: true}
	}
	return c.promptUser(ctx, message)
}

// Ask is Confirm reduced to (approved, error)
func (c *Confirmer) Ask(ctx context.Context, message string) (bool, error) {
	result := c.Confirm(ctx, message)
	return result.Approved, result.Error
}

// AskAlways prompts even when AssumeYes is set. Used for questions whose
// yes answer leads to another prompt.
func (c *Confirmer) AskAlways(ctx context.Context, message string) (bool, error) {
	result := c.promptUser(ctx, message)
	return result.Approved, result.Error
}

// promptUser handles the interactive confirmation prompt
func (c *Confirmer) promptUser(ctx context.Context, message string) *ConfirmationResult {
	promptCtx, cancel := c.promptContext(ctx)
	defer cancel()

	fmt.Fprint(c.out, message)

	select {
	case <-promptCtx.Done():
		fmt.Fprintln(c.out)
		if ctx.Err() != nil {
			return &ConfirmationResult{Error: ctx.Err()}
		}
		return &ConfirmationResult{
			Approved: !c.config.DefaultDeny,
			TimedOut: true,
		}

	case line, ok := <-c.lineChan():
		if !ok {
			return &ConfirmationResult{Error: fmt.Errorf("failed to read user input: %w", c.readErr)}
		}
		return &ConfirmationResult{Approved: c.parseResponse(line)}
	}
}

func (c *Confirmer) promptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.Timeout > 0 {
		return context.WithTimeout(ctx, c.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// lineChan starts the input reader on first use. A prompt that gives up
// leaves its pending read to the next prompt instead of starting a second
// reader on the same input.
func (c *Confirmer) lineChan() <-chan string {
	c.linesOnce.Do(func() {
		c.lines = make(chan string)
		go c.readLines()
	})
	return c.lines
}

func (c *Confirmer) readLines() {
	reader := bufio.NewReader(c.in)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		if err != nil {
			// written before close, so receivers that see the close see it
			c.readErr = err
			close(c.lines)
			return
		}
		c.lines <- strings.TrimRight(line, "\r\n")
	}
}


// parseResponse parses the user's response to determine approval
func (c *Confirmer) parseResponse(response string) bool {
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return !c.config.DefaultDeny
	}
}

// DisplayWarning displays a warning message to the user
func (c *Confirmer) DisplayWarning(message string) {
	fmt.Fprintf(c.out, "WARNING: %s\n", message)
}

// SetConfig updates the confirmer configuration
func (c *Confirmer) SetConfig(config types.Confirmation) {
	c.config = config
}

// GetConfig returns the current confirmer configuration
func (c *Confirmer) GetConfig() types.Confirmation {
	return c.config
}

// Output returns the writer prompts go to
func (c *Confirmer) Output() io.Writer {
	return c.out
}

// IsInteractive returns true unless prompts are answered automatically
func (c *Confirmer) IsInteractive() bool {
	return !c.config.AssumeYes
}
