package secret

import (
	"context"
	"errors"
	"fmt"

	"github.com/in3-cli/in3cli/internal/log"
)

// ConsentPrompt is shown before a secret is written to an insecure backend
const ConsentPrompt = "keyring is unavailable. Would you like to store in secure flat file? (y/n): "

// ConfirmFunc asks the user a yes/no question
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Ref addresses the secret of one profile
type Ref struct {
	Profile string
	Account string
}

// ServiceName scopes a profile's secrets to the product
func ServiceName(product, profile string) string {
	return product + "::" + profile
}

// Store is the consent-gated front of a Backend
type Store struct {
	backend Backend
	product string
	confirm ConfirmFunc
}

// NewStore wraps backend. confirm may be nil, in which case writes to an
// insecure backend are declined.
func NewStore(backend Backend, product string, confirm ConfirmFunc) *Store {
	return &Store{backend: backend, product: product, confirm: confirm}
}

// Secure reports whether the backend is the platform secure store
func (s *Store) Secure() bool { return s.backend.Secure() }

// BackendName names the active backend
func (s *Store) BackendName() string { return s.backend.Name() }

// Get returns the secret for ref. A missing secret is reported through ok, not err.
func (s *Store) Get(ref Ref) (string, bool, error) {
	secret, err := s.backend.Get(s.service(ref), ref.Account)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return secret, true, nil
}

// Set stores secret for ref and reports whether it was stored. An insecure
// backend asks for consent first; declining is not an error.
func (s *Store) Set(ctx context.Context, ref Ref, secret string) (bool, error) {
	if !s.backend.Secure() {
		if s.confirm == nil {
			log.Secrets.Debug().Str("profile", ref.Profile).Msg("no confirmation available, secret not stored")
			return false, nil
		}
		ok, err := s.confirm(ctx, ConsentPrompt)
		if err != nil {
			return false, err
		}
		if !ok {
			log.Secrets.Debug().Str("profile", ref.Profile).Msg("flat file storage declined")
			return false, nil
		}
	}

	if err := s.backend.Set(s.service(ref), ref.Account, secret); err != nil {
		return false, err
	}
	log.Secrets.Debug().Str("profile", ref.Profile).Str("backend", s.backend.Name()).Msg("stored secret")
	return true, nil
}

// Delete removes the secret for ref. A missing secret is not an error.
func (s *Store) Delete(ref Ref) error {
	err := s.backend.Delete(s.service(ref), ref.Account)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Move re-files a stored secret under a new reference, for example after
// the profile address changed. It does nothing when from holds no secret.
func (s *Store) Move(from, to Ref) error {
	if from == to {
		return nil
	}
	secret, ok, err := s.Get(from)
	if err != nil || !ok {
		return err
	}
	if err := s.backend.Set(s.service(to), to.Account, secret); err != nil {
		return fmt.Errorf("failed to store moved secret: %w", err)
	}
	return s.Delete(from)
}

func (s *Store) service(ref Ref) string {
	return ServiceName(s.product, ref.Profile)
}
