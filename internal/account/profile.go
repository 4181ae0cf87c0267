package account

import (
	"github.com/in3-cli/in3cli/internal/log"
	"github.com/in3-cli/in3cli/internal/secret"
	"github.com/in3-cli/in3cli/internal/storage"
	"github.com/in3-cli/in3cli/pkg/types"
)

// Profile is the manager's view of a stored profile
type Profile struct {
	record    *storage.Record
	isDefault bool
	secrets   SecretStore
}

func (p *Profile) Name() string { return p.record.Name() }

// Address returns the configured address, "" while unset
func (p *Profile) Address() string { return p.record.Address() }

func (p *Profile) HasAddress() bool { return p.record.HasAddress() }

func (p *Profile) Network() types.Network { return p.record.Network() }

func (p *Profile) IgnoreTLSErrors() bool { return p.record.IgnoreTLSErrors() }

// IsDefault reports whether this profile was the default when it was loaded
func (p *Profile) IsDefault() bool { return p.isDefault }

// Ref addresses this profile's secret
func (p *Profile) Ref() secret.Ref {
	return refFor(p.record)
}

// HasStoredSecret queries the secret store. A failing backend reads as no secret.
func (p *Profile) HasStoredSecret() bool {
	s, ok, err := p.secrets.Get(p.Ref())
	if err != nil {
		log.Account.Warn().Err(err).Str("profile", p.Name()).Msg("failed to query stored private key")
		return false
	}
	return ok && s != ""
}

func (p *Profile) String() string {
	return p.record.String()
}

func refFor(record *storage.Record) secret.Ref {
	return secret.Ref{
		Profile: record.Name(),
		Account: record.Value(storage.AddressKey),
	}
}
