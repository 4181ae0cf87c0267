package storage

import (
	"strings"

	"github.com/in3-cli/in3cli/pkg/types"
)

// ProfileStoreInterface defines the interface for profile storage
type ProfileStoreInterface interface {
	GetProfile(name string) (*Record, error)
	GetAllProfiles() []*Record
	CreateProfile(name string, fields ProfileFields) error
	UpdateProfile(name string, fields ProfileFields) error
	SwitchDefault(name string) error
	DeleteProfile(name string) error
	DefaultProfileName() string
}

// ProfileFields carries optional profile attributes. A nil field (or an
// empty address or network) leaves the stored value unchanged.
type ProfileFields struct {
	Address         *string
	Network         *types.Network
	IgnoreTLSErrors *bool
}

// Fields builds a ProfileFields from plain values, treating zero strings as unset
func Fields(address string, network types.Network, ignoreTLSErrors *bool) ProfileFields {
	var f ProfileFields
	if address != "" {
		f.Address = &address
	}
	if network != "" {
		f.Network = &network
	}
	f.IgnoreTLSErrors = ignoreTLSErrors
	return f
}

// IsEmpty reports whether applying f would change nothing
func (f ProfileFields) IsEmpty() bool {
	return (f.Address == nil || strings.TrimSpace(*f.Address) == "") &&
		(f.Network == nil || *f.Network == "") &&
		f.IgnoreTLSErrors == nil
}
