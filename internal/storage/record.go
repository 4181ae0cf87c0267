package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/in3-cli/in3cli/pkg/types"
)

const (
	// InternalSection holds bookkeeping and is never shown as a profile
	InternalSection = "Internal"
	// DefaultAccountKey names the default-profile pointer in the internal section
	DefaultAccountKey = "default_account"

	AddressKey         = "address"
	NetworkKey         = "chain"
	IgnoreTLSErrorsKey = "ignore-ssl-errors"
)

// ErrProfileNotFound is matched by every NotFoundError
var ErrProfileNotFound = errors.New("account does not exist")

// NotFoundError reports a profile name that does not resolve to a record.
// Name is empty when the lookup went through an unset default pointer.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return "account does not exist."
	}
	return fmt.Sprintf("account '%s' does not exist.", e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrProfileNotFound
}

func notFound(name string) error {
	if name == types.Sentinel {
		name = ""
	}
	return &NotFoundError{Name: name}
}

// Record is a snapshot of one profile section
type Record struct {
	name   string
	values map[string]string
}

func newRecord(name string, values map[string]string) *Record {
	owned := make(map[string]string, len(values))
	for k, v := range values {
		owned[k] = v
	}
	return &Record{name: name, values: owned}
}

func defaultValues() map[string]string {
	return map[string]string{
		AddressKey:         types.Sentinel,
		IgnoreTLSErrorsKey: formatBool(false),
		NetworkKey:         string(types.DefaultNetwork),
	}
}

// Name returns the profile name
func (r *Record) Name() string { return r.name }

// Address returns the stored address, or "" while it is still the sentinel
func (r *Record) Address() string {
	addr := r.values[AddressKey]
	if addr == types.Sentinel {
		return ""
	}
	return addr
}

// HasAddress reports whether the profile has a real address configured
func (r *Record) HasAddress() bool {
	return r.Address() != ""
}

// Network returns the profile network, falling back to mainnet
func (r *Record) Network() types.Network {
	n, err := types.ParseNetwork(r.values[NetworkKey])
	if err != nil {
		return types.DefaultNetwork
	}
	return n
}

// IgnoreTLSErrors reports whether certificate validation is disabled
func (r *Record) IgnoreTLSErrors() bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.values[IgnoreTLSErrorsKey]))
	return err == nil && v
}

// Value returns a raw section value
func (r *Record) Value(key string) string {
	return r.values[key]
}

// Values returns a copy of the raw section
func (r *Record) Values() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

func (r *Record) String() string {
	addr := r.values[AddressKey]
	return fmt.Sprintf("%s: Address=%s", r.name, addr)
}

// apply merges fields into values
func apply(values map[string]string, fields ProfileFields) {
	if fields.Address != nil {
		if addr := strings.TrimSpace(*fields.Address); addr != "" {
			values[AddressKey] = addr
		}
	}
	if fields.Network != nil && *fields.Network != "" {
		values[NetworkKey] = string(*fields.Network)
	}
	if fields.IgnoreTLSErrors != nil {
		values[IgnoreTLSErrorsKey] = formatBool(*fields.IgnoreTLSErrors)
	}
}

// formatBool matches the "True"/"False" spelling of existing config files
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// isReservedName reports names that can never be a profile
func isReservedName(name string) bool {
	return name == "" || name == types.Sentinel || name == InternalSection || name == defaultSectionName
}

func hasRealAddress(values map[string]string) bool {
	addr := strings.TrimSpace(values[AddressKey])
	return addr != "" && addr != types.Sentinel
}

// defaultUnset reports whether a default pointer value names no profile
func defaultUnset(pointer string) bool {
	return pointer == "" || pointer == types.Sentinel
}
