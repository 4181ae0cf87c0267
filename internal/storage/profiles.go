package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/in3-cli/in3cli/internal/log"
	"github.com/in3-cli/in3cli/pkg/types"
)

// Ensure ProfileStore implements ProfileStoreInterface
var _ ProfileStoreInterface = (*ProfileStore)(nil)

const (
	// ProfilesFileName is the filename for the profiles database
	ProfilesFileName = "config.cfg"
)

var defaultSectionName = ini.DefaultSection

// ProfileStore manages the on-disk profile sections and the default pointer.
//
// Every mutating call rewrites the whole file before returning. The store
// assumes a single writer: two concurrent invocations against the same
// file are not coordinated.
type ProfileStore struct {
	path string
	file *ini.File
}

// NewProfileStore opens the profile file at path, creating it with only the
// internal section when it does not exist yet.
func NewProfileStore(path string) (*ProfileStore, error) {
	store := &ProfileStore{path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		store.file = ini.Empty()
		store.ensureInternal()
		if err := store.save(); err != nil {
			return nil, err
		}
		log.Storage.Debug().Str("path", path).Msg("created profile store")
		return store, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat profiles file: %w", err)
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}
	store.file = file
	store.ensureInternal()

	log.Storage.Debug().Str("path", path).Int("profiles", len(store.profileSections())).Msg("loaded profile store")
	return store, nil
}

// Path returns the backing file path
func (ps *ProfileStore) Path() string {
	return ps.path
}

// GetProfile returns the named profile, or the default profile when name is empty
func (ps *ProfileStore) GetProfile(name string) (*Record, error) {
	sec, err := ps.section(name)
	if err != nil {
		return nil, err
	}
	return newRecord(sec.Name(), sec.KeysHash()), nil
}

// GetAllProfiles returns every profile in file order
func (ps *ProfileStore) GetAllProfiles() []*Record {
	sections := ps.profileSections()
	records := make([]*Record, 0, len(sections))
	for _, sec := range sections {
		records = append(records, newRecord(sec.Name(), sec.KeysHash()))
	}
	return records
}

// CreateProfile creates the profile when missing and applies fields to it.
// An existing profile is updated in place. A profile that ends up with a
// real address becomes the default when no default is set; the section,
// its values and the promotion are persisted by a single write.
func (ps *ProfileStore) CreateProfile(name string, fields ProfileFields) error {
	if isReservedName(name) {
		return notFound(name)
	}

	sec, err := ps.file.GetSection(name)
	if err != nil {
		sec, err = ps.file.NewSection(name)
		if err != nil {
			return fmt.Errorf("failed to create section for '%s': %w", name, err)
		}
		writeValues(sec, defaultValues())
		log.Storage.Debug().Str("profile", name).Msg("created profile section")
	}

	values := sec.KeysHash()
	apply(values, fields)
	writeValues(sec, values)

	ps.tryCompleteSetup(name, values)

	return ps.save()
}

// UpdateProfile applies fields to an existing profile
func (ps *ProfileStore) UpdateProfile(name string, fields ProfileFields) error {
	sec, err := ps.section(name)
	if err != nil {
		return err
	}

	values := sec.KeysHash()
	hadAddress := hasRealAddress(values)
	apply(values, fields)
	writeValues(sec, values)

	// an address set after creation finishes the setup the create started
	if !hadAddress {
		ps.tryCompleteSetup(sec.Name(), values)
	}

	return ps.save()
}

// SwitchDefault marks name as the default profile
func (ps *ProfileStore) SwitchDefault(name string) error {
	if _, err := ps.section(name); err != nil {
		return err
	}
	if name == "" {
		return nil
	}

	ps.internal().Key(DefaultAccountKey).SetValue(name)
	return ps.save()
}

// DeleteProfile removes a profile, clearing the default pointer if it pointed there
func (ps *ProfileStore) DeleteProfile(name string) error {
	sec, err := ps.section(name)
	if err != nil {
		return err
	}
	name = sec.Name()

	ps.file.DeleteSection(name)
	if ps.defaultPointer() == name {
		ps.internal().Key(DefaultAccountKey).SetValue(types.Sentinel)
	}

	return ps.save()
}

// DefaultProfileName returns the default pointer, or "" when none is set
func (ps *ProfileStore) DefaultProfileName() string {
	name := ps.defaultPointer()
	if name == types.Sentinel {
		return ""
	}
	return name
}

// section resolves name (or the default pointer) to an existing profile section
func (ps *ProfileStore) section(name string) (*ini.Section, error) {
	if name == "" {
		name = ps.defaultPointer()
	}
	if isReservedName(name) {
		return nil, notFound(name)
	}

	sec, err := ps.file.GetSection(name)
	if err != nil {
		return nil, notFound(name)
	}
	return sec, nil
}

func (ps *ProfileStore) tryCompleteSetup(name string, values map[string]string) {
	if !hasRealAddress(values) {
		return
	}
	if !defaultUnset(ps.defaultPointer()) {
		return
	}

	ps.internal().Key(DefaultAccountKey).SetValue(name)
	log.Storage.Debug().Str("profile", name).Msg("promoted profile to default")
}

func (ps *ProfileStore) defaultPointer() string {
	return ps.internal().Key(DefaultAccountKey).String()
}

func (ps *ProfileStore) internal() *ini.Section {
	return ps.ensureInternal()
}

// ensureInternal returns the internal section, recreating it when missing
func (ps *ProfileStore) ensureInternal() *ini.Section {
	sec, err := ps.file.GetSection(InternalSection)
	if err != nil {
		sec = ps.file.Section(InternalSection)
	}
	if !sec.HasKey(DefaultAccountKey) || sec.Key(DefaultAccountKey).String() == "" {
		sec.Key(DefaultAccountKey).SetValue(types.Sentinel)
	}
	return sec
}

func (ps *ProfileStore) profileSections() []*ini.Section {
	var out []*ini.Section
	for _, sec := range ps.file.Sections() {
		switch sec.Name() {
		case defaultSectionName, InternalSection:
			continue
		}
		out = append(out, sec)
	}
	return out
}

// save writes the whole file through a synced temp file and an atomic rename
func (ps *ProfileStore) save() error {
	if err := os.MkdirAll(filepath.Dir(ps.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tempPath := ps.path + ".tmp"
	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open temp profiles file: %w", err)
	}

	if _, err := ps.file.WriteTo(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to write profiles to temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to sync profiles file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to close profiles file: %w", err)
	}

	if err := os.Rename(tempPath, ps.path); err != nil {
		_ = os.Remove(tempPath) // Clean up temp file, ignore error
		return fmt.Errorf("failed to atomically update profiles file: %w", err)
	}

	return nil
}

func writeValues(sec *ini.Section, values map[string]string) {
	for _, key := range []string{AddressKey, IgnoreTLSErrorsKey, NetworkKey} {
		if v, ok := values[key]; ok {
			sec.Key(key).SetValue(v)
		}
	}
	for k, v := range values {
		sec.Key(k).SetValue(v)
	}
}
