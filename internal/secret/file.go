package secret

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/in3-cli/in3cli/internal/crypto"
	"github.com/in3-cli/in3cli/internal/log"
)

const (
	// SecretsFileName holds the sealed secrets
	SecretsFileName = "secrets.json"
	// KeyFileName holds the generated passphrase when none is configured
	KeyFileName = "secrets.key"

	fileVersion      = 1
	passphraseLength = 48
)

type secretsFile struct {
	Version int                          `json:"version"`
	Salt    string                       `json:"salt"`
	Entries map[string]map[string]string `json:"entries"`
}

// FileBackend keeps sealed secrets in a JSON file. The passphrase either
// comes from configuration or is generated into a key file next to the
// data, so the file only protects against casual reading. It reports
// itself as insecure.
type FileBackend struct {
	mu         sync.Mutex
	dir        string
	passphrase string
	sealer     *crypto.Sealer
	salt       string
}

// NewFileBackend creates a file backend rooted at dir. Nothing is read or
// written until the first operation.
func NewFileBackend(dir, passphrase string) *FileBackend {
	return &FileBackend{dir: dir, passphrase: passphrase}
}

func (f *FileBackend) Name() string { return "file" }

func (f *FileBackend) Secure() bool { return false }

// Path returns the secrets file path
func (f *FileBackend) Path() string {
	return filepath.Join(f.dir, SecretsFileName)
}

func (f *FileBackend) Get(service, account string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return "", err
	}
	sealed, ok := data.Entries[service][account]
	if !ok {
		return "", ErrNotFound
	}

	sealer, err := f.sealerFor(data)
	if err != nil {
		return "", err
	}
	plaintext, err := sealer.OpenString(sealed, entryKey(service, account))
	if err != nil {
		if errors.Is(err, crypto.ErrDecrypt) {
			return "", fmt.Errorf("failed to decrypt secret for %q: passphrase or key file changed", service)
		}
		return "", fmt.Errorf("failed to decrypt secret for %q: %w", service, err)
	}
	return plaintext, nil
}

func (f *FileBackend) Set(service, account, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	sealer, err := f.sealerFor(data)
	if err != nil {
		return err
	}

	sealed, err := sealer.SealString(secret, entryKey(service, account))
	if err != nil {
		return fmt.Errorf("failed to encrypt secret: %w", err)
	}
	if data.Entries[service] == nil {
		data.Entries[service] = make(map[string]string)
	}
	data.Entries[service][account] = sealed

	return f.save(data)
}

func (f *FileBackend) Delete(service, account string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := data.Entries[service][account]; !ok {
		return ErrNotFound
	}

	delete(data.Entries[service], account)
	if len(data.Entries[service]) == 0 {
		delete(data.Entries, service)
	}
	return f.save(data)
}

func (f *FileBackend) load() (*secretsFile, error) {
	raw, err := os.ReadFile(f.Path())
	if os.IsNotExist(err) {
		return &secretsFile{Version: fileVersion, Entries: make(map[string]map[string]string)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	var data secretsFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse secrets file: %w", err)
	}
	if data.Version != fileVersion {
		return nil, fmt.Errorf("unsupported secrets file version %d", data.Version)
	}
	if data.Entries == nil {
		data.Entries = make(map[string]map[string]string)
	}
	return &data, nil
}

// sealerFor returns a sealer for the file's salt, creating the salt on first use
func (f *FileBackend) sealerFor(data *secretsFile) (*crypto.Sealer, error) {
	if data.Salt == "" {
		salt, err := crypto.NewSalt()
		if err != nil {
			return nil, err
		}
		data.Salt = base64.StdEncoding.EncodeToString(salt)
	}
	if f.sealer != nil && f.salt == data.Salt {
		return f.sealer, nil
	}

	salt, err := base64.StdEncoding.DecodeString(data.Salt)
	if err != nil {
		return nil, fmt.Errorf("invalid salt in secrets file: %w", err)
	}
	passphrase, err := f.loadPassphrase()
	if err != nil {
		return nil, err
	}
	sealer, err := crypto.NewSealer(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets encryption: %w", err)
	}

	f.sealer, f.salt = sealer, data.Salt
	return sealer, nil
}

func (f *FileBackend) loadPassphrase() (string, error) {
	if f.passphrase != "" {
		return f.passphrase, nil
	}

	keyPath := filepath.Join(f.dir, KeyFileName)
	raw, err := os.ReadFile(keyPath)
	if err == nil {
		return strings.TrimSpace(string(raw)), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read key file: %w", err)
	}

	passphrase, err := crypto.GeneratePassphrase(passphraseLength)
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(keyPath, []byte(passphrase+"\n")); err != nil {
		return "", fmt.Errorf("failed to write key file: %w", err)
	}
	log.Secrets.Debug().Str("path", keyPath).Msg("generated secrets key file")
	return passphrase, nil
}

func (f *FileBackend) save(data *secretsFile) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}
	if err := writeFileAtomic(f.Path(), raw); err != nil {
		return fmt.Errorf("failed to save secrets file: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile) // Clean up temp file, ignore error
		return err
	}
	return nil
}
