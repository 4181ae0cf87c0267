package validation

import (
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/common"

	"github.com/in3-cli/in3cli/pkg/types"
)

// Validator provides input validation for command arguments
type Validator struct {
	profileNamePattern *regexp.Regexp
	privateKeyPattern  *regexp.Regexp
	hashPattern        *regexp.Regexp
	ensLabelPattern    *regexp.Regexp

	// Characters that would corrupt the INI profile file or a terminal
	injectionPatterns []*regexp.Regexp
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		// Profile name: alphanumeric with underscores, hyphens, dots (1-64 chars)
		profileNamePattern: regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`),

		// 32 byte hex with optional 0x prefix
		privateKeyPattern: regexp.MustCompile(`^(0x|0X)?[0-9a-fA-F]{64}$`),

		hashPattern: regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`),

		ensLabelPattern: regexp.MustCompile(`^[a-z0-9_-]+$`),

		injectionPatterns: []*regexp.Regexp{
			regexp.MustCompile(`[\[\]=:;#]`), // INI syntax
			regexp.MustCompile(`\n|\r`),      // Newlines
			regexp.MustCompile(`\x00`),       // Null bytes
			regexp.MustCompile(`\x1b\[`),     // Terminal escapes
		},
	}
}

// reservedNames cannot be used as profile names
var reservedNames = []string{"Internal", "DEFAULT", types.Sentinel}

// ValidateProfileName validates a profile name
func (v *Validator) ValidateProfileName(name string) error {
	if name == "" {
		return fmt.Errorf("account name cannot be empty")
	}

	if len(name) > 64 {
		return fmt.Errorf("account name too long: maximum 64 characters")
	}

	for _, reserved := range reservedNames {
		if strings.EqualFold(name, reserved) {
			return fmt.Errorf("'%s' is not a valid account name.", name)
		}
	}

	if v.containsInjection(name) || !v.profileNamePattern.MatchString(name) {
		return fmt.Errorf("invalid account name: must contain only alphanumeric characters, dots, underscores, and hyphens")
	}

	return nil
}

// ValidateAddress validates a hex encoded account address
func (v *Validator) ValidateAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid address '%s': expected 0x followed by 40 hex characters", address)
	}

	return nil
}

// ValidatePrivateKey checks the format of a hex encoded private key. The
// value is never echoed back in the error.
func (v *Validator) ValidatePrivateKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("private key cannot be empty")
	}

	if !v.privateKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid private key: expected 64 hex characters")
	}

	return nil
}

// ValidateHash validates a block or transaction hash
func (v *Validator) ValidateHash(hash string) error {
	if !v.hashPattern.MatchString(strings.TrimSpace(hash)) {
		return fmt.Errorf("invalid hash '%s': expected 0x followed by 64 hex characters", hash)
	}
	return nil
}

// ParseBlockRef parses a --block-num value. It returns either a block tag
// or a block number.
func (v *Validator) ParseBlockRef(ref string) (types.BlockTag, uint64, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	for _, tag := range types.BlockTags() {
		if ref == string(tag) {
			return tag, 0, nil
		}
	}

	base := 10
	digits := ref
	if strings.HasPrefix(ref, "0x") {
		base = 16
		digits = ref[2:]
	}

	number, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return "", 0, fmt.Errorf("'%s' is not a supported block number. Try a numeric value or one of [latest, earliest, pending].", ref)
	}
	return "", number, nil
}

// ValidateENSName checks that name is a normalised dotted ENS name with a
// top-level domain
func (v *Validator) ValidateENSName(name string) error {
	if name == "" {
		return fmt.Errorf("ENS name cannot be empty")
	}

	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return fmt.Errorf("Missing top-level domain. Try '%s.eth'.", name)
	}

	for _, label := range labels {
		if label == "" {
			return fmt.Errorf("invalid ENS name '%s': empty label", name)
		}
		if !v.ensLabelPattern.MatchString(label) && !isUnicodeLabel(label) {
			return fmt.Errorf("invalid ENS name '%s': labels must be lowercase", name)
		}
	}

	return nil
}

// ValidateURL validates an RPC endpoint URL
func (v *Validator) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	if strings.ContainsAny(rawURL, "\r\n\x00 ") {
		return fmt.Errorf("URL contains invalid characters")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch parsed.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("unsupported URL scheme '%s': use http, https, ws or wss", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL is missing a host")
	}

	return nil
}

// ParseWei parses a decimal or 0x-prefixed amount of wei
func (v *Validator) ParseWei(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("value cannot be empty")
	}

	amount, ok := new(big.Int).SetString(value, 0)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid value '%s': expected a non-negative integer amount of wei", value)
	}
	return amount, nil
}

// SanitizeString removes control characters before a value is printed
func (v *Validator) SanitizeString(input string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' {
			return r
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, input)
}

// TruncateString safely truncates a string to a maximum length
func (v *Validator) TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// containsInjection checks if input contains characters that break the profile file
func (v *Validator) containsInjection(input string) bool {
	for _, pattern := range v.injectionPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}

func isUnicodeLabel(label string) bool {
	for _, r := range label {
		if unicode.IsUpper(r) || unicode.IsSpace(r) || unicode.IsControl(r) || unicode.IsPunct(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}
