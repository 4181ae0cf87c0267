package account

import (
	"errors"
	"fmt"
	"strings"
)

// CreateAccountHelp tells the user how to add a profile
const CreateAccountHelp = "To add an account, use:\n\tin3 account create --name <account-name> --address <address>"

// ConfigurationError is the expected failure of a profile operation: a
// missing profile, no default, a duplicate name. Help, when set, tells the
// user how to fix it.
type ConfigurationError struct {
	Message string
	Help    string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// HelpFor returns the help text carried by err, if any
func HelpFor(err error) string {
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return ce.Help
	}
	return ""
}

func configError(help, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...), Help: help}
}

func selectDefaultHelp(existing []*Profile) string {
	lines := make([]string, len(existing))
	for i, p := range existing {
		lines[i] = p.String()
	}

	var b strings.Builder
	b.WriteString("Use the --account flag to specify which account to use.\n")
	b.WriteString("To set the default account (used whenever --account is not provided), use: in3 account use <account-name>\n")
	b.WriteString("Existing accounts:\n\t")
	b.WriteString(strings.Join(lines, "\n\t"))
	return b.String()
}
