package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/in3-cli/in3cli/internal/account"
	"github.com/in3-cli/in3cli/internal/chain"
	"github.com/in3-cli/in3cli/internal/storage"
	"github.com/in3-cli/in3cli/pkg/types"
)

const (
	privateKeyPrompt      = "Would you like to store or update your private key in keyring? (y/n): "
	deleteAccountPrompt   = "\nDeleting this account will also delete any stored private keys. Are you sure? (y/n): "
	deleteAllPromptFormat = "\nAre you sure you want to delete the following accounts?\n\t%s\n\nThis will also delete any stored private keys. (y/n): "
)

var (
	nameFlag       string
	addressFlag    string
	privateKeyFlag string
	disableSSLFlag bool
)

// accountCmd represents the account command
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage in3 accounts",
	Long: `Create, update, list and delete in3 accounts.

An account names an address, the network it lives on and how to connect to
it. The first account created with an address becomes the default.`,
}

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	Long:  `Create account settings. The first account created will be the default.`,
	Args:  cobra.NoArgs,
	RunE:  runAccountCreate,
}

var accountUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update an existing account",
	Args:  cobra.NoArgs,
	RunE:  runAccountUpdate,
}

var accountShowCmd = &cobra.Command{
	Use:   "show [account]",
	Short: "Print the details of an account",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAccountShow,
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all existing stored accounts",
	Args:  cobra.NoArgs,
	RunE:  runAccountList,
}

var accountUseCmd = &cobra.Command{
	Use:   "use [account]",
	Short: "Set an account as the default",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountUse,
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete [account]",
	Short: "Delete an account and its stored private key",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAccountDelete,
}

var accountDeleteAllCmd = &cobra.Command{
	Use:   "delete-all",
	Short: "Delete all accounts and stored private keys",
	Args:  cobra.NoArgs,
	RunE:  runAccountDeleteAll,
}

var accountResetKeyCmd = &cobra.Command{
	Use:   "reset-private-key [account]",
	Short: "Change the stored private key for an account",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAccountResetKey,
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountUpdateCmd)
	accountCmd.AddCommand(accountShowCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountUseCmd)
	accountCmd.AddCommand(accountDeleteCmd)
	accountCmd.AddCommand(accountDeleteAllCmd)
	accountCmd.AddCommand(accountResetKeyCmd)

	for _, cmd := range []*cobra.Command{accountCreateCmd, accountUpdateCmd} {
		cmd.Flags().StringVarP(&nameFlag, "name", "n", "", "name of the account")
		cmd.Flags().StringVar(&addressFlag, "address", "", "address of the wallet")
		cmd.Flags().StringVar(&privateKeyFlag, "private-key", "", "private key of the wallet (prompted for when omitted)")
		cmd.Flags().BoolVar(&disableSSLFlag, "disable-ssl-errors", false, "do not validate TLS certificates of RPC endpoints")
		_ = cmd.MarkFlagRequired("name")
	}
}

// accountFields collects the flags shared by create and update
func accountFields(cmd *cobra.Command, a *app) (storage.ProfileFields, error) {
	if addressFlag != "" {
		if err := a.validator.ValidateAddress(addressFlag); err != nil {
			return storage.ProfileFields{}, err
		}
	}

	var network types.Network
	if chainName != "" {
		n, err := types.ParseNetwork(chainName)
		if err != nil {
			return storage.ProfileFields{}, err
		}
		network = n
	}

	var ignoreTLS *bool
	if cmd.Flags().Changed("disable-ssl-errors") {
		ignoreTLS = &disableSSLFlag
	}
	return storage.Fields(strings.TrimSpace(addressFlag), network, ignoreTLS), nil
}

func runAccountCreate(cmd *cobra.Command, args []string) error {
	a := current
	if err := a.validator.ValidateProfileName(nameFlag); err != nil {
		return err
	}
	fields, err := accountFields(cmd, a)
	if err != nil {
		return err
	}
	// A key given up front names the address, so the account can become the default.
	if fields.Address == nil && privateKeyFlag != "" {
		if address, err := chain.RecoverAddress(privateKeyFlag); err == nil {
			hex := address.Hex()
			fields.Address = &hex
		}
	}

	if err := a.manager.CreateProfile(nameFlag, fields); err != nil {
		return err
	}
	if err := storeKeyFromFlagsOrPrompt(cmd.Context(), a, nameFlag); err != nil {
		return err
	}

	a.printf("Successfully created account '%s'.\n", nameFlag)
	return nil
}

func runAccountUpdate(cmd *cobra.Command, args []string) error {
	a := current
	profile, err := a.manager.GetProfile(nameFlag)
	if err != nil {
		return err
	}
	fields, err := accountFields(cmd, a)
	if err != nil {
		return err
	}

	if err := a.manager.UpdateProfile(profile.Name(), fields); err != nil {
		return err
	}
	if err := storeKeyFromFlagsOrPrompt(cmd.Context(), a, profile.Name()); err != nil {
		return err
	}

	a.printf("account '%s' has been updated.\n", profile.Name())
	return nil
}

func runAccountShow(cmd *cobra.Command, args []string) error {
	a := current
	profile, err := a.manager.GetProfile(argOrEmpty(args))
	if err != nil {
		return err
	}

	a.printf("%s:\n", profile.Name())
	a.printf("\tAddress: %s\n", displayAddress(profile))
	a.printf("\tChain: %s\n", profile.Network())
	a.printf("\tIgnore SSL Errors: %t\n", profile.IgnoreTLSErrors())
	if profile.HasStoredSecret() {
		a.println("\t* Private key is set.")
	}
	return nil
}

func runAccountList(cmd *cobra.Command, args []string) error {
	a := current
	profiles := a.manager.GetAllProfiles()
	if len(profiles) == 0 {
		return &account.ConfigurationError{Message: "No existing account.", Help: account.CreateAccountHelp}
	}
	for _, p := range profiles {
		a.println(p.String())
	}
	return nil
}

func runAccountUse(cmd *cobra.Command, args []string) error {
	a := current
	if err := a.manager.SwitchDefault(args[0]); err != nil {
		return err
	}
	a.printf("%s has been set as the default account.\n", args[0])
	return nil
}

func runAccountDelete(cmd *cobra.Command, args []string) error {
	a := current
	profile, err := a.manager.GetProfile(argOrEmpty(args))
	if err != nil {
		return err
	}

	message := deleteAccountPrompt
	if profile.IsDefault() {
		message = fmt.Sprintf("\n'%s' is currently the default account!\n%s", profile.Name(), message)
	}
	ok, err := a.prompt.Ask(cmd.Context(), message)
	if err != nil || !ok {
		return err
	}

	if err := a.manager.DeleteProfile(profile.Name()); err != nil {
		return err
	}
	a.printf("account '%s' has been deleted.\n", profile.Name())
	return nil
}

func runAccountDeleteAll(cmd *cobra.Command, args []string) error {
	a := current
	existing := a.manager.GetAllProfiles()
	if len(existing) == 0 {
		a.println("\nNo accounts exist. Nothing to delete.")
		return nil
	}

	names := make([]string, len(existing))
	for i, p := range existing {
		names[i] = p.Name()
	}
	ok, err := a.prompt.Ask(cmd.Context(), fmt.Sprintf(deleteAllPromptFormat, strings.Join(names, "\n\t")))
	if err != nil || !ok {
		return err
	}

	deleted, err := a.manager.DeleteAllProfiles()
	for _, name := range deleted {
		a.printf("account '%s' has been deleted.\n", name)
	}
	return err
}

func runAccountResetKey(cmd *cobra.Command, args []string) error {
	a := current
	profile, err := a.manager.GetProfile(argOrEmpty(args))
	if err != nil {
		return err
	}

	key, err := a.prompt.ReadSecret(cmd.Context(), "Private key: ")
	if err != nil {
		return err
	}
	stored, err := setPrivateKey(cmd.Context(), a, profile.Name(), key)
	if err != nil || !stored {
		return err
	}
	a.printf("Private key updated for account '%s'\n", profile.Name())
	return nil
}

// storeKeyFromFlagsOrPrompt stores --private-key, or offers to prompt for
// a key when the flag is absent and the session is interactive
func storeKeyFromFlagsOrPrompt(ctx context.Context, a *app, name string) error {
	if privateKeyFlag != "" {
		_, err := setPrivateKey(ctx, a, name, privateKeyFlag)
		return err
	}
	if !a.prompt.IsInteractive() {
		return nil
	}

	ok, err := a.prompt.Ask(ctx, privateKeyPrompt)
	if err != nil || !ok {
		return err
	}
	key, err := a.prompt.ReadSecret(ctx, "Private key: ")
	if err != nil {
		return err
	}
	_, err = setPrivateKey(ctx, a, name, key)
	return err
}

// setPrivateKey validates key against the account and stores it. An account
// without an address takes the address the key controls.
func setPrivateKey(ctx context.Context, a *app, name, key string) (bool, error) {
	key = strings.TrimSpace(key)
	profile, err := a.manager.GetProfile(name)
	if err != nil {
		return false, err
	}

	if err := validateKeyFor(a, profile, key); err != nil {
		fmt.Fprintln(a.prompt.Output(), "Private key not stored!")
		return false, err
	}

	if !profile.HasAddress() {
		address, err := chain.RecoverAddress(key)
		if err != nil {
			return false, err
		}
		hex := address.Hex()
		if err := a.manager.UpdateProfile(profile.Name(), storage.ProfileFields{Address: &hex}); err != nil {
			return false, err
		}
	}

	return a.manager.SetSecret(ctx, key, profile.Name())
}

func validateKeyFor(a *app, profile *account.Profile, key string) error {
	if err := a.validator.ValidatePrivateKey(key); err != nil {
		return err
	}
	return chain.ValidatePrivateKey(key, profile.Address())
}

func displayAddress(p *account.Profile) string {
	if !p.HasAddress() {
		return "(not set)"
	}
	return p.Address()
}

func argOrEmpty(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
