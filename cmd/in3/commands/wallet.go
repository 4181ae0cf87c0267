package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/in3-cli/in3cli/internal/storage"
	"github.com/in3-cli/in3cli/internal/wallet"
	"github.com/in3-cli/in3cli/pkg/types"
)

var (
	walletName  string
	walletIndex uint32
)

var accountGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Create a new wallet and an account for it",
	Long: `Generate a new recovery phrase, derive its first Ethereum key
(m/44'/60'/0'/0/index) and create an account holding that key.

The recovery phrase is printed once. Write it down.`,
	Args: cobra.NoArgs,
	RunE: runAccountGenerate,
}

var accountRecoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Create an account from a recovery phrase",
	Args:  cobra.NoArgs,
	RunE:  runAccountRecover,
}

func init() {
	accountCmd.AddCommand(accountGenerateCmd)
	accountCmd.AddCommand(accountRecoverCmd)

	for _, cmd := range []*cobra.Command{accountGenerateCmd, accountRecoverCmd} {
		cmd.Flags().StringVarP(&walletName, "name", "n", "", "name of the account")
		cmd.Flags().Uint32Var(&walletIndex, "index", 0, "address index to derive")
		_ = cmd.MarkFlagRequired("name")
	}
}

func runAccountGenerate(cmd *cobra.Command, args []string) error {
	a := current
	if err := a.validator.ValidateProfileName(walletName); err != nil {
		return err
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		return fmt.Errorf("failed to generate recovery phrase: %w", err)
	}
	if err := createWalletAccount(cmd.Context(), a, mnemonic); err != nil {
		return err
	}

	a.prompt.DisplayWarning("store this recovery phrase offline, it is the only way to restore the key:")
	fmt.Fprintf(a.prompt.Output(), "\n\t%s\n\n", mnemonic)
	return nil
}

func runAccountRecover(cmd *cobra.Command, args []string) error {
	a := current
	if err := a.validator.ValidateProfileName(walletName); err != nil {
		return err
	}

	phrase, err := a.prompt.ReadSecret(cmd.Context(), "Recovery phrase: ")
	if err != nil {
		return err
	}
	mnemonic := wallet.NormalizeMnemonic(phrase)
	if !wallet.ValidateMnemonic(mnemonic) {
		return errors.New("invalid recovery phrase")
	}
	return createWalletAccount(cmd.Context(), a, mnemonic)
}

// createWalletAccount derives the key at --index, creates the account with
// its address and stores the key
func createWalletAccount(ctx context.Context, a *app, mnemonic string) error {
	derived, err := wallet.DeriveAccount(mnemonic, "", walletIndex)
	if err != nil {
		return fmt.Errorf("failed to derive key: %w", err)
	}
	defer derived.Zero()

	var network types.Network
	if chainName != "" {
		if network, err = types.ParseNetwork(chainName); err != nil {
			return err
		}
	}

	address := derived.Address.Hex()
	if err := a.manager.CreateProfile(walletName, storage.Fields(address, network, nil)); err != nil {
		return err
	}
	stored, err := a.manager.SetSecret(ctx, derived.PrivateKeyHex(), walletName)
	if err != nil {
		return err
	}

	a.printf("Successfully created account '%s'.\n", walletName)
	a.printf("\tAddress: %s\n\tPath: %s\n", address, derived.Path)
	if !stored {
		a.println("\tPrivate key not stored!")
	}
	return nil
}
