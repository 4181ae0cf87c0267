package commands

import (
	"github.com/spf13/cobra"

	"github.com/in3-cli/in3cli/internal/chain"
)

// ensCmd represents the ens command
var ensCmd = &cobra.Command{
	Use:   "ens",
	Short: "Commands for resolving ENS domains",
}

var ensHashCmd = &cobra.Command{
	Use:   "hash [name]",
	Short: "Convert the ENS name to its hashed version",
	Args:  cobra.ExactArgs(1),
	RunE:  runENSHash,
}

var ensResolveCmd = &cobra.Command{
	Use:   "resolve [name]",
	Short: "Resolve an ENS name to its address",
	Args:  cobra.ExactArgs(1),
	RunE:  runENSResolve,
}

var ensShowOwnerCmd = &cobra.Command{
	Use:   "show-owner [name]",
	Short: "Print the owner of the given name",
	Args:  cobra.ExactArgs(1),
	RunE:  runENSShowOwner,
}

func init() {
	rootCmd.AddCommand(ensCmd)
	ensCmd.AddCommand(ensHashCmd)
	ensCmd.AddCommand(ensResolveCmd)
	ensCmd.AddCommand(ensShowOwnerCmd)
}

func runENSHash(cmd *cobra.Command, args []string) error {
	a := current
	if err := checkENSName(a, args[0]); err != nil {
		return err
	}
	a.println(chain.NameHash(args[0]).Hex())
	return nil
}

func runENSResolve(cmd *cobra.Command, args []string) error {
	a := current
	if err := checkENSName(a, args[0]); err != nil {
		return err
	}
	c, _, err := a.client(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	address, err := c.ResolveENS(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	a.println(address.Hex())
	return nil
}

func runENSShowOwner(cmd *cobra.Command, args []string) error {
	a := current
	if err := checkENSName(a, args[0]); err != nil {
		return err
	}
	c, _, err := a.client(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	owner, err := c.ENSOwner(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	a.println(owner.Hex())
	return nil
}

// checkENSName reports a missing top-level domain the same way the
// resolver does, then applies the label rules
func checkENSName(a *app, name string) error {
	if err := chain.CheckENSName(name); err != nil {
		return err
	}
	return a.validator.ValidateENSName(name)
}
