package commands

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/spf13/cobra"

	"github.com/in3-cli/in3cli/internal/chain"
	"github.com/in3-cli/in3cli/internal/cursor"
	"github.com/in3-cli/in3cli/internal/output"
	"github.com/in3-cli/in3cli/pkg/types"
)

var errIncompatibleBlockFlags = errors.New("The following arguments cannot be used together: --hash, --block-num.")

var (
	hashFlag     string
	blockNumFlag string
	formatFlag   string
	toFlag       string
	valueFlag    string
	maxBlocks    int
)

// ethCmd represents the eth command
var ethCmd = &cobra.Command{
	Use:   "eth",
	Short: "Commands for interacting with Ethereum",
}

var ethGasPriceCmd = &cobra.Command{
	Use:     "show-gas-price",
	Aliases: []string{"gas-price"},
	Short:   "Print the current gas price",
	Args:    cobra.NoArgs,
	RunE:    runGasPrice,
}

var ethShowBlockCmd = &cobra.Command{
	Use:   "show-block",
	Short: "Print a block",
	Long:  `Print a block. If not given any flags, prints the latest block.`,
	Args:  cobra.NoArgs,
	RunE:  runShowBlock,
}

var ethListTxsCmd = &cobra.Command{
	Use:   "list-txs",
	Short: "Print the transactions of a block",
	Long:  `Print the transactions of the given block. If the block is not specified, uses the latest block.`,
	Args:  cobra.NoArgs,
	RunE:  runListTxs,
}

var ethShowTxCmd = &cobra.Command{
	Use:   "show-tx [hash]",
	Short: "Print the transaction with the given hash",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowTx,
}

var ethBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the balance of an address",
	Long:  `Print the balance of an address or ENS name. Defaults to the account's address.`,
	Args:  cobra.NoArgs,
	RunE:  runBalance,
}

var ethSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send value from the account's address",
	Long: `Sign a value transfer with the account's stored private key and submit it.
--value is in wei and accepts decimal or 0x-prefixed hex.`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

var ethNewBlocksCmd = &cobra.Command{
	Use:   "new-blocks",
	Short: "Print the blocks mined since the last call",
	Long: `Print the blocks mined since this command last ran for the account.
The first call prints the latest block.`,
	Args: cobra.NoArgs,
	RunE: runNewBlocks,
}

func init() {
	rootCmd.AddCommand(ethCmd)
	ethCmd.AddCommand(ethGasPriceCmd)
	ethCmd.AddCommand(ethShowBlockCmd)
	ethCmd.AddCommand(ethListTxsCmd)
	ethCmd.AddCommand(ethShowTxCmd)
	ethCmd.AddCommand(ethBalanceCmd)
	ethCmd.AddCommand(ethSendCmd)
	ethCmd.AddCommand(ethNewBlocksCmd)

	for _, cmd := range []*cobra.Command{ethShowBlockCmd, ethListTxsCmd} {
		cmd.Flags().StringVar(&hashFlag, "hash", "", "block hash")
		cmd.Flags().StringVar(&blockNumFlag, "block-num", "", "block number or one of latest, earliest, pending")
	}
	for _, cmd := range []*cobra.Command{ethShowBlockCmd, ethListTxsCmd, ethShowTxCmd, ethNewBlocksCmd} {
		cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "output format: table, json or csv")
	}

	ethBalanceCmd.Flags().StringVar(&addressFlag, "address", "", "address or ENS name (default is the account's address)")

	ethSendCmd.Flags().StringVar(&toFlag, "to", "", "recipient address or ENS name")
	ethSendCmd.Flags().StringVar(&valueFlag, "value", "", "amount in wei")
	_ = ethSendCmd.MarkFlagRequired("to")
	_ = ethSendCmd.MarkFlagRequired("value")

	ethNewBlocksCmd.Flags().IntVar(&maxBlocks, "max", 100, "maximum number of blocks to print")
}

func runGasPrice(cmd *cobra.Command, args []string) error {
	a := current
	c, _, err := a.client(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	price, err := c.GasPrice(cmd.Context())
	if err != nil {
		return err
	}
	a.printf("%s Gwei\n", formatUnits(price, params.GWei))
	return nil
}

func runShowBlock(cmd *cobra.Command, args []string) error {
	a := current
	formatter, err := a.formatter(formatFlag)
	if err != nil {
		return err
	}
	c, _, err := a.client(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	block, err := loadBlock(cmd.Context(), a, c)
	if err != nil {
		return err
	}
	summary := formatter.Format() == output.FormatTable
	return formatter.Print(output.BlockTable([]types.Block{*block}, summary), block)
}

func runListTxs(cmd *cobra.Command, args []string) error {
	a := current
	formatter, err := a.formatter(formatFlag)
	if err != nil {
		return err
	}
	c, _, err := a.client(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	block, err := loadBlock(cmd.Context(), a, c)
	if err != nil {
		return err
	}
	txs := block.Transactions
	if txs == nil {
		txs = []types.Transaction{}
	}
	return formatter.Print(output.TransactionTable(txs), txs)
}

func runShowTx(cmd *cobra.Command, args []string) error {
	a := current
	if err := a.validator.ValidateHash(args[0]); err != nil {
		return err
	}
	formatter, err := a.formatter(formatFlag)
	if err != nil {
		return err
	}
	c, _, err := a.client(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	tx, err := c.TransactionByHash(cmd.Context(), common.HexToHash(args[0]))
	if err != nil {
		return err
	}
	return formatter.Print(output.TransactionTable([]types.Transaction{*tx}), tx)
}

func runBalance(cmd *cobra.Command, args []string) error {
	a := current
	c, t, err := a.client(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	who := strings.TrimSpace(addressFlag)
	if who == "" {
		if t.profile == nil || !t.profile.HasAddress() {
			return errors.New("no address given and the account has none")
		}
		who = t.profile.Address()
	}
	address, err := resolveAddress(cmd.Context(), a, c, who)
	if err != nil {
		return err
	}

	balance, err := c.Balance(cmd.Context(), address)
	if err != nil {
		return err
	}
	a.printf("%s ETH\n", formatUnits(balance, params.Ether))
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	a := current
	ctx := cmd.Context()

	value, err := a.validator.ParseWei(valueFlag)
	if err != nil {
		return err
	}

	c, t, err := a.client(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	if t.profile == nil {
		return a.manager.ValidateDefaultExists()
	}

	to, err := resolveAddress(ctx, a, c, toFlag)
	if err != nil {
		return err
	}

	secretValue, ok, err := a.manager.GetStoredSecret(t.profile.Name())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no private key stored for account '%s'. Use: in3 account reset-private-key %s", t.profile.Name(), t.profile.Name())
	}
	key, err := chain.ParsePrivateKey(secretValue)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("\nSend %s ETH from %s to %s on %s? (y/n): ",
		formatUnits(value, params.Ether), t.profile.Address(), to.Hex(), t.network)
	approved, err := a.prompt.Ask(ctx, message)
	if err != nil || !approved {
		return err
	}

	hash, err := c.SendValue(ctx, key, to, value)
	details := map[string]interface{}{
		"network": string(t.network),
		"to":      to.Hex(),
		"value":   value.String(),
	}
	if err == nil {
		details["tx"] = hash.Hex()
	}
	a.audit.LogTransaction(t.profile.Name(), details, err)
	if err != nil {
		return err
	}

	a.println(hash.Hex())
	return nil
}

func runNewBlocks(cmd *cobra.Command, args []string) error {
	a := current
	ctx := cmd.Context()

	formatter, err := a.formatter(formatFlag)
	if err != nil {
		return err
	}
	c, t, err := a.client(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	if t.profile == nil {
		return a.manager.ValidateDefaultExists()
	}
	name := t.profile.Name()

	head, err := c.BlockNumber(ctx)
	if err != nil {
		return err
	}

	from := head
	last, err := a.cursors.Get(name, cursor.NewBlocks)
	switch {
	case errors.Is(err, cursor.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to read cursor: %w", err)
	case last >= head:
		return nil
	default:
		from = last + 1
	}
	if maxBlocks > 0 && head-from >= uint64(maxBlocks) {
		from = head - uint64(maxBlocks) + 1
	}

	blocks := make([]types.Block, 0, head-from+1)
	for n := from; n <= head; n++ {
		block, err := c.BlockByNumber(ctx, chain.BlockRef{Number: n})
		if err != nil {
			return err
		}
		blocks = append(blocks, *block)
	}

	if err := a.cursors.Set(name, cursor.NewBlocks, head); err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return formatter.Print(output.BlockTable(blocks, formatter.Format() == output.FormatTable), blocks)
}

// loadBlock resolves --hash or --block-num, waiting for a numbered block
// the node does not serve yet
func loadBlock(ctx context.Context, a *app, c *chain.Client) (*types.Block, error) {
	if hashFlag != "" && blockNumFlag != "" {
		return nil, errIncompatibleBlockFlags
	}

	if hashFlag != "" {
		if err := a.validator.ValidateHash(hashFlag); err != nil {
			return nil, err
		}
		return c.BlockByHash(ctx, common.HexToHash(hashFlag))
	}

	ref := chain.Latest
	if blockNumFlag != "" {
		tag, number, err := a.validator.ParseBlockRef(blockNumFlag)
		if err != nil {
			return nil, err
		}
		ref = chain.BlockRef{Tag: tag, Number: number}
	}

	waitCtx, cancel := context.WithTimeout(ctx, a.cfg.Chain.BlockWait)
	defer cancel()
	return c.WaitForBlock(waitCtx, ref, a.cfg.Chain.PollInterval)
}

// resolveAddress accepts a hex address or an ENS name
func resolveAddress(ctx context.Context, a *app, c *chain.Client, who string) (common.Address, error) {
	who = strings.TrimSpace(who)
	if common.IsHexAddress(who) {
		return common.HexToAddress(who), nil
	}
	if strings.Contains(who, ".") {
		if err := a.validator.ValidateENSName(who); err != nil {
			return common.Address{}, err
		}
		return c.ResolveENS(ctx, who)
	}
	return common.Address{}, a.validator.ValidateAddress(who)
}

// formatUnits renders v divided by unit without rounding
func formatUnits(v *big.Int, unit float64) string {
	denom, _ := new(big.Float).SetFloat64(unit).Int(nil)
	r := new(big.Rat).SetFrac(v, denom)
	if r.IsInt() {
		return r.Num().String()
	}
	s := r.FloatString(len(denom.String()) - 1)
	return strings.TrimRight(strings.TrimRight(s, "0"), ".")
}
