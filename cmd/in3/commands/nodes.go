package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/in3-cli/in3cli/internal/chain"
	"github.com/in3-cli/in3cli/internal/output"
)

// listNodesCmd represents the list-nodes command
var listNodesCmd = &cobra.Command{
	Use:   "list-nodes",
	Short: "Check the RPC endpoints of the current network",
	Long: `Query every RPC endpoint configured for the current network and print
its chain id, head block and latency.`,
	Args: cobra.NoArgs,
	RunE: runListNodes,
}

func init() {
	rootCmd.AddCommand(listNodesCmd)
	listNodesCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "output format: table, json or csv")
}

func runListNodes(cmd *cobra.Command, args []string) error {
	a := current
	formatter, err := a.formatter(formatFlag)
	if err != nil {
		return err
	}
	t, err := a.resolveTarget()
	if err != nil {
		return err
	}
	if len(t.opts.URLs) == 0 {
		return chain.ErrNoEndpoint
	}

	nodes := chain.CheckNodes(cmd.Context(), t.opts)
	return formatter.Print(nodeTable(nodes), nodes)
}

func nodeTable(nodes []chain.NodeStatus) output.Table {
	t := output.Table{Header: []string{"URL", "Chain ID", "Block", "Latency", "Status"}}
	for _, n := range nodes {
		status := "ok"
		if !n.Healthy() {
			status = n.Error
		}
		t.Rows = append(t.Rows, []string{
			n.URL,
			strconv.FormatUint(n.ChainID, 10),
			strconv.FormatUint(n.BlockNumber, 10),
			n.Latency.Round(time.Millisecond).String(),
			status,
		})
	}
	return t
}
