package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/in3-cli/in3cli/internal/audit"
	"github.com/in3-cli/in3cli/internal/output"
)

var (
	auditLimit int
	auditTypes []string
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print recent audit events",
	Long: `Print the most recent account, private key and transaction events
recorded in the audit log.`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "number of events to print")
	auditCmd.Flags().StringSliceVar(&auditTypes, "type", nil, "only print events of these types (e.g. PROFILE_DELETE)")
	auditCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "output format: table, json or csv")
}

func runAudit(cmd *cobra.Command, args []string) error {
	a := current
	formatter, err := a.formatter(formatFlag)
	if err != nil {
		return err
	}

	query := audit.Query{Limit: auditLimit}
	for _, t := range auditTypes {
		query.EventTypes = append(query.EventTypes, audit.EventType(strings.ToUpper(t)))
	}
	if accountName != "" {
		query.Profiles = []string{accountName}
	}

	var events []*audit.AuditEvent
	if a.audit != nil {
		events, err = a.audit.Search(query)
	} else {
		events, err = audit.SearchFile(a.cfg.Logging.AuditFile, query)
	}
	if err != nil {
		return err
	}
	if events == nil {
		events = []*audit.AuditEvent{}
	}
	return formatter.Print(auditTable(events), events)
}

func auditTable(events []*audit.AuditEvent) output.Table {
	t := output.Table{Header: []string{"Time", "Type", "Account", "Action", "Result", "Error"}}
	for _, e := range events {
		t.Rows = append(t.Rows, []string{
			e.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			string(e.Type),
			e.Profile,
			e.Action,
			e.Result,
			e.Error,
		})
	}
	return t
}
