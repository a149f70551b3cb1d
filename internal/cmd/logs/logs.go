package logs

import (
	"encoding/json"
	"fmt"

	"github.com/karlmjogila/swarmops/internal/app"
	"github.com/karlmjogila/swarmops/internal/config"
	"github.com/karlmjogila/swarmops/internal/logging"
	"github.com/spf13/cobra"
)

var (
	logsRunID    string
	logsLevel    string
	logsWorker   string
	logsPhase    int
	logsContains string
	logsExport   string
	logsFormat   string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Aggregate and filter a run's structured debug log",
	Long: `Reads the JSON debug log swarmops wrote for --run-id, applies the given
filters, and either prints the matching entries or exports them with
--export in the format named by --format (json, text, or csv).`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().StringVar(&logsRunID, "run-id", "", "run ID (required)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "minimum level: debug|info|warn|error")
	logsCmd.Flags().StringVar(&logsWorker, "worker", "", "filter to entries from this worker")
	logsCmd.Flags().IntVar(&logsPhase, "phase", 0, "filter to entries from this phase")
	logsCmd.Flags().StringVar(&logsContains, "contains", "", "filter to entries whose message contains this substring")
	logsCmd.Flags().StringVar(&logsExport, "export", "", "write filtered entries to this path instead of stdout")
	logsCmd.Flags().StringVar(&logsFormat, "format", "json", "export format: json|text|csv (only with --export)")
	_ = logsCmd.MarkFlagRequired("run-id")
}

// RegisterLogsCmd registers the logs command with parent.
func RegisterLogsCmd(parent *cobra.Command) {
	parent.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	runDir := app.RunLogDir(cfg, logsRunID)
	entries, err := logging.AggregateLogs(runDir)
	if err != nil {
		return fmt.Errorf("aggregate logs: %w", err)
	}

	filter := logging.LogFilter{
		WorkerID:        logsWorker,
		Phase:           logsPhase,
		MessageContains: logsContains,
	}
	if logsLevel != "" {
		filter.Level = logging.ParseLevel(logsLevel)
	}
	filtered := logging.FilterLogs(entries, filter)

	if logsExport != "" {
		if err := logging.ExportLogEntries(filtered, logsExport, logsFormat); err != nil {
			return fmt.Errorf("export logs: %w", err)
		}
		fmt.Printf("wrote %d entries to %s\n", len(filtered), logsExport)
		return nil
	}

	data, err := json.MarshalIndent(filtered, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
