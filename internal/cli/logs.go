package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harbor-io/harbor/internal/config"
)

var logsList bool

var logsCmd = &cobra.Command{
	Use:   "logs [log-id]",
	Short: "Show daemon output logs",
	Long: `Print the output of a daemon run. Without an argument the most recent
run is shown. Use --list to see every recorded run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsList, "list", "l", false, "List recorded daemon runs")
}

func runLogs(cmd *cobra.Command, args []string) error {
	logs, err := config.ListDaemonLogs()
	if err != nil {
		return fmt.Errorf("failed to list logs: %w", err)
	}

	if logsList {
		if len(logs) == 0 {
			fmt.Println("No daemon logs.")
			return nil
		}
		for _, entry := range logs {
			fmt.Printf("%s  %s %s\n",
				styleValue.Render(entry.LogID),
				styleLabel.Render(entry.StartedAt),
				styleHint.Render(entry.Binary+" "+entry.Args))
		}
		return nil
	}

	logID := ""
	if len(args) == 1 {
		logID = args[0]
	} else {
		if len(logs) == 0 {
			fmt.Println("No daemon logs.")
			return nil
		}
		logID = logs[0].LogID
	}

	entry, body, err := config.ReadDaemonLog(logID)
	if err != nil {
		return err
	}

	fmt.Println(field("Log", entry.LogID))
	fmt.Println(field("Command", entry.Binary+" "+entry.Args))
	fmt.Println(field("Started", entry.StartedAt))
	fmt.Println()
	fmt.Print(body)
	return nil
}
