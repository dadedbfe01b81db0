package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harbor-io/harbor/internal/config"
	"github.com/harbor-io/harbor/internal/daemon"
)

var idJSON bool

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Show the daemon's identity",
	Long: `Ask the running daemon for its identity record (peer ID, public key,
addresses and agent version) through its control API.`,
	RunE: runID,
}

func init() {
	idCmd.Flags().BoolVar(&idJSON, "json", false, "Print the raw identity record as JSON")
}

func runID(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	id, err := daemon.NewClient(settings.Daemon.API, nil).ID(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch identity from %s: %w", settings.Daemon.API, err)
	}

	if idJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(id)
	}

	fmt.Println(field("Peer ID", id.ID))
	agent := orNone(id.AgentVersion)
	if ok, v := id.Supported(); !ok {
		agent += " " + styleWarning.Render(fmt.Sprintf("(%s is unsupported, need %s or newer)", v, daemon.MinVersion))
	}
	fmt.Println(field("Agent", agent))
	fmt.Println(field("Public key", orNone(id.PublicKey)))
	if len(id.Addresses) == 0 {
		fmt.Println(field("Addresses", "none"))
		return nil
	}
	fmt.Println(field("Addresses", ""))
	fmt.Println("    " + strings.Join(id.Addresses, "\n    "))
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
