package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/harbor-io/harbor/internal/config"
	"github.com/harbor-io/harbor/internal/models"
	"github.com/harbor-io/harbor/internal/server"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether harbor and its daemon are running",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the shell info and health check as JSON")
}

// statusReport is the --json output.
type statusReport struct {
	Running bool              `json:"running"`
	Shell   *models.ShellInfo `json:"shell,omitempty"`
	Health  json.RawMessage   `json:"health,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	running, info, err := config.IsShellRunning()
	if err != nil {
		return fmt.Errorf("failed to check harbor status: %w", err)
	}
	if statusJSON {
		return printStatusJSON(cmd.Context(), running, info)
	}
	if !running || info == nil {
		fmt.Println("Harbor is not running.")
		return nil
	}

	fmt.Println(styleSuccess.Render("Harbor is running."))
	fmt.Println(field("Host", info.Host))
	fmt.Println(field("Port", strconv.Itoa(info.Port)))
	fmt.Println(field("PID", strconv.Itoa(info.PID)))
	fmt.Println(field("Uptime", time.Since(info.StartedAt).Truncate(time.Second).String()))
	if info.DaemonPID != 0 {
		fmt.Println(field("Daemon PID", strconv.Itoa(info.DaemonPID)))
	}

	state, err := daemonHealth(cmd.Context(), info)
	if err != nil {
		fmt.Println(field("Daemon", styleError.Render("unknown")))
		fmt.Println(styleHint.Render("  " + err.Error()))
		return nil
	}
	fmt.Println(field("Daemon", state))
	return nil
}

func printStatusJSON(ctx context.Context, running bool, info *models.ShellInfo) error {
	report := statusReport{Running: running && info != nil}
	if report.Running {
		report.Shell = info
		resp, err := checkHealth(ctx, info)
		if err != nil {
			report.Error = err.Error()
		} else if data, err := protojson.Marshal(resp); err == nil {
			report.Health = data
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// checkHealth asks the shell's health service about the daemon.
func checkHealth(ctx context.Context, info *models.ShellInfo) (*healthpb.HealthCheckResponse, error) {
	conn, err := connectShell(info)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{
		Service: server.HealthService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query health: %w", err)
	}
	return resp, nil
}

// daemonHealth describes whether the daemon is ready.
func daemonHealth(ctx context.Context, info *models.ShellInfo) (string, error) {
	resp, err := checkHealth(ctx, info)
	if err != nil {
		return "", err
	}

	switch resp.GetStatus() {
	case healthpb.HealthCheckResponse_SERVING:
		return styleSuccess.Render("ready"), nil
	case healthpb.HealthCheckResponse_NOT_SERVING:
		return styleWarning.Render("not ready"), nil
	default:
		return resp.GetStatus().String(), nil
	}
}
