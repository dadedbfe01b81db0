package cli

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/harbor-io/harbor/internal/models"
)

// connectShell establishes a gRPC connection to the running shell's status
// server.
func connectShell(info *models.ShellInfo) (*grpc.ClientConn, error) {
	if info == nil {
		return nil, fmt.Errorf("harbor not running")
	}

	addr := fmt.Sprintf("%s:%d", info.Host, info.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to harbor: %w", err)
	}

	return conn, nil
}
