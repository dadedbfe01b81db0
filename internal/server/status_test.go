package server

import (
	"context"
	"fmt"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestStatusTracksReadiness(t *testing.T) {
	srv, err := NewStatus(0)
	if err != nil {
		t.Fatalf("NewStatus() error = %v", err)
	}
	go func() { _ = srv.Serve() }()
	defer srv.Stop()

	conn, err := grpc.NewClient(fmt.Sprintf("127.0.0.1:%d", srv.Port()), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("Check(%q) error = %v", service, err)
		}
		return resp.GetStatus()
	}

	tests := []struct {
		name    string
		serving *bool
		want    healthpb.HealthCheckResponse_ServingStatus
	}{
		{name: "initial", want: healthpb.HealthCheckResponse_NOT_SERVING},
		{name: "ready", serving: boolPtr(true), want: healthpb.HealthCheckResponse_SERVING},
		{name: "daemon exited", serving: boolPtr(false), want: healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.serving != nil {
				srv.SetServing(*tt.serving)
			}
			if got := check(HealthService); got != tt.want {
				t.Errorf("status = %v, want %v", got, tt.want)
			}
		})
	}

	if got := check(""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("overall status = %v, want SERVING", got)
	}
}

func boolPtr(b bool) *bool { return &b }
