package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"raggate.org/internal/obs"
)

// HealthSidecar exposes the standard gRPC health protocol, mirroring the
// readiness probe so orchestrators speaking gRPC see the same signal as
// /readyz.
type HealthSidecar struct {
	probe    ReadyProbe
	server   *health.Server
	interval time.Duration
}

// NewHealthSidecar builds the sidecar; interval <= 0 defaults to 10s.
func NewHealthSidecar(probe ReadyProbe, interval time.Duration) *HealthSidecar {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthSidecar{
		probe:    probe,
		server:   health.NewServer(),
		interval: interval,
	}
}

// Register attaches the health service to a gRPC server.
func (h *HealthSidecar) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Watch polls the probe until ctx is done, pushing status transitions to
// the health server.
func (h *HealthSidecar) Watch(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.update(ctx)
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.update(ctx)
		}
	}
}

func (h *HealthSidecar) update(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.probe.Check(checkCtx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		obs.LogEvent("warn", "health_probe_failed", map[string]any{"error": err.Error()})
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(serviceName, status)
}
