// Package health contiene el service para health checks.
package health

import (
	"context"
	"fmt"
	"os"
	"time"

	dto "github.com/dropDatabas3/hellobroker/internal/http/dto/health"
	"github.com/dropDatabas3/hellobroker/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Deps contiene las dependencias inyectables para el health service.
// Un check nil se reporta como "disabled" (p.ej. store en memoria).
type Deps struct {
	DBCheck    func(ctx context.Context) error
	CacheCheck func(ctx context.Context) error
	Providers  []string
	// Timeout por componente; 0 = 2s.
	Timeout time.Duration
}

type healthService struct {
	deps Deps
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(deps Deps) HealthService {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Second
	}
	return &healthService{deps: deps}
}

const componentHealth = "health"

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentHealth),
		logger.Op("Check"),
	)

	response := dto.HealthResponse{
		Components: make(map[string]dto.HealthStatus),
		Providers:  s.deps.Providers,
		Version:    os.Getenv("SERVICE_VERSION"),
		Timestamp:  time.Now().UTC(),
	}

	healthy := true
	for name, check := range map[string]func(context.Context) error{
		"db":    s.deps.DBCheck,
		"cache": s.deps.CacheCheck,
	} {
		if check == nil {
			response.Components[name] = dto.HealthStatus{Status: "disabled", Message: "in-memory"}
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
		err := check(cctx)
		cancel()
		if err != nil {
			response.Components[name] = dto.HealthStatus{
				Status:  "error",
				Message: fmt.Sprintf("unavailable: %v", err),
			}
			healthy = false
			log.Error(name+" unavailable", logger.Err(err))
			continue
		}
		response.Components[name] = dto.HealthStatus{Status: "ok"}
	}

	if len(s.deps.Providers) == 0 {
		response.Components["providers"] = dto.HealthStatus{Status: "error", Message: "no provider enabled"}
		healthy = false
	} else {
		response.Components["providers"] = dto.HealthStatus{Status: "ok"}
	}

	if healthy {
		response.Status = "ready"
	} else {
		response.Status = "unavailable"
	}
	return response
}
