package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HealthCheck probes one backing store
type HealthCheck func(ctx context.Context) error

// HealthHandlers reports backing store reachability
type HealthHandlers struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthHandlers creates health handlers over the named checks
func NewHealthHandlers(checks map[string]HealthCheck, logger *zap.Logger) *HealthHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandlers{checks: checks, timeout: 2 * time.Second, logger: logger.Named("health")}
}

// Health runs every check concurrently. Any failure answers 503.
func (h *HealthHandlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]string, len(names))
	var g errgroup.Group
	for i, name := range names {
		check := h.checks[name]
		g.Go(func() error {
			if err := check(ctx); err != nil {
				h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
				results[i] = "down"
				return nil
			}
			results[i] = "up"
			return nil
		})
	}
	_ = g.Wait()

	status := http.StatusOK
	overall := "ok"
	components := gin.H{}
	for i, name := range names {
		components[name] = results[i]
		if results[i] != "up" {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
	}

	c.JSON(status, gin.H{"status": overall, "checks": components})
}
