package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/oksasatya/school-rbac-api/pkg/response"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	Checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{Checks: checks}
}

// Health pings every dependency concurrently and reports 503 when one is down.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	results := make(map[string]string, len(h.Checks))
	statuses := make([]string, 0, len(h.Checks))
	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
		statuses = append(statuses, "")
	}

	var g errgroup.Group
	for i, name := range names {
		p := h.Checks[name]
		g.Go(func() error {
			if err := p.Ping(ctx); err != nil {
				statuses[i] = "down"
				return nil
			}
			statuses[i] = "up"
			return nil
		})
	}
	_ = g.Wait()

	healthy := true
	for i, name := range names {
		results[name] = statuses[i]
		if statuses[i] != "up" {
			healthy = false
		}
	}
	if !healthy {
		resp := response.Error[any](c, http.StatusServiceUnavailable, "unhealthy", results)
		c.JSON(resp.Status, resp)
		return
	}
	response.OK(c, http.StatusOK, results, "ok")
}
