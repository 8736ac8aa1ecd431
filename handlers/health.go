package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/casevault/casevault/internal/health"
)

// HealthHandler runs every readiness check with a short per-check timeout and
// reports 503 as soon as one dependency is unreachable.
func HealthHandler(checks []health.ReadinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		results := make(map[string]string, len(checks))
		healthy := true

		for _, check := range checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			err := check.IsReady(ctx)
			cancel()

			if err != nil {
				healthy = false
				results[check.Name()] = err.Error()
			} else {
				results[check.Name()] = "ok"
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"healthy": healthy,
			"checks":  results,
		})
	}
}
