package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type dependency struct {
	name string
	ping func(ctx context.Context) error
}

func healthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"message":   "Server is running",
			"timestamp": time.Now(),
		})
	}
}

func detailedHealthCheckHandler(deps []dependency) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		services, healthy := checkDependencies(ctx, deps)

		overallStatus := "healthy"
		httpStatus := http.StatusOK
		if !healthy {
			overallStatus = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"overall_status": overallStatus,
			"services":       services,
			"timestamp":      time.Now(),
		})
	}
}

func checkDependencies(ctx context.Context, deps []dependency) (map[string]interface{}, bool) {
	services := make(map[string]interface{}, len(deps))
	healthy := true
	for _, d := range deps {
		if err := d.ping(ctx); err != nil {
			healthy = false
			services[d.name] = map[string]interface{}{
				"status":  "unavailable",
				"message": err.Error(),
			}
			continue
		}
		services[d.name] = map[string]interface{}{
			"status":  "healthy",
			"message": "Service is responding",
		}
	}
	return services, healthy
}

// watchDependencies keeps the gRPC health status in line with the
// dependencies until ctx is done.
func watchDependencies(ctx context.Context, hs *health.Server, deps []dependency, interval time.Duration, log *zap.Logger) {
	probe := func() {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		_, healthy := checkDependencies(pingCtx, deps)
		status := healthpb.HealthCheckResponse_SERVING
		if !healthy {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			log.Warn("dependency check failed, reporting NOT_SERVING")
		}
		hs.SetServingStatus("", status)
	}

	probe()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}
