package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports liveness of the database and, when configured, Redis.
type HealthHandler struct {
	DB    *sql.DB
	Redis *redis.Client
}

// Health answers 200 {"status":"ok"} or 503 when the database is down.
// An unreachable Redis only marks the status as degraded.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	out := echo.Map{"status": "ok", "database": "up"}
	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			out["status"], out["database"] = "down", "down"
			return c.JSON(http.StatusServiceUnavailable, out)
		}
	}
	if h.Redis != nil {
		out["redis"] = "up"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			out["status"], out["redis"] = "degraded", "down"
		}
	}
	return c.JSON(http.StatusOK, out)
}
