package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/smartzfindery/storefront-backend/api/responses"
	"github.com/smartzfindery/storefront-backend/pkg/config"
	"github.com/smartzfindery/storefront-backend/pkg/db"
	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
	"github.com/smartzfindery/storefront-backend/pkg/logger"
	"github.com/smartzfindery/storefront-backend/pkg/redis"
)

const readinessTimeout = 3 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		var errs error

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				checks["database"] = "down"
				errs = multierr.Append(errs, fmt.Errorf("database: %w", err))
			} else {
				checks["database"] = "ok"
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				checks["redis"] = "down"
				errs = multierr.Append(errs, fmt.Errorf("redis: %w", err))
			} else {
				checks["redis"] = "ok"
			}
		}

		if errs != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "dependencies unavailable").
					WithDetails(map[string]any{"checks": checks}))
			return
		}

		checks["status"] = "ready"
		responses.WriteSuccess(w, checks)
	}
}
