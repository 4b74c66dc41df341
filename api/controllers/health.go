package controllers

import (
	"context"
	"net/http"

	"github.com/kwameasiedu/shopstack/api/responses"
	"github.com/kwameasiedu/shopstack/pkg/config"
	pkgerrors "github.com/kwameasiedu/shopstack/pkg/errors"
	"github.com/kwameasiedu/shopstack/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ShopStack-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady answers 200 only when every dependency pings.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ShopStack-Env", cfg.App.Env)
		for _, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency not ready"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
