// Package rest 回收站的 HTTP 接口，身份由上游网关通过 X-Actor-* 头传入
package rest

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"recordbin/domain/record"
	"recordbin/domain/snapshot"
	"recordbin/errors"
	"recordbin/logging"
	"recordbin/metrics"
)

// Config 路由依赖
type Config struct {
	BusinessProfiles Engine[record.BusinessProfile, snapshot.BusinessProfile]
	Clients          Engine[record.Client, snapshot.Client]
	Invoices         Engine[record.Invoice, snapshot.Invoice]

	// Metrics 为空时不挂载 /metrics
	Metrics *metrics.Metrics
	Logger  logging.Logger
	// Ping 健康检查，通常是数据库 PingContext
	Ping     func(ctx context.Context) error
	PageSize int
}

// NewRouter 组装路由
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Named("rest")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = snapshot.DefaultPageSize
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ping != nil {
			if err := cfg.Ping(r.Context()); err != nil {
				logger.Error(r.Context(), "health check failed", logging.Error(err))
				respondJSON(w, r, logger, http.StatusServiceUnavailable, errorBody{
					Code:    errors.ErrCodeDatabase,
					Message: "database unavailable",
				})
				return
			}
		}
		respondJSON(w, r, logger, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireActor(logger))
		if cfg.BusinessProfiles != nil {
			mountFamily(r, "/"+record.FamilyBusinessProfile.Path(), cfg.BusinessProfiles, logger, cfg.PageSize)
		}
		if cfg.Clients != nil {
			mountFamily(r, "/"+record.FamilyClient.Path(), cfg.Clients, logger, cfg.PageSize)
		}
		if cfg.Invoices != nil {
			mountFamily(r, "/"+record.FamilyInvoice.Path(), cfg.Invoices, logger, cfg.PageSize)
		}
	})
	return r
}
