package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"veritas/internal/logging"
)

// NewRouter mounts the JSON API under /v1 and a liveness probe at /up.
func NewRouter(companies *CompanyHandler, documents *DocumentHandler, logger *zap.Logger) http.Handler {
	logger = logging.OrNop(logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	// An archive run can take two full fetch timeouts.
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/up", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", companies.ListCompanies)
			r.Post("/", companies.CreateCompany)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", companies.GetCompany)
				r.Post("/rearchive", companies.Rearchive)
				r.Patch("/rearchive", companies.Rearchive)
				r.Get("/documents", documents.ListCompanyDocuments)
			})
		})

		r.Route("/documents/{uuid}", func(r chi.Router) {
			r.Get("/", documents.GetDocument)
			r.Get("/archives", documents.GetArchives)
			r.Get("/content", documents.GetContent)
		})
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
