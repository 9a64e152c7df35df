package routes

import (
	"net/http"
	"time"

	"ducksearch/ducksearch/controllers"
	"ducksearch/ducksearch/middlewares"
	"ducksearch/ducksearch/utils/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Deps struct {
	Search         *controllers.SearchController
	Save           *controllers.SaveController
	Health         *controllers.HealthController
	ResultsDir     string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.RequestLogger)
	r.Use(middleware.Recoverer)
	if d.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.RequestTimeout))
	}

	// dependency probes run on every call; 503 lists the failing ones
	r.Get("/health", d.Health.HealthCheck)
	r.Mount("/api/search", SearchRoutes(d.Search))
	r.Mount("/api", SaveRoutes(d.Save))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	if d.ResultsDir != "" {
		r.Method(http.MethodGet, "/static/results/*", ResultFiles(d.ResultsDir))
	}
	return r
}
