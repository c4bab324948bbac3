package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/rpattn/visadesk/internal/middleware"
	"github.com/rpattn/visadesk/internal/serviceloader"
)

// NewRouter mounts the API at /api/v1 behind request logging, the
// organization scope header and the per-request service type loader.
func NewRouter(a *API, serviceTypes serviceloader.ServiceTypeSource, logger zerolog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(logger))

	apiRoute := router.PathPrefix("/api/v1").Subrouter()
	apiRoute.Use(middleware.OrganizationScopeMiddleware)
	apiRoute.Use(middleware.DataLoaderMiddleware(serviceTypes))
	a.CreateRoutes(apiRoute)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.logError(writeError(w, "not found", http.StatusNotFound))
	})
	return router
}
