package routes

import (
	"errors"
	"net/http"

	"ducksearch/ducksearch/controllers"
	"ducksearch/ducksearch/utils/types"

	"github.com/go-chi/chi/v5"
)

const savedListLimit = 50

// SaveRoutes mounts under /api.
func SaveRoutes(ctrl *controllers.SaveController) chi.Router {
	r := chi.NewRouter()

	r.Post("/save", handleJSON(func(r *http.Request) (any, int, error) {
		var req types.SaveRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, http.StatusBadRequest, err
		}
		resp, err := ctrl.Save(r.Context(), req)
		if err != nil {
			return nil, http.StatusInternalServerError, err
		}
		return resp, http.StatusOK, nil
	}))

	r.Get("/saved", handleJSON(func(r *http.Request) (any, int, error) {
		rows, err := ctrl.ListSaved(r.Context(), savedListLimit)
		if errors.Is(err, controllers.ErrNoDatabase) {
			return nil, http.StatusNotFound, newHTTPError(http.StatusNotFound, err.Error(), err)
		}
		if err != nil {
			return nil, http.StatusInternalServerError, err
		}
		return rows, http.StatusOK, nil
	}))

	return r
}

// ResultFiles serves the saved result files read-only.
func ResultFiles(dir string) http.Handler {
	return http.StripPrefix("/static/results/", http.FileServer(http.Dir(dir)))
}
