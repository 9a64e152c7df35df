package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ducksearch/ducksearch/controllers"
	"ducksearch/ducksearch/utils/errs"
	"ducksearch/ducksearch/utils/logging"
	"ducksearch/ducksearch/utils/types"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SearchRoutes mounts under /api/search. The plain endpoint takes the
// category from the body; the others pin it.
func SearchRoutes(ctrl *controllers.SearchController) chi.Router {
	r := chi.NewRouter()

	r.Post("/", handleJSON(searchHandler(ctrl, "")))
	r.Post("/images", handleJSON(searchHandler(ctrl, types.CategoryImage)))
	r.Post("/news", handleJSON(searchHandler(ctrl, types.CategoryNews)))
	r.Post("/videos", handleJSON(searchHandler(ctrl, types.CategoryVideo)))

	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			logging.ErrorLogger.Error("websocket accept error", zap.Error(err))
			return
		}
		ctrl.SearchStream(r.Context(), conn)
	})

	return r
}

func searchHandler(ctrl *controllers.SearchController, pinned types.Category) func(r *http.Request) (any, int, error) {
	return func(r *http.Request) (any, int, error) {
		var req types.SearchRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, http.StatusBadRequest, err
		}
		if pinned != "" {
			req.Category, req.Type = string(pinned), ""
		}

		resp, err := ctrl.Search(r.Context(), req)
		if err != nil {
			if errors.Is(err, errs.ErrInvalidRequest) {
				return nil, http.StatusBadRequest, err
			}
			return nil, http.StatusInternalServerError, err
		}
		switch resp.Status {
		case types.StatusRateLimited:
			return nil, http.StatusTooManyRequests,
				newHTTPError(http.StatusTooManyRequests, controllers.PublicMessage(resp, nil), resp.Err)
		case types.StatusUpstreamUnavailable:
			return nil, http.StatusBadGateway,
				newHTTPError(http.StatusBadGateway, controllers.PublicMessage(resp, nil), resp.Err)
		}
		return resp, http.StatusOK, nil
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.Invalid("decode", "request body is required")
		}
		return errs.New("decode", errs.ErrInvalidRequest, err)
	}
	return nil
}
