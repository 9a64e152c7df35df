package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"ducksearch/ducksearch/services/search"
	"ducksearch/ducksearch/utils/errs"
	"ducksearch/ducksearch/utils/logging"
	"ducksearch/ducksearch/utils/types"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// Searcher is the search core as seen by the front end.
type Searcher interface {
	Search(ctx context.Context, req types.SearchRequest, opts ...search.Option) (*types.SearchResponse, error)
}

type SearchController struct {
	svc Searcher
}

func NewSearchController(svc Searcher) *SearchController {
	return &SearchController{svc: svc}
}

func (c *SearchController) Search(ctx context.Context, req types.SearchRequest) (*types.SearchResponse, error) {
	return c.svc.Search(ctx, req)
}

// PublicMessage is the short text a client may see for a failed search.
func PublicMessage(resp *types.SearchResponse, err error) string {
	switch {
	case errors.Is(err, errs.ErrInvalidRequest):
		return err.Error()
	case err != nil:
		return "internal error"
	case resp.Status == types.StatusRateLimited:
		return "rate limited by search provider, retry later"
	case resp.Status == types.StatusUpstreamUnavailable:
		return "search provider unavailable"
	}
	return ""
}

// SearchStream serves one search over a websocket: it reads a SearchRequest,
// sends the results before enrichment, one event per enriched page and a final
// done event.
func (c *SearchController) SearchStream(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close(websocket.StatusInternalError, "internal error")

	typ, data, err := conn.Read(ctx)
	if err != nil {
		logging.ErrorLogger.Error("websocket read error", zap.Error(err))
		return
	}
	if typ != websocket.MessageText {
		_ = wsjson.Write(ctx, conn, types.StreamEvent{Type: types.EventError, Payload: types.StreamError{Error: "unsupported data"}})
		conn.Close(websocket.StatusUnsupportedData, "expected a json text message")
		return
	}
	var req types.SearchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		_ = wsjson.Write(ctx, conn, types.StreamEvent{Type: types.EventError, Payload: types.StreamError{Error: "invalid json"}})
		conn.Close(websocket.StatusPolicyViolation, "invalid json")
		return
	}

	var mu sync.Mutex
	send := func(ev types.StreamEvent) {
		mu.Lock()
		defer mu.Unlock()
		if err := wsjson.Write(ctx, conn, ev); err != nil {
			logging.ErrorLogger.Error("websocket write error", zap.Error(err), zap.String("event", ev.Type))
		}
	}

	resp, err := c.svc.Search(ctx, req,
		search.OnResults(func(r types.SearchResponse) {
			if r.Success {
				send(types.StreamEvent{Type: types.EventResults, Payload: r})
			}
		}),
		search.OnPage(func(index int, page *types.EnrichedPage) {
			send(types.StreamEvent{Type: types.EventPage, Payload: types.PageEvent{Index: index, Page: page}})
		}),
	)
	if err != nil || !resp.Success {
		fail := types.StreamError{Error: PublicMessage(resp, err)}
		if resp != nil {
			fail.Status = resp.Status
		}
		send(types.StreamEvent{Type: types.EventError, Payload: fail})
		conn.Close(websocket.StatusNormalClosure, "search failed")
		return
	}
	send(types.StreamEvent{Type: types.EventDone, Payload: resp})
	conn.Close(websocket.StatusNormalClosure, "")
}
