// Package search ties the dispatcher, retry controller, normalizer and page
// enrichment into the single search operation the front ends call.
package search

import (
	"context"
	"errors"
	"strings"

	"ducksearch/ducksearch/config"
	"ducksearch/ducksearch/services/dispatcher"
	"ducksearch/ducksearch/services/normalizer"
	"ducksearch/ducksearch/services/retry"
	"ducksearch/ducksearch/services/scraper"
	"ducksearch/ducksearch/utils/errs"
	"ducksearch/ducksearch/utils/logging"
	"ducksearch/ducksearch/utils/metrics"
	"ducksearch/ducksearch/utils/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const op = "search"

// Settings are the defaults applied to incomplete requests.
type Settings struct {
	Region     string
	MaxResults int
	MaxPages   int
	Retry      retry.Policy
}

func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		Region:     cfg.Provider.DefaultRegion,
		MaxResults: config.DefaultMaxResults,
		MaxPages:   cfg.Enrich.DefaultMaxPages,
		Retry:      retry.FromConfig(cfg.Retry),
	}
}

type Service struct {
	dispatcher *dispatcher.Dispatcher
	pipeline   *scraper.Pipeline
	settings   Settings
}

func NewService(d *dispatcher.Dispatcher, p *scraper.Pipeline, settings Settings) *Service {
	if settings.Region == "" {
		settings.Region = config.DefaultRegion
	}
	if settings.MaxResults <= 0 {
		settings.MaxResults = config.DefaultMaxResults
	}
	if settings.MaxPages <= 0 {
		settings.MaxPages = config.DefaultMaxPages
	}
	settings.Retry = settings.Retry.WithDefaults()
	return &Service{dispatcher: d, pipeline: p, settings: settings}
}

type options struct {
	onResults func(types.SearchResponse)
	onPage    scraper.PageHook
}

type Option func(*options)

// OnResults is called with the normalized response before any page is
// fetched.
func OnResults(fn func(types.SearchResponse)) Option {
	return func(o *options) { o.onResults = fn }
}

// OnPage is called for every entry that received a page during enrichment.
func OnPage(fn scraper.PageHook) Option {
	return func(o *options) { o.onPage = fn }
}

// PageBudget resolves how many pages a request may enrich: deep_scrape with
// no max_pages uses the default, an explicit value is taken as is, and
// anything but a deep text search gets none.
func PageBudget(req types.SearchRequest, category types.Category, def int) int {
	if category != types.CategoryText || !req.DeepScrape {
		return 0
	}
	if req.MaxPages == nil {
		return def
	}
	return max(*req.MaxPages, 0)
}

// Search only returns an error for invalid requests. Upstream trouble is
// reported through the response Status.
func (s *Service) Search(ctx context.Context, req types.SearchRequest, opts ...Option) (*types.SearchResponse, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	name := req.CategoryName()
	category, ok := types.ParseCategory(name)
	if !ok {
		return nil, errs.Invalid(op, "unsupported category %q", name)
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, errs.Invalid(op, "query must not be empty")
	}
	maxResults := req.MaxResults
	if maxResults < 0 {
		return nil, errs.Invalid(op, "max_results must be positive, got %d", maxResults)
	}
	if maxResults == 0 {
		maxResults = s.settings.MaxResults
	}
	region := strings.TrimSpace(req.Region)
	if region == "" {
		region = s.settings.Region
	}

	searchID := uuid.NewString()
	if logging.RequestID(ctx) == "" {
		ctx = logging.WithRequestID(ctx, searchID)
	}
	defer logging.LogDuration(ctx, "search.Search")()

	resp := &types.SearchResponse{SearchID: searchID, Category: category, Results: []types.NormalizedResult{}}

	records, attempts, err := s.dispatch(ctx, category, query, maxResults, region)
	resp.Attempts = attempts
	switch {
	case errors.Is(err, errs.ErrInvalidRequest):
		return nil, err
	case errors.Is(err, errs.ErrRateLimited):
		resp.Status = types.StatusRateLimited
		resp.Err = err
	case err != nil:
		resp.Status = types.StatusUpstreamUnavailable
		resp.Err = err
	default:
		resp.Results = normalizer.NormalizeAll(category, records, normalizer.Options{IncludeRaw: req.IncludeRaw})
		resp.Status = types.StatusOK
		if len(resp.Results) == 0 {
			resp.Status = types.StatusEmpty
		}
		resp.Success = true
	}
	resp.Count = len(resp.Results)

	if resp.Err != nil {
		logging.ErrorLogger.Error("search failed",
			zap.String("request_id", logging.RequestID(ctx)),
			zap.String("category", string(category)),
			zap.String("status", string(resp.Status)),
			zap.Int("attempts", attempts),
			zap.Error(resp.Err))
	}

	if o.onResults != nil {
		o.onResults(*resp)
	}

	if budget := PageBudget(req, category, s.settings.MaxPages); budget > 0 && resp.Count > 0 && s.pipeline != nil {
		var hooks []scraper.PageHook
		if o.onPage != nil {
			hooks = append(hooks, o.onPage)
		}
		resp.Results = s.pipeline.Enrich(ctx, resp.Results, budget, hooks...)
	}

	metrics.SearchesTotal.WithLabelValues(string(category), string(resp.Status)).Inc()
	logging.AppLogger.Info("search served",
		zap.String("request_id", logging.RequestID(ctx)),
		zap.String("search_id", searchID),
		zap.String("category", string(category)),
		zap.String("status", string(resp.Status)),
		zap.Int("count", resp.Count))
	return resp, nil
}

// dispatch wraps image searches in the retry controller; the other
// categories get a single attempt.
func (s *Service) dispatch(ctx context.Context, category types.Category, query string, maxResults int, region string) ([]types.RawRecord, int, error) {
	if category != types.CategoryImage {
		records, err := s.dispatcher.Dispatch(ctx, category, query, maxResults, region)
		return records, 1, err
	}

	outcome := retry.WithRetry(ctx, s.settings.Retry, func(ctx context.Context) ([]types.RawRecord, error) {
		return s.dispatcher.Dispatch(ctx, category, query, maxResults, region)
	})
	switch outcome.Status {
	case retry.StatusOK, retry.StatusEmpty:
		return outcome.Results, outcome.Attempts, nil
	case retry.StatusRateLimitExhausted:
		return nil, outcome.Attempts, errs.New(op, errs.ErrRateLimited, outcome.Err)
	}
	return nil, outcome.Attempts, outcome.Err
}
