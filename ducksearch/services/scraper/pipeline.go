// Package scraper enriches text results with metadata scraped from the pages
// they link to.
package scraper

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"ducksearch/ducksearch/config"
	"ducksearch/ducksearch/utils/logging"
	"ducksearch/ducksearch/utils/metrics"
	"ducksearch/ducksearch/utils/types"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PageHook is called once per entry that received a page, in completion order.
type PageHook func(index int, page *types.EnrichedPage)

type Pipeline struct {
	fetcher     *Fetcher
	concurrency int
	politeness  time.Duration
}

func NewPipeline(client *http.Client, cfg config.EnrichConfig) *Pipeline {
	cfg = (&config.Config{Enrich: cfg}).WithDefaults().Enrich
	limits := Limits{MainText: cfg.MainTextLimit, LinkText: cfg.LinkTextLimit}
	return &Pipeline{
		fetcher:     NewFetcher(client, cfg.PageTimeout(), cfg.MaxPageBytes, limits),
		concurrency: cfg.Concurrency,
		politeness:  cfg.PolitenessDelay(),
	}
}

type target struct {
	url     string
	indices []int
}

// plan picks the first budget distinct non-empty URLs in input order.
func plan(results []types.NormalizedResult, budget int) []target {
	if budget <= 0 {
		return nil
	}
	byURL := make(map[string]int)
	var targets []target
	for i, r := range results {
		if r.URL == "" {
			continue
		}
		if t, ok := byURL[r.URL]; ok {
			targets[t].indices = append(targets[t].indices, i)
			continue
		}
		if len(targets) == budget {
			continue
		}
		byURL[r.URL] = len(targets)
		targets = append(targets, target{url: r.URL, indices: []int{i}})
	}
	return targets
}

// Enrich returns a copy of results where up to budget distinct URLs carry a
// PageContent. Everything else is returned as it came in. When ctx ends no
// new fetch starts and the pages gathered so far are kept.
func (p *Pipeline) Enrich(ctx context.Context, results []types.NormalizedResult, budget int, hooks ...PageHook) []types.NormalizedResult {
	defer logging.LogDuration(ctx, "scraper.Enrich")()

	out := make([]types.NormalizedResult, len(results))
	copy(out, results)

	targets := plan(out, budget)
	if len(targets) == 0 {
		return out
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)

	for i, t := range targets {
		if i > 0 && p.politeness > 0 && !sleep(ctx, p.politeness) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			page := p.fetch(ctx, t.url)
			if page == nil {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, idx := range t.indices {
				out[idx].PageContent = page
				for _, hook := range hooks {
					hook(idx, page)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// fetch returns nil when the failure was caused by ctx ending.
func (p *Pipeline) fetch(ctx context.Context, pageURL string) *types.EnrichedPage {
	start := time.Now()
	page, err := p.fetcher.Fetch(ctx, pageURL)
	metrics.PageFetchDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.PageFetchesTotal.WithLabelValues("ok").Inc()
		return page
	}
	if ctx.Err() != nil {
		metrics.PageFetchesTotal.WithLabelValues("cancelled").Inc()
		return nil
	}

	metrics.PageFetchesTotal.WithLabelValues("failed").Inc()
	logging.AppLogger.Info("page fetch failed",
		zap.String("url", pageURL),
		zap.Error(err),
		zap.String("request_id", logging.RequestID(ctx)))

	reason := errors.Unwrap(err)
	if reason == nil {
		reason = err
	}
	return types.FailedPage(pageURL, reason)
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
