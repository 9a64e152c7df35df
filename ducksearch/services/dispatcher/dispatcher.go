// Package dispatcher validates a category search and pulls at most
// maxResults records from the provider.
package dispatcher

import (
	"context"
	"errors"
	"strings"

	"ducksearch/ducksearch/services/provider"
	"ducksearch/ducksearch/utils/errs"
	"ducksearch/ducksearch/utils/logging"
	"ducksearch/ducksearch/utils/metrics"
	"ducksearch/ducksearch/utils/types"

	"go.uber.org/zap"
)

const op = "dispatch"

type Dispatcher struct {
	provider provider.Provider
}

func New(p provider.Provider) *Dispatcher {
	return &Dispatcher{provider: p}
}

// Dispatch runs one upstream search. Records pulled before a failure are
// returned together with the error.
func (d *Dispatcher) Dispatch(ctx context.Context, category types.Category, query string, maxResults int, region string) ([]types.RawRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.Invalid(op, "query must not be empty")
	}
	if !known(category) {
		return nil, errs.Invalid(op, "unsupported category %q", category)
	}
	if maxResults <= 0 {
		return nil, errs.Invalid(op, "max_results must be positive, got %d", maxResults)
	}

	metrics.UpstreamAttemptsTotal.WithLabelValues(string(category)).Inc()

	records := make([]types.RawRecord, 0, maxResults)
	q := provider.Query{Category: category, Keywords: query, Region: region}
	for rec, err := range d.provider.Search(ctx, q) {
		if err != nil {
			return records, classify(err)
		}
		records = append(records, rec)
		if len(records) >= maxResults {
			break
		}
	}

	logging.AppLogger.Debug("dispatch finished",
		zap.String("category", string(category)),
		zap.Int("records", len(records)),
		zap.String("request_id", logging.RequestID(ctx)))
	return records, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, errs.ErrRateLimited):
		return errs.New(op, errs.ErrRateLimited, err)
	case errors.Is(err, errs.ErrInvalidRequest):
		return err
	}
	return errs.New(op, errs.ErrUpstreamUnavailable, err)
}

func known(c types.Category) bool {
	for _, k := range types.Categories {
		if c == k {
			return true
		}
	}
	return false
}
