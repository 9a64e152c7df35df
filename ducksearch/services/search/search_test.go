package search

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ducksearch/ducksearch/config"
	"ducksearch/ducksearch/services/dispatcher"
	"ducksearch/ducksearch/services/provider"
	"ducksearch/ducksearch/services/retry"
	"ducksearch/ducksearch/services/scraper"
	"ducksearch/ducksearch/utils/errs"
	"ducksearch/ducksearch/utils/types"
)

// stubProvider is rate limited for the first rateLimits calls, then yields
// records.
type stubProvider struct {
	mu         sync.Mutex
	calls      int
	rateLimits int
	failWith   error
	records    func(q provider.Query) []types.RawRecord
}

func (s *stubProvider) Search(ctx context.Context, q provider.Query) iter.Seq2[types.RawRecord, error] {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return func(yield func(types.RawRecord, error) bool) {
		if call <= s.rateLimits {
			yield(nil, fmt.Errorf("%w: HTTP 202 from /i.js", errs.ErrRateLimited))
			return
		}
		if s.failWith != nil {
			yield(nil, s.failWith)
			return
		}
		for _, rec := range s.records(q) {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func textRecords(base string, n int) func(provider.Query) []types.RawRecord {
	return func(provider.Query) []types.RawRecord {
		out := make([]types.RawRecord, n)
		for i := range out {
			out[i] = types.RawRecord{
				"title": fmt.Sprintf("Rust result %d", i),
				"href":  fmt.Sprintf("%s/page/%d", base, i),
				"body":  "about rust",
			}
		}
		return out
	}
}

func imageRecords(n int) func(provider.Query) []types.RawRecord {
	return func(provider.Query) []types.RawRecord {
		out := make([]types.RawRecord, n)
		for i := range out {
			out[i] = types.RawRecord{
				"title":     fmt.Sprintf("Cat %d", i),
				"image":     fmt.Sprintf("https://img.example.com/%d.jpg", i),
				"thumbnail": fmt.Sprintf("https://tse.example.com/%d", i),
				"url":       fmt.Sprintf("https://cats.example.com/%d", i),
				"width":     float64(640),
				"height":    float64(480),
			}
		}
		return out
	}
}

func fastSettings(attempts int) Settings {
	return Settings{
		Region:     "us-en",
		MaxResults: 10,
		MaxPages:   3,
		Retry:      retry.Policy{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}
}

func newService(p provider.Provider, pipeline *scraper.Pipeline, attempts int) *Service {
	return NewService(dispatcher.New(p), pipeline, fastSettings(attempts))
}

func TestSearchTextEndToEnd(t *testing.T) {
	stub := &stubProvider{records: textRecords("https://example.com", 5)}
	resp, err := newService(stub, nil, 3).Search(context.Background(), types.SearchRequest{
		Query: "rust programming", Category: "text", MaxResults: 3,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Count != 3 || len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got count=%d len=%d", resp.Count, len(resp.Results))
	}
	for i, r := range resp.Results {
		if r.Title == "" || r.URL == "" {
			t.Errorf("result %d missing title or url: %+v", i, r)
		}
		if r.Hostname != "example.com" {
			t.Errorf("result %d: unexpected hostname %q", i, r.Hostname)
		}
		if r.RawData != nil || r.PageContent != nil {
			t.Errorf("result %d: unexpected raw data or page content", i)
		}
	}
	if !resp.Success || resp.Status != types.StatusOK || resp.SearchID == "" || resp.Attempts != 1 {
		t.Errorf("unexpected response envelope %+v", resp)
	}
}

func TestSearchImagesRetriesThroughRateLimits(t *testing.T) {
	stub := &stubProvider{rateLimits: 2, records: imageRecords(2)}
	resp, err := newService(stub, nil, 5).Search(context.Background(), types.SearchRequest{
		Query: "cats", Category: "image", MaxResults: 2,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Count != 2 || resp.Status != types.StatusOK {
		t.Fatalf("expected 2 ok results, got %d (%s)", resp.Count, resp.Status)
	}
	if resp.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", resp.Attempts)
	}
	if resp.Results[0].SourcePageURL != "https://cats.example.com/0" || resp.Results[0].Width != 640 {
		t.Errorf("unexpected image result %+v", resp.Results[0])
	}
}

func TestSearchImagesRateLimitExhausted(t *testing.T) {
	stub := &stubProvider{rateLimits: 10, records: imageRecords(2)}
	resp, err := newService(stub, nil, 3).Search(context.Background(), types.SearchRequest{
		Query: "cats", Type: "images",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Status != types.StatusRateLimited || resp.Success || resp.Count != 0 {
		t.Fatalf("expected rate_limited with no results, got %+v", resp)
	}
	if !errors.Is(resp.Err, errs.ErrRateLimited) {
		t.Errorf("expected the rate limit to be visible on Err, got %v", resp.Err)
	}
	if stub.calls != 3 || resp.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", stub.calls)
	}
}

func TestSearchOtherCategoriesDoNotRetry(t *testing.T) {
	stub := &stubProvider{rateLimits: 1, records: imageRecords(1)}
	resp, err := newService(stub, nil, 5).Search(context.Background(), types.SearchRequest{Query: "cats", Category: "news"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Status != types.StatusRateLimited || stub.calls != 1 {
		t.Errorf("expected an immediate rate_limited status, got %s after %d calls", resp.Status, stub.calls)
	}
}

func TestSearchUpstreamUnavailable(t *testing.T) {
	stub := &stubProvider{failWith: errors.New("connection refused")}
	resp, err := newService(stub, nil, 5).Search(context.Background(), types.SearchRequest{Query: "cats", Category: "video"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Status != types.StatusUpstreamUnavailable || resp.Count != 0 || !errors.Is(resp.Err, errs.ErrUpstreamUnavailable) {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestSearchEmpty(t *testing.T) {
	stub := &stubProvider{records: func(provider.Query) []types.RawRecord { return nil }}
	resp, err := newService(stub, nil, 5).Search(context.Background(), types.SearchRequest{Query: "zzzz"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Status != types.StatusEmpty || !resp.Success || resp.Results == nil {
		t.Errorf("expected a successful empty response, got %+v", resp)
	}
}

func TestSearchInvalidRequests(t *testing.T) {
	svc := newService(&stubProvider{records: imageRecords(1)}, nil, 1)
	for _, req := range []types.SearchRequest{
		{Query: "  "},
		{Query: "cats", Category: "maps"},
		{Query: "cats", MaxResults: -2},
	} {
		if _, err := svc.Search(context.Background(), req); !errors.Is(err, errs.ErrInvalidRequest) {
			t.Errorf("%+v: expected ErrInvalidRequest, got %v", req, err)
		}
	}
}

func TestSearchDefaultsAndRawOptIn(t *testing.T) {
	var seen provider.Query
	stub := &stubProvider{records: func(q provider.Query) []types.RawRecord {
		seen = q
		return textRecords("https://example.com", 20)(q)
	}}
	resp, err := newService(stub, nil, 1).Search(context.Background(), types.SearchRequest{Query: "rust", IncludeRaw: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Count != 10 {
		t.Errorf("expected the default of 10 results, got %d", resp.Count)
	}
	if seen.Region != "us-en" || seen.Category != types.CategoryText {
		t.Errorf("unexpected defaults %+v", seen)
	}
	if resp.Results[0].RawData["href"] != "https://example.com/page/0" {
		t.Errorf("expected raw data when requested, got %v", resp.Results[0].RawData)
	}
}

func TestServiceBackoffFromLoadedConfig(t *testing.T) {
	t.Setenv("DUCKSEARCH_CONFIG", "")
	t.Setenv("DUCKSEARCH_RETRY_ATTEMPTS", "")
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	want := retry.Policy{
		MaxAttempts:  10,
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		JitterFactor: 0.1,
	}
	if got := NewFromConfig(cfg).settings.Retry; got != want {
		t.Errorf("configured service backoff = %+v, want %+v", got, want)
	}
	if got := NewService(nil, nil, Settings{}).settings.Retry; got != want {
		t.Errorf("zero settings backoff = %+v, want %+v", got, want)
	}
}

func TestPageBudget(t *testing.T) {
	zero, two := 0, 2
	cases := []struct {
		name     string
		req      types.SearchRequest
		category types.Category
		want     int
	}{
		{"not deep", types.SearchRequest{MaxPages: &two}, types.CategoryText, 0},
		{"deep default", types.SearchRequest{DeepScrape: true}, types.CategoryText, 3},
		{"deep explicit", types.SearchRequest{DeepScrape: true, MaxPages: &two}, types.CategoryText, 2},
		{"deep zero", types.SearchRequest{DeepScrape: true, MaxPages: &zero}, types.CategoryText, 0},
		{"images ignore deep", types.SearchRequest{DeepScrape: true}, types.CategoryImage, 0},
	}
	for _, tc := range cases {
		if got := PageBudget(tc.req, tc.category, 3); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestSearchDeepScrape(t *testing.T) {
	pages := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><head><title>Title of %s</title></head><body>hello</body></html>", r.URL.Path)
	}))
	defer pages.Close()

	stub := &stubProvider{records: textRecords(pages.URL, 4)}
	pipeline := scraper.NewPipeline(pages.Client(), config.EnrichConfig{PolitenessDelayMs: -1})
	svc := newService(stub, pipeline, 1)

	var mu sync.Mutex
	var early *types.SearchResponse
	var pageEvents []int
	two := 2
	resp, err := svc.Search(context.Background(),
		types.SearchRequest{Query: "rust", DeepScrape: true, MaxPages: &two},
		OnResults(func(r types.SearchResponse) { early = &r }),
		OnPage(func(index int, page *types.EnrichedPage) {
			mu.Lock()
			pageEvents = append(pageEvents, index)
			mu.Unlock()
		}),
	)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if early == nil || early.Count != 4 {
		t.Fatal("expected the results hook before enrichment")
	}
	for _, r := range early.Results {
		if r.PageContent != nil {
			t.Error("results hook must see unenriched results")
		}
	}
	if resp.Results[0].PageContent == nil || resp.Results[0].PageContent.Title != "Title of /page/0" {
		t.Errorf("expected first result to be enriched, got %+v", resp.Results[0].PageContent)
	}
	if resp.Results[1].PageContent == nil || resp.Results[2].PageContent != nil || resp.Results[3].PageContent != nil {
		t.Error("expected exactly the first two results to be enriched")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(pageEvents) != 2 {
		t.Errorf("expected 2 page events, got %v", pageEvents)
	}
}
