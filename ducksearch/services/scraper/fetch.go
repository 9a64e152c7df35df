package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"ducksearch/ducksearch/utils/errs"
	"ducksearch/ducksearch/utils/types"

	"golang.org/x/net/html/charset"
)

const fetchOp = "fetch page"

// Fetcher downloads one page and extracts it. The client is shared and
// follows redirects.
type Fetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	limits   Limits
}

func NewFetcher(client *http.Client, timeout time.Duration, maxBytes int64, limits Limits) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, timeout: timeout, maxBytes: maxBytes, limits: limits}
}

// Fetch returns an errs.ErrPageFetchFailed error for transport failures and
// non-2xx statuses. The wrapped cause is the short, user facing reason.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*types.EnrichedPage, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, errs.New(fetchOp, errs.ErrPageFetchFailed, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errs.New(fetchOp, errs.ErrPageFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.New(fetchOp, errs.ErrPageFetchFailed, fmt.Errorf("HTTP %s", resp.Status))
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errs.New(fetchOp, errs.ErrPageFetchFailed, fmt.Errorf("read body: %w", err))
	}

	page, err := Extract(toUTF8(data, resp.Header.Get("Content-Type")), pageURL, f.limits)
	if err != nil {
		return nil, errs.New(fetchOp, errs.ErrPageFetchFailed, fmt.Errorf("parse html: %w", err))
	}
	return page, nil
}

func toUTF8(data []byte, contentType string) []byte {
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if utf8.Valid(data) {
			return data
		}
		return []byte(strings.ToValidUTF8(string(data), "\uFFFD"))
	}
	return decoded
}
