package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"ducksearch/ducksearch/config"
	"ducksearch/ducksearch/utils/errs"
	"ducksearch/ducksearch/utils/logging"
	"ducksearch/ducksearch/utils/types"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	maxUpstreamPages = 10
	maxResponseBytes = 5 << 20
)

var (
	vqdRe        = regexp.MustCompile(`vqd=["']?([\d-]+)`)
	httpPrefixRe = regexp.MustCompile(`^https?://`)
)

// DuckDuckGo queries the html endpoint for text results and the JSON
// endpoints (i.js, news.js, v.js) for the other categories.
type DuckDuckGo struct {
	client  *http.Client
	baseURL string
	htmlURL string
}

func NewDuckDuckGo(client *http.Client, cfg config.ProviderConfig) *DuckDuckGo {
	return &DuckDuckGo{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		htmlURL: cfg.HTMLURL,
	}
}

func (d *DuckDuckGo) Search(ctx context.Context, q Query) iter.Seq2[types.RawRecord, error] {
	switch q.Category {
	case types.CategoryText:
		return d.text(ctx, q)
	case types.CategoryImage:
		return d.paged(ctx, q, imagesEndpoint)
	case types.CategoryNews:
		return d.paged(ctx, q, newsEndpoint)
	case types.CategoryVideo:
		return d.paged(ctx, q, videosEndpoint)
	}
	return func(yield func(types.RawRecord, error) bool) {
		yield(nil, fmt.Errorf("duckduckgo: unsupported category %q", q.Category))
	}
}

// text walks the html result pages, submitting the "Next" form only when the
// consumer keeps pulling.
func (d *DuckDuckGo) text(ctx context.Context, q Query) iter.Seq2[types.RawRecord, error] {
	return func(yield func(types.RawRecord, error) bool) {
		form := url.Values{"q": {q.Keywords}, "kl": {q.Region}, "b": {""}}
		seen := make(map[string]bool)
		for page := 0; page < maxUpstreamPages && form != nil; page++ {
			doc, err := d.postForm(ctx, d.htmlURL, form)
			if err != nil {
				yield(nil, err)
				return
			}
			records, next := parseTextResults(doc)
			logging.AppLogger.Debug("duckduckgo text page",
				zap.Int("page", page), zap.Int("records", len(records)))
			if len(records) == 0 {
				return
			}
			for _, rec := range records {
				href, _ := rec["href"].(string)
				if seen[href] {
					continue
				}
				seen[href] = true
				if !yield(rec, nil) {
					return
				}
			}
			form = next
		}
	}
}

func parseTextResults(doc *goquery.Document) ([]types.RawRecord, url.Values) {
	var records []types.RawRecord
	doc.Find("div.result").Each(func(i int, s *goquery.Selection) {
		if s.HasClass("result--ad") {
			return
		}
		titleSel := s.Find(".result__title a").First()
		href, exists := titleSel.Attr("href")
		if !exists {
			return
		}
		actualURL := decodeResultURL(href)
		if !httpPrefixRe.MatchString(actualURL) {
			return
		}
		records = append(records, types.RawRecord{
			"title": strings.TrimSpace(titleSel.Text()),
			"href":  actualURL,
			"body":  strings.TrimSpace(s.Find(".result__snippet").Text()),
		})
	})

	var next url.Values
	doc.Find("div.nav-link form").EachWithBreak(func(i int, f *goquery.Selection) bool {
		if f.Find(`input[type="submit"][value="Next"]`).Length() == 0 {
			return true
		}
		next = url.Values{}
		f.Find(`input[type="hidden"]`).Each(func(i int, in *goquery.Selection) {
			if name, ok := in.Attr("name"); ok {
				next.Set(name, in.AttrOr("value", ""))
			}
		})
		return false
	})
	return records, next
}

// decodeResultURL unwraps duckduckgo's //duckduckgo.com/l/?uddg=... redirects.
func decodeResultURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

type endpoint struct {
	path     string
	dedupKey string
	params   func(q Query, vqd string) url.Values
	convert  func(item map[string]any) types.RawRecord
}

var imagesEndpoint = endpoint{
	path:     "i.js",
	dedupKey: "image",
	params: func(q Query, vqd string) url.Values {
		return url.Values{"l": {q.Region}, "o": {"json"}, "q": {q.Keywords}, "vqd": {vqd}, "f": {",,,,,"}, "p": {"1"}}
	},
	convert: func(item map[string]any) types.RawRecord { return types.RawRecord(item) },
}

var newsEndpoint = endpoint{
	path:     "news.js",
	dedupKey: "url",
	params: func(q Query, vqd string) url.Values {
		return url.Values{"l": {q.Region}, "o": {"json"}, "noamp": {"1"}, "q": {q.Keywords}, "vqd": {vqd}, "p": {"-1"}}
	},
	convert: convertNews,
}

var videosEndpoint = endpoint{
	path:     "v.js",
	dedupKey: "content",
	params: func(q Query, vqd string) url.Values {
		return url.Values{"l": {q.Region}, "o": {"json"}, "q": {q.Keywords}, "vqd": {vqd}, "f": {",,,"}, "p": {"-1"}}
	},
	convert: func(item map[string]any) types.RawRecord { return types.RawRecord(item) },
}

// convertNews turns the epoch date into RFC3339 and the html excerpt into a
// plain body.
func convertNews(item map[string]any) types.RawRecord {
	rec := types.RawRecord{
		"title":  item["title"],
		"url":    item["url"],
		"image":  item["image"],
		"source": item["source"],
	}
	if excerpt, ok := item["excerpt"].(string); ok {
		rec["body"] = plainText(excerpt)
	}
	switch v := item["date"].(type) {
	case float64:
		rec["date"] = time.Unix(int64(v), 0).UTC().Format(time.RFC3339)
	case string:
		rec["date"] = v
	}
	return rec
}

type jsonPage struct {
	Results []map[string]any `json:"results"`
	Next    string           `json:"next"`
}

func (d *DuckDuckGo) paged(ctx context.Context, q Query, ep endpoint) iter.Seq2[types.RawRecord, error] {
	return func(yield func(types.RawRecord, error) bool) {
		vqd, err := d.vqd(ctx, q.Keywords)
		if err != nil {
			yield(nil, err)
			return
		}
		params := ep.params(q, vqd)
		seen := make(map[string]bool)
		for page := 0; page < maxUpstreamPages; page++ {
			var body jsonPage
			if err := d.getJSON(ctx, d.baseURL+"/"+ep.path, params, &body); err != nil {
				yield(nil, err)
				return
			}
			if len(body.Results) == 0 {
				return
			}
			for _, item := range body.Results {
				key := fmt.Sprint(item[ep.dedupKey])
				if seen[key] {
					continue
				}
				seen[key] = true
				if !yield(ep.convert(item), nil) {
					return
				}
			}
			offset := nextOffset(body.Next)
			if offset == "" {
				return
			}
			params.Set("s", offset)
		}
	}
}

func nextOffset(next string) string {
	if next == "" {
		return ""
	}
	parsed, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("s")
}

// vqd fetches the per-query token the JSON endpoints require.
func (d *DuckDuckGo) vqd(ctx context.Context, keywords string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/?"+url.Values{"q": {keywords}}.Encode(), nil)
	if err != nil {
		return "", err
	}
	body, err := d.do(req)
	if err != nil {
		return "", err
	}
	match := vqdRe.FindSubmatch(body)
	if match == nil {
		return "", fmt.Errorf("duckduckgo: vqd token not found for %q", keywords)
	}
	return string(match[1]), nil
}

func (d *DuckDuckGo) postForm(ctx context.Context, target string, form url.Values) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", "https://html.duckduckgo.com/")
	body, err := d.do(req)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

func (d *DuckDuckGo) getJSON(ctx context.Context, target string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Referer", d.baseURL+"/")
	body, err := d.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("duckduckgo: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// do runs req and classifies the status: 202, 403 and 429 are how duckduckgo
// signals throttling.
func (d *DuckDuckGo) do(req *http.Request) ([]byte, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusAccepted, http.StatusForbidden, http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP %d from %s", errs.ErrRateLimited, resp.StatusCode, req.URL.Path)
	default:
		return nil, fmt.Errorf("duckduckgo: HTTP %d from %s", resp.StatusCode, req.URL.Path)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: read %s: %w", req.URL.Path, err)
	}
	return body, nil
}

func plainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(doc.Text())
}
