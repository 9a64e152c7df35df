package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ducksearch/ducksearch/config"
	"ducksearch/ducksearch/utils/errs"
	"ducksearch/ducksearch/utils/types"
)

const textPage1 = `<html><body>
<div class="result results_links result--ad">
  <div class="result__body">
    <h2 class="result__title"><a class="result__a" href="https://ads.example.com/click">Sponsored</a></h2>
    <a class="result__snippet">buy now</a>
  </div>
</div>
<div class="result results_links web-result">
  <div class="result__body">
    <h2 class="result__title"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.rust-lang.org%2F&amp;rut=abc">Rust Programming Language</a></h2>
    <a class="result__snippet">A language empowering everyone.</a>
  </div>
</div>
<div class="result results_links web-result">
  <div class="result__body">
    <h2 class="result__title"><a class="result__a" href="https://doc.rust-lang.org/book/">The Rust Book</a></h2>
    <a class="result__snippet">An introductory book about Rust.</a>
  </div>
</div>
<div class="nav-link">
  <form action="/html/" method="post">
    <input type="submit" class="btn" value="Next" />
    <input type="hidden" name="q" value="rust" />
    <input type="hidden" name="s" value="10" />
    <input type="hidden" name="dc" value="11" />
  </form>
</div>
</body></html>`

const textPage2 = `<html><body>
<div class="result results_links web-result">
  <div class="result__body">
    <h2 class="result__title"><a class="result__a" href="https://en.wikipedia.org/wiki/Rust_(programming_language)">Rust - Wikipedia</a></h2>
    <a class="result__snippet">Rust is a general-purpose language.</a>
  </div>
</div>
</body></html>`

func newTestProvider(ts *httptest.Server) *DuckDuckGo {
	cfg := (&config.Config{Provider: config.ProviderConfig{
		BaseURL: ts.URL,
		HTMLURL: ts.URL + "/html/",
	}}).WithDefaults().Provider
	return NewDuckDuckGo(NewHTTPClient(5*time.Second, cfg.UserAgent), cfg)
}

func collect(t *testing.T, p Provider, q Query, limit int) ([]types.RawRecord, error) {
	t.Helper()
	var out []types.RawRecord
	for rec, err := range p.Search(context.Background(), q) {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func TestTextSearchParsesAndPaginates(t *testing.T) {
	var posts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/html/" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected default user agent header")
		}
		_ = r.ParseForm()
		atomic.AddInt32(&posts, 1)
		if r.PostForm.Get("s") == "10" {
			fmt.Fprint(w, textPage2)
			return
		}
		if r.PostForm.Get("kl") != "uk-en" {
			t.Errorf("expected region uk-en, got %q", r.PostForm.Get("kl"))
		}
		fmt.Fprint(w, textPage1)
	}))
	defer ts.Close()

	p := newTestProvider(ts)
	records, err := collect(t, p, Query{Category: types.CategoryText, Keywords: "rust", Region: "uk-en"}, 100)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records across two pages, got %d", len(records))
	}
	if records[0]["href"] != "https://www.rust-lang.org/" {
		t.Errorf("expected uddg redirect to be decoded, got %v", records[0]["href"])
	}
	if records[0]["title"] != "Rust Programming Language" || records[0]["body"] != "A language empowering everyone." {
		t.Errorf("unexpected first record %v", records[0])
	}
	if atomic.LoadInt32(&posts) != 2 {
		t.Errorf("expected 2 page requests, got %d", posts)
	}
}

func TestTextSearchStopsPullingPages(t *testing.T) {
	var posts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&posts, 1)
		fmt.Fprint(w, textPage1)
	}))
	defer ts.Close()

	records, err := collect(t, newTestProvider(ts), Query{Category: types.CategoryText, Keywords: "rust"}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if got := atomic.LoadInt32(&posts); got != 1 {
		t.Errorf("expected a single upstream page, got %d", got)
	}
}

func TestRateLimitStatusesMapToErrRateLimited(t *testing.T) {
	for _, status := range []int{http.StatusAccepted, http.StatusForbidden, http.StatusTooManyRequests} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		_, err := collect(t, newTestProvider(ts), Query{Category: types.CategoryText, Keywords: "rust"}, 10)
		ts.Close()
		if !errors.Is(err, errs.ErrRateLimited) {
			t.Errorf("status %d: expected ErrRateLimited, got %v", status, err)
		}
	}
}

func TestServerErrorIsNotRateLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := collect(t, newTestProvider(ts), Query{Category: types.CategoryText, Keywords: "rust"}, 10)
	if err == nil || errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("expected a plain upstream error, got %v", err)
	}
}

func jsonUpstream(t *testing.T, path, page1, page2 string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<script>var x = {vqd="4-123456789"};</script>`)
	})
	mux.HandleFunc("/"+path, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("vqd") != "4-123456789" {
			t.Errorf("expected vqd token, got %q", r.URL.Query().Get("vqd"))
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("s") == "2" {
			fmt.Fprint(w, page2)
			return
		}
		fmt.Fprint(w, page1)
	})
	return httptest.NewServer(mux)
}

func TestImageSearchFollowsNext(t *testing.T) {
	ts := jsonUpstream(t, "i.js",
		`{"results":[
			{"title":"Cat 1","image":"https://img.example.com/1.jpg","thumbnail":"https://tse.example.com/1","url":"https://cats.example.com/1","width":800,"height":600,"source":"Bing"},
			{"title":"Cat 2","image":"https://img.example.com/2.jpg","thumbnail":"https://tse.example.com/2","url":"https://cats.example.com/2","width":640,"height":480,"source":"Bing"}
		],"next":"i.js?q=cats&o=json&s=2&u=bing"}`,
		`{"results":[
			{"title":"Cat 2 again","image":"https://img.example.com/2.jpg","url":"https://cats.example.com/2"},
			{"title":"Cat 3","image":"https://img.example.com/3.jpg","url":"https://cats.example.com/3"}
		]}`)
	defer ts.Close()

	records, err := collect(t, newTestProvider(ts), Query{Category: types.CategoryImage, Keywords: "cats", Region: "us-en"}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 de-duplicated records, got %d", len(records))
	}
	if records[0]["width"] != float64(800) {
		t.Errorf("expected numeric width, got %#v", records[0]["width"])
	}
	if records[2]["title"] != "Cat 3" {
		t.Errorf("unexpected third record %v", records[2])
	}
}

func TestVideoSearchDeduplicatesOnContent(t *testing.T) {
	ts := jsonUpstream(t, "v.js",
		`{"results":[
			{"content":"https://www.youtube.com/watch?v=a","title":"Cats 1","description":"first","duration":"1:00","images":{"medium":"https://i.ytimg.com/a.jpg"},"statistics":{"viewCount":42},"uploader":"CatChannel","publisher":"YouTube"},
			{"content":"https://www.youtube.com/watch?v=b","title":"Cats 2","description":"second","duration":"2:00"}
		],"next":"v.js?q=cats&o=json&s=2"}`,
		`{"results":[
			{"content":"https://www.youtube.com/watch?v=b","title":"Cats 2 again"},
			{"content":"https://vimeo.com/3","title":"Cats 3"}
		]}`)
	defer ts.Close()

	records, err := collect(t, newTestProvider(ts), Query{Category: types.CategoryVideo, Keywords: "cats"}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 de-duplicated records, got %d", len(records))
	}
	if records[1]["title"] != "Cats 2" || records[2]["content"] != "https://vimeo.com/3" {
		t.Errorf("unexpected records %v", records)
	}
	images, ok := records[0]["images"].(map[string]any)
	if !ok || images["medium"] != "https://i.ytimg.com/a.jpg" {
		t.Errorf("expected nested images to pass through, got %#v", records[0]["images"])
	}
	stats, ok := records[0]["statistics"].(map[string]any)
	if !ok || stats["viewCount"] != float64(42) {
		t.Errorf("expected nested statistics to pass through, got %#v", records[0]["statistics"])
	}
}

func TestNewsSearchConvertsDateAndExcerpt(t *testing.T) {
	ts := jsonUpstream(t, "news.js",
		`{"results":[{"date":1700000000,"title":"Cats win","excerpt":"Local <b>cats</b> win &amp; celebrate","url":"https://news.example.com/a","image":"https://news.example.com/a.jpg","source":"Example News"}]}`,
		`{"results":[]}`)
	defer ts.Close()

	records, err := collect(t, newTestProvider(ts), Query{Category: types.CategoryNews, Keywords: "cats"}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec["date"] != "2023-11-14T22:13:20Z" {
		t.Errorf("unexpected date %v", rec["date"])
	}
	if rec["body"] != "Local cats win & celebrate" {
		t.Errorf("unexpected body %q", rec["body"])
	}
	if rec["source"] != "Example News" {
		t.Errorf("unexpected source %v", rec["source"])
	}
}

func TestMissingVQDIsAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>no token</html>")
	}))
	defer ts.Close()

	_, err := collect(t, newTestProvider(ts), Query{Category: types.CategoryVideo, Keywords: "cats"}, 10)
	if err == nil {
		t.Fatal("expected an error when the vqd token is missing")
	}
}

func TestHeaderTransportKeepsExplicitHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.Header.Get("User-Agent"))
	}))
	defer ts.Close()

	client := NewHTTPClient(time.Second, "default-agent")
	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	req.Header.Set("User-Agent", "custom-agent")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	if string(buf[:n]) != "custom-agent" {
		t.Errorf("expected explicit header to win, got %q", buf[:n])
	}
}
