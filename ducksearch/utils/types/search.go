// ducksearch/utils/types/search.go
package types

import "strings"

// Category is one of the four search verticals.
type Category string

const (
	CategoryText  Category = "text"
	CategoryImage Category = "image"
	CategoryNews  Category = "news"
	CategoryVideo Category = "video"
)

var Categories = []Category{CategoryText, CategoryImage, CategoryNews, CategoryVideo}

// ParseCategory accepts the singular names as well as the plural forms the
// serverless front end used ("images", "videos"). Empty means text.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "web":
		return CategoryText, true
	case "image", "images":
		return CategoryImage, true
	case "news":
		return CategoryNews, true
	case "video", "videos":
		return CategoryVideo, true
	}
	return "", false
}

// RawRecord is a provider record as decoded from the wire. Only the
// normalizer looks inside it.
type RawRecord map[string]any

type SearchRequest struct {
	Query      string `json:"query"`
	Category   string `json:"category,omitempty"`
	Type       string `json:"type,omitempty"` // alias of Category
	MaxResults int    `json:"max_results,omitempty"`
	Region     string `json:"region,omitempty"`
	DeepScrape bool   `json:"deep_scrape,omitempty"`
	MaxPages   *int   `json:"max_pages,omitempty"` // nil means "use the default"
	IncludeRaw bool   `json:"include_raw,omitempty"`
}

// CategoryName returns Category, falling back to Type.
func (r SearchRequest) CategoryName() string {
	if strings.TrimSpace(r.Category) != "" {
		return r.Category
	}
	return r.Type
}

type SearchStatus string

const (
	StatusOK                  SearchStatus = "ok"
	StatusEmpty               SearchStatus = "empty"
	StatusRateLimited         SearchStatus = "rate_limited"
	StatusUpstreamUnavailable SearchStatus = "upstream_unavailable"
)

type SearchResponse struct {
	Success  bool               `json:"success"`
	Results  []NormalizedResult `json:"results"`
	Count    int                `json:"count"`
	Status   SearchStatus       `json:"status"`
	SearchID string             `json:"search_id"`
	Category Category           `json:"category"`
	Attempts int                `json:"attempts,omitempty"`
	Err      error              `json:"-"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// NormalizedResult is the uniform result shape. Category specific fields are
// left empty for the other categories.
type NormalizedResult struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
	Hostname string `json:"hostname"`

	// text
	Date     string `json:"date,omitempty"`
	Category string `json:"category,omitempty"`

	// image
	ThumbnailURL  string `json:"thumbnail_url,omitempty"`
	SourcePageURL string `json:"source_page_url,omitempty"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	ByteSize      int64  `json:"byte_size,omitempty"`
	Format        string `json:"format,omitempty"`

	// news
	PublishedDate string `json:"published_date,omitempty"`
	SourceName    string `json:"source_name,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`

	// video
	Duration    string `json:"duration,omitempty"`
	ChannelName string `json:"channel_name,omitempty"`
	ViewCount   int64  `json:"view_count,omitempty"`

	RawData     RawRecord     `json:"raw_data,omitempty"`
	PageContent *EnrichedPage `json:"page_content,omitempty"`
}

type SaveRequest struct {
	Results  []NormalizedResult `json:"results"`
	Filename string             `json:"filename,omitempty"`
	Query    string             `json:"query,omitempty"`
	Category string             `json:"category,omitempty"`
}

type SaveResponse struct {
	Success   bool   `json:"success"`
	Filename  string `json:"filename"`
	Filepath  string `json:"filepath"`
	ObjectKey string `json:"object_key,omitempty"`
}
