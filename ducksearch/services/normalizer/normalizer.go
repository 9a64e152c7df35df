// Package normalizer maps provider records onto types.NormalizedResult.
//
// Each logical field has an ordered list of candidate keys per category. The
// first candidate present with a non-empty value wins. A dotted candidate such
// as "statistics.viewCount" reaches into nested maps. The tables also list the
// normalizer's own JSON names so that reserialized output normalizes to itself.
package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"ducksearch/ducksearch/utils/types"
)

type field int

const (
	fieldTitle field = iota
	fieldURL
	fieldSnippet
	fieldHostname
	fieldDate
	fieldCategoryTag
	fieldThumbnail
	fieldSourcePage
	fieldWidth
	fieldHeight
	fieldByteSize
	fieldFormat
	fieldPublished
	fieldSourceName
	fieldImageURL
	fieldDuration
	fieldChannel
	fieldViews
)

type aliasTable map[field][]string

var common = aliasTable{
	fieldHostname: {"hostname"},
}

var tables = map[types.Category]aliasTable{
	types.CategoryText: {
		fieldTitle:       {"title", "Title"},
		fieldURL:         {"href", "url", "URL"},
		fieldSnippet:     {"body", "Body", "snippet"},
		fieldDate:        {"date"},
		fieldCategoryTag: {"category"},
	},
	types.CategoryImage: {
		fieldTitle:      {"title", "Title"},
		fieldURL:        {"image", "url"},
		fieldSnippet:    {"snippet", "body"},
		fieldThumbnail:  {"thumbnail_url", "thumbnail"},
		fieldSourcePage: {"source_page_url", "url"},
		fieldWidth:      {"width"},
		fieldHeight:     {"height"},
		fieldByteSize:   {"byte_size", "size"},
		fieldFormat:     {"format"},
	},
	types.CategoryNews: {
		fieldTitle:      {"title", "Title"},
		fieldURL:        {"url", "href"},
		fieldSnippet:    {"body", "snippet", "excerpt"},
		fieldPublished:  {"published_date", "date"},
		fieldSourceName: {"source_name", "source"},
		fieldImageURL:   {"image_url", "image"},
	},
	types.CategoryVideo: {
		fieldTitle:     {"title", "Title"},
		fieldURL:       {"url", "href", "content"},
		fieldSnippet:   {"snippet", "description", "body"},
		fieldThumbnail: {"thumbnail_url", "thumbnail", "images.medium", "images.large", "images.small"},
		fieldDuration:  {"duration"},
		fieldChannel:   {"channel_name", "channel", "uploader", "publisher"},
		fieldViews:     {"view_count", "views", "statistics.viewCount"},
		fieldPublished: {"published_date", "published"},
	},
}

type Options struct {
	// IncludeRaw keeps the provider record on the result.
	IncludeRaw bool
}

// Normalize never fails: an unknown category or an empty record still yields
// a result with the common fields (possibly all empty).
func Normalize(category types.Category, raw types.RawRecord, opts Options) types.NormalizedResult {
	t := tables[category]
	lookup := func(f field) string {
		keys, ok := t[f]
		if !ok {
			keys = common[f]
		}
		return stringValue(first(raw, keys))
	}
	number := func(f field) int64 {
		return intValue(first(raw, t[f]))
	}

	res := types.NormalizedResult{
		Title:   lookup(fieldTitle),
		URL:     lookup(fieldURL),
		Snippet: lookup(fieldSnippet),
	}
	// a provider hostname is kept verbatim, whitespace included
	host := first(raw, common[fieldHostname])
	res.Hostname = stringValue(host)
	if h, ok := host.(string); ok {
		res.Hostname = h
	}
	if res.Hostname == "" {
		res.Hostname = Hostname(res.URL)
	}

	switch category {
	case types.CategoryText:
		res.Date = lookup(fieldDate)
		res.Category = lookup(fieldCategoryTag)
	case types.CategoryImage:
		res.ThumbnailURL = lookup(fieldThumbnail)
		res.SourcePageURL = lookup(fieldSourcePage)
		res.Width = int(number(fieldWidth))
		res.Height = int(number(fieldHeight))
		res.ByteSize = number(fieldByteSize)
		res.Format = lookup(fieldFormat)
	case types.CategoryNews:
		res.PublishedDate = lookup(fieldPublished)
		res.SourceName = lookup(fieldSourceName)
		res.ImageURL = lookup(fieldImageURL)
	case types.CategoryVideo:
		res.ThumbnailURL = lookup(fieldThumbnail)
		res.Duration = lookup(fieldDuration)
		res.ChannelName = lookup(fieldChannel)
		res.ViewCount = number(fieldViews)
		res.PublishedDate = lookup(fieldPublished)
	}

	if opts.IncludeRaw && raw != nil {
		res.RawData = raw
	}
	return res
}

// NormalizeAll keeps order and length: one result per record.
func NormalizeAll(category types.Category, raws []types.RawRecord, opts Options) []types.NormalizedResult {
	out := make([]types.NormalizedResult, len(raws))
	for i, raw := range raws {
		out[i] = Normalize(category, raw, opts)
	}
	return out
}

// Hostname returns the authority of rawURL, or "" when it does not parse.
func Hostname(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

func first(raw types.RawRecord, keys []string) any {
	for _, key := range keys {
		v, ok := lookupPath(raw, key)
		if ok && !isEmpty(v) {
			return v
		}
	}
	return nil
}

func lookupPath(raw map[string]any, key string) (any, bool) {
	if v, ok := raw[key]; ok {
		return v, true
	}
	head, rest, nested := strings.Cut(key, ".")
	if !nested {
		return nil, false
	}
	child, ok := raw[head].(map[string]any)
	if !ok {
		if rec, isRec := raw[head].(types.RawRecord); isRec {
			child = rec
		} else {
			return nil, false
		}
	}
	return lookupPath(child, rest)
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}

func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case map[string]any, []any:
		return ""
	}
	return fmt.Sprint(v)
}

func intValue(v any) int64 {
	switch x := v.(type) {
	case float64:
		return int64(x)
	case float32:
		return int64(x)
	case int:
		return int64(x)
	case int64:
		return x
	case int32:
		return int64(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return int64(f)
		}
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
	}
	return 0
}
