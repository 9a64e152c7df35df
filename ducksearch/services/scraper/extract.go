package scraper

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"ducksearch/ducksearch/utils/types"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"golang.org/x/net/html"
)

// Limits caps the free text pulled out of a page, in runes.
type Limits struct {
	MainText int
	LinkText int
}

var headingTags = []string{"h1", "h2", "h3", "h4", "h5", "h6"}

// Extract parses a UTF-8 html document into an EnrichedPage for pageURL.
func Extract(body []byte, pageURL string, limits Limits) (*types.EnrichedPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	page := &types.EnrichedPage{
		URL:      pageURL,
		Keywords: []string{},
		Images:   []types.PageImage{},
		Links:    []types.PageLink{},
		MetaTags: map[string]string{},
		Headings: map[string][]string{},
	}

	doc.Find("meta").Each(func(i int, s *goquery.Selection) {
		key := s.AttrOr("name", "")
		if key == "" {
			key = s.AttrOr("property", "")
		}
		content, ok := s.Attr("content")
		if key == "" || !ok {
			return
		}
		page.MetaTags[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(content)
	})

	page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if page.Title == "" {
		page.Title = page.MetaTags["og:title"]
	}
	page.Description = page.MetaTags["description"]
	if page.Description == "" {
		page.Description = page.MetaTags["og:description"]
	}
	page.Author = page.MetaTags["author"]
	page.Keywords = splitKeywords(page.MetaTags["keywords"])
	page.Language = strings.TrimSpace(doc.Find("html").AttrOr("lang", ""))
	page.Charset = declaredCharset(doc)
	page.CanonicalURL = page.MetaTags["og:url"]
	if page.CanonicalURL == "" {
		page.CanonicalURL = strings.TrimSpace(doc.Find(`link[rel="canonical"]`).AttrOr("href", ""))
	}

	for _, tag := range headingTags {
		texts := []string{}
		doc.Find(tag).Each(func(i int, s *goquery.Selection) {
			if t := collapse(s.Text()); t != "" {
				texts = append(texts, t)
			}
		})
		page.Headings[tag] = texts
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" {
			return
		}
		page.Images = append(page.Images, types.PageImage{
			Src:   src,
			Alt:   s.AttrOr("alt", ""),
			Title: s.AttrOr("title", ""),
		})
	})

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		page.Links = append(page.Links, types.PageLink{
			URL:  s.AttrOr("href", ""),
			Text: truncate(collapse(s.Text()), limits.LinkText),
		})
	})

	page.OpenGraph = openGraph(body)

	doc.Find("script, style, meta, link, noscript").Remove()
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	page.Content = truncate(flattenText(root.Nodes), limits.MainText)

	return page, nil
}

func splitKeywords(raw string) []string {
	keywords := []string{}
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

// declaredCharset reads <meta charset> or the http-equiv content type.
func declaredCharset(doc *goquery.Document) string {
	if cs := strings.TrimSpace(doc.Find("meta[charset]").First().AttrOr("charset", "")); cs != "" {
		return cs
	}
	var cs string
	doc.Find("meta[http-equiv]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if !strings.EqualFold(s.AttrOr("http-equiv", ""), "content-type") {
			return true
		}
		content := strings.ToLower(s.AttrOr("content", ""))
		if idx := strings.Index(content, "charset="); idx >= 0 {
			cs = strings.Trim(strings.TrimSpace(content[idx+len("charset="):]), `"';`)
			return false
		}
		return true
	})
	return cs
}

func openGraph(body []byte) *types.OpenGraph {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(bytes.NewReader(body)); err != nil {
		return nil
	}
	out := &types.OpenGraph{Type: og.Type, SiteName: og.SiteName, Locale: og.Locale}
	for _, img := range og.Images {
		if img != nil && img.URL != "" {
			out.Images = append(out.Images, img.URL)
		}
	}
	if out.Type == "" && out.SiteName == "" && out.Locale == "" && len(out.Images) == 0 {
		return nil
	}
	return out
}

// flattenText joins every text node below nodes with single spaces.
func flattenText(nodes []*html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			for _, word := range strings.Fields(n.Data) {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(word)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
