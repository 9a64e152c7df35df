// ducksearch/utils/types/page.go
package types

import "encoding/json"

const PageStatusFailed = "failed"

type PageImage struct {
	Src   string `json:"src"`
	Alt   string `json:"alt"`
	Title string `json:"title"`
}

type PageLink struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

type OpenGraph struct {
	Type     string   `json:"type,omitempty"`
	SiteName string   `json:"site_name,omitempty"`
	Locale   string   `json:"locale,omitempty"`
	Images   []string `json:"images,omitempty"`
}

// EnrichedPage holds the metadata scraped from a result's page. When Error is
// set it is a failure marker and only URL, Error and Status are serialized.
type EnrichedPage struct {
	URL          string              `json:"url"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Keywords     []string            `json:"keywords"`
	Author       string              `json:"author"`
	Content      string              `json:"content"`
	Images       []PageImage         `json:"images"`
	Links        []PageLink          `json:"links"`
	MetaTags     map[string]string   `json:"meta_tags"`
	Headings     map[string][]string `json:"headings"`
	Language     string              `json:"language"`
	Charset      string              `json:"charset"`
	CanonicalURL string              `json:"canonical_url"`
	OpenGraph    *OpenGraph          `json:"open_graph,omitempty"`

	Error  string `json:"error,omitempty"`
	Status string `json:"status,omitempty"`
}

// FailedPage builds the failure marker for url.
func FailedPage(url string, err error) *EnrichedPage {
	return &EnrichedPage{URL: url, Error: err.Error(), Status: PageStatusFailed}
}

func (p *EnrichedPage) Failed() bool {
	return p != nil && p.Error != ""
}

type pageFailure struct {
	URL    string `json:"url"`
	Error  string `json:"error"`
	Status string `json:"status"`
}

func (p EnrichedPage) MarshalJSON() ([]byte, error) {
	if p.Error != "" {
		return json.Marshal(pageFailure{URL: p.URL, Error: p.Error, Status: PageStatusFailed})
	}
	type plain EnrichedPage
	return json.Marshal(plain(p))
}
