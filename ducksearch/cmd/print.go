package main

import (
	"fmt"
	"io"
	"strings"

	"ducksearch/ducksearch/utils/color"
	"ducksearch/ducksearch/utils/types"
)

const (
	ruleWidth          = 80
	snippetPreview     = 100
	descriptionPreview = 80
)

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func printResults(w io.Writer, results []types.NormalizedResult, detailed bool) {
	if len(results) == 0 {
		fmt.Fprintln(w, color.ColorWarning("No results found."))
		return
	}

	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(w, "\n%s\n%s\n%s\n\n", rule, color.ColorHeader(fmt.Sprintf("Found %d results:", len(results))), rule)

	for i, r := range results {
		fmt.Fprintf(w, "Result %d:\n", i+1)
		field(w, "Title", color.ColorTitle(orNA(r.Title)))
		field(w, "URL", color.ColorURL(orNA(r.URL)))
		field(w, "Snippet", preview(orNA(r.Snippet), snippetPreview))

		if detailed {
			optional(w, "Hostname", r.Hostname)
			optional(w, "Date", r.Date)
			optional(w, "Category", r.Category)
			optional(w, "Thumbnail", r.ThumbnailURL)
			optional(w, "Source Page", r.SourcePageURL)
			if r.Width > 0 && r.Height > 0 {
				field(w, "Size", fmt.Sprintf("%dx%d", r.Width, r.Height))
			}
			optional(w, "Published", r.PublishedDate)
			optional(w, "Source", r.SourceName)
			optional(w, "Duration", r.Duration)
			optional(w, "Channel", r.ChannelName)
			if r.ViewCount > 0 {
				field(w, "Views", fmt.Sprint(r.ViewCount))
			}
			printPage(w, r.PageContent)
		}
		fmt.Fprintln(w, strings.Repeat("-", ruleWidth))
	}
}

func printPage(w io.Writer, page *types.EnrichedPage) {
	switch {
	case page == nil:
		return
	case page.Failed():
		field(w, "Page Error", color.ColorError(page.Error))
		return
	}
	field(w, "Page Title", orNA(page.Title))
	field(w, "Page Description", preview(orNA(page.Description), descriptionPreview))
	field(w, "Images Found", fmt.Sprint(len(page.Images)))
	field(w, "Links Found", fmt.Sprint(len(page.Links)))
}

func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s %s\n", color.ColorLabel(label+":"), value)
}

func optional(w io.Writer, label, value string) {
	if value != "" {
		field(w, label, value)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// preview cuts s to limit runes and marks the cut.
func preview(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
