package search

import (
	"ducksearch/ducksearch/config"
	"ducksearch/ducksearch/services/dispatcher"
	"ducksearch/ducksearch/services/provider"
	"ducksearch/ducksearch/services/scraper"
)

// NewFromConfig builds the DuckDuckGo backed service. One HTTP client is
// shared by the provider and the page pipeline.
func NewFromConfig(cfg config.Config) *Service {
	client := provider.NewHTTPClient(cfg.Provider.Timeout(), cfg.Provider.UserAgent)
	ddg := provider.NewDuckDuckGo(client, cfg.Provider)
	return NewService(
		dispatcher.New(ddg),
		scraper.NewPipeline(client, cfg.Enrich),
		SettingsFromConfig(cfg),
	)
}
