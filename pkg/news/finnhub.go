package news

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"

	"narrativelens/internal/model"
)

type FinnHubClient struct {
	client *finnhub.DefaultApiService
}

func NewFinnHubClient(apiKey string) *FinnHubClient {
	return newFinnHubClient(apiKey, &http.Client{Timeout: 30 * time.Second})
}

func newFinnHubClient(apiKey string, httpClient *http.Client) *FinnHubClient {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	cfg.HTTPClient = httpClient
	return &FinnHubClient{client: finnhub.NewAPIClient(cfg).DefaultApi}
}

func (c *FinnHubClient) Fetch(ctx context.Context, limit int) ([]model.Headline, error) {
	res, _, err := c.client.MarketNews(ctx).Category("general").Execute()
	if err != nil {
		return nil, fmt.Errorf("finnhub fetch: %w", err)
	}

	headlines := make([]model.Headline, 0, len(res))
	for _, item := range res {
		if limit > 0 && len(headlines) >= limit {
			break
		}

		h := model.Headline{
			Source:  c.Name(),
			Symbols: []string{},
		}
		if item.Headline != nil {
			h.Headline = *item.Headline
		}
		if item.Summary != nil {
			h.Detail = *item.Summary
		}
		if item.Url != nil {
			h.URL = *item.Url
		}
		if item.Datetime != nil {
			h.PublishedAt = time.Unix(*item.Datetime, 0)
		}
		if item.Source != nil {
			h.Publisher = *item.Source
		}
		if item.Related != nil && *item.Related != "" {
			h.Symbols = strings.Split(*item.Related, ",")
		}

		headlines = append(headlines, h)
	}

	return headlines, nil
}

func (c *FinnHubClient) Name() string {
	return "FinnHub"
}
