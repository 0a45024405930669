package news

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"

	"narrativelens/internal/model"
)

func TestFinnHubFetch(t *testing.T) {
	payload := []map[string]interface{}{
		{
			"id":       int64(7412),
			"category": "top news",
			"datetime": int64(1772100000),
			"headline": "Oil Jumps On Supply Cut",
			"summary":  "OPEC+ extends cuts.",
			"url":      "https://example.com/oil",
			"source":   "MarketWatch",
			"related":  "XOM,CVX",
		},
		{
			"id":       int64(7413),
			"headline": "Second",
			"url":      "https://example.com/second",
		},
	}

	var gotToken, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Finnhub-Token")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	client := newFinnHubClient("test-key", &http.Client{
		Transport: &rewriteTransport{base: srv.URL, inner: http.DefaultTransport},
	})

	headlines, err := client.Fetch(context.Background(), 1)

	assert.Equal(t, nil, err)
	assert.Equal(t, "test-key", gotToken)
	assert.Equal(t, "/api/v1/news", gotPath)
	assert.Equal(t, 1, len(headlines))

	h := headlines[0]
	assert.Equal(t, "Oil Jumps On Supply Cut", h.Headline)
	assert.Equal(t, "OPEC+ extends cuts.", h.Detail)
	assert.Equal(t, "https://example.com/oil", h.URL)
	assert.Equal(t, "MarketWatch", h.Publisher)
	assert.Equal(t, "FinnHub", h.Source)
	assert.Equal(t, []string{"XOM", "CVX"}, h.Symbols)
	assert.Equal(t, int64(1772100000), h.PublishedAt.Unix())
}

type stubClient struct {
	name      string
	headlines []model.Headline
	err       error
}

func (s *stubClient) Fetch(ctx context.Context, limit int) ([]model.Headline, error) {
	return s.headlines, s.err
}

func (s *stubClient) Name() string { return s.name }

func TestFetchAll(t *testing.T) {
	clients := []NewsClient{
		&stubClient{name: "a", headlines: []model.Headline{{Headline: "one"}, {Headline: "two"}}},
		&stubClient{name: "b", err: errors.New("rate limited")},
		&stubClient{name: "c", headlines: []model.Headline{{Headline: "three"}}},
	}

	headlines, failed := FetchAll(context.Background(), clients, 10)

	assert.Equal(t, 3, len(headlines))
	assert.Equal(t, "three", headlines[2].Headline)
	assert.Equal(t, 1, len(failed))
	assert.Equal(t, "rate limited", failed["b"].Error())
}
