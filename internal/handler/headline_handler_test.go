package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"narrativelens/internal/model"
)

type fakeHeadlineStore struct {
	headlines []model.Headline
	total     int
	err       error
	gotLimit  int
	gotOffset int
}

func (f *fakeHeadlineStore) Feed(ctx context.Context, limit, offset int) ([]model.Headline, error) {
	f.gotLimit, f.gotOffset = limit, offset
	return f.headlines, f.err
}

func (f *fakeHeadlineStore) Total(ctx context.Context) (int, error) {
	return f.total, f.err
}

func newHeadlineRouter(store HeadlineStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/headlines", NewHeadlineHandler(store).GetHeadlines)
	return r
}

func TestGetHeadlines_ReturnHeadlines(t *testing.T) {
	store := &fakeHeadlineStore{
		headlines: []model.Headline{
			{ID: 1, Headline: "Fed holds rates", Source: "FinnHub", PublishedAt: time.Date(2026, 2, 26, 12, 0, 0, 0, time.UTC), Symbols: []string{"SPY"}},
		},
		total: 1,
	}
	r := newHeadlineRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/headlines?limit=5&offset=10", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var res HeadlineFeedResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 5, res.Limit)
	assert.Equal(t, 10, res.Offset)
	assert.Equal(t, "Fed holds rates", res.Headlines[0].Headline)
	assert.Equal(t, "2026-02-26T12:00:00Z", res.Headlines[0].PublishedAt)
	assert.Equal(t, []string{"SPY"}, res.Headlines[0].Symbols)
	assert.Equal(t, 5, store.gotLimit)
	assert.Equal(t, 10, store.gotOffset)
}

func TestGetHeadlines_QueryDefaults(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 20, 0},
		{"?limit=abc&offset=-3", 20, 0},
		{"?limit=0", 20, 0},
		{"?limit=500", 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := newHeadlineRouter(&fakeHeadlineStore{})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/headlines"+tt.query, nil))

			var res HeadlineFeedResponse
			json.Unmarshal(w.Body.Bytes(), &res)
			assert.Equal(t, tt.wantLimit, res.Limit)
			assert.Equal(t, tt.wantOffset, res.Offset)
			assert.Equal(t, []HeadlineResponse{}, res.Headlines)
		})
	}
}

func TestGetHeadlines_DBError(t *testing.T) {
	r := newHeadlineRouter(&fakeHeadlineStore{err: errors.New("DB down")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/headlines", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
