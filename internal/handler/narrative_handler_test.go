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

type fakeStore struct {
	narratives []model.Narrative
	edges      []model.BeliefEdge
	listCalls  int
	err        error
}

func (f *fakeStore) List(ctx context.Context) ([]model.Narrative, error) {
	f.listCalls++
	return f.narratives, f.err
}

func (f *fakeStore) Get(ctx context.Context, id string) (*model.Narrative, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.narratives {
		if f.narratives[i].ID == id {
			return &f.narratives[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListEdges(ctx context.Context) ([]model.BeliefEdge, error) {
	return f.edges, f.err
}

func (f *fakeStore) Ping(ctx context.Context) error {
	return f.err
}

type fakeCache struct {
	data []byte
	err  error
}

func (f *fakeCache) Get(ctx context.Context) ([]byte, error) {
	return f.data, f.err
}

func (f *fakeCache) Set(ctx context.Context, value []byte) error {
	f.data = value
	return nil
}

type fakeQueue struct {
	pushed []string
	err    error
	lenErr error
}

func (f *fakeQueue) Push(ctx context.Context, data string) error {
	if f.err != nil {
		return f.err
	}
	f.pushed = append(f.pushed, data)
	return nil
}

func (f *fakeQueue) Len(ctx context.Context) (int64, error) {
	return int64(len(f.pushed)), f.lenErr
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleNarratives() []model.Narrative {
	return []model.Narrative{
		{
			ID:         "ai-capex",
			Name:       "AI Capex Supercycle",
			Summary:    "Hyperscalers keep raising spend.",
			Confidence: model.Confidence{Score: 80, Trend: model.TrendUp, LastUpdated: fixedNow},
			Assumptions: []model.Assumption{
				{ID: "a1", Text: "Demand holds", FragilityScore: 70},
			},
			Decay:          model.Decay{HalfLifeDays: 30, LastReinforced: fixedNow.AddDate(0, 0, -30)},
			AffectedAssets: []model.AffectedAsset{{Ticker: "NVDA", Name: "Nvidia", ExposureWeight: 0.9}},
			Tags:           []string{"tech", "ai"},
		},
		{
			ID:             "rate-cuts",
			Name:           "Fed Rate Cuts",
			Summary:        "Inflation cools enough for cuts.",
			Confidence:     model.Confidence{Score: 55, Trend: model.TrendDown, LastUpdated: fixedNow},
			Decay:          model.Decay{HalfLifeDays: 30, LastReinforced: fixedNow},
			AffectedAssets: []model.AffectedAsset{{Ticker: "TLT", Name: "Treasuries", ExposureWeight: 0.8}, {Ticker: "NVDA", Name: "Nvidia", ExposureWeight: 0.3}},
			Tags:           []string{"macro"},
		},
	}
}

func sampleEdges() []model.BeliefEdge {
	return []model.BeliefEdge{
		{ID: "e1", FromNarrativeID: "rate-cuts", ToNarrativeID: "ai-capex", Relationship: model.RelationshipReinforces, Strength: 0.65},
	}
}

func newTestRouter(store NarrativeStore, cache NarrativeCache, queue *fakeQueue) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewNarrativeHandler(NewCatalog(store, cache), queue)
	h.now = func() time.Time { return fixedNow }
	r.GET("/narratives", h.GetNarratives)
	r.GET("/narratives/stats", h.GetStats)
	r.GET("/narratives/:id", h.GetNarrative)
	r.POST("/narratives/refresh", h.Refresh)
	r.GET("/edges", h.GetEdges)
	r.GET("/health", h.GetHealth)
	return r
}

func TestGetNarratives_ReturnsDecayedConfidence(t *testing.T) {
	store := &fakeStore{narratives: sampleNarratives()}
	r := newTestRouter(store, nil, &fakeQueue{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/narratives", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res NarrativeListResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, "ai-capex", res.Narratives[0].ID)
	assert.Equal(t, 40.0, res.Narratives[0].DecayedConfidence)
	assert.Equal(t, 55.0, res.Narratives[1].DecayedConfidence)
	assert.Equal(t, []model.Evidence{}, res.Narratives[0].SupportingEvidence)
}

func TestGetNarratives_Filters(t *testing.T) {
	store := &fakeStore{narratives: sampleNarratives()}
	r := newTestRouter(store, nil, &fakeQueue{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/narratives?search=INFLATION", nil)
	r.ServeHTTP(w, req)

	var res NarrativeListResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "rate-cuts", res.Narratives[0].ID)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/narratives?tag=tech", nil)
	r.ServeHTTP(w, req)

	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "ai-capex", res.Narratives[0].ID)
}

func TestGetNarratives_UsesCache(t *testing.T) {
	store := &fakeStore{narratives: sampleNarratives()}
	cache := &fakeCache{}
	r := newTestRouter(store, cache, &fakeQueue{})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/narratives", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, 1, store.listCalls)
	assert.NotEqual(t, 0, len(cache.data))
}

func TestGetNarratives_CacheErrorFallsBack(t *testing.T) {
	store := &fakeStore{narratives: sampleNarratives()}
	cache := &fakeCache{err: errors.New("redis down")}
	r := newTestRouter(store, cache, &fakeQueue{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/narratives", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.listCalls)
}

func TestGetNarratives_DBError(t *testing.T) {
	store := &fakeStore{err: errors.New("DB down")}
	r := newTestRouter(store, nil, &fakeQueue{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/narratives", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetNarrative_FoundAndNotFound(t *testing.T) {
	store := &fakeStore{narratives: sampleNarratives()}
	r := newTestRouter(store, nil, &fakeQueue{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/narratives/rate-cuts", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var res NarrativeResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "Fed Rate Cuts", res.Name)
	assert.Equal(t, "down", res.Confidence.Trend)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/narratives/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStats(t *testing.T) {
	store := &fakeStore{narratives: sampleNarratives()}
	r := newTestRouter(store, nil, &fakeQueue{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/narratives/stats", nil))

	var res StatsResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, 68, res.AverageConfidence)
	assert.Equal(t, 1, res.Rising)
	assert.Equal(t, 1, res.Fading)
	assert.Equal(t, 1, res.HighFragility)
	assert.Equal(t, []string{"tech", "ai", "macro"}, res.Tags)
}

func TestGetEdges(t *testing.T) {
	store := &fakeStore{edges: sampleEdges()}
	r := newTestRouter(store, nil, &fakeQueue{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/edges", nil))

	var res []EdgeResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 1, len(res))
	assert.Equal(t, "rate-cuts", res[0].From)
	assert.Equal(t, "ai-capex", res[0].To)
	assert.Equal(t, 0.65, res[0].Strength)
}

func TestRefresh_Queued(t *testing.T) {
	queue := &fakeQueue{}
	r := newTestRouter(&fakeStore{}, nil, queue)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/narratives/refresh", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, len(queue.pushed))

	var res RefreshResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "queued", res.Status)
	assert.NotEqual(t, "", res.JobID)
}

func TestRefresh_QueueDown(t *testing.T) {
	r := newTestRouter(&fakeStore{}, nil, &fakeQueue{err: errors.New("redis down")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/narratives/refresh", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetHealth(t *testing.T) {
	r := newTestRouter(&fakeStore{}, nil, &fakeQueue{pushed: []string{"job-1", "job-2"}})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	var res HealthResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", res.Status)
	assert.Equal(t, int64(2), res.QueueDepth)

	r = newTestRouter(&fakeStore{err: errors.New("DB down")}, nil, &fakeQueue{})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	res = HealthResponse{}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", res.Status)
	assert.Equal(t, "disconnected", res.Database)
	assert.Equal(t, "connected", res.Queue)
}

func TestGetHealth_QueueDown(t *testing.T) {
	r := newTestRouter(&fakeStore{}, nil, &fakeQueue{lenErr: errors.New("redis down")})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	var res HealthResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "connected", res.Database)
	assert.Equal(t, "disconnected", res.Queue)
}
