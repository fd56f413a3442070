package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/excuse-lab/excuse-api/internal/gateway"
	"github.com/excuse-lab/excuse-api/internal/models"
	"github.com/excuse-lab/excuse-api/internal/prompt"
	"github.com/excuse-lab/excuse-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGenerator struct {
	result *gateway.Result
	err    error
	got    []prompt.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req prompt.Request) (*gateway.Result, error) {
	f.got = append(f.got, req)
	return f.result, f.err
}

func (f *fakeGenerator) ProviderName() string { return "gemini" }

type fakeExcuseStore struct {
	mu      sync.Mutex
	nextID  uint
	excuses map[uint]models.Excuse
	err     error
}

func newFakeExcuseStore(seed ...models.Excuse) *fakeExcuseStore {
	s := &fakeExcuseStore{excuses: map[uint]models.Excuse{}}
	for _, e := range seed {
		s.nextID++
		e.ID = s.nextID
		s.excuses[e.ID] = e
	}
	return s
}

func (s *fakeExcuseStore) List(userID string) ([]models.Excuse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := []models.Excuse{}
	for id := uint(1); id <= s.nextID; id++ {
		e, ok := s.excuses[id]
		if ok && (e.UserID == "" || e.UserID == userID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeExcuseStore) Get(id uint) (*models.Excuse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.excuses[id]
	if !ok {
		return nil, services.ErrExcuseNotFound
	}
	return &e, nil
}

func (s *fakeExcuseStore) Create(excuse *models.Excuse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.nextID++
	excuse.ID = s.nextID
	s.excuses[excuse.ID] = *excuse
	return nil
}

func (s *fakeExcuseStore) Delete(id uint, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.excuses[id]
	if !ok || e.UserID != userID {
		return services.ErrExcuseNotFound
	}
	delete(s.excuses, id)
	return nil
}

func (s *fakeExcuseStore) Categories() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for id := uint(1); id <= s.nextID; id++ {
		if e, ok := s.excuses[id]; ok && e.Category != "" && !seen[e.Category] {
			seen[e.Category] = true
			out = append(out, e.Category)
		}
	}
	return out, nil
}

type fakeLogStore struct {
	entries []*models.GenerationLog
	err     error
}

func (f *fakeLogStore) Record(entry *models.GenerationLog) error {
	f.entries = append(f.entries, entry)
	return f.err
}

func (f *fakeLogStore) Stats() (*services.GenerationStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	stats := &services.GenerationStats{ByOutcome: map[string]int64{}}
	for _, e := range f.entries {
		stats.Total++
		stats.ByOutcome[e.Outcome]++
	}
	return stats, nil
}

// withUser simulates a signed-in caller
func withUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("request_id", "req-1")
		c.Next()
	}
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func generationRouter(h *GenerationHandler, userID string) *gin.Engine {
	router := gin.New()
	router.POST("/generate_excuse", withUser(userID), h.Generate)
	return router
}

func TestGenerate_Success(t *testing.T) {
	gen := &fakeGenerator{result: &gateway.Result{
		Text:     "申し訳ありません、10分ほど遅れます。",
		Attempts: 2,
		Mode:     prompt.ModeStandard,
		Model:    "gemini-1.5-flash",
	}}
	logs := &fakeLogStore{}
	h := NewGenerationHandler(gen, newFakeExcuseStore(), logs, nil, nil)

	w := doJSON(generationRouter(h, ""), http.MethodPost, "/generate_excuse", map[string]string{
		"minutes": "10", "cause": "寝坊", "target": "上司", "detail": "",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "申し訳ありません、10分ほど遅れます。", decode(t, w)["excuse"])

	require.Len(t, gen.got, 1)
	assert.Equal(t, prompt.Request{Delay: "10", Cause: "寝坊", Audience: "上司"}, gen.got[0])

	require.Len(t, logs.entries, 1)
	assert.Equal(t, models.OutcomeSuccess, logs.entries[0].Outcome)
	assert.Equal(t, 2, logs.entries[0].Attempts)
	assert.Equal(t, "gemini", logs.entries[0].Provider)
	assert.Equal(t, "req-1", logs.entries[0].RequestID)
}

func TestGenerate_NullFieldsAreUnset(t *testing.T) {
	gen := &fakeGenerator{result: &gateway.Result{Text: "少し遅れます。", Attempts: 1}}
	h := NewGenerationHandler(gen, nil, nil, nil, nil)

	router := generationRouter(h, "")
	req := httptest.NewRequest(http.MethodPost, "/generate_excuse",
		bytes.NewBufferString(`{"minutes": null, "cause": "", "target": null, "detail": null}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, prompt.Request{}, gen.got[0])
}

func TestGenerate_Busy(t *testing.T) {
	gen := &fakeGenerator{err: &gateway.GenerationError{
		Kind:     gateway.KindBusy,
		Attempts: 4,
		Err:      errors.New("Error 503, Status: UNAVAILABLE"),
	}}
	logs := &fakeLogStore{}
	h := NewGenerationHandler(gen, nil, logs, nil, nil)

	w := doJSON(generationRouter(h, ""), http.MethodPost, "/generate_excuse", map[string]string{})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, msgBusy, decode(t, w)["detail"])
	require.Len(t, logs.entries, 1)
	assert.Equal(t, models.OutcomeBusy, logs.entries[0].Outcome)
	assert.Equal(t, 4, logs.entries[0].Attempts)
}

func TestGenerate_Failed(t *testing.T) {
	gen := &fakeGenerator{err: &gateway.GenerationError{
		Kind:     gateway.KindFailed,
		Attempts: 1,
		Err:      errors.New("API key not valid"),
	}}
	h := NewGenerationHandler(gen, nil, &fakeLogStore{}, nil, nil)

	w := doJSON(generationRouter(h, ""), http.MethodPost, "/generate_excuse", map[string]string{})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Gemini error: API key not valid", decode(t, w)["detail"])
}

func TestGenerate_InvalidBody(t *testing.T) {
	gen := &fakeGenerator{}
	h := NewGenerationHandler(gen, nil, nil, nil, nil)

	router := generationRouter(h, "")
	req := httptest.NewRequest(http.MethodPost, "/generate_excuse", bytes.NewBufferString(`{"minutes": 10`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, gen.got)
}

func TestGenerate_SavesHistoryForSignedInUser(t *testing.T) {
	gen := &fakeGenerator{result: &gateway.Result{Text: "電車が遅れています。", Attempts: 1}}
	store := newFakeExcuseStore()
	h := NewGenerationHandler(gen, store, nil, nil, nil)

	w := doJSON(generationRouter(h, "user-1"), http.MethodPost, "/generate_excuse", map[string]string{
		"minutes": "60", "cause": "電車遅延", "target": "上司",
	})
	require.Equal(t, http.StatusOK, w.Code)

	saved, err := store.List("user-1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "上司へ 一時間 電車遅延", saved[0].Title)
	assert.Equal(t, "電車が遅れています。", saved[0].Description)
	assert.Equal(t, "電車遅延", saved[0].Category)
	assert.Equal(t, "user-1", saved[0].UserID)
}

func TestGenerate_AnonymousNotSaved(t *testing.T) {
	gen := &fakeGenerator{result: &gateway.Result{Text: "遅れます。", Attempts: 1}}
	store := newFakeExcuseStore()
	h := NewGenerationHandler(gen, store, nil, nil, nil)

	w := doJSON(generationRouter(h, ""), http.MethodPost, "/generate_excuse", map[string]string{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, store.nextID)
}

func TestGenerate_HistoryFailureDoesNotFailRequest(t *testing.T) {
	gen := &fakeGenerator{result: &gateway.Result{Text: "遅れます。", Attempts: 1}}
	store := newFakeExcuseStore()
	store.err = errors.New("connection refused")
	h := NewGenerationHandler(gen, store, &fakeLogStore{err: errors.New("down")}, nil, nil)

	w := doJSON(generationRouter(h, "user-1"), http.MethodPost, "/generate_excuse", map[string]string{})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHistoryTitle(t *testing.T) {
	tests := []struct {
		req  prompt.Request
		want string
	}{
		{prompt.Request{}, "遅刻連絡"},
		{prompt.Request{Delay: "5"}, "5分"},
		{prompt.Request{Audience: "友達", Cause: "寝坊"}, "友達へ 寝坊"},
		{prompt.Request{Audience: "上司", Delay: "60", Cause: "電車遅延"}, "上司へ 一時間 電車遅延"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, historyTitle(tt.req))
		})
	}
}

func excuseRouter(h *ExcuseHandler, userID string) *gin.Engine {
	router := gin.New()
	router.Use(withUser(userID))
	router.GET("/api/excuses", h.List)
	router.GET("/api/excuses/:id", h.Get)
	router.POST("/api/excuses", h.Create)
	router.DELETE("/api/excuses/:id", h.Delete)
	router.GET("/api/categories", h.Categories)
	return router
}

func seededStore() *fakeExcuseStore {
	return newFakeExcuseStore(
		models.Excuse{Title: "電車が遅延", Description: "電車が遅延してしまいました", Category: "交通"},
		models.Excuse{Title: "体調不良", Description: "体調が悪くて出社できませんでした", Category: "健康"},
		models.Excuse{Title: "秘密", Description: "自分だけの言い訳", Category: "交通", UserID: "user-2"},
	)
}

func TestTracedInput(t *testing.T) {
	req := prompt.Request{Delay: "10", Audience: "上司"}
	composed, err := prompt.Compose(req)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"system": composed.System,
		"user":   composed.User,
	}, tracedInput(composed, req))
	assert.Equal(t, req, tracedInput(nil, req))
}

func TestExcuses_List(t *testing.T) {
	h := NewExcuseHandler(seededStore())

	w := doJSON(excuseRouter(h, ""), http.MethodGet, "/api/excuses", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var anonymous []models.Excuse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &anonymous))
	assert.Len(t, anonymous, 2)

	w = doJSON(excuseRouter(h, "user-2"), http.MethodGet, "/api/excuses", nil)
	var mine []models.Excuse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Len(t, mine, 3)
}

func TestExcuses_Get(t *testing.T) {
	h := NewExcuseHandler(seededStore())
	router := excuseRouter(h, "")

	w := doJSON(router, http.MethodGet, "/api/excuses/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "電車が遅延", decode(t, w)["title"])

	w = doJSON(router, http.MethodGet, "/api/excuses/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, msgExcuseNotFound, decode(t, w)["detail"])

	w = doJSON(router, http.MethodGet, "/api/excuses/3", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "other users' excuses are hidden")

	w = doJSON(router, http.MethodGet, "/api/excuses/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExcuses_Create(t *testing.T) {
	store := seededStore()
	h := NewExcuseHandler(store)
	router := excuseRouter(h, "user-1")

	w := doJSON(router, http.MethodPost, "/api/excuses", map[string]string{
		"title": "家族の急用", "description": "家族に急用ができて対応していました", "category": "家族",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(4), body["id"])
	assert.Equal(t, "user-1", body["user_id"])

	w = doJSON(router, http.MethodPost, "/api/excuses", map[string]string{"title": "説明なし"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExcuses_Delete(t *testing.T) {
	store := seededStore()
	h := NewExcuseHandler(store)

	w := doJSON(excuseRouter(h, "user-1"), http.MethodDelete, "/api/excuses/3", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(excuseRouter(h, "user-2"), http.MethodDelete, "/api/excuses/3", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := store.Get(3)
	assert.ErrorIs(t, err, services.ErrExcuseNotFound)
}

func TestExcuses_Categories(t *testing.T) {
	h := NewExcuseHandler(seededStore())
	w := doJSON(excuseRouter(h, ""), http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"交通", "健康"}, decode(t, w)["categories"])

	h = NewExcuseHandler(newFakeExcuseStore())
	w = doJSON(excuseRouter(h, ""), http.MethodGet, "/api/categories", nil)
	assert.Equal(t, []interface{}{}, decode(t, w)["categories"])
}

func TestExcuses_StoreError(t *testing.T) {
	store := seededStore()
	store.err = errors.New("connection reset")
	h := NewExcuseHandler(store)

	w := doJSON(excuseRouter(h, ""), http.MethodGet, "/api/excuses", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRootAndHealth(t *testing.T) {
	router := gin.New()
	router.GET("/", Root)
	healthy := NewHealthHandler(func(context.Context) error { return nil }, "gemini")
	down := NewHealthHandler(func(context.Context) error { return fmt.Errorf("dial tcp: refused") }, "gemini")
	router.GET("/health", healthy.HealthCheck)
	router.GET("/health/down", down.HealthCheck)
	router.GET("/health/nodb", NewHealthHandler(nil, "openai").HealthCheck)

	w := doJSON(router, http.MethodGet, "/", nil)
	assert.Equal(t, msgWelcome, decode(t, w)["message"])

	w = doJSON(router, http.MethodGet, "/health", nil)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "ok", body["database"])

	w = doJSON(router, http.MethodGet, "/health/down", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "unreachable", decode(t, w)["database"])

	w = doJSON(router, http.MethodGet, "/health/nodb", nil)
	assert.Equal(t, "disabled", decode(t, w)["database"])
}

func TestMetrics(t *testing.T) {
	logs := &fakeLogStore{entries: []*models.GenerationLog{
		{Outcome: models.OutcomeSuccess},
		{Outcome: models.OutcomeBusy},
	}}
	router := gin.New()
	router.GET("/api/metrics", NewMetricsHandler("test", logs).GetMetrics)

	w := doJSON(router, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp MetricsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "test", resp.Version)
	require.NotNil(t, resp.Generations)
	assert.Equal(t, int64(2), resp.Generations.Total)
	assert.Equal(t, int64(1), resp.Generations.ByOutcome[models.OutcomeBusy])
}
