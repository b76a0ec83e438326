package app

import (
	"assessment_backend/internal/config"
	"assessment_backend/internal/model"
	"assessment_backend/internal/testutil"
	"assessment_backend/internal/util"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	t    *testing.T
	app  *App
	test *model.Test
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: gin.TestMode},
		JWT:       config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour},
		Storage:   config.StorageConfig{Type: util.StorageNone},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
		Session:   config.SessionConfig{TestBudgetSeconds: 1800, PracticeBudgetSeconds: 1800, ActiveListLimit: 5, AttemptListLimit: 50},
		Endless:   config.EndlessConfig{BatchSize: 10, MaxBatchSize: 50, RecentWindow: 30},
	}
	a, err := New(cfg, db, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.cancel() })

	return &harness{t: t, app: a, test: testutil.CreateTest(t, db, true)}
}

func (h *harness) token(userID uint) string {
	tok, err := util.GenerateJWT(userID, testSecret, time.Hour)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) do(method, path, token string, body interface{}) (int, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.app.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type startData struct {
	Session model.Session `json:"session"`
	Resumed bool          `json:"resumed"`
}

type submitData struct {
	Attempt    model.Attempt `json:"attempt"`
	Score      int           `json:"score"`
	Total      int           `json:"total"`
	Percentage int           `json:"percentage"`
}

func TestSessionRoutes_FullLifecycle(t *testing.T) {
	h := newHarness(t)
	tok := h.token(1)

	code, env := h.do(http.MethodPost, "/api/sessions/start", tok, gin.H{"testId": h.test.ID, "mode": "Test"})
	require.Equal(t, http.StatusCreated, code)
	started := decode[startData](t, env.Data)
	assert.False(t, started.Resumed)
	id := started.Session.ID

	code, env = h.do(http.MethodPost, "/api/sessions/start", tok, gin.H{"testId": h.test.ID, "mode": "Test"})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[startData](t, env.Data).Resumed)

	code, _ = h.do(http.MethodPatch, "/api/sessions/"+id, tok, gin.H{
		"answers":       testutil.CorrectAnswers(),
		"remainingTime": 1000,
	})
	require.Equal(t, http.StatusOK, code)

	code, env = h.do(http.MethodGet, "/api/sessions/active", tok, nil)
	require.Equal(t, http.StatusOK, code)
	active := decode[struct {
		Sessions []model.Session `json:"sessions"`
	}](t, env.Data)
	require.Len(t, active.Sessions, 1)
	assert.Equal(t, 1000, active.Sessions[0].RemainingTime)

	code, env = h.do(http.MethodPost, "/api/sessions/"+id+"/submit", tok, gin.H{"overdueTime": 5})
	require.Equal(t, http.StatusOK, code)
	result := decode[submitData](t, env.Data)
	assert.Equal(t, 5, result.Score)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 100, result.Percentage)
	assert.Equal(t, 800, result.Attempt.Duration)
	assert.Equal(t, 5, result.Attempt.OverdueTime)

	code, _ = h.do(http.MethodPost, "/api/sessions/"+id+"/submit", tok, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = h.do(http.MethodPatch, "/api/sessions/"+id, tok, gin.H{"currentQuestion": 1})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = h.do(http.MethodGet, "/api/attempts/"+result.Attempt.ID, tok, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = h.do(http.MethodGet, "/api/attempts/"+result.Attempt.ID, h.token(2), nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = h.do(http.MethodGet, "/api/attempts", tok, nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[util.ListResponse](t, env.Data)
	assert.Equal(t, 1, list.Total)
}

func TestSessionRoutes_ErrorMapping(t *testing.T) {
	h := newHarness(t)
	tok := h.token(1)

	code, _ := h.do(http.MethodPost, "/api/sessions/start", "", gin.H{"testId": h.test.ID, "mode": "Test"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = h.do(http.MethodPost, "/api/sessions/start", tok, gin.H{"testId": h.test.ID, "mode": "Endless"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(http.MethodPost, "/api/sessions/start", tok, gin.H{"mode": "Test"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(http.MethodPost, "/api/sessions/start", tok, gin.H{"testId": "missing", "mode": "Test"})
	assert.Equal(t, http.StatusNotFound, code)

	code, env := h.do(http.MethodPost, "/api/sessions/start", tok, gin.H{"testId": h.test.ID, "mode": "Practice"})
	require.Equal(t, http.StatusCreated, code)
	id := decode[startData](t, env.Data).Session.ID

	code, _ = h.do(http.MethodPatch, "/api/sessions/"+id, tok, gin.H{"remainingTime": -5})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(http.MethodDelete, "/api/sessions/"+id, h.token(2), nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = h.do(http.MethodDelete, "/api/sessions/"+id, tok, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = h.do(http.MethodDelete, "/api/sessions/"+id, tok, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAttemptAndEndlessRoutes_Anonymous(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(http.MethodGet, "/api/endless/batch?size=2", "", nil)
	require.Equal(t, http.StatusOK, code)
	batch := decode[struct {
		Questions []struct {
			Key           string `json:"key"`
			TestID        string `json:"testId"`
			QuestionIndex int    `json:"questionIndex"`
		} `json:"questions"`
	}](t, env.Data)
	require.Len(t, batch.Questions, 2)

	sources := make([]model.SourceQuestion, 0, len(batch.Questions))
	for _, q := range batch.Questions {
		sources = append(sources, model.SourceQuestion{TestID: q.TestID, QuestionIndex: q.QuestionIndex})
	}

	code, env = h.do(http.MethodPost, "/api/attempts", "", gin.H{
		"mode":            "Endless",
		"duration":        30,
		"sourceQuestions": sources,
		"answers":         []gin.H{},
	})
	require.Equal(t, http.StatusCreated, code)
	result := decode[submitData](t, env.Data)
	assert.Equal(t, 2, result.Total)
	assert.Nil(t, result.Attempt.UserID)

	code, _ = h.do(http.MethodGet, "/api/attempts/"+result.Attempt.ID, "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = h.do(http.MethodPost, "/api/attempts", "", gin.H{"mode": "Endless"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHealthRoute(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"database":"up"`)
	assert.Contains(t, string(env.Data), `"redis":"disabled"`)
}

func TestApplyConfigRunsCallbacks(t *testing.T) {
	h := newHarness(t)

	var got *config.Config
	h.app.RegisterConfigCallback(func(c *config.Config) { got = c })

	next := *h.app.Config
	next.Session.TestBudgetSeconds = 60
	next.Session.PracticeBudgetSeconds = 60
	h.app.applyConfig(&next)
	require.Same(t, &next, got)

	code, env := h.do(http.MethodPost, "/api/sessions/start", h.token(1), gin.H{"testId": h.test.ID, "mode": "Test"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, 60, decode[startData](t, env.Data).Session.RemainingTime)
}
