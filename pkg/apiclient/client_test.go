package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"assessment_backend/pkg/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": status, "message": http.StatusText(status), "data": data})
}

func TestClient_StartAndPatch(t *testing.T) {
	var gotPatch map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/sessions/start":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "t1", body["testId"])
			assert.Equal(t, "Practice", body["mode"])
			writeEnvelope(w, http.StatusOK, map[string]interface{}{
				"resumed": true,
				"session": map[string]interface{}{
					"id": "s1", "testId": "t1", "mode": "Practice", "remainingTime": 42, "currentQuestion": 2, "version": 3,
					"answers": []map[string]interface{}{{"questionIndex": 1, "textAnswer": "x"}},
				},
			})
		case r.Method == http.MethodPatch && r.URL.Path == "/api/sessions/s1":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotPatch))
			writeEnvelope(w, http.StatusOK, map[string]interface{}{"stale": true, "session": map[string]interface{}{"id": "s1", "version": 4}})
		default:
			writeEnvelope(w, http.StatusNotFound, nil)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "tok")
	ctx := context.Background()

	start, err := c.StartSession(ctx, "t1", ModePractice)
	require.NoError(t, err)
	assert.True(t, start.Resumed)
	assert.Equal(t, 42, start.Session.RemainingTime)
	require.Len(t, start.Session.Answers, 1)
	assert.Equal(t, "x", start.Session.Answers[0].TextAnswer)

	cq := 3
	res, err := c.PatchSession(ctx, "s1", PatchRequest{CurrentQuestion: &cq})
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, int64(4), res.Session.Version)
	assert.Contains(t, gotPatch, "currentQuestion")
	assert.NotContains(t, gotPatch, "answers")
	assert.NotContains(t, gotPatch, "remainingTime")
}

func TestClient_ErrorsAndBatchQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/endless/batch" {
			assert.Equal(t, "5", r.URL.Query().Get("size"))
			assert.Equal(t, "a:1,b:2", r.URL.Query().Get("exclude"))
			writeEnvelope(w, http.StatusOK, map[string]interface{}{"questions": []EndlessQuestion{
				{Key: "c:0", TestID: "c", QuestionIndex: 0, Question: scoring.Question{Type: scoring.ShortAnswerType}},
			}})
			return
		}
		writeEnvelope(w, http.StatusNotFound, nil)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	ctx := context.Background()

	qs, err := c.FetchEndlessBatch(ctx, 5, []string{"a:1", "b:2"})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "c:0", qs[0].Key)

	_, err = c.SubmitSession(ctx, "gone", 0)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	err = c.AbandonSession(ctx, "gone")
	assert.True(t, IsNotFound(err))
}
