package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"session_control_backend/internal/config"
	"session_control_backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *apiClient {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server:  config.ServerConfig{Port: "0", Mode: gin.TestMode},
		Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		Agent:   config.AgentConfig{Placeholder: "Análise indisponível"},
	}
	router, _ := NewEngine(cfg, testutil.NewDB(t), nil)
	return &apiClient{t: t, router: router}
}

func (a *apiClient) do(method, path string, body interface{}) (int, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type sessionView struct {
	ID                  uint     `json:"id"`
	Code                string   `json:"code"`
	Status              string   `json:"status"`
	CurrentTacticIndex  int      `json:"current_tactic_index"`
	EndOnNextCompletion bool     `json:"end_on_next_completion"`
	ExecutedIndices     []int    `json:"executed_indices"`
	Strategies          []string `json:"strategies"`
	Students            []string `json:"students"`
	Domains             []string `json:"domains"`
}

func (a *apiClient) createSession() sessionView {
	code, env := a.do(http.MethodPost, "/api/sessions/create", map[string]interface{}{
		"strategies": []string{"S1"},
		"teachers":   []string{"t1"},
	})
	require.Equal(a.t, http.StatusCreated, code)
	return decode[sessionView](a.t, env.Data)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	api := newAPI(t)
	s := api.createSession()
	base := fmt.Sprintf("/api/sessions/%d", s.ID)

	code, _ := api.do(http.MethodPost, fmt.Sprintf("/api/sessions/start/%d", s.ID), map[string]bool{"use_agent": true})
	require.Equal(t, http.StatusOK, code)

	code, env := api.do(http.MethodPost, fmt.Sprintf("/api/sessions/tactic/next/%d", s.ID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), decode[map[string]interface{}](t, env.Data)["current_tactic_index"])

	code, _ = api.do(http.MethodPost, fmt.Sprintf("/api/sessions/tactic/set/%d", s.ID), map[string]int{"tactic_index": 4})
	require.Equal(t, http.StatusOK, code)

	code, _ = api.do(http.MethodPost, fmt.Sprintf("/api/sessions/tactic/prev/%d", s.ID), nil)
	require.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, code)
	view := decode[sessionView](t, env.Data)
	assert.Equal(t, "in-progress", view.Status)
	assert.Equal(t, 3, view.CurrentTacticIndex)
	assert.Equal(t, []int{0, 1, 4}, view.ExecutedIndices)

	code, _ = api.do(http.MethodPost, base+"/set_end_flag", nil)
	require.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodPost, fmt.Sprintf("/api/sessions/tactic/next/%d", s.ID), nil)
	require.Equal(t, http.StatusOK, code)
	next := decode[map[string]interface{}](t, env.Data)
	assert.Equal(t, "finished", next["session_status"])
	assert.Equal(t, float64(3), next["current_tactic_index"])

	code, _ = api.do(http.MethodPost, fmt.Sprintf("/api/sessions/tactic/prev/%d", s.ID), nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = api.do(http.MethodGet, fmt.Sprintf("/api/sessions/status/%d", s.ID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "finished", decode[map[string]interface{}](t, env.Data)["status"])

	code, _ = api.do(http.MethodPost, fmt.Sprintf("/api/sessions/end/%d", s.ID), nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestStrategySwapOverHTTP(t *testing.T) {
	api := newAPI(t)
	s := api.createSession()
	base := fmt.Sprintf("/api/sessions/%d", s.ID)

	code, _ := api.do(http.MethodPost, base+"/temp_switch_strategy", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(http.MethodPost, base+"/temp_switch_strategy", map[string]int{"strategy_id": 42})
	require.Equal(t, http.StatusOK, code)

	_, env := api.do(http.MethodGet, base, nil)
	assert.Equal(t, []string{"42"}, decode[sessionView](t, env.Data).Strategies)

	code, _ = api.do(http.MethodPost, base+"/change_domain", map[string]string{"domain_id": "D2"})
	require.Equal(t, http.StatusOK, code)
	_, env = api.do(http.MethodGet, base, nil)
	view := decode[sessionView](t, env.Data)
	assert.Equal(t, "in-progress", view.Status)
	assert.Equal(t, []string{"42"}, view.Strategies)
	assert.Equal(t, []string{"D2"}, view.Domains)

	code, _ = api.do(http.MethodPost, fmt.Sprintf("/api/sessions/end/%d", s.ID), nil)
	require.Equal(t, http.StatusOK, code)
	_, env = api.do(http.MethodGet, base, nil)
	view = decode[sessionView](t, env.Data)
	assert.Equal(t, "finished", view.Status)
	assert.Equal(t, []string{"S1"}, view.Strategies)

	code, _ = api.do(http.MethodPost, base+"/change_strategy", map[string]string{"strategy_id": "S2"})
	assert.Equal(t, http.StatusConflict, code)
}

func TestSubmissionsAndRatingsOverHTTP(t *testing.T) {
	api := newAPI(t)
	s := api.createSession()

	answer := map[string]interface{}{"session_id": s.ID, "student_id": 7, "student_name": "Ana", "answers": map[string]string{"q1": "a"}, "score": 8}
	code, _ := api.do(http.MethodPost, "/api/sessions/submit_answer", answer)
	require.Equal(t, http.StatusCreated, code)
	code, env := api.do(http.MethodPost, "/api/sessions/submit_answer", answer)
	assert.Equal(t, http.StatusConflict, code)
	assert.NotEmpty(t, env.Message)

	note := map[string]interface{}{"session_id": s.ID, "student_id": "7", "estudante_username": "ana", "extra_notes": 1.5}
	code, _ = api.do(http.MethodPost, "/api/sessions/add_extra_notes", note)
	assert.Equal(t, http.StatusCreated, code)
	note["extra_notes"] = 2.0
	code, _ = api.do(http.MethodPost, "/api/sessions/add_extra_notes", note)
	assert.Equal(t, http.StatusOK, code)

	rate := fmt.Sprintf("/api/sessions/%d/rate", s.ID)
	code, _ = api.do(http.MethodPost, rate, map[string]interface{}{"student_id": "7", "rating": 9})
	assert.Equal(t, http.StatusBadRequest, code)
	code, env = api.do(http.MethodPost, rate, map[string]interface{}{"student_id": "7", "rating": 4})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), decode[map[string]interface{}](t, env.Data)["rating_count"])

	code, env = api.do(http.MethodGet, fmt.Sprintf("/api/sessions/%d/rating?student_id=7", s.ID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(4), decode[map[string]interface{}](t, env.Data)["student_rating"])

	code, env = api.do(http.MethodGet, fmt.Sprintf("/api/sessions/%d/agent_summary", s.ID), nil)
	require.Equal(t, http.StatusOK, code)
	summary := decode[map[string]interface{}](t, env.Data)
	assert.Equal(t, "Análise indisponível", summary["summary"])
	assert.Equal(t, float64(2), summary["metrics"].(map[string]interface{})["participation_count"])

	code, env = api.do(http.MethodGet, "/api/students/7/grades_history", nil)
	require.Equal(t, http.StatusOK, code)
	history := decode[map[string]interface{}](t, env.Data)
	assert.Len(t, history["raw_history_by_session"], 1)

	code, env = api.do(http.MethodPost, fmt.Sprintf("/api/sessions/%d/export", s.ID), nil)
	require.Equal(t, http.StatusCreated, code)
	assert.NotEmpty(t, decode[map[string]interface{}](t, env.Data)["url"])
}

func TestEnterAndDeleteOverHTTP(t *testing.T) {
	api := newAPI(t)
	s := api.createSession()

	code, _ := api.do(http.MethodPost, "/api/sessions/enter", map[string]interface{}{"code": s.Code, "requester_id": 11, "type": "student"})
	require.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodPost, "/api/sessions/enter", map[string]interface{}{"code": "XXXXXXXX", "requester_id": 11, "type": "student"})
	assert.Equal(t, http.StatusNotFound, code)

	_, env := api.do(http.MethodGet, fmt.Sprintf("/api/sessions/%d", s.ID), nil)
	assert.Equal(t, []string{"11"}, decode[sessionView](t, env.Data).Students)

	code, env = api.do(http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]sessionView](t, env.Data), 1)

	code, _ = api.do(http.MethodDelete, fmt.Sprintf("/api/sessions/delete/%d", s.ID), nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodDelete, fmt.Sprintf("/api/sessions/delete/%d", s.ID), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestErrorMapping(t *testing.T) {
	api := newAPI(t)
	s := api.createSession()

	cases := []struct {
		method, path string
		body         interface{}
		want         int
	}{
		{http.MethodGet, "/api/sessions/abc", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/sessions/999", nil, http.StatusNotFound},
		{http.MethodPost, "/api/sessions/tactic/next/999", nil, http.StatusNotFound},
		{http.MethodPost, fmt.Sprintf("/api/sessions/tactic/set/%d", s.ID), nil, http.StatusBadRequest},
		{http.MethodPost, fmt.Sprintf("/api/sessions/tactic/set/%d", s.ID), map[string]int{"tactic_index": -2}, http.StatusBadRequest},
		{http.MethodPost, "/api/sessions/create", map[string]interface{}{"strategies": []string{}}, http.StatusBadRequest},
		{http.MethodPost, "/api/sessions/submit_answer", map[string]interface{}{"session_id": 999, "student_id": "1"}, http.StatusNotFound},
		{http.MethodGet, "/api/sessions/999/agent_summary", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		code, env := api.do(tc.method, tc.path, tc.body)
		assert.Equal(t, tc.want, code, "%s %s", tc.method, tc.path)
		assert.Equal(t, tc.want, env.Code, "%s %s envelope code", tc.method, tc.path)
	}
}

func TestInfraRoutes(t *testing.T) {
	api := newAPI(t)

	code, env := api.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "disabled", decode[map[string]interface{}](t, env.Data)["components"].(map[string]interface{})["cache"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
