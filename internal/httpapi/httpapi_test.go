package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/codequiz/internal/engine"
	"github.com/abhisek/codequiz/internal/quiz"
	"github.com/abhisek/codequiz/internal/sessionstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// constGenerator asks a fixed question whose answer is B.
type constGenerator struct{}

func (constGenerator) Generate(_ context.Context, _ string, _ quiz.Difficulty, n int) quiz.Question {
	return quiz.Question{
		QuestionNumber: n,
		Question:       "What does len(\"go\") return?",
		Options: []quiz.Option{
			{Letter: "A", Text: "1"},
			{Letter: "B", Text: "2"},
			{Letter: "C", Text: "3"},
			{Letter: "D", Text: "an error"},
		},
		CorrectAnswer: "B",
		Explanation:   "len counts bytes.",
	}
}

type testServer struct {
	router *gin.Engine
	store  *sessionstore.RedisStore
	mr     *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, Config{CORSOrigins: []string{"*"}, DefaultLanguage: "python"})
}

func newTestServerWith(t *testing.T, cfg Config) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := sessionstore.New(client, sessionstore.Options{})
	eng := engine.New(store, constGenerator{}, engine.Options{DefaultLanguage: cfg.DefaultLanguage})
	r := NewRouter(eng, store, cfg)
	return &testServer{router: r, store: store, mr: mr}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestStartAndAnswerFlow(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/quiz/start", map[string]string{"language": "go", "difficulty": "beginner"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	start := decode(t, w)
	assert.Equal(t, true, start["successful"])
	assert.Equal(t, "go", start["language"])
	assert.EqualValues(t, 5, start["totalQuestions"])
	assert.EqualValues(t, 1, start["currentQuestionNumber"])

	cq := start["currentQuestion"].(map[string]any)
	assert.NotContains(t, cq, "correctAnswer")
	assert.NotContains(t, cq, "explanation")
	assert.Len(t, cq["options"], 4)

	id := start["sessionId"].(string)
	for i := 1; i <= quiz.TotalQuestions; i++ {
		w = ts.do(t, http.MethodPost, "/api/quiz/answer", map[string]string{"sessionId": id, "answer": "b"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		ans := decode(t, w)
		assert.Equal(t, true, ans["correct"])
		assert.Equal(t, "B", ans["correctAnswer"])
		assert.True(t, strings.HasPrefix(ans["message"].(string), "Correct!"))

		if i < quiz.TotalQuestions {
			assert.Equal(t, true, ans["hasNextQuestion"])
			next := ans["nextQuestion"].(map[string]any)
			assert.EqualValues(t, i+1, next["questionNumber"])
			assert.NotContains(t, next, "correctAnswer")
			continue
		}
		assert.Equal(t, false, ans["hasNextQuestion"])
		sum := ans["sessionSummary"].(map[string]any)
		assert.EqualValues(t, 100, sum["score"])
		assert.Equal(t, "Excellent", sum["performance"])
	}

	w = ts.do(t, http.MethodGet, "/api/quiz/session/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode(t, w)
	assert.Equal(t, "COMPLETED", status["status"])
	assert.Equal(t, true, status["completed"])
	assert.EqualValues(t, 100, status["completionPercentage"])
	assert.EqualValues(t, 5, status["score"])

	// Answering a completed quiz cannot continue.
	w = ts.do(t, http.MethodPost, "/api/quiz/answer", map[string]string{"sessionId": id, "answer": "B"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, false, decode(t, w)["successful"])
}

func TestStartPost_Validation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/quiz/start", map[string]string{"difficulty": "expert"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["successful"])
	assert.Contains(t, body["errorMessage"], "beginner, intermediate, or advanced")

	req := httptest.NewRequest(http.MethodPost, "/api/quiz/start", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown languages fall back to the default.
	w = ts.do(t, http.MethodPost, "/api/quiz/start", map[string]string{"language": "cobol", "difficulty": "Advanced"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "python", decode(t, w)["language"])
}

func TestStartGet(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/quiz/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "python", body["language"])
	assert.Equal(t, "beginner", body["difficulty"])

	w = ts.do(t, http.MethodGet, "/api/quiz/start?language=rust&difficulty=advanced", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rust", decode(t, w)["language"])

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"unknown language", "?language=cobol", "Unsupported language"},
		{"uppercase language", "?language=Go", "Unsupported language"},
		{"unknown difficulty", "?difficulty=expert", "Difficulty must be"},
		{"uppercase difficulty", "?difficulty=Beginner", "Difficulty must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, "/api/quiz/start"+tt.query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode(t, w)["errorMessage"], tt.want)
		})
	}

	n, err := ts.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStartGet_ConfiguredDefaultLanguage(t *testing.T) {
	ts := newTestServerWith(t, Config{DefaultLanguage: "go"})

	w := ts.do(t, http.MethodGet, "/api/quiz/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "go", decode(t, w)["language"])

	w = ts.do(t, http.MethodPost, "/api/quiz/start", map[string]string{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "go", decode(t, w)["language"])
}

func TestAnswer_Errors(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/quiz/answer", map[string]string{"sessionId": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/quiz/answer", map[string]string{"sessionId": "deadbeef", "answer": "A"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w)["errorMessage"], "not found or expired")

	w = ts.do(t, http.MethodPost, "/api/quiz/start", map[string]string{"difficulty": "beginner"})
	require.Equal(t, http.StatusOK, w.Code)
	id := decode(t, w)["sessionId"].(string)

	w = ts.do(t, http.MethodPost, "/api/quiz/answer", map[string]string{"sessionId": id, "answer": "E"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["errorMessage"], "A, B, C, or D")

	w = ts.do(t, http.MethodGet, "/api/quiz/session/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["currentQuestion"])
}

func TestSessionStatusAndExtend(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/quiz/session/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/api/quiz/start", map[string]string{"language": "java", "difficulty": "intermediate"})
	require.Equal(t, http.StatusOK, w.Code)
	id := decode(t, w)["sessionId"].(string)

	w = ts.do(t, http.MethodGet, "/api/quiz/session/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode(t, w)
	assert.Equal(t, "ACTIVE", status["status"])
	assert.Equal(t, "java", status["language"])
	assert.EqualValues(t, 0, status["completionPercentage"])

	ts.mr.FastForward(20 * time.Minute)
	w = ts.do(t, http.MethodPost, "/api/quiz/session/"+id+"/extend", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30*time.Minute, ts.mr.TTL(ts.store.Prefix()+id))

	// Extending an unknown session is a no-op.
	w = ts.do(t, http.MethodPost, "/api/quiz/session/unknown/extend", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatsInfoLanguages(t *testing.T) {
	ts := newTestServer(t)
	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodGet, "/api/quiz/start", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := ts.do(t, http.MethodGet, "/api/quiz/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st quiz.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, quiz.Stats{Total: 2, Active: 2}, st)

	w = ts.do(t, http.MethodGet, "/api/quiz/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info GameInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, []string{"beginner", "intermediate", "advanced"}, info.Difficulties)
	assert.Len(t, info.SupportedLanguages, 10)
	assert.Equal(t, "python", info.DefaultLanguage)

	w = ts.do(t, http.MethodGet, "/api/quiz/supported-languages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var langs SupportedLanguages
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &langs))
	assert.Equal(t, quiz.LanguageIDs(), langs.Languages)
}

func TestHealthAndStoreDown(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "UP", decode(t, w)["status"])

	ts.mr.Close()

	w = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DOWN", decode(t, w)["status"])

	w = ts.do(t, http.MethodPost, "/api/quiz/start", map[string]string{"difficulty": "beginner"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Failed to start quiz session. Please try again.", decode(t, w)["errorMessage"])

	w = ts.do(t, http.MethodGet, "/api/quiz/stats", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/quiz/info", nil)

	w := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "quiz_http_request_duration_seconds")
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/quiz/start", nil)
	req.Header.Set("Origin", "https://quiz.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{quiz.ErrInvalidDifficulty, http.StatusBadRequest},
		{quiz.ErrInvalidAnswer, http.StatusBadRequest},
		{quiz.ErrSessionNotFound, http.StatusNotFound},
		{quiz.ErrConflict, http.StatusConflict},
		{quiz.ErrCorruptedSession, http.StatusUnprocessableEntity},
		{quiz.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{quiz.ErrPersistFailed, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got, msg := statusFor(tt.err, "retry")
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, msg)
		})
	}
}
