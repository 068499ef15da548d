package httpapi

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"

	"github.com/abhisek/codequiz/internal/engine"
	"github.com/abhisek/codequiz/internal/quiz"
)

// Engine is the quiz engine surface the handlers call.
type Engine interface {
	Start(ctx context.Context, language, difficulty string) (*engine.StartResult, error)
	SubmitAnswer(ctx context.Context, id, letter string) (*engine.AnswerResult, error)
	Status(ctx context.Context, id string) (*quiz.Session, error)
	KeepAlive(ctx context.Context, id string) error
	Stats(ctx context.Context) (quiz.Stats, error)
	Now() time.Time
}

const (
	gameName        = "Multi-Language Programming Quiz - 5 Questions Challenge"
	gameDescription = "Test your programming knowledge across multiple languages with AI-generated questions. Sessions are managed with Redis for reliability."
	gameRules       = "Answer 5 multiple-choice questions to complete a quiz session. Get immediate feedback and explanations!"
)

type startRequest struct {
	Language   string `json:"language"`
	Difficulty string `json:"difficulty"`
}

type answerRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Answer    string `json:"answer" binding:"required"`
}

type startResponse struct {
	Successful bool `json:"successful"`
	*engine.StartResult
}

type answerResponse struct {
	Successful bool `json:"successful"`
	*engine.AnswerResult
}

// GameInfo describes the quiz to clients.
type GameInfo struct {
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Difficulties       []string `json:"difficulties"`
	SupportedLanguages []string `json:"supportedLanguages"`
	DefaultLanguage    string   `json:"defaultLanguage"`
	Instructions       string   `json:"instructions"`
}

// SupportedLanguages lists the quiz languages.
type SupportedLanguages struct {
	Languages       []string `json:"languages"`
	DefaultLanguage string   `json:"defaultLanguage"`
	Description     string   `json:"description"`
}

// Handler serves the /api/quiz routes.
type Handler struct {
	engine          Engine
	defaultLanguage string
}

// NewHandler creates a Handler.
func NewHandler(e Engine, defaultLanguage string) *Handler {
	if defaultLanguage == "" {
		defaultLanguage = quiz.DefaultLanguage
	}
	return &Handler{engine: e, defaultLanguage: defaultLanguage}
}

// StartQuiz handles POST /start. A missing or unknown language falls back
// to the default; the difficulty is validated by the engine.
func (h *Handler) StartQuiz(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	h.start(c, req.Language, req.Difficulty)
}

// StartQuizGet handles GET /start with strict validation of both parameters.
func (h *Handler) StartQuizGet(c *gin.Context) {
	language := c.DefaultQuery("language", h.defaultLanguage)
	difficulty := c.DefaultQuery("difficulty", string(quiz.Beginner))

	if _, ok := quiz.LookupLanguage(language); !ok {
		badRequest(c, "Unsupported language. Supported: "+strings.Join(quiz.LanguageIDs(), ", "))
		return
	}
	if !slices.Contains(quiz.Difficulties, quiz.Difficulty(difficulty)) {
		badRequest(c, "Difficulty must be: beginner, intermediate, or advanced")
		return
	}
	h.start(c, language, difficulty)
}

func (h *Handler) start(c *gin.Context, language, difficulty string) {
	glog.V(1).Infof("start quiz: language=%q difficulty=%q", language, difficulty)

	res, err := h.engine.Start(c.Request.Context(), language, difficulty)
	if err != nil {
		abortWithError(c, err, "Failed to start quiz session. Please try again.")
		return
	}
	c.JSON(http.StatusOK, startResponse{Successful: true, StartResult: res})
}

// SubmitAnswer handles POST /answer. The session is kept alive before the
// answer is scored.
func (h *Handler) SubmitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "sessionId and answer are required")
		return
	}

	ctx := c.Request.Context()
	if err := h.engine.KeepAlive(ctx, req.SessionID); err != nil {
		abortWithError(c, err, "Failed to process answer. Please try again.")
		return
	}

	res, err := h.engine.SubmitAnswer(ctx, req.SessionID, req.Answer)
	if err != nil {
		abortWithError(c, err, "Failed to process answer. Please try again.")
		return
	}
	c.JSON(http.StatusOK, answerResponse{Successful: true, AnswerResult: res})
}

// SessionStatus handles GET /session/:sessionId.
func (h *Handler) SessionStatus(c *gin.Context) {
	s, err := h.engine.Status(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		abortWithError(c, err, "Failed to load quiz session. Please try again.")
		return
	}
	c.JSON(http.StatusOK, quiz.View(s, h.engine.Now()))
}

// ExtendSession handles POST /session/:sessionId/extend.
func (h *Handler) ExtendSession(c *gin.Context) {
	if err := h.engine.KeepAlive(c.Request.Context(), c.Param("sessionId")); err != nil {
		abortWithError(c, err, "Failed to extend quiz session. Please try again.")
		return
	}
	c.Status(http.StatusOK)
}

// Stats handles GET /stats.
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.engine.Stats(c.Request.Context())
	if err != nil {
		abortWithError(c, err, "Failed to load quiz statistics. Please try again.")
		return
	}
	c.JSON(http.StatusOK, st)
}

// Info handles GET /info.
func (h *Handler) Info(c *gin.Context) {
	difficulties := make([]string, len(quiz.Difficulties))
	for i, d := range quiz.Difficulties {
		difficulties[i] = string(d)
	}
	c.JSON(http.StatusOK, GameInfo{
		Name:               gameName,
		Description:        gameDescription,
		Difficulties:       difficulties,
		SupportedLanguages: quiz.LanguageIDs(),
		DefaultLanguage:    h.defaultLanguage,
		Instructions:       gameRules,
	})
}

// SupportedLanguages handles GET /supported-languages.
func (h *Handler) SupportedLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, SupportedLanguages{
		Languages:       quiz.LanguageIDs(),
		DefaultLanguage: h.defaultLanguage,
		Description:     "The quiz supports programming questions in these languages",
	})
}
