package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/codequiz/internal/quiz"
)

// errorResponse is the body of every failed quiz call.
type errorResponse struct {
	Successful   bool   `json:"successful"`
	ErrorMessage string `json:"errorMessage"`
}

var errorMappings = []struct {
	err     error
	status  int
	message string
}{
	{quiz.ErrInvalidDifficulty, http.StatusBadRequest, "Difficulty must be: beginner, intermediate, or advanced"},
	{quiz.ErrInvalidAnswer, http.StatusBadRequest, "Answer must be one of A, B, C, or D"},
	{quiz.ErrSessionNotFound, http.StatusNotFound, "Quiz session not found or expired. Please start a new quiz."},
	{quiz.ErrConflict, http.StatusConflict, "This quiz session was updated by another request. Please refresh and try again."},
	{quiz.ErrCorruptedSession, http.StatusUnprocessableEntity, "This quiz session can no longer be continued. Please start a new quiz."},
}

// statusFor maps an engine error to an HTTP status and client message.
// Store failures get fallback, the operation's generic retry text.
func statusFor(err error, fallback string) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.message
		}
	}
	return http.StatusServiceUnavailable, fallback
}

func abortWithError(c *gin.Context, err error, fallback string) {
	status, msg := statusFor(err, fallback)
	c.AbortWithStatusJSON(status, errorResponse{Successful: false, ErrorMessage: msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Successful: false, ErrorMessage: msg})
}
