package http

import (
	"errors"
	"log"
	"net/http"

	"evolv/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps domain errors onto status codes. Anything unexpected
// becomes a 500 carrying the error text.
func writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: verr.Message, Code: verr.Code})
	case errors.Is(err, domain.ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "Authentication required"})
	case errors.Is(err, domain.ErrProgressExists):
		c.AbortWithStatusJSON(http.StatusConflict, errorBody{Error: "Progress record already exists for this subject", Code: "PROGRESS_EXISTS"})
	case domain.IsNotFound(err):
		c.AbortWithStatusJSON(http.StatusNotFound, notFoundBody(err))
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: "Internal server error: " + err.Error()})
	}
}

func notFoundBody(err error) errorBody {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		return errorBody{Error: "Quiz not found", Code: "QUIZ_NOT_FOUND"}
	case errors.Is(err, domain.ErrNoQuestions):
		return errorBody{Error: "No questions found for the specified criteria", Code: "NO_QUESTIONS_FOUND"}
	case errors.Is(err, domain.ErrProgressNotFound):
		return errorBody{Error: "Progress record not found", Code: "PROGRESS_NOT_FOUND"}
	case errors.Is(err, domain.ErrSessionNotFound):
		return errorBody{Error: "Quiz session not found", Code: "SESSION_NOT_FOUND"}
	case errors.Is(err, domain.ErrAchievementsNotFound):
		return errorBody{Error: "No achievements found", Code: "ACHIEVEMENTS_NOT_FOUND"}
	}
	return errorBody{Error: err.Error()}
}
