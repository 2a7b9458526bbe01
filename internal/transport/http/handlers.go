package http

import (
	"net/http"
	"strconv"

	"evolv/internal/app"
	"evolv/internal/domain"
	"github.com/gin-gonic/gin"
)

// Services bundles the use cases exposed over HTTP.
type Services struct {
	Quizzes      *app.QuizService
	Scoring      *app.ScoringService
	Achievements *app.AchievementService
	Leaderboard  *app.LeaderboardService
	Analytics    *app.AnalyticsService
	Progress     *app.ProgressService
}

type handler struct {
	svc Services
}

type answerRequest struct {
	QuizID         *int64 `json:"quizId" validate:"required,gt=0"`
	SelectedAnswer *int   `json:"selectedAnswer" validate:"required"`
	SessionID      string `json:"sessionId"`
	TimeSpent      *int   `json:"timeSpent" validate:"omitempty,min=0"`
}

var answerCodes = fieldCodes{
	"quizId":         {"MISSING_QUIZ_ID", "MISSING_QUIZ_ID"},
	"selectedAnswer": {"MISSING_SELECTED_ANSWER", "MISSING_SELECTED_ANSWER"},
	"sessionId":      {"", "INVALID_SESSION_ID"},
	"timeSpent":      {"", "INVALID_TIME_SPENT"},
}

func (h *handler) submitAnswer(c *gin.Context) {
	var req answerRequest
	if !bindBody(c, &req, answerCodes) {
		return
	}
	sub := app.AnswerSubmission{
		QuizID:         *req.QuizID,
		SelectedAnswer: *req.SelectedAnswer,
		SessionID:      req.SessionID,
	}
	if req.TimeSpent != nil {
		sub.TimeSpent = *req.TimeSpent
	}
	result, err := h.svc.Scoring.SubmitAnswer(c.Request.Context(), callerFrom(c), sub)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type startRequest struct {
	Subject       string `json:"subject" validate:"required,oneof=coding vocab finance"`
	Difficulty    *int   `json:"difficulty" validate:"omitempty,min=1,max=3"`
	QuestionCount *int   `json:"questionCount" validate:"omitempty,min=0"`
}

var startCodes = fieldCodes{
	"subject":       {"MISSING_SUBJECT", "INVALID_SUBJECT"},
	"difficulty":    {"", "INVALID_DIFFICULTY"},
	"questionCount": {"", "INVALID_QUESTION_COUNT"},
}

// startQuiz serves both POST (JSON body) and GET (query string).
func (h *handler) startQuiz(c *gin.Context) {
	var req startRequest
	if c.Request.Method == http.MethodGet {
		if !bindStartQuery(c, &req) {
			return
		}
	} else if !bindBody(c, &req, startCodes) {
		return
	}
	start := app.StartRequest{Subject: domain.Subject(req.Subject)}
	if req.Difficulty != nil {
		start.Difficulty = *req.Difficulty
	}
	if req.QuestionCount != nil {
		start.QuestionCount = *req.QuestionCount
	}
	session, err := h.svc.Quizzes.Start(c.Request.Context(), callerFrom(c).UserID, start)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if c.Request.Method == http.MethodGet {
		status = http.StatusOK
	}
	c.JSON(status, session)
}

func bindStartQuery(c *gin.Context, req *startRequest) bool {
	req.Subject = c.Query("subject")
	if c.Query("difficulty") != "" {
		d, ok := queryInt(c, "difficulty", "INVALID_DIFFICULTY")
		if !ok {
			return false
		}
		req.Difficulty = &d
	}
	if c.Query("questionCount") != "" {
		n, ok := queryInt(c, "questionCount", "INVALID_QUESTION_COUNT")
		if !ok {
			return false
		}
		req.QuestionCount = &n
	}
	return validateStruct(c, req, startCodes)
}

func (h *handler) listQuizzes(c *gin.Context) {
	req := app.ListRequest{Subject: domain.Subject(c.Param("subject")), Randomize: true}

	rawDifficulty := c.Param("difficulty")
	if rawDifficulty == "" {
		rawDifficulty = c.Query("difficulty")
	}
	if rawDifficulty != "" {
		d, err := strconv.Atoi(rawDifficulty)
		if err != nil || !domain.ValidDifficulty(d) {
			writeError(c, domain.Invalid("INVALID_DIFFICULTY", "Invalid difficulty. Must be 1, 2, or 3"))
			return
		}
		req.Difficulty = d
	}

	var ok bool
	if req.Limit, ok = queryInt(c, "limit", "INVALID_LIMIT"); !ok {
		return
	}
	if req.Offset, ok = queryInt(c, "offset", "INVALID_OFFSET"); !ok {
		return
	}
	if c.Query("randomize") == "false" {
		req.Randomize = false
	}

	questions, total, err := h.svc.Quizzes.List(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.Itoa(total))
	c.JSON(http.StatusOK, questions)
}

type awardRequest struct {
	Subject          string `json:"subject" validate:"required"`
	ScoreIncrement   *int   `json:"scoreIncrement" validate:"omitempty,min=0"`
	QuizzesCompleted *int   `json:"quizzesCompleted" validate:"omitempty,min=0"`
}

var awardCodes = fieldCodes{
	"subject":          {"MISSING_REQUIRED_FIELD", "INVALID_SUBJECT"},
	"scoreIncrement":   {"", "INVALID_SCORE_INCREMENT"},
	"quizzesCompleted": {"", "INVALID_QUIZZES_COMPLETED"},
}

func (h *handler) awardAchievements(c *gin.Context) {
	var req awardRequest
	if !bindBody(c, &req, awardCodes) {
		return
	}
	award := app.AwardRequest{Subject: domain.Subject(req.Subject)}
	if req.ScoreIncrement != nil {
		award.ScoreIncrement = *req.ScoreIncrement
	}
	if req.QuizzesCompleted != nil {
		award.QuizzesCompleted = *req.QuizzesCompleted
	}
	result, err := h.svc.Achievements.Award(c.Request.Context(), callerFrom(c).UserID, award)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) listAchievements(c *gin.Context) {
	views, err := h.svc.Achievements.List(c.Request.Context(), callerFrom(c).UserID, domain.AchievementType(c.Query("type")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *handler) leaderboard(c *gin.Context) {
	limit, ok := queryInt(c, "limit", "INVALID_LIMIT")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", "INVALID_OFFSET")
	if !ok {
		return
	}
	caller := callerFrom(c)
	includeUser := c.DefaultQuery("includeUser", "true") == "true" && caller.UserID != ""

	page, err := h.svc.Leaderboard.Page(c.Request.Context(), caller.UserID, limit, offset, includeUser)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type analyticsRequest struct {
	SessionID    string    `json:"sessionId" validate:"required"`
	Achievements []*string `json:"achievements" validate:"omitempty,dive,required"`
	PlayTime     *int      `json:"playTime" validate:"required,min=0"`
}

var analyticsCodes = fieldCodes{
	"sessionId":    {"MISSING_SESSION_ID", "INVALID_SESSION_ID"},
	"achievements": {"", "INVALID_ACHIEVEMENTS_FORMAT"},
	"playTime":     {"MISSING_PLAY_TIME", "INVALID_PLAY_TIME"},
}

func (h *handler) recordAnalytics(c *gin.Context) {
	var req analyticsRequest
	if !bindBody(c, &req, analyticsCodes) {
		return
	}
	rec, err := h.svc.Analytics.Record(c.Request.Context(), callerFrom(c).UserID, req.SessionID, stringList(req.Achievements), *req.PlayTime)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *handler) analyticsSummary(c *gin.Context) {
	days, ok := queryInt(c, "days", "INVALID_DAYS_PARAMETER")
	if !ok {
		return
	}
	if c.Query("days") != "" && days <= 0 {
		writeError(c, domain.Invalid("INVALID_DAYS_PARAMETER", "Days parameter must be a positive integer"))
		return
	}
	summary, err := h.svc.Analytics.Summary(c.Request.Context(), callerFrom(c).UserID, days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type progressRequest struct {
	Subject      string    `json:"subject" validate:"required"`
	TotalScore   *int      `json:"totalScore" validate:"omitempty,min=0"`
	Achievements []*string `json:"achievements" validate:"omitempty,dive,required"`
	OfflineSync  *bool     `json:"offlineSync"`
}

type progressUpdateRequest struct {
	Subject      string    `json:"subject"`
	TotalScore   *int      `json:"totalScore" validate:"omitempty,min=0"`
	Achievements []*string `json:"achievements" validate:"omitempty,dive,required"`
	OfflineSync  *bool     `json:"offlineSync"`
}

// progressDeltaRequest is the incremental form served by POST /progress/update.
type progressDeltaRequest struct {
	Subject         string    `json:"subject" validate:"required"`
	ScoreIncrement  *int      `json:"scoreIncrement"`
	NewAchievements []*string `json:"newAchievements" validate:"omitempty,dive,required"`
	OfflineSync     *bool     `json:"offlineSync"`
}

var progressCodes = fieldCodes{
	"subject":      {"MISSING_SUBJECT", "INVALID_SUBJECT"},
	"totalScore":   {"", "INVALID_TOTAL_SCORE"},
	"achievements": {"", "INVALID_ACHIEVEMENTS"},
	"offlineSync":  {"", "INVALID_OFFLINE_SYNC"},
}

var progressDeltaCodes = fieldCodes{
	"subject":         {"MISSING_REQUIRED_FIELD", "INVALID_SUBJECT"},
	"scoreIncrement":  {"", "INVALID_INCREMENT"},
	"newAchievements": {"", "INVALID_ACHIEVEMENTS"},
	"offlineSync":     {"", "INVALID_OFFLINE_SYNC"},
}

func (h *handler) listProgress(c *gin.Context) {
	rows, err := h.svc.Progress.List(c.Request.Context(), callerFrom(c).UserID, domain.Subject(c.Query("subject")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handler) createProgress(c *gin.Context) {
	var req progressRequest
	if !bindBody(c, &req, progressCodes) {
		return
	}
	in := app.ProgressInput{Subject: domain.Subject(req.Subject), Achievements: stringList(req.Achievements)}
	if req.TotalScore != nil {
		in.TotalScore = *req.TotalScore
	}
	if req.OfflineSync != nil {
		in.OfflineSync = *req.OfflineSync
	}
	created, err := h.svc.Progress.Create(c.Request.Context(), callerFrom(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// updateProgress takes the subject from the query string, falling back to the body.
func (h *handler) updateProgress(c *gin.Context) {
	var req progressUpdateRequest
	if !bindBody(c, &req, progressCodes) {
		return
	}
	subject := c.Query("subject")
	if subject == "" {
		subject = req.Subject
	}
	updated, err := h.svc.Progress.Update(c.Request.Context(), callerFrom(c), domain.Subject(subject), app.ProgressUpdate{
		TotalScore:   req.TotalScore,
		Achievements: stringList(req.Achievements),
		OfflineSync:  req.OfflineSync,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// applyProgress adds increments to the caller's row, answering 201 when the
// row had to be created.
func (h *handler) applyProgress(c *gin.Context) {
	var req progressDeltaRequest
	if !bindBody(c, &req, progressDeltaCodes) {
		return
	}
	delta := app.ProgressDelta{
		Subject:         domain.Subject(req.Subject),
		NewAchievements: stringList(req.NewAchievements),
		OfflineSync:     req.OfflineSync,
	}
	if req.ScoreIncrement != nil {
		delta.ScoreIncrement = *req.ScoreIncrement
	}
	row, created, err := h.svc.Progress.Apply(c.Request.Context(), callerFrom(c), delta)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, row)
}

func (h *handler) deleteProgress(c *gin.Context) {
	subject := domain.Subject(c.Query("subject"))
	if err := h.svc.Progress.Delete(c.Request.Context(), callerFrom(c), subject); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Progress deleted", "subject": subject})
}
