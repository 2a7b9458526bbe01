package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter mounts every endpoint. Reads of the quiz bank are public, the
// leaderboard accepts an optional caller, everything else requires one.
func NewRouter(svc Services, auth *Authenticator, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(origins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	corsCfg.AddAllowHeaders("Authorization")
	corsCfg.AddExposeHeaders("X-Total-Count")
	r.Use(cors.New(corsCfg))

	h := &handler{svc: svc}
	ws := NewWSHandler(svc.Leaderboard, auth)

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/ws/leaderboard", gin.WrapF(ws.ServeWS))

	authed := r.Group("/", auth.Require())
	authed.POST("/quizzes/answer", h.submitAnswer)
	authed.POST("/quizzes/start", h.startQuiz)
	authed.GET("/quizzes/start", h.startQuiz)

	r.GET("/quizzes/:subject", h.listQuizzes)
	r.GET("/quizzes/:subject/:difficulty", h.listQuizzes)

	authed.GET("/achievements", h.listAchievements)
	authed.POST("/achievements/award", h.awardAchievements)

	r.GET("/gamification/leaderboard", auth.Optional(), h.leaderboard)

	authed.GET("/analytics", h.analyticsSummary)
	authed.POST("/analytics", h.recordAnalytics)

	authed.GET("/progress", h.listProgress)
	authed.POST("/progress", h.createProgress)
	authed.PUT("/progress", h.updateProgress)
	authed.POST("/progress/update", h.applyProgress)
	authed.DELETE("/progress", h.deleteProgress)

	return r
}
