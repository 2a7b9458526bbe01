package domain

import (
	"encoding/json"
	"time"
)

// Subject is one of the learning domains a quiz item belongs to.
type Subject string

const (
	SubjectCoding  Subject = "coding"
	SubjectVocab   Subject = "vocab"
	SubjectFinance Subject = "finance"
)

// Subjects lists every supported subject in display order.
var Subjects = []Subject{SubjectCoding, SubjectVocab, SubjectFinance}

// Valid reports whether s is a supported subject.
func (s Subject) Valid() bool {
	switch s {
	case SubjectCoding, SubjectVocab, SubjectFinance:
		return true
	}
	return false
}

const (
	MinDifficulty = 1
	MaxDifficulty = 3
)

// ValidDifficulty reports whether d is within the supported difficulty range.
func ValidDifficulty(d int) bool {
	return d >= MinDifficulty && d <= MaxDifficulty
}

// AntiCheat constrains how a quiz item may be answered.
type AntiCheat struct {
	Timer       int `json:"timer,omitempty"`        // seconds per question
	MaxAttempts int `json:"max_attempts,omitempty"` // attempts per question
}

// QuizItem is a single multiple-choice question. CorrectAnswer must never be
// sent to clients before an answer is submitted; use Public for that.
type QuizItem struct {
	ID            int64      `json:"id"`
	Subject       Subject    `json:"subject"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer int        `json:"correctAnswer"`
	Difficulty    int        `json:"difficulty"`
	AntiCheat     *AntiCheat `json:"antiCheatFlags,omitempty"`
}

// PublicQuestion is the client-facing view of a QuizItem.
type PublicQuestion struct {
	ID         int64      `json:"id"`
	Subject    Subject    `json:"subject"`
	Question   string     `json:"question"`
	Options    []string   `json:"options"`
	Difficulty int        `json:"difficulty"`
	AntiCheat  *AntiCheat `json:"antiCheatFlags,omitempty"`
}

// Public strips the correct answer.
func (q QuizItem) Public() PublicQuestion {
	return PublicQuestion{
		ID:         q.ID,
		Subject:    q.Subject,
		Question:   q.Question,
		Options:    q.Options,
		Difficulty: q.Difficulty,
		AntiCheat:  q.AntiCheat,
	}
}

// Progress is the per (user, subject) level and cumulative score.
type Progress struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"userId"`
	Subject      Subject   `json:"subject"`
	CurrentLevel int       `json:"currentLevel"`
	TotalScore   int       `json:"totalScore"`
	AnswersCount int       `json:"answersCount"`
	Achievements []string  `json:"achievements"`
	OfflineSync  bool      `json:"offlineSync"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// LevelForScore derives a level from a cumulative score.
func LevelForScore(score int) int {
	if score < 0 {
		score = 0
	}
	return score/100 + 1
}

// LeaderboardEntry is one user's row in the global leaderboard.
type LeaderboardEntry struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"name,omitempty"`
	XP          int       `json:"xp"`
	Rank        int       `json:"rank"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Streak tracks consecutive active days for a user.
type Streak struct {
	UserID     string    `json:"userId"`
	Current    int       `json:"current"`
	Longest    int       `json:"longest"`
	LastActive time.Time `json:"lastActive"`
}

// AchievementType is the kind of criterion an achievement is checked against.
type AchievementType string

const (
	AchievementLevel     AchievementType = "level"
	AchievementQuizCount AchievementType = "quiz_count"
	AchievementScore     AchievementType = "score"
	AchievementMilestone AchievementType = "milestone"
	AchievementStreak    AchievementType = "streak"
)

// Valid reports whether t is a known achievement type.
func (t AchievementType) Valid() bool {
	switch t {
	case AchievementLevel, AchievementQuizCount, AchievementScore, AchievementMilestone, AchievementStreak:
		return true
	}
	return false
}

// Milestone conditions.
const (
	ConditionMultiSubject = "multi_subject"
	ConditionFirstQuiz    = "first_quiz"
	ConditionPerfectScore = "perfect_score"
)

// Achievement is an unlockable catalog entry. Criteria is kept raw so a single
// malformed payload does not poison the whole catalog.
type Achievement struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
	Type        AchievementType `json:"type"`
	Criteria    json.RawMessage `json:"criteria"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Criterion is the decoded, machine-checkable achievement condition.
type Criterion struct {
	Type      AchievementType `json:"type"`
	Subject   Subject         `json:"subject,omitempty"`
	Value     int             `json:"value,omitempty"`
	Condition string          `json:"condition,omitempty"`
}

// Award records that a user unlocked an achievement.
type Award struct {
	UserID        string    `json:"userId"`
	AchievementID int64     `json:"achievementId"`
	AwardedAt     time.Time `json:"awardedAt"`
}

// QuizSession is an issued set of questions with its time and attempt limits.
type QuizSession struct {
	ID          string           `json:"sessionId"`
	UserID      string           `json:"-"`
	Subject     Subject          `json:"subject"`
	Questions   []PublicQuestion `json:"questions"`
	TimeLimit   int              `json:"timeLimit"` // seconds, whole session
	MaxAttempts int              `json:"maxAttempts"`
	StartedAt   time.Time        `json:"startedAt"`
}

// Contains reports whether quizID was issued in this session.
func (s QuizSession) Contains(quizID int64) bool {
	for _, q := range s.Questions {
		if q.ID == quizID {
			return true
		}
	}
	return false
}

// AnalyticsRecord is an append-only play session record.
type AnalyticsRecord struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"userId"`
	SessionID    string    `json:"sessionId"`
	Achievements []string  `json:"achievements"`
	PlayTime     int       `json:"playTime"` // minutes
	CreatedAt    time.Time `json:"createdAt"`
}

// Caller is the authenticated identity performing a request.
type Caller struct {
	UserID string
	Name   string
}
