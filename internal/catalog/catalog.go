// Package catalog holds the built-in question bank and achievement set used
// when no database is configured and by the seed command.
package catalog

import (
	"encoding/json"

	"evolv/internal/domain"
)

func flags() *domain.AntiCheat {
	return &domain.AntiCheat{Timer: 60, MaxAttempts: 3}
}

// Quizzes returns ten questions per subject with stable ids.
func Quizzes() []domain.QuizItem {
	return []domain.QuizItem{
		{ID: 1, Subject: domain.SubjectCoding, Question: "What is the output of console.log([1,2].map(parseInt))?", Options: []string{"[1, 2]", "[1, NaN]", "[NaN, NaN]", "[0, 1]"}, CorrectAnswer: 1, Difficulty: 3, AntiCheat: flags()},
		{ID: 2, Subject: domain.SubjectCoding, Question: "What will this code output? let x = 1; function test() { console.log(x); let x = 2; } test();", Options: []string{"1", "2", "undefined", "ReferenceError"}, CorrectAnswer: 3, Difficulty: 3, AntiCheat: flags()},
		{ID: 3, Subject: domain.SubjectCoding, Question: "Which array method creates a new array with all elements that pass a test?", Options: []string{"map()", "filter()", "reduce()", "forEach()"}, CorrectAnswer: 1, Difficulty: 1, AntiCheat: flags()},
		{ID: 4, Subject: domain.SubjectCoding, Question: "What does the \"this\" keyword refer to in an arrow function?", Options: []string{"The function itself", "The global object", "The lexical scope", "undefined"}, CorrectAnswer: 2, Difficulty: 2, AntiCheat: flags()},
		{ID: 5, Subject: domain.SubjectCoding, Question: "Which of the following is NOT a primitive data type in JavaScript?", Options: []string{"string", "number", "object", "boolean"}, CorrectAnswer: 2, Difficulty: 1, AntiCheat: flags()},
		{ID: 6, Subject: domain.SubjectCoding, Question: "What is a closure in JavaScript?", Options: []string{"A function with no parameters", "A function that returns another function", "A function that has access to outer scope variables", "A function that is immediately invoked"}, CorrectAnswer: 2, Difficulty: 2, AntiCheat: flags()},
		{ID: 7, Subject: domain.SubjectCoding, Question: "What does async/await help with in JavaScript?", Options: []string{"Making synchronous code", "Handling asynchronous operations", "Creating loops", "Declaring variables"}, CorrectAnswer: 1, Difficulty: 2, AntiCheat: flags()},
		{ID: 8, Subject: domain.SubjectCoding, Question: "What will Object.keys({a: 1, b: 2}) return?", Options: []string{"[1, 2]", "[\"a\", \"b\"]", "[[\"a\", 1], [\"b\", 2]]", "{\"a\": 1, \"b\": 2}"}, CorrectAnswer: 1, Difficulty: 1, AntiCheat: flags()},
		{ID: 9, Subject: domain.SubjectCoding, Question: "Which operator is used for strict equality comparison?", Options: []string{"=", "==", "===", "!=="}, CorrectAnswer: 2, Difficulty: 1, AntiCheat: flags()},
		{ID: 10, Subject: domain.SubjectCoding, Question: "What is the difference between let and var in terms of scope?", Options: []string{"No difference", "let is function-scoped, var is block-scoped", "let is block-scoped, var is function-scoped", "Both are global-scoped"}, CorrectAnswer: 2, Difficulty: 2, AntiCheat: flags()},
		{ID: 11, Subject: domain.SubjectVocab, Question: "What is a synonym for \"eloquent\"?", Options: []string{"silent", "articulate", "confused", "simple"}, CorrectAnswer: 1, Difficulty: 2, AntiCheat: flags()},
		{ID: 12, Subject: domain.SubjectVocab, Question: "What does \"ubiquitous\" mean?", Options: []string{"Rare and hard to find", "Present everywhere", "Extremely valuable", "Dangerous or harmful"}, CorrectAnswer: 1, Difficulty: 3, AntiCheat: flags()},
		{ID: 13, Subject: domain.SubjectVocab, Question: "What is an antonym for \"benevolent\"?", Options: []string{"kind", "generous", "malevolent", "helpful"}, CorrectAnswer: 2, Difficulty: 2, AntiCheat: flags()},
		{ID: 14, Subject: domain.SubjectVocab, Question: "The root \"bio\" means:", Options: []string{"life", "earth", "water", "fire"}, CorrectAnswer: 0, Difficulty: 1, AntiCheat: flags()},
		{ID: 15, Subject: domain.SubjectVocab, Question: "Which word means \"to make less severe\"?", Options: []string{"aggravate", "mitigate", "complicate", "terminate"}, CorrectAnswer: 1, Difficulty: 3, AntiCheat: flags()},
		{ID: 16, Subject: domain.SubjectVocab, Question: "What does \"ephemeral\" mean?", Options: []string{"Lasting forever", "Very expensive", "Short-lived", "Extremely large"}, CorrectAnswer: 2, Difficulty: 3, AntiCheat: flags()},
		{ID: 17, Subject: domain.SubjectVocab, Question: "A \"novice\" is someone who is:", Options: []string{"experienced", "new to something", "very old", "highly skilled"}, CorrectAnswer: 1, Difficulty: 1, AntiCheat: flags()},
		{ID: 18, Subject: domain.SubjectVocab, Question: "What does \"candid\" mean?", Options: []string{"dishonest", "frank and honest", "secretive", "confused"}, CorrectAnswer: 1, Difficulty: 2, AntiCheat: flags()},
		{ID: 19, Subject: domain.SubjectVocab, Question: "The prefix \"pre-\" means:", Options: []string{"after", "before", "against", "together"}, CorrectAnswer: 1, Difficulty: 1, AntiCheat: flags()},
		{ID: 20, Subject: domain.SubjectVocab, Question: "What does \"gregarious\" describe?", Options: []string{"Someone who is shy", "Someone who is sociable", "Someone who is angry", "Someone who is intelligent"}, CorrectAnswer: 1, Difficulty: 2, AntiCheat: flags()},
		{ID: 21, Subject: domain.SubjectFinance, Question: "What is compound interest?", Options: []string{"Interest calculated only on the principal", "Interest calculated on principal plus previously earned interest", "A fixed rate of return", "Interest that decreases over time"}, CorrectAnswer: 1, Difficulty: 2, AntiCheat: flags()},
		{ID: 22, Subject: domain.SubjectFinance, Question: "What does diversification mean in investing?", Options: []string{"Putting all money in one investment", "Spreading investments across different assets", "Only investing in stocks", "Avoiding all risks"}, CorrectAnswer: 1, Difficulty: 2, AntiCheat: flags()},
		{ID: 23, Subject: domain.SubjectFinance, Question: "What is a 401(k)?", Options: []string{"A type of loan", "A retirement savings plan", "A credit card", "A type of insurance"}, CorrectAnswer: 1, Difficulty: 1, AntiCheat: flags()},
		{ID: 24, Subject: domain.SubjectFinance, Question: "What does APR stand for?", Options: []string{"Annual Percentage Rate", "Average Payment Ratio", "Automated Payment Request", "Annual Profit Return"}, CorrectAnswer: 0, Difficulty: 1, AntiCheat: flags()},
		{ID: 25, Subject: domain.SubjectFinance, Question: "What is inflation?", Options: []string{"Decrease in prices over time", "Increase in prices over time", "Stable prices", "Government spending"}, CorrectAnswer: 1, Difficulty: 1, AntiCheat: flags()},
		{ID: 26, Subject: domain.SubjectFinance, Question: "What is the recommended emergency fund size?", Options: []string{"1 month of expenses", "3-6 months of expenses", "1 year of expenses", "2 weeks of expenses"}, CorrectAnswer: 1, Difficulty: 2, AntiCheat: flags()},
		{ID: 27, Subject: domain.SubjectFinance, Question: "What is a mutual fund?", Options: []string{"A single stock purchase", "A pooled investment vehicle", "A type of bank account", "A government bond"}, CorrectAnswer: 1, Difficulty: 2, AntiCheat: flags()},
		{ID: 28, Subject: domain.SubjectFinance, Question: "What does it mean to \"pay yourself first\"?", Options: []string{"Pay bills before saving", "Save money before spending on other things", "Only pay minimum payments", "Spend money on yourself first"}, CorrectAnswer: 1, Difficulty: 2, AntiCheat: flags()},
		{ID: 29, Subject: domain.SubjectFinance, Question: "What is a credit score used for?", Options: []string{"Measuring intelligence", "Assessing creditworthiness", "Calculating taxes", "Determining salary"}, CorrectAnswer: 1, Difficulty: 1, AntiCheat: flags()},
		{ID: 30, Subject: domain.SubjectFinance, Question: "What is the difference between a debit and credit card?", Options: []string{"No difference", "Debit uses your money, credit borrows money", "Credit uses your money, debit borrows money", "Both borrow money"}, CorrectAnswer: 1, Difficulty: 1, AntiCheat: flags()},
	}
}

// Achievements returns the achievement catalog ordered by id.
func Achievements() []domain.Achievement {
	return []domain.Achievement{
		{ID: 1, Name: "First Quiz", Description: "Complete your first quiz", Icon: "🎯", Type: domain.AchievementMilestone, Criteria: json.RawMessage(`{"type":"milestone","condition":"first_quiz"}`)},
		{ID: 2, Name: "Level 5 Coding", Description: "Reach level 5 in coding", Icon: "💻", Type: domain.AchievementLevel, Criteria: json.RawMessage(`{"type":"level","value":5,"subject":"coding"}`)},
		{ID: 3, Name: "Level 5 Vocab", Description: "Reach level 5 in vocabulary", Icon: "📚", Type: domain.AchievementLevel, Criteria: json.RawMessage(`{"type":"level","value":5,"subject":"vocab"}`)},
		{ID: 4, Name: "Level 5 Finance", Description: "Reach level 5 in finance", Icon: "💰", Type: domain.AchievementLevel, Criteria: json.RawMessage(`{"type":"level","value":5,"subject":"finance"}`)},
		{ID: 5, Name: "Quiz Master", Description: "Complete 50 quizzes total", Icon: "🏆", Type: domain.AchievementQuizCount, Criteria: json.RawMessage(`{"type":"quiz_count","value":50}`)},
		{ID: 6, Name: "Multi-Subject Learner", Description: "Complete quizzes in all 3 subjects", Icon: "⭐", Type: domain.AchievementMilestone, Criteria: json.RawMessage(`{"type":"milestone","condition":"multi_subject","value":3}`)},
		{ID: 7, Name: "Coding Expert", Description: "Score 500 XP in coding", Icon: "💎", Type: domain.AchievementScore, Criteria: json.RawMessage(`{"type":"score","value":500,"subject":"coding"}`)},
		{ID: 8, Name: "Vocabulary Expert", Description: "Score 500 XP in vocabulary", Icon: "🎖️", Type: domain.AchievementScore, Criteria: json.RawMessage(`{"type":"score","value":500,"subject":"vocab"}`)},
		{ID: 9, Name: "Finance Expert", Description: "Score 500 XP in finance", Icon: "💪", Type: domain.AchievementScore, Criteria: json.RawMessage(`{"type":"score","value":500,"subject":"finance"}`)},
		{ID: 10, Name: "Perfectionist", Description: "Get 10 correct answers in a row", Icon: "🌟", Type: domain.AchievementMilestone, Criteria: json.RawMessage(`{"type":"milestone","condition":"perfect_score","value":10}`)},
		{ID: 11, Name: "Dedicated Learner", Description: "Login for 7 consecutive days", Icon: "🔥", Type: domain.AchievementStreak, Criteria: json.RawMessage(`{"type":"streak","value":7}`)},
		{ID: 12, Name: "Level 10 Master", Description: "Reach level 10 in any subject", Icon: "🎊", Type: domain.AchievementLevel, Criteria: json.RawMessage(`{"type":"level","value":10}`)},
		{ID: 13, Name: "Quiz Completionist", Description: "Complete 100 quizzes total", Icon: "🏅", Type: domain.AchievementQuizCount, Criteria: json.RawMessage(`{"type":"quiz_count","value":100}`)},
		{ID: 14, Name: "XP Collector", Description: "Earn 1000 total XP", Icon: "✨", Type: domain.AchievementScore, Criteria: json.RawMessage(`{"type":"score","value":1000}`)},
		{ID: 15, Name: "Consistent Performer", Description: "Maintain 30-day streak", Icon: "🚀", Type: domain.AchievementStreak, Criteria: json.RawMessage(`{"type":"streak","value":30}`)},
	}
}
