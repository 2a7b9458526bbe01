package domain

import (
	"encoding/json"
	"fmt"
)

// ParseCriterion decodes and validates the achievement's criterion payload.
func (a Achievement) ParseCriterion() (Criterion, error) {
	var c Criterion
	if len(a.Criteria) == 0 {
		return c, fmt.Errorf("achievement %d: empty criterion", a.ID)
	}
	if err := json.Unmarshal(a.Criteria, &c); err != nil {
		return c, fmt.Errorf("achievement %d: decode criterion: %w", a.ID, err)
	}
	if !c.Type.Valid() {
		return c, fmt.Errorf("achievement %d: unknown criterion type %q", a.ID, c.Type)
	}
	if c.Subject != "" && !c.Subject.Valid() {
		return c, fmt.Errorf("achievement %d: unknown subject %q", a.ID, c.Subject)
	}
	switch c.Type {
	case AchievementMilestone:
		switch c.Condition {
		case ConditionFirstQuiz:
		case ConditionMultiSubject, ConditionPerfectScore:
			if c.Value <= 0 {
				return c, fmt.Errorf("achievement %d: %s needs a positive value", a.ID, c.Condition)
			}
		default:
			return c, fmt.Errorf("achievement %d: unknown milestone condition %q", a.ID, c.Condition)
		}
	default:
		if c.Value <= 0 {
			return c, fmt.Errorf("achievement %d: %s needs a positive value", a.ID, c.Type)
		}
	}
	return c, nil
}
