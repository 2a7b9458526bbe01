package app

import "github.com/shopspring/decimal"

// roundedRatio returns num/den rounded half away from zero; 0 when den <= 0.
func roundedRatio(num, den int) int {
	if den <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(num)).
		DivRound(decimal.NewFromInt(int64(den)), 0).
		IntPart())
}

// percentOf returns current as a whole percentage of target clamped to [0,100].
func percentOf(current, target int) int {
	if target <= 0 {
		return 0
	}
	p := roundedRatio(current*100, target)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
