package models

import (
	"fmt"

	"nourish/utils"
)

// GoalTolerancePct is how far macro-derived calories may drift from the
// calorie goal before the user is warned.
const GoalTolerancePct = 15

// Goals holds a user's daily nutrient-intake targets.
type Goals struct {
	DailyCalories float64 `json:"daily_calories"` // e.g. 2000 kcal
	DailyProtein  float64 `json:"daily_protein"`  // g
	DailyCarbs    float64 `json:"daily_carbs"`    // g
	DailyFat      float64 `json:"daily_fat"`      // g
	DailyFiber    float64 `json:"daily_fiber"`    // g
}

// DefaultGoals are the targets a new account starts with.
var DefaultGoals = Goals{
	DailyCalories: 2000,
	DailyProtein:  50,
	DailyCarbs:    275,
	DailyFat:      78,
	DailyFiber:    28,
}

// Validate returns the blocking problems only.
func (g Goals) Validate() FieldErrors {
	errs := FieldErrors{}
	if g.DailyCalories < 1200 || g.DailyCalories > 5000 {
		errs.Add("daily_calories", "Calories must be between 1200 and 5000")
	}
	for field, v := range map[string]float64{
		"daily_protein": g.DailyProtein,
		"daily_carbs":   g.DailyCarbs,
		"daily_fat":     g.DailyFat,
		"daily_fiber":   g.DailyFiber,
	} {
		if !(v >= 0) {
			errs.Add(field, "Must not be negative")
		}
	}
	return errs
}

// MacroCalories is the energy implied by the macro goals.
func (g Goals) MacroCalories() float64 {
	return utils.CaloriesFromMacros(g.DailyProtein, g.DailyCarbs, g.DailyFat)
}

// GoalWarning is a non-blocking mismatch between macros and calories.
type GoalWarning struct {
	MacroCalories float64
	GoalCalories  float64
	DeviationPct  float64
}

func (w GoalWarning) Error() string {
	return fmt.Sprintf("your macro goals (%.0f cals) don't match your calorie goal (%.0f cals)",
		w.MacroCalories, w.GoalCalories)
}

// Balance reports a warning when macro calories deviate from the calorie
// goal by more than GoalTolerancePct. It never blocks an update.
func (g Goals) Balance() *GoalWarning {
	macro := g.MacroCalories()
	dev := utils.Deviation(macro, g.DailyCalories)
	if dev <= GoalTolerancePct {
		return nil
	}
	return &GoalWarning{MacroCalories: macro, GoalCalories: g.DailyCalories, DeviationPct: dev}
}

// Target returns the goal for a nutrient name as used in summaries.
func (g Goals) Target(nutrient string) float64 {
	switch nutrient {
	case NutrientCalories:
		return g.DailyCalories
	case NutrientProtein:
		return g.DailyProtein
	case NutrientCarbs:
		return g.DailyCarbs
	case NutrientFat:
		return g.DailyFat
	case NutrientFiber:
		return g.DailyFiber
	}
	return 0
}
