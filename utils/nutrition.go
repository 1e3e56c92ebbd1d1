package utils

import "math"

// Energy density in kcal per gram.
const (
	KcalPerGramProtein = 4
	KcalPerGramCarbs   = 4
	KcalPerGramFat     = 9
)

// CaloriesFromMacros returns the 4/4/9 energy of the given grams.
func CaloriesFromMacros(protein, carbs, fat float64) float64 {
	return protein*KcalPerGramProtein + carbs*KcalPerGramCarbs + fat*KcalPerGramFat
}

// Deviation returns |actual-target| as a percentage of target.
func Deviation(actual, target float64) float64 {
	if target == 0 {
		return 0
	}
	return math.Abs(actual-target) / target * 100
}

// Percentage returns value/total as a whole percentage, 0 when total is 0.
func Percentage(value, total float64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(value / total * 100))
}

// RoundTo rounds v to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// MacroStatus buckets goal progress for display.
func MacroStatus(pct float64) string {
	switch {
	case pct < 50:
		return "low"
	case pct < 90:
		return "medium"
	case pct <= 110:
		return "good"
	default:
		return "high"
	}
}

// MacroSplit returns the share of calories from protein, carbs and fat.
func MacroSplit(protein, carbs, fat float64) (p, c, f int) {
	total := CaloriesFromMacros(protein, carbs, fat)
	if total == 0 {
		return 0, 0, 0
	}
	return Percentage(protein*KcalPerGramProtein, total),
		Percentage(carbs*KcalPerGramCarbs, total),
		Percentage(fat*KcalPerGramFat, total)
}
