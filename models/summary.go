package models

import (
	"time"

	"nourish/utils"
)

// Nutrient keys used in summaries.
const (
	NutrientCalories = "calories"
	NutrientProtein  = "protein"
	NutrientCarbs    = "carbs"
	NutrientFat      = "fat"
	NutrientFiber    = "fiber"
)

// Nutrients lists the summary keys in display order.
var Nutrients = []string{NutrientCalories, NutrientProtein, NutrientCarbs, NutrientFat, NutrientFiber}

// NutrientUnit returns the display unit for a nutrient key.
func NutrientUnit(n string) string {
	if n == NutrientCalories {
		return "cal"
	}
	return "g"
}

// NutrientProgress is consumption against goal for one nutrient.
type NutrientProgress struct {
	Consumed   float64 `json:"consumed"`
	Goal       float64 `json:"goal"`
	Percentage float64 `json:"percentage"`
}

// Status buckets the percentage for display.
func (p NutrientProgress) Status() string { return utils.MacroStatus(p.Percentage) }

// DailySummary is the GET /summary/{date} response.
type DailySummary struct {
	Date      string                      `json:"date"`
	Nutrients map[string]NutrientProgress `json:"nutrients"`
}

// WeeklySummary is the GET /summary/week/{date} response.
type WeeklySummary struct {
	StartDate string             `json:"start_date"`
	EndDate   string             `json:"end_date"`
	Days      []DailySummary     `json:"days"`
	Averages  map[string]float64 `json:"averages"`
}

// DayView is what a dashboard renders for one date.
type DayView struct {
	Date    string
	Summary DailySummary
	Entries DayEntries
}

// DayProgress is one day of a progress week. Nutrients is nil when the
// day's summary could not be loaded.
type DayProgress struct {
	Date      time.Time
	Nutrients map[string]NutrientProgress
}

// WeekProgress is seven consecutive days starting on a Sunday.
type WeekProgress struct {
	Start time.Time
	Days  []DayProgress
}

// Average returns the mean consumption of a nutrient over days that
// loaded, rounded to one decimal.
func (w WeekProgress) Average(nutrient string) float64 {
	var sum float64
	n := 0
	for _, d := range w.Days {
		if d.Nutrients == nil {
			continue
		}
		sum += d.Nutrients[nutrient].Consumed
		n++
	}
	if n == 0 {
		return 0
	}
	return utils.RoundTo(sum/float64(n), 1)
}

// Total returns the summed consumption of a nutrient, rounded to one decimal.
func (w WeekProgress) Total(nutrient string) float64 {
	var sum float64
	for _, d := range w.Days {
		if d.Nutrients != nil {
			sum += d.Nutrients[nutrient].Consumed
		}
	}
	return utils.RoundTo(sum, 1)
}

// Compliance is the share of the week with data, as a whole percentage.
func (w WeekProgress) Compliance() int {
	tracked := 0
	for _, d := range w.Days {
		if d.Nutrients != nil {
			tracked++
		}
	}
	return utils.Percentage(float64(tracked), 7)
}

// WeekStart returns the Sunday on or before t, at midnight.
func WeekStart(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return d.AddDate(0, 0, -int(d.Weekday()))
}
