package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(n int64) *int64 { return &n }

func TestSavedMealScale(t *testing.T) {
	meal := SavedMeal{
		ID:   1,
		Name: "Chicken & rice",
		Foods: []MealFood{
			{FoodID: ptr(3), Name: "Chicken Breast", Quantity: 200, Macros: Macros{Calories: 330, Protein: 62, Fat: 7.2}},
			{FoodID: ptr(4), Name: "White Rice", Quantity: 150, Macros: Macros{Calories: 195, Protein: 4, Carbs: 42}},
		},
		TotalCalories: 525,
	}

	f, err := PortionFactor(50)
	require.NoError(t, err)
	scaled := meal.Scale(f)

	assert.InDelta(t, 262.5, scaled.Totals.Calories, 1e-9)
	assert.InDelta(t, 100, scaled.Foods[0].Quantity, 1e-9)
	assert.InDelta(t, 75, scaled.Foods[1].Quantity, 1e-9)
	assert.InDelta(t, 165, scaled.Foods[0].Calories, 1e-9)
	assert.Equal(t, 200.0, meal.Foods[0].Quantity, "scaling never mutates the template")

	reqs := scaled.Entries("2024-05-01", Dinner)
	require.Len(t, reqs, 2)
	for _, r := range reqs {
		assert.Empty(t, r.Validate())
	}

	for _, pct := range []float64{0, -50, math.NaN(), math.Inf(1)} {
		_, err = PortionFactor(pct)
		assert.Error(t, err, "portion %v", pct)
	}
}

func TestMealFoodWithQuantity(t *testing.T) {
	line := MealFood{Name: "Oats", Quantity: 50, Macros: Macros{Calories: 190}}
	got, err := line.WithQuantity(100)
	require.NoError(t, err)
	assert.InDelta(t, 380, got.Calories, 1e-9)

	_, err = line.WithQuantity(0)
	assert.Error(t, err)
	_, err = line.WithQuantity(math.NaN())
	assert.Error(t, err)
}

func TestQuantityRejectsNaN(t *testing.T) {
	req := EntryRequest{FoodID: ptr(1), MealType: Lunch, Quantity: math.NaN(), Date: "2024-05-01"}
	errs := req.Validate()
	assert.Equal(t, "Quantity must be a positive number", errs.First("quantity"))

	nan := math.NaN()
	update := EntryUpdate{Quantity: &nan}
	assert.Equal(t, "Quantity must be a positive number", update.Validate().First("quantity"))
}

func TestEntryRequestFoodReference(t *testing.T) {
	base := EntryRequest{MealType: Breakfast, Quantity: 100, Date: "2024-05-01"}

	tests := []struct {
		name     string
		food     *int64
		custom   *int64
		wantErrs bool
	}{
		{"catalog", ptr(1), nil, false},
		{"custom", nil, ptr(2), false},
		{"neither", nil, nil, true},
		{"both", ptr(1), ptr(2), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			req.FoodID, req.CustomFoodID = tt.food, tt.custom
			errs := req.Validate()
			assert.Equal(t, tt.wantErrs, !errs.Empty())
			if tt.wantErrs {
				assert.NotEmpty(t, errs.First("_schema"))
			}
		})
	}

	bad := EntryRequest{FoodID: ptr(1), MealType: "brunch", Quantity: 6000, Date: "05/01/2024"}
	assert.ElementsMatch(t, []string{"meal_type", "quantity", "date"}, bad.Validate().Fields())
}

func TestSavedMealRequestValidate(t *testing.T) {
	req := SavedMealRequest{
		Name:  "X",
		Foods: []MealFood{{Quantity: 10}, {FoodID: ptr(1), Quantity: -1}},
	}
	errs := req.Validate()
	assert.ElementsMatch(t, []string{"name", "foods.0", "foods.1"}, errs.Fields())
}

func TestGoals(t *testing.T) {
	assert.True(t, DefaultGoals.Validate().Empty())

	low := DefaultGoals
	low.DailyCalories = 1000
	assert.Equal(t, []string{"daily_calories"}, low.Validate().Fields())

	// 150*4 + 200*4 + 67*9 = 2003
	balanced := Goals{DailyCalories: 2000, DailyProtein: 150, DailyCarbs: 200, DailyFat: 67}
	assert.Nil(t, balanced.Balance())

	skewed := Goals{DailyCalories: 3000, DailyProtein: 100, DailyCarbs: 200, DailyFat: 50}
	w := skewed.Balance()
	require.NotNil(t, w)
	assert.InDelta(t, 1650, w.MacroCalories, 1e-9)
	assert.Contains(t, w.Error(), "1650")
	assert.True(t, skewed.Validate().Empty(), "a mismatch only warns")
}

func TestFoodIDJSON(t *testing.T) {
	var foods []Food
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id": 12, "name": "Apple", "calories": 52},
		{"id": "spoon_9003", "name": "Apple Pie", "type": "spoonacular"},
		{"id": 4, "name": "Bar", "type": "custom"}
	]`), &foods))

	assert.Equal(t, SourceCatalog, foods[0].Source())
	assert.Equal(t, SourceExternal, foods[1].Source())
	assert.Equal(t, SourceCustom, foods[2].Source())

	n, ok := foods[0].ID.Int()
	assert.True(t, ok)
	assert.Equal(t, int64(12), n)
	_, ok = foods[1].ID.Int()
	assert.False(t, ok)

	raw, err := json.Marshal(foods[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "12", string(raw))
}

func TestDayEntries(t *testing.T) {
	var day DayEntries
	require.NoError(t, json.Unmarshal([]byte(`{
		"breakfast": [{"id": 1, "calories": 100, "protein": 5}, {"id": 2, "calories": 50}],
		"lunch": [], "dinner": [], "snacks": []
	}`), &day))

	assert.Equal(t, 2, day.Count())
	assert.InDelta(t, 150, day.Totals(Breakfast).Calories, 1e-9)
	assert.NotNil(t, day.Meal(Lunch))
	assert.Len(t, TemplateFromEntries("Usual", "", day.Meal(Breakfast)).Foods, 2)
}

func TestParseMealType(t *testing.T) {
	mt, err := ParseMealType("Snack")
	require.NoError(t, err)
	assert.Equal(t, Snacks, mt)
	assert.Equal(t, "Snacks", mt.Title())

	_, err = ParseMealType("brunch")
	assert.Error(t, err)
}

func TestWeekProgress(t *testing.T) {
	wed := time.Date(2024, 5, 1, 15, 4, 0, 0, time.UTC)
	start := WeekStart(wed)
	assert.Equal(t, time.Date(2024, 4, 28, 0, 0, 0, 0, time.UTC), start)

	week := WeekProgress{Start: start, Days: make([]DayProgress, 7)}
	week.Days[0].Nutrients = map[string]NutrientProgress{NutrientCalories: {Consumed: 1800}}
	week.Days[3].Nutrients = map[string]NutrientProgress{NutrientCalories: {Consumed: 2100}}

	assert.InDelta(t, 1950, week.Average(NutrientCalories), 1e-9)
	assert.InDelta(t, 3900, week.Total(NutrientCalories), 1e-9)
	assert.Equal(t, 29, week.Compliance())
}

func TestRegisterAndShareValidation(t *testing.T) {
	ok := RegisterRequest{Email: "a@b.co", Name: "Ada", Password: "password1", ConfirmPassword: "password1"}
	assert.True(t, ok.Validate().Empty())

	share := ShareRecipeRequest{Title: " ", Instructions: "stir"}
	assert.ElementsMatch(t, []string{"title", "instructions", "foods"}, share.Validate().Fields())

	ct, allowed := ImageContentType("Photo.JPG")
	assert.True(t, allowed)
	assert.Equal(t, "image/jpeg", ct)
	_, allowed = ImageContentType("doc.pdf")
	assert.False(t, allowed)
}

func TestCustomFoodRequestValidate(t *testing.T) {
	req := CustomFoodRequest{Name: "B", ServingSize: 0, Calories: -1}
	assert.ElementsMatch(t, []string{"name", "serving_size", "calories"}, req.Validate().Fields())
}
