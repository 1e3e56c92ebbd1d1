package models

import (
	"fmt"
	"math"
	"strings"
)

// MealFood is one line of a saved meal or recipe, with the macro snapshot
// for its quantity.
type MealFood struct {
	FoodID       *int64  `json:"food_id,omitempty"`
	CustomFoodID *int64  `json:"custom_food_id,omitempty"`
	Name         string  `json:"name"`
	Quantity     float64 `json:"quantity"`
	Macros
}

// WithQuantity returns the line re-proportioned to q grams.
func (f MealFood) WithQuantity(q float64) (MealFood, error) {
	if !(q > 0) {
		return f, fmt.Errorf("quantity must be greater than 0")
	}
	if f.Quantity <= 0 {
		return f, fmt.Errorf("line %q has no quantity to scale from", f.Name)
	}
	out := f
	out.Macros = f.Macros.Scale(q / f.Quantity)
	out.Quantity = q
	return out, nil
}

// SavedMeal is a reusable meal template.
type SavedMeal struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Foods         []MealFood `json:"foods"`
	TotalCalories float64    `json:"total_calories"`
	TotalProtein  float64    `json:"total_protein"`
	TotalCarbs    float64    `json:"total_carbs"`
	TotalFat      float64    `json:"total_fat"`
	TotalFiber    float64    `json:"total_fiber"`
}

// Totals returns the aggregate as reported by the backend.
func (m SavedMeal) Totals() Macros {
	return Macros{
		Calories: m.TotalCalories,
		Protein:  m.TotalProtein,
		Carbs:    m.TotalCarbs,
		Fat:      m.TotalFat,
		Fiber:    m.TotalFiber,
	}
}

// ScaledMeal is a derived, never persisted, portion of a saved meal.
type ScaledMeal struct {
	MealID int64
	Name   string
	Factor float64
	Foods  []MealFood
	Totals Macros
}

// PortionFactor converts a portion percentage (100 = the whole meal) into a
// scale factor.
func PortionFactor(pct float64) (float64, error) {
	if !(pct > 0) || math.IsInf(pct, 1) {
		return 0, fmt.Errorf("portion must be a finite number greater than 0%%, got %v", pct)
	}
	return pct / 100, nil
}

// Scale multiplies every line and the aggregate by f. Totals are the sum
// of the scaled lines, not the stored totals scaled, so an edited template
// stays consistent.
func (m SavedMeal) Scale(f float64) ScaledMeal {
	out := ScaledMeal{
		MealID: m.ID,
		Name:   m.Name,
		Factor: f,
		Foods:  make([]MealFood, len(m.Foods)),
	}
	for i, line := range m.Foods {
		scaled := line
		scaled.Quantity = line.Quantity * f
		scaled.Macros = line.Macros.Scale(f)
		out.Foods[i] = scaled
		out.Totals = out.Totals.Add(scaled.Macros)
	}
	return out
}

// Entries expands the scaled meal into one diary entry request per line.
func (s ScaledMeal) Entries(date string, meal MealType) []EntryRequest {
	out := make([]EntryRequest, 0, len(s.Foods))
	for _, line := range s.Foods {
		out = append(out, EntryRequest{
			FoodID:       line.FoodID,
			CustomFoodID: line.CustomFoodID,
			MealType:     meal,
			Quantity:     line.Quantity,
			Date:         date,
		})
	}
	return out
}

// SavedMealRequest is the body of POST /meals and PUT /meals/{id}.
type SavedMealRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Foods       []MealFood `json:"foods"`
}

func (r SavedMealRequest) Validate() FieldErrors {
	errs := FieldErrors{}
	name := strings.TrimSpace(r.Name)
	if len(name) < 2 || len(name) > 100 {
		errs.Add("name", "Meal name must be between 2 and 100 characters")
	}
	if len(r.Description) > 500 {
		errs.Add("description", "Longer than maximum length 500.")
	}
	if len(r.Foods) == 0 {
		errs.Add("foods", "At least one food item is required")
	}
	for i, f := range r.Foods {
		field := fmt.Sprintf("foods.%d", i)
		validateFoodRef(errs, field, f.FoodID, f.CustomFoodID)
		validateQuantity(errs, field, f.Quantity)
	}
	return errs
}

// TemplateFromEntries turns a logged meal into a saved-meal request.
func TemplateFromEntries(name, description string, entries []Entry) SavedMealRequest {
	req := SavedMealRequest{Name: name, Description: description}
	for _, e := range entries {
		req.Foods = append(req.Foods, MealFood{
			FoodID:       e.FoodID,
			CustomFoodID: e.CustomFoodID,
			Name:         e.Name,
			Quantity:     e.Quantity,
			Macros:       e.Macros,
		})
	}
	return req
}

// AddMealRequest is the body of POST /meals/{id}/add.
type AddMealRequest struct {
	Date     string   `json:"date"`
	MealType MealType `json:"meal_type"`
	Scale    float64  `json:"scale,omitempty"`
}
