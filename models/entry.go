package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of every date the backend accepts.
const DateLayout = "2006-01-02"

// MaxQuantity is the largest single-line quantity in grams the backend accepts.
const MaxQuantity = 5000

// MealType is the diary slot an entry is filed under.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snacks    MealType = "snacks"
)

// MealTypes lists the slots in display order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner, Snacks}

// ParseMealType accepts any casing and the singular "snack".
func ParseMealType(s string) (MealType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "breakfast":
		return Breakfast, nil
	case "lunch":
		return Lunch, nil
	case "dinner":
		return Dinner, nil
	case "snack", "snacks":
		return Snacks, nil
	}
	return "", fmt.Errorf("unknown meal type %q", s)
}

func (m MealType) Valid() bool {
	for _, t := range MealTypes {
		if m == t {
			return true
		}
	}
	return false
}

// Title returns the capitalized label, e.g. "Breakfast".
func (m MealType) Title() string {
	if m == "" {
		return ""
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:])
}

// FormatDate renders t in the backend date layout.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be in YYYY-MM-DD format: %q", s)
	}
	return t, nil
}

// Entry is one logged food in the diary. Macros are a snapshot computed
// by the backend from the quantity.
type Entry struct {
	ID           int64    `json:"id"`
	FoodID       *int64   `json:"food_id"`
	CustomFoodID *int64   `json:"custom_food_id"`
	Name         string   `json:"name"`
	Date         string   `json:"date"`
	MealType     MealType `json:"meal_type"`
	Quantity     float64  `json:"quantity"`
	Macros
}

// EntryRequest is the body of POST /entries.
type EntryRequest struct {
	FoodID       *int64   `json:"food_id,omitempty"`
	CustomFoodID *int64   `json:"custom_food_id,omitempty"`
	MealType     MealType `json:"meal_type"`
	Quantity     float64  `json:"quantity"`
	Date         string   `json:"date"`
}

// Validate enforces the food reference invariant (exactly one of food id
// and custom food id) along with the basic field checks.
func (r EntryRequest) Validate() FieldErrors {
	errs := FieldErrors{}
	validateFoodRef(errs, "_schema", r.FoodID, r.CustomFoodID)
	if !r.MealType.Valid() {
		errs.Add("meal_type", "Must be one of: breakfast, lunch, dinner, snacks.")
	}
	validateQuantity(errs, "quantity", r.Quantity)
	if _, err := ParseDate(r.Date); err != nil {
		errs.Add("date", "Date must be in YYYY-MM-DD format")
	}
	return errs
}

// EntryUpdate is the body of PUT /entries/{id}. Nil fields are left alone.
type EntryUpdate struct {
	Quantity *float64 `json:"quantity,omitempty"`
	MealType MealType `json:"meal_type,omitempty"`
}

func (u EntryUpdate) Validate() FieldErrors {
	errs := FieldErrors{}
	if u.Quantity == nil && u.MealType == "" {
		errs.Add("_schema", "At least one field must be provided for update")
	}
	if u.Quantity != nil {
		validateQuantity(errs, "quantity", *u.Quantity)
	}
	if u.MealType != "" && !u.MealType.Valid() {
		errs.Add("meal_type", "Must be one of: breakfast, lunch, dinner, snacks.")
	}
	return errs
}

// DayEntries is the GET /entries response: entries grouped by meal slot.
type DayEntries map[MealType][]Entry

// Meal returns the entries for one slot, never nil.
func (d DayEntries) Meal(t MealType) []Entry {
	if es := d[t]; es != nil {
		return es
	}
	return []Entry{}
}

// Totals sums the macros of a slot.
func (d DayEntries) Totals(t MealType) Macros {
	var total Macros
	for _, e := range d[t] {
		total = total.Add(e.Macros)
	}
	return total
}

// Count returns the number of entries across all slots.
func (d DayEntries) Count() int {
	n := 0
	for _, es := range d {
		n += len(es)
	}
	return n
}

func validateFoodRef(errs FieldErrors, field string, foodID, customFoodID *int64) {
	switch {
	case foodID == nil && customFoodID == nil:
		errs.Add(field, "Either food_id or custom_food_id must be provided")
	case foodID != nil && customFoodID != nil:
		errs.Add(field, "Only one of food_id or custom_food_id should be provided")
	}
}

func validateQuantity(errs FieldErrors, field string, q float64) {
	if !(q > 0) {
		errs.Add(field, "Quantity must be a positive number")
	} else if q > MaxQuantity {
		errs.Add(field, "Quantity cannot exceed 5000g")
	}
}
