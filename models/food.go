package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FoodSource tells where a search result came from.
type FoodSource string

const (
	SourceCatalog  FoodSource = "catalog"
	SourceCustom   FoodSource = "custom"
	SourceExternal FoodSource = "external"
)

// External providers prefix their ids so they can't collide with catalog ids.
var externalPrefixes = []string{"spoon_", "usda_"}

// FoodID is a food identifier as sent by the backend: catalog and custom
// foods use integers, external search hits use prefixed strings.
type FoodID string

func (id *FoodID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FoodID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = FoodID(n.String())
	return nil
}

func (id FoodID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

// Int returns the numeric id, or false for external (string) ids.
func (id FoodID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

func (id FoodID) String() string { return string(id) }

// Macros holds the five tracked nutrients.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
}

// Scale multiplies every nutrient by f.
func (m Macros) Scale(f float64) Macros {
	return Macros{
		Calories: m.Calories * f,
		Protein:  m.Protein * f,
		Carbs:    m.Carbs * f,
		Fat:      m.Fat * f,
		Fiber:    m.Fiber * f,
	}
}

// Add returns the nutrient-wise sum.
func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
		Fiber:    m.Fiber + o.Fiber,
	}
}

// Food is a search result or a stored food. Catalog macros are per 100 g,
// custom food macros are per ServingSize grams.
type Food struct {
	ID          FoodID  `json:"id"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand,omitempty"`
	Type        string  `json:"type,omitempty"` // "custom", "spoonacular", "usda" or empty for catalog
	ServingSize float64 `json:"serving_size,omitempty"`
	Per         string  `json:"per,omitempty"`
	Macros
}

// Source classifies the food by provenance.
func (f Food) Source() FoodSource {
	switch strings.ToLower(f.Type) {
	case "custom":
		return SourceCustom
	case "spoonacular", "usda", "external":
		return SourceExternal
	}
	for _, p := range externalPrefixes {
		if strings.HasPrefix(string(f.ID), p) {
			return SourceExternal
		}
	}
	return SourceCatalog
}

// CustomFoodRequest is the body for POST /foods/custom.
type CustomFoodRequest struct {
	Name        string  `json:"name"`
	Brand       string  `json:"brand,omitempty"`
	ServingSize float64 `json:"serving_size"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fat         float64 `json:"fat"`
	Fiber       float64 `json:"fiber"`
}

// Validate runs the form checks done before a custom food is submitted.
func (r CustomFoodRequest) Validate() FieldErrors {
	errs := FieldErrors{}
	name := strings.TrimSpace(r.Name)
	if len(name) < 2 || len(name) > 100 {
		errs.Add("name", "Food name must be between 2 and 100 characters")
	}
	if !(r.ServingSize >= 1 && r.ServingSize <= 2000) {
		errs.Add("serving_size", "Serving size must be between 1 and 2000g")
	}
	for field, v := range map[string]float64{
		"calories": r.Calories,
		"protein":  r.Protein,
		"carbs":    r.Carbs,
		"fat":      r.Fat,
		"fiber":    r.Fiber,
	} {
		if !(v >= 0) {
			errs.Add(field, "Must not be negative")
		}
	}
	return errs
}

// FoodNutrition is the response of GET /foods/{id}/nutrition.
type FoodNutrition struct {
	FoodID   FoodID  `json:"food_id"`
	Quantity float64 `json:"quantity"`
	Macros
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// FoodIDFromInt wraps a numeric id.
func FoodIDFromInt(n int64) FoodID { return FoodID(itoa(n)) }
