package models

import (
	"path/filepath"
	"strings"
)

// MaxImageSize is the upload limit for recipe images.
const MaxImageSize = 5 * 1024 * 1024

var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ImageContentType returns the mime type for an allowed image filename.
func ImageContentType(filename string) (string, bool) {
	ct, ok := imageExtensions[strings.ToLower(filepath.Ext(filename))]
	return ct, ok
}

// Recipe is a community recipe shared by a user.
type Recipe struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Instructions  string     `json:"instructions"`
	ImageFilename string     `json:"image_filename,omitempty"`
	Foods         []MealFood `json:"foods"`
	TotalCalories float64    `json:"total_calories"`
	TotalProtein  float64    `json:"total_protein"`
	TotalCarbs    float64    `json:"total_carbs"`
	TotalFat      float64    `json:"total_fat"`
	TotalFiber    float64    `json:"total_fiber"`
	UserID        int64      `json:"user_id"`
	Author        string     `json:"author,omitempty"`
	CreatedAt     string     `json:"created_at,omitempty"`
}

// HasImage reports whether the recipe has an uploaded image.
func (r Recipe) HasImage() bool { return r.ImageFilename != "" }

// RecipePage is one page of GET /community/recipes.
type RecipePage struct {
	Recipes     []Recipe `json:"recipes"`
	Total       int      `json:"total"`
	Pages       int      `json:"pages"`
	CurrentPage int      `json:"current_page"`
}

// HasNext reports whether a later page exists.
func (p RecipePage) HasNext() bool { return p.CurrentPage < p.Pages }

// ShareRecipeRequest is the JSON "data" part of the multipart share call.
type ShareRecipeRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Instructions string     `json:"instructions"`
	Foods        []MealFood `json:"foods"`
}

func (r ShareRecipeRequest) Validate() FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(r.Title) == "" {
		errs.Add("title", "Title is required")
	}
	switch {
	case strings.TrimSpace(r.Instructions) == "":
		errs.Add("instructions", "Instructions are required")
	case len(r.Instructions) < 10:
		errs.Add("instructions", "Instructions must be at least 10 characters")
	}
	if len(r.Foods) == 0 {
		errs.Add("foods", "At least one food item is required")
	}
	return errs
}

// RecipeFromMeal pre-fills a share request from a saved meal.
func RecipeFromMeal(m SavedMeal, instructions string) ShareRecipeRequest {
	return ShareRecipeRequest{
		Title:        m.Name,
		Description:  m.Description,
		Instructions: instructions,
		Foods:        m.Foods,
	}
}
