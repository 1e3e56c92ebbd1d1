package models

import "time"

// Rows of the dev backend database. Each converts to the wire type the
// client decodes.

type UserRecord struct {
	ID           int64  `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	Name         string
	PasswordHash string `gorm:"not null"`
	Goals        `gorm:"embedded"`
	CreatedAt    time.Time
}

func (u UserRecord) ToUser() User {
	return User{ID: u.ID, Email: u.Email, Username: u.Name, Name: u.Name, Goals: u.Goals}
}

// FoodRecord is a catalog food. Macros are per 100 g. ExternalID is set for
// foods copied from an external provider.
type FoodRecord struct {
	ID         int64  `gorm:"primaryKey"`
	Name       string `gorm:"index;not null"`
	Brand      string
	ExternalID string `gorm:"index"`
	Macros     `gorm:"embedded"`
}

func (f FoodRecord) ToFood() Food {
	return Food{ID: FoodID(itoa(f.ID)), Name: f.Name, Brand: f.Brand, ServingSize: 100, Per: "100g", Macros: f.Macros}
}

// CustomFoodRecord is a user-owned food. Macros are per ServingSize grams.
type CustomFoodRecord struct {
	ID          int64  `gorm:"primaryKey"`
	UserID      int64  `gorm:"index;not null"`
	Name        string `gorm:"not null"`
	Brand       string
	ServingSize float64 `gorm:"not null"`
	Macros      `gorm:"embedded"`
	CreatedAt   time.Time
}

func (f CustomFoodRecord) ToFood() Food {
	return Food{
		ID:          FoodID(itoa(f.ID)),
		Name:        f.Name,
		Brand:       f.Brand,
		Type:        string(SourceCustom),
		ServingSize: f.ServingSize,
		Per:         ftoa(f.ServingSize) + "g",
		Macros:      f.Macros,
	}
}

type EntryRecord struct {
	ID           int64  `gorm:"primaryKey"`
	UserID       int64  `gorm:"index:idx_entry_user_date;not null"`
	Date         string `gorm:"index:idx_entry_user_date;size:10;not null"`
	FoodID       *int64
	CustomFoodID *int64
	Name         string
	MealType     MealType `gorm:"size:16;not null"`
	Quantity     float64
	Macros       `gorm:"embedded"`
	CreatedAt    time.Time
}

func (e EntryRecord) ToEntry() Entry {
	return Entry{
		ID:           e.ID,
		FoodID:       e.FoodID,
		CustomFoodID: e.CustomFoodID,
		Name:         e.Name,
		Date:         e.Date,
		MealType:     e.MealType,
		Quantity:     e.Quantity,
		Macros:       e.Macros,
	}
}

type SavedMealRecord struct {
	ID          int64  `gorm:"primaryKey"`
	UserID      int64  `gorm:"index;not null"`
	Name        string `gorm:"not null"`
	Description string
	Foods       []MealFood `gorm:"serializer:json;type:text"`
	CreatedAt   time.Time
}

func (m SavedMealRecord) ToSavedMeal() SavedMeal {
	total := lineTotals(m.Foods)
	return SavedMeal{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		Foods:         m.Foods,
		TotalCalories: total.Calories,
		TotalProtein:  total.Protein,
		TotalCarbs:    total.Carbs,
		TotalFat:      total.Fat,
		TotalFiber:    total.Fiber,
	}
}

type RecipeRecord struct {
	ID           int64 `gorm:"primaryKey"`
	UserID       int64 `gorm:"index;not null"`
	Author       string
	Title        string `gorm:"index;not null"`
	Description  string
	Instructions string
	Foods        []MealFood `gorm:"serializer:json;type:text"`
	ImageName    string
	ImageType    string
	Image        []byte
	CreatedAt    time.Time
}

func (r RecipeRecord) ToRecipe() Recipe {
	total := lineTotals(r.Foods)
	return Recipe{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Instructions:  r.Instructions,
		ImageFilename: r.ImageName,
		Foods:         r.Foods,
		TotalCalories: total.Calories,
		TotalProtein:  total.Protein,
		TotalCarbs:    total.Carbs,
		TotalFat:      total.Fat,
		TotalFiber:    total.Fiber,
		UserID:        r.UserID,
		Author:        r.Author,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// BackendTables lists every dev backend table for migration.
var BackendTables = []any{
	&UserRecord{},
	&FoodRecord{},
	&CustomFoodRecord{},
	&EntryRecord{},
	&SavedMealRecord{},
	&RecipeRecord{},
}

func lineTotals(lines []MealFood) Macros {
	var total Macros
	for _, l := range lines {
		total = total.Add(l.Macros)
	}
	return total
}
