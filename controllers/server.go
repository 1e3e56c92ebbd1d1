// Package controllers implements the nutrition backend contract for local
// development and integration tests. State lives in a gorm database, which
// is an in-memory sqlite one for tests and `nourish devserver`.
package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nourish/models"
	"nourish/services"
	"nourish/utils"
)

// Token lifetimes issued by the dev backend.
const (
	AccessTTL  = time.Hour
	RefreshTTL = 30 * 24 * time.Hour
)

// Server holds the dev backend state shared by every handler.
type Server struct {
	DB     *gorm.DB
	Secret []byte
	Hub    *RealtimeHub
	Log    *zap.Logger

	// External stands in for the third-party food providers.
	External []models.Food
}

// NewServer migrates db and seeds the food catalog if it is empty.
func NewServer(db *gorm.DB, secret []byte, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(secret) == 0 {
		return nil, errors.New("dev backend: jwt secret is required")
	}
	if err := db.AutoMigrate(models.BackendTables...); err != nil {
		return nil, fmt.Errorf("dev backend: migrate: %w", err)
	}
	s := &Server{DB: db, Secret: secret, Hub: NewRealtimeHub(log), Log: log, External: externalFoods}
	if err := s.seed(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenMemoryDB opens a private in-memory database.
func OpenMemoryDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	// Every pooled connection would get its own empty memory database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func (s *Server) seed() error {
	var n int64
	if err := s.DB.Model(&models.FoodRecord{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return s.DB.Create(&catalogFoods).Error
}

// Catalog macros are per 100 g.
var catalogFoods = []models.FoodRecord{
	{Name: "Apple", Macros: models.Macros{Calories: 52, Protein: 0.3, Carbs: 14, Fat: 0.2, Fiber: 2.4}},
	{Name: "Banana", Macros: models.Macros{Calories: 89, Protein: 1.1, Carbs: 23, Fat: 0.3, Fiber: 2.6}},
	{Name: "Chicken Breast", Macros: models.Macros{Calories: 165, Protein: 31, Carbs: 0, Fat: 3.6, Fiber: 0}},
	{Name: "White Rice, cooked", Macros: models.Macros{Calories: 130, Protein: 2.7, Carbs: 28, Fat: 0.3, Fiber: 0.4}},
	{Name: "Brown Rice, cooked", Macros: models.Macros{Calories: 112, Protein: 2.3, Carbs: 24, Fat: 0.8, Fiber: 1.8}},
	{Name: "Rolled Oats", Macros: models.Macros{Calories: 379, Protein: 13, Carbs: 68, Fat: 6.5, Fiber: 10}},
	{Name: "Egg", Macros: models.Macros{Calories: 143, Protein: 13, Carbs: 0.7, Fat: 9.5, Fiber: 0}},
	{Name: "Greek Yogurt", Macros: models.Macros{Calories: 59, Protein: 10, Carbs: 3.6, Fat: 0.4, Fiber: 0}},
	{Name: "Broccoli", Macros: models.Macros{Calories: 34, Protein: 2.8, Carbs: 7, Fat: 0.4, Fiber: 2.6}},
	{Name: "Salmon", Macros: models.Macros{Calories: 208, Protein: 20, Carbs: 0, Fat: 13, Fiber: 0}},
	{Name: "Almonds", Macros: models.Macros{Calories: 579, Protein: 21, Carbs: 22, Fat: 50, Fiber: 12.5}},
	{Name: "Whole Milk", Macros: models.Macros{Calories: 61, Protein: 3.2, Carbs: 4.8, Fat: 3.3, Fiber: 0}},
}

var externalFoods = []models.Food{
	{ID: "spoon_9003", Name: "Apple Pie", Type: "spoonacular", Macros: models.Macros{Calories: 237, Protein: 1.9, Carbs: 34, Fat: 11, Fiber: 1.6}},
	{ID: "spoon_1123", Name: "Scrambled Eggs", Type: "spoonacular", Macros: models.Macros{Calories: 149, Protein: 10, Carbs: 1.6, Fat: 11, Fiber: 0}},
	{ID: "usda_171688", Name: "Apples, Raw, With Skin", Type: "usda", Macros: models.Macros{Calories: 52, Protein: 0.26, Carbs: 13.8, Fat: 0.17, Fiber: 2.4}},
	{ID: "usda_173944", Name: "Bananas, Raw", Type: "usda", Macros: models.Macros{Calories: 89, Protein: 1.09, Carbs: 22.8, Fat: 0.33, Fiber: 2.6}},
}

// ---- helpers ----

func userIDFromCtx(c *gin.Context) int64 {
	return c.GetInt64("userID")
}

func (s *Server) broadcast(userID int64, e services.Event) {
	s.Hub.Broadcast(userID, e)
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

func invalid(c *gin.Context, errs models.FieldErrors) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
}

// bindJSON decodes the body and answers 400 on malformed input.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		errs := models.FieldErrors{}
		errs.Add("_schema", "Invalid input data: "+err.Error())
		invalid(c, errs)
		return false
	}
	return true
}

func (s *Server) internal(c *gin.Context, err error) {
	s.Log.Error("handler failed", zap.String("path", c.FullPath()), zap.Error(err))
	fail(c, http.StatusInternalServerError, "Internal server error")
}

func (s *Server) issueTokens(u models.UserRecord) (access, refresh string, err error) {
	access, err = utils.GenerateJWT(s.Secret, u.ID, u.Email, utils.AccessToken, AccessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = utils.GenerateJWT(s.Secret, u.ID, u.Email, utils.RefreshToken, RefreshTTL)
	return access, refresh, err
}

func (s *Server) currentUser(c *gin.Context) (models.UserRecord, bool) {
	var u models.UserRecord
	if err := s.DB.First(&u, userIDFromCtx(c)).Error; err != nil {
		fail(c, http.StatusNotFound, "User not found")
		return u, false
	}
	return u, true
}

// errNotFound is returned by resolveLine when the referenced food is
// missing or owned by someone else.
type errNotFound struct{ what string }

func (e errNotFound) Error() string { return e.what + " not found" }

// resolveLine computes the macro snapshot for quantity grams of a food
// reference: catalog foods are per 100 g, custom foods per serving.
func (s *Server) resolveLine(userID int64, foodID, customFoodID *int64, quantity float64) (models.MealFood, error) {
	line := models.MealFood{FoodID: foodID, CustomFoodID: customFoodID, Quantity: quantity}
	switch {
	case foodID != nil:
		var f models.FoodRecord
		if err := s.DB.First(&f, *foodID).Error; err != nil {
			return line, errNotFound{"Food"}
		}
		line.Name = f.Name
		line.Macros = roundMacros(f.Macros.Scale(quantity / 100))
	case customFoodID != nil:
		var f models.CustomFoodRecord
		if err := s.DB.Where("id = ? AND user_id = ?", *customFoodID, userID).First(&f).Error; err != nil {
			return line, errNotFound{"Custom food"}
		}
		line.Name = f.Name
		line.Macros = roundMacros(f.Macros.Scale(quantity / f.ServingSize))
	default:
		return line, errors.New("either food_id or custom_food_id must be provided")
	}
	return line, nil
}

func roundMacros(m models.Macros) models.Macros {
	return models.Macros{
		Calories: utils.RoundTo(m.Calories, 1),
		Protein:  utils.RoundTo(m.Protein, 1),
		Carbs:    utils.RoundTo(m.Carbs, 1),
		Fat:      utils.RoundTo(m.Fat, 1),
		Fiber:    utils.RoundTo(m.Fiber, 1),
	}
}

// respondLineError maps resolveLine failures to responses.
func (s *Server) respondLineError(c *gin.Context, err error) {
	var nf errNotFound
	if errors.As(err, &nf) {
		fail(c, http.StatusNotFound, nf.Error())
		return
	}
	s.internal(c, err)
}
