package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"nourish/models"
	"nourish/services"
)

const searchLimit = 20

// SearchFoods merges catalog, custom and external matches.
func (s *Server) SearchFoods(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if len(q) < 2 {
		c.JSON(http.StatusOK, gin.H{"results": []models.Food{}})
		return
	}
	like := "%" + strings.ToLower(q) + "%"
	results := []models.Food{}

	var custom []models.CustomFoodRecord
	if err := s.DB.Where("user_id = ? AND LOWER(name) LIKE ?", userIDFromCtx(c), like).
		Order("name").Limit(searchLimit).Find(&custom).Error; err != nil {
		s.internal(c, err)
		return
	}
	for _, f := range custom {
		results = append(results, f.ToFood())
	}

	var catalog []models.FoodRecord
	if err := s.DB.Where("LOWER(name) LIKE ?", like).Order("name").Limit(searchLimit).Find(&catalog).Error; err != nil {
		s.internal(c, err)
		return
	}
	for _, f := range catalog {
		results = append(results, f.ToFood())
	}

	for _, f := range s.External {
		if strings.Contains(strings.ToLower(f.Name), strings.ToLower(q)) {
			results = append(results, f)
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) GetFood(c *gin.Context) {
	var f models.FoodRecord
	if err := s.DB.First(&f, c.Param("id")).Error; err != nil {
		fail(c, http.StatusNotFound, "Food not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"food": f.ToFood()})
}

func (s *Server) FoodNutrition(c *gin.Context) {
	var f models.FoodRecord
	if err := s.DB.First(&f, c.Param("id")).Error; err != nil {
		fail(c, http.StatusNotFound, "Food not found")
		return
	}
	qty := 100.0
	if v := c.Query("quantity"); v != "" {
		q, err := strconv.ParseFloat(v, 64)
		if err != nil || q <= 0 {
			fail(c, http.StatusBadRequest, "Invalid quantity")
			return
		}
		qty = q
	}
	c.JSON(http.StatusOK, models.FoodNutrition{
		FoodID:   models.FoodIDFromInt(f.ID),
		Quantity: qty,
		Macros:   roundMacros(f.Macros.Scale(qty / 100)),
	})
}

func (s *Server) ListCustomFoods(c *gin.Context) {
	var rows []models.CustomFoodRecord
	if err := s.DB.Where("user_id = ?", userIDFromCtx(c)).Order("name").Find(&rows).Error; err != nil {
		s.internal(c, err)
		return
	}
	foods := make([]models.Food, 0, len(rows))
	for _, f := range rows {
		foods = append(foods, f.ToFood())
	}
	c.JSON(http.StatusOK, gin.H{"foods": foods})
}

func (s *Server) CreateCustomFood(c *gin.Context) {
	var input models.CustomFoodRequest
	if !bindJSON(c, &input) {
		return
	}
	if errs := input.Validate(); !errs.Empty() {
		invalid(c, errs)
		return
	}
	uid := userIDFromCtx(c)
	row := models.CustomFoodRecord{
		UserID:      uid,
		Name:        strings.TrimSpace(input.Name),
		Brand:       input.Brand,
		ServingSize: input.ServingSize,
		Macros: models.Macros{
			Calories: input.Calories,
			Protein:  input.Protein,
			Carbs:    input.Carbs,
			Fat:      input.Fat,
			Fiber:    input.Fiber,
		},
	}
	if err := s.DB.Create(&row).Error; err != nil {
		s.internal(c, err)
		return
	}
	s.broadcast(uid, services.Event{Topic: services.TopicFoods, Action: services.ActionCreated, ID: row.ID})
	c.JSON(http.StatusCreated, gin.H{"message": "Custom food created", "food": row.ToFood()})
}

// DeleteCustomFood only deletes the caller's own food; anything else is
// reported as missing.
func (s *Server) DeleteCustomFood(c *gin.Context) {
	uid := userIDFromCtx(c)
	res := s.DB.Where("id = ? AND user_id = ?", c.Param("id"), uid).Delete(&models.CustomFoodRecord{})
	if res.Error != nil {
		s.internal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		fail(c, http.StatusNotFound, "Custom food not found")
		return
	}
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	s.broadcast(uid, services.Event{Topic: services.TopicFoods, Action: services.ActionDeleted, ID: id})
	c.JSON(http.StatusOK, gin.H{"message": "Custom food deleted"})
}

// SaveExternalFood copies an external provider hit into the catalog once.
func (s *Server) SaveExternalFood(c *gin.Context) {
	extID := c.Param("id")
	var existing models.FoodRecord
	if err := s.DB.Where("external_id = ?", extID).First(&existing).Error; err == nil {
		c.JSON(http.StatusOK, gin.H{"food": existing.ToFood()})
		return
	}

	var hit *models.Food
	for i := range s.External {
		if string(s.External[i].ID) == extID {
			hit = &s.External[i]
			break
		}
	}
	if hit == nil {
		fail(c, http.StatusNotFound, "Failed to fetch food data")
		return
	}
	row := models.FoodRecord{Name: hit.Name, Brand: hit.Brand, ExternalID: extID, Macros: hit.Macros}
	if err := s.DB.Create(&row).Error; err != nil {
		s.internal(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"food": row.ToFood()})
}
