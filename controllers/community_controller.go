package controllers

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nourish/models"
	"nourish/services"
)

func (s *Server) ListRecipes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	search := strings.TrimSpace(c.Query("search"))
	query := func() *gorm.DB {
		q := s.DB.Model(&models.RecipeRecord{})
		if search != "" {
			q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
		}
		return q
	}
	var total int64
	if err := query().Count(&total).Error; err != nil {
		s.internal(c, err)
		return
	}
	var rows []models.RecipeRecord
	if err := query().Omit("image").Order("created_at DESC, id DESC").
		Offset((page - 1) * perPage).Limit(perPage).Find(&rows).Error; err != nil {
		s.internal(c, err)
		return
	}
	recipes := make([]models.Recipe, 0, len(rows))
	for _, r := range rows {
		recipes = append(recipes, r.ToRecipe())
	}
	c.JSON(http.StatusOK, models.RecipePage{
		Recipes:     recipes,
		Total:       int(total),
		Pages:       int(math.Ceil(float64(total) / float64(perPage))),
		CurrentPage: page,
	})
}

func (s *Server) GetRecipe(c *gin.Context) {
	var row models.RecipeRecord
	if err := s.DB.Omit("image").First(&row, c.Param("id")).Error; err != nil {
		fail(c, http.StatusNotFound, "Recipe not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": row.ToRecipe()})
}

func (s *Server) RecipeImage(c *gin.Context) {
	var row models.RecipeRecord
	if err := s.DB.First(&row, c.Param("id")).Error; err != nil || len(row.Image) == 0 {
		fail(c, http.StatusNotFound, "Image not found")
		return
	}
	c.Data(http.StatusOK, row.ImageType, row.Image)
}

// ShareRecipe accepts multipart form data: a "data" JSON field and an
// optional "image" file.
func (s *Server) ShareRecipe(c *gin.Context) {
	raw := c.PostForm("data")
	var input models.ShareRecipeRequest
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON data")
		return
	}
	if errs := input.Validate(); !errs.Empty() {
		invalid(c, errs)
		return
	}

	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	row := models.RecipeRecord{
		UserID:       user.ID,
		Author:       user.Name,
		Title:        strings.TrimSpace(input.Title),
		Description:  input.Description,
		Instructions: input.Instructions,
	}

	if fh, err := c.FormFile("image"); err == nil {
		if fh.Size > models.MaxImageSize {
			fail(c, http.StatusBadRequest, "File size exceeds 5MB limit")
			return
		}
		ct, ok := models.ImageContentType(fh.Filename)
		if !ok {
			fail(c, http.StatusBadRequest, "Invalid file type. Allowed: png, jpg, jpeg, gif, webp")
			return
		}
		f, err := fh.Open()
		if err != nil {
			s.internal(c, err)
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, models.MaxImageSize+1))
		f.Close()
		if err != nil {
			s.internal(c, err)
			return
		}
		row.ImageName = fh.Filename
		row.ImageType = ct
		row.Image = data
	}

	lines, err := s.resolveLines(user.ID, input.Foods)
	if err != nil {
		s.respondLineError(c, err)
		return
	}
	row.Foods = lines
	if err := s.DB.Create(&row).Error; err != nil {
		s.internal(c, err)
		return
	}
	s.broadcast(user.ID, services.Event{Topic: services.TopicRecipes, Action: services.ActionCreated, ID: row.ID})
	c.JSON(http.StatusCreated, gin.H{"message": "Recipe shared successfully", "recipe": row.ToRecipe()})
}

// ImportRecipe copies a recipe into the caller's saved meals.
func (s *Server) ImportRecipe(c *gin.Context) {
	var recipe models.RecipeRecord
	if err := s.DB.Omit("image").First(&recipe, c.Param("id")).Error; err != nil {
		fail(c, http.StatusNotFound, "Recipe not found")
		return
	}
	uid := userIDFromCtx(c)
	meal := models.SavedMealRecord{
		UserID:      uid,
		Name:        recipe.Title,
		Description: recipe.Description,
		Foods:       recipe.Foods,
	}
	if err := s.DB.Create(&meal).Error; err != nil {
		s.internal(c, err)
		return
	}
	s.broadcast(uid, services.Event{Topic: services.TopicMeals, Action: services.ActionImported, ID: meal.ID})
	c.JSON(http.StatusCreated, gin.H{"message": "Recipe imported to your saved meals", "meal": meal.ToSavedMeal()})
}

func (s *Server) DeleteRecipe(c *gin.Context) {
	uid := userIDFromCtx(c)
	res := s.DB.Where("id = ? AND user_id = ?", c.Param("id"), uid).Delete(&models.RecipeRecord{})
	if res.Error != nil {
		s.internal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		fail(c, http.StatusNotFound, "Recipe not found or you do not have permission")
		return
	}
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	s.broadcast(uid, services.Event{Topic: services.TopicRecipes, Action: services.ActionDeleted, ID: id})
	c.JSON(http.StatusOK, gin.H{"message": "Recipe deleted"})
}

// MealForSharing returns one of the caller's saved meals to pre-fill the
// share form.
func (s *Server) MealForSharing(c *gin.Context) {
	row, ok := s.findMeal(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"meal": row.ToSavedMeal()})
}
