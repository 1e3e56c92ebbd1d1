package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nourish/models"
	"nourish/services"
)

func (s *Server) ListMeals(c *gin.Context) {
	var rows []models.SavedMealRecord
	if err := s.DB.Where("user_id = ?", userIDFromCtx(c)).Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		s.internal(c, err)
		return
	}
	meals := make([]models.SavedMeal, 0, len(rows))
	for _, m := range rows {
		meals = append(meals, m.ToSavedMeal())
	}
	c.JSON(http.StatusOK, gin.H{"meals": meals})
}

// resolveLines recomputes every line's name and macros from its food
// reference so stored meals never carry client-made numbers.
func (s *Server) resolveLines(uid int64, in []models.MealFood) ([]models.MealFood, error) {
	out := make([]models.MealFood, 0, len(in))
	for _, l := range in {
		line, err := s.resolveLine(uid, l.FoodID, l.CustomFoodID, l.Quantity)
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

func (s *Server) CreateMeal(c *gin.Context) {
	var input models.SavedMealRequest
	if !bindJSON(c, &input) {
		return
	}
	if errs := input.Validate(); !errs.Empty() {
		invalid(c, errs)
		return
	}
	uid := userIDFromCtx(c)
	lines, err := s.resolveLines(uid, input.Foods)
	if err != nil {
		s.respondLineError(c, err)
		return
	}
	row := models.SavedMealRecord{
		UserID:      uid,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Foods:       lines,
	}
	if err := s.DB.Create(&row).Error; err != nil {
		s.internal(c, err)
		return
	}
	s.broadcast(uid, services.Event{Topic: services.TopicMeals, Action: services.ActionCreated, ID: row.ID})
	c.JSON(http.StatusCreated, gin.H{"message": "Saved meal created", "meal": row.ToSavedMeal()})
}

func (s *Server) findMeal(c *gin.Context) (models.SavedMealRecord, bool) {
	var row models.SavedMealRecord
	if err := s.DB.Where("id = ? AND user_id = ?", c.Param("id"), userIDFromCtx(c)).First(&row).Error; err != nil {
		fail(c, http.StatusNotFound, "Meal not found")
		return row, false
	}
	return row, true
}

func (s *Server) UpdateMeal(c *gin.Context) {
	row, ok := s.findMeal(c)
	if !ok {
		return
	}
	var input models.SavedMealRequest
	if !bindJSON(c, &input) {
		return
	}
	if errs := input.Validate(); !errs.Empty() {
		invalid(c, errs)
		return
	}
	lines, err := s.resolveLines(row.UserID, input.Foods)
	if err != nil {
		s.respondLineError(c, err)
		return
	}
	row.Name = strings.TrimSpace(input.Name)
	row.Description = input.Description
	row.Foods = lines
	if err := s.DB.Save(&row).Error; err != nil {
		s.internal(c, err)
		return
	}
	s.broadcast(row.UserID, services.Event{Topic: services.TopicMeals, Action: services.ActionUpdated, ID: row.ID})
	c.JSON(http.StatusOK, gin.H{"message": "Saved meal updated", "meal": row.ToSavedMeal()})
}

func (s *Server) DeleteMeal(c *gin.Context) {
	row, ok := s.findMeal(c)
	if !ok {
		return
	}
	if err := s.DB.Delete(&row).Error; err != nil {
		s.internal(c, err)
		return
	}
	s.broadcast(row.UserID, services.Event{Topic: services.TopicMeals, Action: services.ActionDeleted, ID: row.ID})
	c.JSON(http.StatusOK, gin.H{"message": "Meal deleted"})
}

// AddMealToDay logs every line of a saved meal, scaled, in one transaction.
func (s *Server) AddMealToDay(c *gin.Context) {
	row, ok := s.findMeal(c)
	if !ok {
		return
	}
	var input models.AddMealRequest
	if !bindJSON(c, &input) {
		return
	}
	errs := models.FieldErrors{}
	if _, err := models.ParseDate(input.Date); err != nil {
		errs.Add("date", "Date must be in YYYY-MM-DD format")
	}
	if !input.MealType.Valid() {
		errs.Add("meal_type", "Must be one of: breakfast, lunch, dinner, snacks.")
	}
	if input.Scale < 0 {
		errs.Add("scale", "Portion must be greater than 0")
	}
	if !errs.Empty() {
		invalid(c, errs)
		return
	}
	scale := input.Scale
	if scale == 0 {
		scale = 1
	}

	saved := row.ToSavedMeal()
	reqs := saved.Scale(scale).Entries(input.Date, input.MealType)
	created := make([]models.Entry, 0, len(reqs))
	tx := s.DB.Begin()
	srv := *s
	srv.DB = tx
	for _, req := range reqs {
		e, err := srv.createEntry(row.UserID, req)
		if err != nil {
			tx.Rollback()
			s.respondLineError(c, err)
			return
		}
		created = append(created, e.ToEntry())
	}
	if err := tx.Commit().Error; err != nil {
		s.internal(c, err)
		return
	}
	s.broadcast(row.UserID, services.Event{Topic: services.TopicEntries, Action: services.ActionCreated, Date: input.Date})
	c.JSON(http.StatusCreated, gin.H{"message": "Meal added to " + string(input.MealType), "entries": created})
}
