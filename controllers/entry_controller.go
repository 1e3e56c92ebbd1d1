package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nourish/models"
	"nourish/services"
)

func (s *Server) CreateEntry(c *gin.Context) {
	var input models.EntryRequest
	if !bindJSON(c, &input) {
		return
	}
	if errs := input.Validate(); !errs.Empty() {
		invalid(c, errs)
		return
	}
	uid := userIDFromCtx(c)
	entry, err := s.createEntry(uid, input)
	if err != nil {
		s.respondLineError(c, err)
		return
	}
	s.broadcast(uid, services.Event{Topic: services.TopicEntries, Action: services.ActionCreated, ID: entry.ID, Date: entry.Date})
	c.JSON(http.StatusCreated, gin.H{"message": "Entry created", "entry": entry.ToEntry()})
}

func (s *Server) createEntry(uid int64, input models.EntryRequest) (*models.EntryRecord, error) {
	line, err := s.resolveLine(uid, input.FoodID, input.CustomFoodID, input.Quantity)
	if err != nil {
		return nil, err
	}
	row := models.EntryRecord{
		UserID:       uid,
		Date:         input.Date,
		FoodID:       input.FoodID,
		CustomFoodID: input.CustomFoodID,
		Name:         line.Name,
		MealType:     input.MealType,
		Quantity:     input.Quantity,
		Macros:       line.Macros,
	}
	if err := s.DB.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListEntries groups a day's entries by meal slot. Every slot is present.
func (s *Server) ListEntries(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		fail(c, http.StatusBadRequest, "Date parameter required")
		return
	}
	if _, err := models.ParseDate(date); err != nil {
		fail(c, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD")
		return
	}
	rows, err := s.entriesOn(userIDFromCtx(c), date)
	if err != nil {
		s.internal(c, err)
		return
	}
	out := models.DayEntries{}
	for _, t := range models.MealTypes {
		out[t] = []models.Entry{}
	}
	for _, r := range rows {
		out[r.MealType] = append(out[r.MealType], r.ToEntry())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) entriesOn(uid int64, date string) ([]models.EntryRecord, error) {
	var rows []models.EntryRecord
	err := s.DB.Where("user_id = ? AND date = ?", uid, date).Order("id").Find(&rows).Error
	return rows, err
}

func (s *Server) findEntry(c *gin.Context) (models.EntryRecord, bool) {
	var row models.EntryRecord
	if err := s.DB.Where("id = ? AND user_id = ?", c.Param("id"), userIDFromCtx(c)).First(&row).Error; err != nil {
		fail(c, http.StatusNotFound, "Entry not found")
		return row, false
	}
	return row, true
}

func (s *Server) UpdateEntry(c *gin.Context) {
	row, ok := s.findEntry(c)
	if !ok {
		return
	}
	var input models.EntryUpdate
	if !bindJSON(c, &input) {
		return
	}
	if errs := input.Validate(); !errs.Empty() {
		invalid(c, errs)
		return
	}
	if input.MealType != "" {
		row.MealType = input.MealType
	}
	if input.Quantity != nil {
		line, err := s.resolveLine(row.UserID, row.FoodID, row.CustomFoodID, *input.Quantity)
		if err != nil {
			s.respondLineError(c, err)
			return
		}
		row.Quantity = *input.Quantity
		row.Macros = line.Macros
	}
	if err := s.DB.Save(&row).Error; err != nil {
		s.internal(c, err)
		return
	}
	s.broadcast(row.UserID, services.Event{Topic: services.TopicEntries, Action: services.ActionUpdated, ID: row.ID, Date: row.Date})
	c.JSON(http.StatusOK, gin.H{"message": "Entry updated", "entry": row.ToEntry()})
}

func (s *Server) DeleteEntry(c *gin.Context) {
	row, ok := s.findEntry(c)
	if !ok {
		return
	}
	if err := s.DB.Delete(&row).Error; err != nil {
		s.internal(c, err)
		return
	}
	s.broadcast(row.UserID, services.Event{Topic: services.TopicEntries, Action: services.ActionDeleted, ID: row.ID, Date: row.Date})
	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted"})
}
