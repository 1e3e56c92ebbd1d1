package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nourish/models"
	"nourish/utils"
)

func (s *Server) DailySummary(c *gin.Context) {
	date := c.Param("date")
	if _, err := models.ParseDate(date); err != nil {
		fail(c, http.StatusBadRequest, "Invalid date format")
		return
	}
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	sum, err := s.summarize(user, date)
	if err != nil {
		s.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// WeeklySummary covers the seven days starting at the given date.
func (s *Server) WeeklySummary(c *gin.Context) {
	start, err := models.ParseDate(c.Param("date"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid date format")
		return
	}
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	out := models.WeeklySummary{
		StartDate: models.FormatDate(start),
		EndDate:   models.FormatDate(start.AddDate(0, 0, 6)),
		Averages:  map[string]float64{},
	}
	sums := map[string]float64{}
	for i := 0; i < 7; i++ {
		day, err := s.summarize(user, models.FormatDate(start.AddDate(0, 0, i)))
		if err != nil {
			s.internal(c, err)
			return
		}
		out.Days = append(out.Days, day)
		for n, p := range day.Nutrients {
			sums[n] += p.Consumed
		}
	}
	for _, n := range models.Nutrients {
		out.Averages[n] = utils.RoundTo(sums[n]/7, 1)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) summarize(user models.UserRecord, date string) (models.DailySummary, error) {
	rows, err := s.entriesOn(user.ID, date)
	if err != nil {
		return models.DailySummary{}, err
	}
	var total models.Macros
	for _, r := range rows {
		total = total.Add(r.Macros)
	}
	consumed := map[string]float64{
		models.NutrientCalories: total.Calories,
		models.NutrientProtein:  total.Protein,
		models.NutrientCarbs:    total.Carbs,
		models.NutrientFat:      total.Fat,
		models.NutrientFiber:    total.Fiber,
	}
	out := models.DailySummary{Date: date, Nutrients: map[string]models.NutrientProgress{}}
	for _, n := range models.Nutrients {
		goal := user.Goals.Target(n)
		pct := 0.0
		if goal > 0 {
			pct = utils.RoundTo(consumed[n]/goal*100, 1)
		}
		out.Nutrients[n] = models.NutrientProgress{
			Consumed:   utils.RoundTo(consumed[n], 1),
			Goal:       goal,
			Percentage: pct,
		}
	}
	return out, nil
}
