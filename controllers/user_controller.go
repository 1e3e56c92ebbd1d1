package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nourish/models"
	"nourish/services"
	"nourish/utils"
)

func (s *Server) GetProfile(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user.ToUser())
}

func (s *Server) UpdateProfile(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	var input models.ProfileUpdate
	if !bindJSON(c, &input) {
		return
	}
	if input.Email != "" {
		email := strings.ToLower(strings.TrimSpace(input.Email))
		if !models.ValidEmail(email) {
			errs := models.FieldErrors{}
			errs.Add("email", "Not a valid email address.")
			invalid(c, errs)
			return
		}
		var taken int64
		s.DB.Model(&models.UserRecord{}).Where("email = ? AND id <> ?", email, user.ID).Count(&taken)
		if taken > 0 {
			fail(c, http.StatusConflict, "Email already registered")
			return
		}
		user.Email = email
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		user.Name = name
	}
	if err := s.DB.Save(&user).Error; err != nil {
		s.internal(c, err)
		return
	}
	s.broadcast(user.ID, services.Event{Topic: services.TopicUser, Action: services.ActionUpdated, ID: user.ID})
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user.ToUser()})
}

func (s *Server) UpdateGoals(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	var goals models.Goals
	if !bindJSON(c, &goals) {
		return
	}
	if errs := goals.Validate(); !errs.Empty() {
		invalid(c, errs)
		return
	}
	user.Goals = goals
	if err := s.DB.Save(&user).Error; err != nil {
		s.internal(c, err)
		return
	}
	s.broadcast(user.ID, services.Event{Topic: services.TopicUser, Action: services.ActionUpdated, ID: user.ID})
	c.JSON(http.StatusOK, gin.H{"message": "Goals updated successfully", "user": user.ToUser()})
}

func (s *Server) ChangePassword(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	var input models.PasswordChange
	if !bindJSON(c, &input) {
		return
	}
	errs := input.Validate()
	if errs.Empty() && !utils.CheckPasswordHash(input.OldPassword, user.PasswordHash) {
		errs.Add("old_password", "Current password is incorrect")
	}
	if !errs.Empty() {
		invalid(c, errs)
		return
	}
	hash, err := utils.HashPassword(input.NewPassword)
	if err != nil {
		s.internal(c, err)
		return
	}
	if err := s.DB.Model(&user).Update("password_hash", hash).Error; err != nil {
		s.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
