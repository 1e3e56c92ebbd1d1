package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nourish/models"
	"nourish/utils"
)

func (s *Server) Register(c *gin.Context) {
	var input models.RegisterRequest
	if !bindJSON(c, &input) {
		return
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	errs := models.FieldErrors{}
	if !models.ValidEmail(input.Email) {
		errs.Add("email", "Not a valid email address.")
	}
	if len(input.Password) < 8 {
		errs.Add("password", "Password must be at least 8 characters")
	}
	if input.ConfirmPassword != "" && input.ConfirmPassword != input.Password {
		errs.Add("confirm_password", "Passwords do not match")
	}
	goals := input.Goals
	if goals == (models.Goals{}) {
		goals = models.DefaultGoals
	}
	for f, msgs := range goals.Validate() {
		errs[f] = append(errs[f], msgs...)
	}
	if !errs.Empty() {
		invalid(c, errs)
		return
	}

	var existing int64
	s.DB.Model(&models.UserRecord{}).Where("email = ?", input.Email).Count(&existing)
	if existing > 0 {
		fail(c, http.StatusConflict, "Email already registered")
		return
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		s.internal(c, err)
		return
	}
	user := models.UserRecord{
		Email:        input.Email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		Goals:        goals,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		s.internal(c, err)
		return
	}

	access, refresh, err := s.issueTokens(user)
	if err != nil {
		s.internal(c, err)
		return
	}
	u := user.ToUser()
	c.JSON(http.StatusCreated, models.AuthResponse{
		Message:      "User created successfully",
		AccessToken:  access,
		RefreshToken: refresh,
		User:         &u,
	})
}

func (s *Server) Login(c *gin.Context) {
	var input models.LoginRequest
	if !bindJSON(c, &input) {
		return
	}

	var user models.UserRecord
	err := s.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error
	if err != nil || !utils.CheckPasswordHash(input.Password, user.PasswordHash) {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	access, refresh, err := s.issueTokens(user)
	if err != nil {
		s.internal(c, err)
		return
	}
	u := user.ToUser()
	c.JSON(http.StatusOK, models.AuthResponse{AccessToken: access, RefreshToken: refresh, User: &u})
}

// Refresh is public: the access token it replaces may already be expired.
func (s *Server) Refresh(c *gin.Context) {
	var input struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !bindJSON(c, &input) {
		return
	}
	claims, err := utils.ParseJWT(s.Secret, input.RefreshToken)
	if err != nil || claims.Type != utils.RefreshToken {
		fail(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	uid, err := claims.UserID()
	if err != nil {
		fail(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	var user models.UserRecord
	if err := s.DB.First(&user, uid).Error; err != nil {
		fail(c, http.StatusUnauthorized, "User not found")
		return
	}
	access, err := utils.GenerateJWT(s.Secret, user.ID, user.Email, utils.AccessToken, AccessTTL)
	if err != nil {
		s.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, models.AuthResponse{AccessToken: access})
}
