package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nourish/controllers"
	"nourish/middlewares"
)

// SetupRouter mounts the backend contract under /api.
func SetupRouter(s *controllers.Server, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger(log))
	r.MaxMultipartMemory = 8 << 20

	api := r.Group("/api")

	// Public auth routes
	auth := api.Group("/auth")
	{
		auth.POST("/register", s.Register)
		auth.POST("/login", s.Login)
		auth.POST("/refresh", s.Refresh)
	}

	// Recipe images are linked directly, without a token.
	api.GET("/community/recipes/:id/image", s.RecipeImage)

	protected := api.Group("")
	protected.Use(middlewares.AuthMiddleware(s.Secret))
	{
		protected.GET("/entries", s.ListEntries)
		protected.POST("/entries", s.CreateEntry)
		protected.PUT("/entries/:id", s.UpdateEntry)
		protected.DELETE("/entries/:id", s.DeleteEntry)

		protected.GET("/summary/:date", s.DailySummary)
		protected.GET("/summary/week/:date", s.WeeklySummary)

		protected.GET("/foods/search", s.SearchFoods)
		protected.GET("/foods/custom", s.ListCustomFoods)
		protected.POST("/foods/custom", s.CreateCustomFood)
		protected.DELETE("/foods/custom/:id", s.DeleteCustomFood)
		protected.POST("/foods/spoonacular/:id", s.SaveExternalFood)
		protected.POST("/foods/usda/:id", s.SaveExternalFood)
		protected.GET("/foods/:id", s.GetFood)
		protected.GET("/foods/:id/nutrition", s.FoodNutrition)

		protected.GET("/meals", s.ListMeals)
		protected.POST("/meals", s.CreateMeal)
		protected.PUT("/meals/:id", s.UpdateMeal)
		protected.DELETE("/meals/:id", s.DeleteMeal)
		protected.POST("/meals/:id/add", s.AddMealToDay)

		protected.GET("/community/recipes", s.ListRecipes)
		protected.POST("/community/recipes", s.ShareRecipe)
		protected.GET("/community/recipes/:id", s.GetRecipe)
		protected.POST("/community/recipes/:id/import", s.ImportRecipe)
		protected.DELETE("/community/recipes/:id", s.DeleteRecipe)
		protected.GET("/community/recipes/from-saved-meal/:id", s.MealForSharing)

		protected.GET("/users/profile", s.GetProfile)
		protected.PUT("/users/profile", s.UpdateProfile)
		protected.PUT("/users/goals", s.UpdateGoals)
		protected.POST("/users/change-password", s.ChangePassword)

		protected.GET("/ws", s.LiveChanges)
	}

	return r
}
