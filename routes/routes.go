package routes

import (
	"RinkLink/controllers"
	"RinkLink/middleware"
	"RinkLink/services/redis"
	"RinkLink/services/sync"
	utils "RinkLink/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, redisClient *redis.RedisClient) {
	// Create the change publisher shared by the mutating endpoints
	publisher := sync.NewChangePublisher(redisClient)

	gamesController := &controllers.GamesController{
		DB:          db,
		RedisClient: redisClient,
		Publisher:   publisher,
	}

	// utils global
	router.Use(utils.ErrorHandler())

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes group
	api := router.Group("/")

	api.GET("/ping", controllers.Ping)

	api.POST("/login", controllers.Login(db))

	api.POST("/signup", controllers.SignUp(db))

	// Schedule endpoints. The GET is what the live store's snapshot fetch
	// hits, the mutations publish change events besides writing the row.
	api.GET("/games", gamesController.GetGames)

	api.GET("/games/export", gamesController.ExportSchedule)

	api.GET("/opponents", controllers.ListOpponents(db))

	api.GET("/tournaments", controllers.ListTournaments(db))

	authentication := api.Group("/auth")
	authentication.Use(middleware.AuthRequired)
	{
		authentication.DELETE("/logout", controllers.Logout)

		authentication.GET("/teams", controllers.ListTeams(db))
	}

	games := api.Group("/games")
	games.Use(middleware.AuthRequired)
	{
		games.POST("/add-games", gamesController.AddGames)

		games.PUT("/:id", gamesController.UpdateGame)

		games.DELETE("/:id", gamesController.DeleteGame)
	}
}
