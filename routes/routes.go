package routes

import (
	"log"
	"net/http"

	"hotseat/handlers"
	"hotseat/middleware"
	"hotseat/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // screens and phones are served from other origins
	},
}

type Handlers struct {
	Rooms     *handlers.RoomHandler
	Match     *handlers.MatchHandler
	Questions *handlers.QuestionHandler
}

func SetupRoutes(
	router *gin.Engine,
	h Handlers,
	hub *services.Hub,
	roomService *services.RoomService,
	authService *services.AuthService,
) {
	requireToken := middleware.RequireToken(authService)
	requireHost := middleware.RequireHost()

	api := router.Group("/api")
	{
		// Public room routes
		rooms := api.Group("/rooms")
		{
			rooms.POST("", h.Rooms.CreateRoom)
			rooms.GET("/:code", h.Rooms.GetRoomState)
			rooms.POST("/:code/join", h.Rooms.JoinRoom)
			rooms.POST("/:code/host", h.Rooms.HostLogin)
			rooms.GET("/:code/rounds", h.Match.ListRounds)
			rooms.GET("/:code/rounds/:questionID", h.Match.GetRoundResult)
		}

		// Routes for anyone seated in the room
		seated := api.Group("/rooms/:code")
		seated.Use(requireToken)
		{
			seated.POST("/ready", h.Rooms.SetReady)
			seated.POST("/answers", h.Match.SubmitAnswer)
			seated.POST("/votes", h.Match.SubmitVote)
			seated.POST("/advance", h.Match.AdvancePhase)
			seated.POST("/resolve", h.Match.ResolveRound)
		}

		// Host routes
		host := api.Group("/rooms/:code")
		host.Use(requireToken, requireHost)
		{
			host.POST("/start", h.Match.StartMatch)
			host.DELETE("/players/:playerID", h.Rooms.RemovePlayer)
		}

		questions := api.Group("/questions")
		{
			questions.GET("", h.Questions.ListQuestions)
			questions.GET("/random", h.Questions.RandomQuestion)
		}

		manage := api.Group("/questions")
		manage.Use(requireToken, requireHost)
		{
			manage.POST("/upload", h.Questions.UploadQuestions)
			manage.POST("/seed", h.Questions.SeedQuestions)
			manage.DELETE("", h.Questions.ClearQuestions)
		}
	}

	// WebSocket endpoint for room events
	router.GET("/ws/:code", requireToken, func(c *gin.Context) {
		claims := middleware.Claims(c)

		room, err := roomService.GetRoomByCode(c.Request.Context(), c.Param("code"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}

		if err := roomService.ValidateAccess(c.Request.Context(), room, claims); err != nil {
			log.Printf("[WS] room %s: access denied: %v", room.ID, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not seated in this room"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] room %s: upgrade failed: %v", room.ID, err)
			return
		}

		log.Printf("[WS] room %s: %s %s connected", room.ID, claims.Role, claims.PlayerID)
		hub.RegisterClient(conn, room.ID, claims.PlayerID, claims.Role)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
