package routes

import (
	"github.com/astroconnect/backend/controllers"
	"github.com/astroconnect/backend/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter() *gin.Engine {
	router := gin.Default()

	// API version group
	api := router.Group("/v1")
	{
		initAuthRoutes(api)
		initUserRoutes(api)
		initAstrologerRoutes(api)
		initSessionRoutes(api)
		initAdminRoutes(api)
	}

	// Payment gateway callbacks are unauthenticated; the handler verifies
	// the webhook signature itself.
	router.POST("/webhooks/razorpay", controllers.HandleRazorpayWebhook)

	return router
}

// initAuthRoutes registers login and registration endpoints.
func initAuthRoutes(router *gin.RouterGroup) {
	router.POST("/register", controllers.RegisterUser)
	router.POST("/login", controllers.LoginUser)
	router.POST("/astrologer/login", controllers.LoginAstrologer)
	router.POST("/admin/login", controllers.LoginAdmin)

	// Public astrologer directory
	router.GET("/astrologers", controllers.ListAstrologers)
	router.GET("/astrologers/:id", controllers.GetAstrologer)
}

// initUserRoutes registers wallet and session endpoints for regular users.
func initUserRoutes(router *gin.RouterGroup) {
	user := router.Group("/user")
	user.Use(middleware.AuthMiddleware())
	{
		// Wallet
		user.GET("/wallet", controllers.GetWallet)
		user.GET("/wallet/transactions", controllers.GetWalletTransactions)
		user.POST("/wallet/recharge", controllers.CreateRechargeOrder)
		user.POST("/wallet/recharge/verify", controllers.VerifyRecharge)
		user.GET("/wallet/recharge/:order_id", controllers.GetRechargeStatus)

		// Coupons
		user.POST("/coupons/preview", controllers.PreviewCoupon)

		// Calls
		user.POST("/calls", controllers.InitiateCall)
		user.POST("/calls/:id/connected", controllers.MarkCallConnected)
		user.POST("/calls/:id/cancel", controllers.CancelCall)

		// Chats
		user.POST("/chats", controllers.StartChat)

		// Live sessions
		user.POST("/live/:id/join", controllers.JoinLive)
		user.POST("/live/:id/leave", controllers.LeaveLive)
	}
}

// initAstrologerRoutes registers endpoints for the astrologer side of
// consultations.
func initAstrologerRoutes(router *gin.RouterGroup) {
	astrologer := router.Group("/astrologer")
	astrologer.Use(middleware.AstrologerMiddleware())
	{
		astrologer.PUT("/availability", controllers.UpdateAvailability)

		// Calls
		astrologer.POST("/calls/:id/accept", controllers.AcceptCall)
		astrologer.POST("/calls/:id/reject", controllers.RejectCall)

		// Chat requests
		astrologer.POST("/chats/:id/respond", controllers.RespondChatRequest)

		// Live sessions
		astrologer.POST("/live", controllers.ScheduleLive)
		astrologer.POST("/live/:id/start", controllers.StartLive)
		astrologer.POST("/live/:id/cancel", controllers.CancelLive)
		astrologer.POST("/live/:id/end", controllers.EndLive)
	}
}

// initSessionRoutes registers endpoints either party of a session may call.
func initSessionRoutes(router *gin.RouterGroup) {
	session := router.Group("/sessions")
	session.Use(middleware.PartyMiddleware())
	{
		session.POST("/calls/:id/end", controllers.EndCall)
		session.POST("/chats/:id/messages", controllers.SendMessage)
		session.GET("/chats/:id/messages", controllers.GetChatMessages)
		session.POST("/chats/:id/end", controllers.EndChat)
	}
}

// initAdminRoutes registers administrative endpoints.
func initAdminRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin")
	admin.Use(middleware.AdminMiddleware())
	{
		admin.POST("/coupons", controllers.AdminCreateCoupon)
		admin.POST("/wallet/adjust", controllers.AdminAdjustWallet)
		admin.GET("/wallet/ledger/export", controllers.AdminExportLedgerExcel)
	}
}
