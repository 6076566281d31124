package router

import (
	"database/sql"

	"fusionx_backend/internal/handlers"
	"fusionx_backend/internal/hub"
	"fusionx_backend/internal/middleware"
	"fusionx_backend/internal/models"
	"fusionx_backend/internal/repositories"
	"fusionx_backend/internal/services"
	"fusionx_backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// Dependencies carries the process-level infrastructure the router wires
// into services. Throttle and Publisher may be nil; ordering then runs
// unthrottled and notifications are logged but not queued.
type Dependencies struct {
	DB             *sql.DB
	Hub            *hub.Hub
	Throttle       *storage.ShiftThrottle
	Publisher      *storage.KafkaPublisher
	TaxRateBp      int64
	TrackerBaseURL string
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, deps Dependencies) {
	// Initialize Repositories
	orderRepo := repositories.NewOrderRepository(deps.DB)
	menuRepo := repositories.NewMenuRepository(deps.DB)
	shiftRepo := repositories.NewShiftRepository(deps.DB)
	inventoryRepo := repositories.NewInventoryRepository(deps.DB)
	loyaltyRepo := repositories.NewLoyaltyRepository(deps.DB)
	staffRepo := repositories.NewStaffRepository(deps.DB)
	truckRepo := repositories.NewTruckRepository(deps.DB)
	auditRepo := repositories.NewAuditRepository(deps.DB)
	notificationRepo := repositories.NewNotificationRepository(deps.DB)

	// Initialize Services
	notificationService := services.NewNotificationService(notificationRepo, staffRepo, shiftRepo, deps.Publisher)

	var throttle services.AdmissionThrottle
	if deps.Throttle != nil {
		throttle = deps.Throttle
	}

	authService := services.NewAuthService(staffRepo)
	staffService := services.NewStaffService(staffRepo)
	orderService := services.NewOrderService(orderRepo, auditRepo, deps.Hub, deps.DB)
	fulfillmentService := services.NewFulfillmentService(
		orderRepo, menuRepo, shiftRepo, inventoryRepo, loyaltyRepo,
		throttle, deps.Hub, notificationService, deps.DB, deps.TaxRateBp,
	)
	inventoryService := services.NewInventoryService(menuRepo, inventoryRepo, deps.Hub, notificationService, deps.DB)
	menuService := services.NewMenuService(menuRepo, inventoryRepo, deps.Hub, deps.DB)
	shiftService := services.NewShiftService(shiftRepo, auditRepo, deps.Hub, deps.DB)
	truckService := services.NewTruckService(truckRepo, auditRepo, deps.DB)
	analyticsService := services.NewAnalyticsService(orderRepo, inventoryRepo)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	orderHandler := handlers.NewOrderHandler(orderService)
	customerHandler := handlers.NewCustomerHandler(fulfillmentService, orderService, menuService, deps.TrackerBaseURL)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService, notificationService)
	shiftHandler := handlers.NewShiftHandler(shiftService)
	menuHandler := handlers.NewMenuHandler(menuService)
	staffHandler := handlers.NewStaffHandler(staffService)
	truckHandler := handlers.NewTruckHandler(truckService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	wsHandler := handlers.NewWSHandler(deps.Hub)

	apiV1 := engine.Group("/api/v1")

	// Public customer surface. No authentication: customers order from a QR
	// code, and the payment webhook authenticates at the provider level.
	customer := apiV1.Group("/customer")
	{
		customer.GET("/shifts/:shiftId/menu", customerHandler.GetShiftMenu)
		customer.POST("/orders", customerHandler.CreateOrder)
		customer.GET("/orders/:orderId/track", customerHandler.TrackOrder)
		customer.GET("/orders/:orderId/qr", customerHandler.PickupQR)
		customer.POST("/orders/:orderId/payment", customerHandler.PaymentWebhook)
	}

	// Realtime event stream for kitchen displays and pickup trackers.
	apiV1.GET("/ws/shifts/:shiftId", wsHandler.Subscribe)

	// Public auth routes
	auth := apiV1.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Authenticated staff surface
	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		authenticated.GET("/auth/me", authHandler.Me)

		// Devices belong to the authenticated caller.
		authenticated.POST("/devices", staffHandler.RegisterDevice)
		authenticated.GET("/devices", staffHandler.GetDevices)
		authenticated.DELETE("/devices/:deviceId", staffHandler.RevokeDevice)

		// Shift sessions
		authenticated.POST("/shifts", shiftHandler.CheckIn)
		authenticated.GET("/shifts", shiftHandler.GetOpenShifts)
		authenticated.GET("/shifts/:shiftId", shiftHandler.GetShift)
		authenticated.POST("/shifts/:shiftId/checkout", shiftHandler.Checkout)
		authenticated.POST("/shifts/:shiftId/pause", shiftHandler.Pause)
		authenticated.POST("/shifts/:shiftId/resume", shiftHandler.Resume)
		authenticated.PATCH("/shifts/:shiftId/config", shiftHandler.UpdateConfig)
		authenticated.GET("/trucks/:truckId/active-shift", shiftHandler.GetActiveShiftForTruck)

		// Kitchen display and order lifecycle
		authenticated.GET("/shifts/:shiftId/kds", orderHandler.GetKDSTickets)
		authenticated.GET("/shifts/:shiftId/summary", orderHandler.GetShiftOrderSummary)
		authenticated.POST("/shifts/:shiftId/orders/bulk-advance", orderHandler.BulkAdvance)
		authenticated.POST("/shifts/:shiftId/reconcile", customerHandler.Reconcile)
		authenticated.GET("/orders/:orderId", orderHandler.GetOrder)
		authenticated.POST("/orders/:orderId/advance", orderHandler.AdvanceOrder)
		authenticated.POST("/orders/:orderId/hold", orderHandler.HoldOrder)
		authenticated.POST("/orders/:orderId/resume", orderHandler.ResumeOrder)
		authenticated.POST("/orders/:orderId/cancel", orderHandler.CancelOrder)

		// Inventory
		authenticated.GET("/shifts/:shiftId/inventory", inventoryHandler.GetShiftInventory)
		authenticated.PATCH("/shifts/:shiftId/inventory", inventoryHandler.UpdateInventory)
		authenticated.GET("/shifts/:shiftId/ledger", inventoryHandler.GetShiftLedger)
		authenticated.GET("/shifts/:shiftId/notifications", inventoryHandler.GetNotificationLog)

		// Shift specials
		authenticated.GET("/shifts/:shiftId/specials", menuHandler.ListSpecials)
		authenticated.POST("/shifts/:shiftId/specials", menuHandler.CreateSpecial)
		authenticated.PUT("/shifts/:shiftId/specials/:specialId", menuHandler.UpdateSpecial)
		authenticated.DELETE("/shifts/:shiftId/specials/:specialId", menuHandler.DeleteSpecial)

		// End-of-shift reporting
		authenticated.GET("/shifts/:shiftId/digest", analyticsHandler.GetShiftDigest)
		authenticated.GET("/shifts/:shiftId/orders.csv", analyticsHandler.ExportShiftOrdersCSV)
	}

	// Management surface, restricted to owners and managers.
	admin := apiV1.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RoleAuthMiddleware(models.RoleOwner, models.RoleManager))
	{
		admin.POST("/staff", staffHandler.CreateStaff)
		admin.GET("/staff", staffHandler.GetStaffList)
		admin.GET("/staff/:staffId", staffHandler.GetStaff)
		admin.PATCH("/staff/:staffId", staffHandler.UpdateStaff)
		admin.DELETE("/staff/:staffId", staffHandler.DeleteStaff)

		admin.POST("/trucks", truckHandler.CreateTruck)
		admin.GET("/trucks", truckHandler.GetTrucks)
		admin.GET("/trucks/:truckId", truckHandler.GetTruck)
		admin.PUT("/trucks/:truckId", truckHandler.UpdateTruck)
		admin.PUT("/trucks/:truckId/hours", truckHandler.SetOperatingHours)
		admin.GET("/trucks/:truckId/hours", truckHandler.GetOperatingHours)

		admin.POST("/locations", truckHandler.CreateLocation)
		admin.GET("/locations", truckHandler.GetLocations)
		admin.GET("/locations/:locationId", truckHandler.GetLocation)
		admin.PUT("/locations/:locationId", truckHandler.UpdateLocation)

		admin.POST("/menu/categories", menuHandler.CreateCategory)
		admin.GET("/menu/categories", menuHandler.GetCategories)
		admin.PUT("/menu/categories/:categoryId", menuHandler.UpdateCategory)
		admin.DELETE("/menu/categories/:categoryId", menuHandler.DeleteCategory)

		admin.POST("/menu/items", menuHandler.CreateItem)
		admin.GET("/menu/items", menuHandler.GetItems)
		admin.GET("/menu/items/:itemId", menuHandler.GetItem)
		admin.PUT("/menu/items/:itemId", menuHandler.UpdateItem)
		admin.DELETE("/menu/items/:itemId", menuHandler.DeleteItem)

		admin.GET("/loyalty/:phone", customerHandler.GetLoyaltyAccount)
		admin.GET("/audit", truckHandler.GetAuditTrail)
	}
}
