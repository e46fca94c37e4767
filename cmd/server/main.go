package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/futuretrendsent/zaryo-market/internal/admin"
	"github.com/futuretrendsent/zaryo-market/internal/alerts"
	"github.com/futuretrendsent/zaryo-market/internal/auth"
	"github.com/futuretrendsent/zaryo-market/internal/bidding"
	"github.com/futuretrendsent/zaryo-market/internal/booking"
	"github.com/futuretrendsent/zaryo-market/internal/catalog"
	"github.com/futuretrendsent/zaryo-market/internal/db"
	"github.com/futuretrendsent/zaryo-market/internal/ledger"
	"github.com/futuretrendsent/zaryo-market/internal/metrics"
	mware "github.com/futuretrendsent/zaryo-market/internal/middleware"
	"github.com/futuretrendsent/zaryo-market/internal/payments"
	"github.com/futuretrendsent/zaryo-market/internal/realtime"
	"github.com/futuretrendsent/zaryo-market/internal/store"
	"github.com/futuretrendsent/zaryo-market/internal/user"
)

func redisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis unreachable, running without cache/pubsub: %v", err)
		return nil
	}
	return rdb
}

func main() {
	_ = godotenv.Load()

	// Initialize subsystems
	db.Init()
	alerts.Init()
	defer alerts.Close()

	rdb := redisClient()

	var st store.Store = store.NewPostgres(db.Conn)
	if rdb != nil {
		st = store.NewCachedStore(st, rdb, 30*time.Second)
	}

	feed := realtime.New(rdb)
	ledgerSvc := ledger.NewService(st)
	bidSvc := bidding.NewService(st, ledgerSvc, feed)
	bookingSvc := booking.NewService(st, ledgerSvc, feed)
	paymentsHandler := payments.NewHandler(ledgerSvc)

	e := echo.New()
	e.HideBanner = true

	// Basic middleware
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(metrics.Middleware)

	// Health and root routes
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "zaryo-market"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if db.Conn == nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db not initialized"})
		}
		if err := db.Conn.Ping(context.Background()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// Public routes
	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/signup", auth.Signup)
	authGroup.POST("/login", auth.Login)
	authGroup.POST("/password/request", auth.RequestPasswordReset)
	authGroup.POST("/password/reset", auth.ResetPassword)

	e.GET("/user/:id/profile", user.GetPublicProfile)
	e.GET("/marketplace/listings", catalog.SearchListings)
	e.GET("/marketplace/listings/:id", catalog.GetListing)

	// Protected routes
	api := e.Group("")
	api.Use(mware.JWTMiddleware)

	api.GET("/auth/me", auth.Me)
	api.PATCH("/user/profile", user.UpdateProfile)

	api.GET("/wallet/balance", ledgerSvc.Balance)
	api.GET("/wallet/transactions", ledgerSvc.Transactions)
	api.POST("/wallet/purchase", paymentsHandler.InitPurchase)
	api.POST("/wallet/purchase/confirm", paymentsHandler.ConfirmPurchase)

	api.POST("/marketplace/listings", catalog.CreateListing, mware.RequireRoles("creator"))
	api.GET("/marketplace/listings/me", catalog.MyListings)
	api.PATCH("/marketplace/listings/:id", catalog.UpdateListing)

	api.POST("/marketplace/bids", bidSvc.PlaceBid, mware.RequireRoles("fan"))
	api.GET("/marketplace/bids/me", bidSvc.MyBids)
	api.GET("/marketplace/listings/:id/bids", bidSvc.ListingBids)
	api.POST("/marketplace/bids/:id/accept", bidSvc.AcceptBid, mware.RequireRoles("creator"))
	api.POST("/marketplace/bids/:id/reject", bidSvc.RejectBid, mware.RequireRoles("creator"))

	api.POST("/marketplace/bookings", bookingSvc.RequestBooking, mware.RequireRoles("fan"))
	api.GET("/marketplace/bookings/me", bookingSvc.MyBookings)
	api.GET("/marketplace/bookings/:id", bookingSvc.GetBooking)
	api.POST("/marketplace/bookings/:id/confirm", bookingSvc.ConfirmBooking, mware.RequireRoles("creator"))
	api.POST("/marketplace/bookings/:id/pay", bookingSvc.PayBooking)
	api.POST("/marketplace/bookings/:id/complete", bookingSvc.CompleteBooking, mware.RequireRoles("creator"))
	api.POST("/marketplace/bookings/:id/cancel", bookingSvc.CancelBooking)

	api.GET("/notifications", alerts.ListNotifications)
	api.POST("/notifications/:id/read", alerts.MarkNotificationRead)

	api.GET("/ws/listings/:id/bids", feed.ListingBidsWS)
	api.GET("/ws/bookings", feed.BookingsWS)

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(mware.JWTMiddleware)
	adminGroup.Use(mware.AdminGuard)

	adminGroup.GET("/users", admin.ListUsers)
	adminGroup.POST("/users/:id/suspend", admin.SuspendUser)
	adminGroup.POST("/users/:id/activate", admin.ActivateUser)
	adminGroup.POST("/users/:id/grant-admin", admin.GrantAdmin)
	adminGroup.POST("/users/:id/revoke-admin", admin.RevokeAdmin)
	adminGroup.GET("/listings", admin.ListListings)
	adminGroup.PATCH("/listings/:id", admin.UpdateListing)
	adminGroup.POST("/listings/:id/archive", admin.ArchiveListing)
	adminGroup.DELETE("/listings/:id", admin.DeleteListing)
	adminGroup.GET("/bids", admin.ListBids)
	adminGroup.GET("/bookings", admin.ListBookings)
	adminGroup.GET("/transfers", admin.ListTransfers)
	adminGroup.GET("/transfers/user/:id", admin.ListUserTransfers)
	adminGroup.GET("/stats", admin.Stats)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
