package main // Entry point package

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/kulisserna/boxoffice/internal/booking"
	"github.com/kulisserna/boxoffice/internal/config"
	"github.com/kulisserna/boxoffice/internal/database"
	"github.com/kulisserna/boxoffice/internal/handler"
	"github.com/kulisserna/boxoffice/internal/payment"
	"github.com/kulisserna/boxoffice/internal/queue"
	"github.com/kulisserna/boxoffice/internal/repository"
	"github.com/kulisserna/boxoffice/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter and the response cache.  Both fail
	// open, so a nil client just disables them.
	rdb := config.NewRedisClient()

	// Repositories.
	eventRepo := repository.NewEventRepo(db)
	holdRepo := repository.NewHoldRepo(db)
	purchaseRepo := repository.NewPurchaseRepo(db)
	discountRepo := repository.NewDiscountRepo(db)
	waitlistRepo := repository.NewWaitlistRepo(db)
	userRepo := repository.NewUserRepo(db)

	// In-memory session registry mirroring each buyer's hold lifecycle.
	sessions := booking.NewRegistry()

	payments := payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentAPIKey, cfg.PaymentLegacyBaseURL)

	// Handlers.
	holdTTL := time.Duration(cfg.HoldTTLMin) * time.Minute
	bookingH := handler.NewBookingHandler(eventRepo, holdRepo, purchaseRepo, sessions, holdTTL)
	checkoutH := handler.NewCheckoutHandler(eventRepo, holdRepo, purchaseRepo, discountRepo, payments, sessions)
	checkoutH.WebhookSecret = cfg.WebhookSecret
	discountH := handler.NewDiscountHandler(eventRepo, discountRepo)
	waitlistH := handler.NewWaitlistHandler(eventRepo, holdRepo, purchaseRepo, waitlistRepo)
	contentH := handler.NewContentHandler(eventRepo, holdRepo, purchaseRepo)
	scanH := handler.NewScanHandler(eventRepo, purchaseRepo)
	adminH := handler.NewAdminHandler(eventRepo, holdRepo, purchaseRepo, discountRepo, waitlistRepo, rdb)
	authH := handler.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterPublic(e, contentH, cacheCfg, rdb)
	router.RegisterBooking(e, bookingH, checkoutH, discountH, waitlistH, rlCfg, rdb)
	router.RegisterWebhook(e, checkoutH)
	router.RegisterAuth(e, authH)
	router.RegisterAdmin(e, authH, adminH, scanH, cfg.JWTSecret)

	// Confirmation email consumer; reconnects on its own, so a broker
	// outage never blocks startup.
	go func() {
		if err := queue.StartPurchaseConsumer(); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
