package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/kulisserna/boxoffice/internal/config"
	"github.com/kulisserna/boxoffice/internal/handler"
	"github.com/kulisserna/boxoffice/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated browse endpoints.  The
// listing routes sit behind the Redis response cache; availability in
// a cached response may lag, the claim transaction is the authority.
func RegisterPublic(e *echo.Echo, content *handler.ContentHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
	cached := middleware.NewContentCache(cacheCfg, rdb)
	e.GET("/v1/events", content.ListEvents, cached)
	e.GET("/v1/events/:id", content.GetEvent, cached)
}

// RegisterBooking registers the anonymous booking flow: availability,
// holds, checkout, discount validation, the waitlist and the duplicate
// purchase check.  All routes share the token-bucket rate limiter so a
// burst of claims cannot starve the database.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, co *handler.CheckoutHandler, d *handler.DiscountHandler, w *handler.WaitlistHandler, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/v1", middleware.NewTokenBucket(rlCfg, rdb))

	// ---- Availability + holds ----
	g.GET("/events/:id/availability", b.Availability)
	g.POST("/events/:id/hold", b.CreateHold)
	g.DELETE("/events/:id/hold", b.ReleaseHold)
	g.GET("/events/:id/booked", b.DuplicateCheck)
	g.GET("/hold", b.HoldStatus)

	// ---- Checkout ----
	g.POST("/checkout", co.Checkout)
	g.POST("/discounts/validate", d.Validate)

	// ---- Waitlist ----
	g.POST("/events/:id/waitlist", w.Join)
}

// RegisterWebhook registers the payment provider's completion callback.
// The route is neither rate limited nor cached; authenticity is checked
// by HMAC signature inside the handler.
func RegisterWebhook(e *echo.Echo, co *handler.CheckoutHandler) {
	e.POST("/v1/payments/webhook", co.PaymentWebhook)
}

// RegisterAuth registers back-office login.  Only administrators and
// door staff have accounts; the public booking flow never signs in.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	e.POST("/v1/auth/login", a.Login)
}

// RegisterAdmin registers the back office under /v1/admin.  Scanning
// is open to door staff as well; everything else is ADMIN only.
func RegisterAdmin(e *echo.Echo, a *handler.AuthHandler, ad *handler.AdminHandler, sc *handler.ScanHandler, jwtSecret string) {
	// Scanning group: both roles, for the door stations.
	scan := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN", "STAFF"),
	)
	scan.GET("/me", a.Me)
	scan.POST("/purchases/scan", sc.Scan)

	// Management group: ADMIN only.
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	// ---- Events ----
	g.POST("/events", ad.CreateEvent)
	g.PUT("/events/:id", ad.UpdateEvent)
	g.PATCH("/events/:id", ad.UpdateEvent)
	g.DELETE("/events/:id", ad.DeleteEvent)
	g.GET("/events/:id/purchases", ad.ListEventPurchases)
	g.GET("/events/:id/waitlist", ad.ListWaitlist)

	// ---- Purchases ----
	g.POST("/purchases/:id/refund", ad.RefundPurchase)

	// ---- Staff accounts ----
	g.POST("/users", a.Register)

	// ---- Discount codes ----
	g.POST("/discounts", ad.CreateDiscount)
	g.GET("/discounts", ad.ListDiscounts)
	g.PATCH("/discounts/:id", ad.SetDiscountActive)
}
