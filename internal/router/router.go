package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hostpay/config"
	"hostpay/internal/domain"
	"hostpay/internal/handler"
	"hostpay/internal/middleware"
	"hostpay/internal/service"
	"hostpay/internal/ws"
	"hostpay/pkg/rails"
)

// Setup wires every component and returns the engine. All services are
// constructed here and injected; nothing reaches for globals.
func Setup(cfg *config.Config) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	commerce := rails.NewCommerceClient(&cfg.Commerce, &cfg.Merchant)
	onramp := rails.NewOnrampClient(&cfg.CDP, &cfg.Merchant)
	monitor := rails.NewMonitorClient(&cfg.CDP, &cfg.Merchant)

	hub := ws.NewHub()
	machine := service.NewMachine(hub)
	policy := service.NewFallbackPolicy(cfg.Frontend.URL, cfg.Merchant.PurchaseAsset, cfg.Merchant.Network, cfg.Commerce.CallTimeout)
	verifier := service.NewVerifier(map[domain.Rail]string{
		domain.RailHostedCharge:  cfg.Commerce.WebhookSecret,
		domain.RailChainTransfer: cfg.CDP.WebhookSecret,
	})
	normalizer := service.NewNormalizer(cfg.Merchant.DestinationAddress)
	orch := service.NewOrchestrator(cfg, commerce, onramp, monitor, policy, verifier, normalizer, machine)

	checkoutHandler := handler.NewCheckoutHandler(orch)
	onrampHandler := handler.NewOnrampHandler(orch, onramp)
	webhookHandler := handler.NewWebhookHandler(orch)
	subscriptionHandler := handler.NewSubscriptionHandler(orch)
	paymentHandler := handler.NewPaymentHandler(orch)

	api := r.Group("/api")
	{
		// Caller-facing surface, rate limited per client.
		public := api.Group("")
		public.Use(middleware.RateLimit(middleware.NewRateLimiter(100, 60*time.Second)))
		{
			public.POST("/checkout", checkoutHandler.Create)
			public.POST("/onramp", onrampHandler.Create)
			public.GET("/onramp/:orderId", onrampHandler.GetOrder)
			public.POST("/onramp/quote", onrampHandler.Quote)
			public.GET("/payments/unresolved", paymentHandler.ListUnresolved)
			public.GET("/payments/:id", paymentHandler.GetStatus)
			public.POST("/payments/:id/simulate", paymentHandler.SimulateDemo)
			public.POST("/setup-webhooks", subscriptionHandler.Setup)
			public.GET("/webhooks", subscriptionHandler.List)
			public.PUT("/webhooks/:id", subscriptionHandler.Update)
			public.DELETE("/webhooks/:id", subscriptionHandler.Delete)
		}

		// Rail deliveries are never rate limited.
		api.POST("/webhook", webhookHandler.HandleCommerce)
		api.POST("/cdp/usdc-payment", webhookHandler.HandleChainEvent)
		api.POST("/cdp/address-activity", webhookHandler.HandleChainEvent)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ws_clients": hub.ClientCount()})
	})
	r.GET("/ws/payments", ws.UpgradePaymentWS(hub))

	return r
}
