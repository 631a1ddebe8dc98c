package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostpay/config"
	"hostpay/internal/router"
	"hostpay/pkg/ethaddr"
)

func main() {
	cfg := config.Load()
	if !ethaddr.Valid(cfg.Merchant.DestinationAddress) {
		log.Fatalf("merchant destination address %q is not a valid address", cfg.Merchant.DestinationAddress)
	}
	if !cfg.Commerce.Configured() {
		log.Printf("[Startup] no live Commerce API key, hosted checkout runs in demo mode")
	}
	if !cfg.CDP.Configured() {
		log.Printf("[Startup] no CDP credentials, onramp and transfer monitoring run in demo mode")
	}

	engine := router.Setup(cfg)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	log.Println("server stopped")
}
