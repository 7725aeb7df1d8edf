package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/piloted/finsync/internal/api"
	"github.com/piloted/finsync/internal/config"
	"github.com/piloted/finsync/internal/ingest"
	"github.com/piloted/finsync/internal/provider"
	"github.com/piloted/finsync/internal/push"
	"github.com/piloted/finsync/internal/rules"
	"github.com/piloted/finsync/internal/service"
	"github.com/piloted/finsync/internal/store"
	"github.com/piloted/finsync/internal/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()
	logger := utils.NewLogger()

	// Identity directory and per-user stores
	users, err := store.OpenUserDirectory(cfg.Data.Dir)
	if err != nil {
		log.Fatalf("Failed to open user directory: %v", err)
	}
	defer users.Close()

	stores := store.NewManager(cfg.Data.Dir)
	defer stores.Close()

	// Banking provider: fixtures for local development, Tink otherwise
	var providerClient provider.Client
	if cfg.Data.FixtureDir != "" {
		providerClient = provider.NewFileClient(cfg.Data.FixtureDir)
	} else {
		providerClient = provider.NewTinkClient(cfg.Tink.ClientID, cfg.Tink.ClientSecret, cfg.Tink.Market)
	}

	// Pipeline components
	normalizer := ingest.NewNormalizer(logger)
	transport := push.NewWebPushTransport(cfg.Push.Subject, cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)
	dispatcher := push.NewDispatcher(transport, cfg.Push.DeliveryTimeout, logger)

	// Create service
	svc := service.NewDefaultService(
		users, stores, providerClient, normalizer, dispatcher,
		rules.DefaultRuleSet(), cfg.Tink.RedirectURI, cfg.Auth.JWTSecret, logger)

	// Create API handler
	handler := api.NewHandler(svc, cfg.Auth.JWTSecret)

	// Set up Gin router
	router := gin.Default()
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
