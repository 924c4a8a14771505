package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"tradebot/internal/alert"
	"tradebot/internal/auth"
	"tradebot/internal/bootstrap"
	"tradebot/internal/core"
	"tradebot/internal/engine"
	"tradebot/internal/infrastructure/metrics"
	"tradebot/internal/match"
	"tradebot/internal/steam"
	"tradebot/internal/transport"
	webhttp "tradebot/pkg/http"
	"tradebot/pkg/telemetry"
)

var configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// Optional .env for local runs; ignored when absent.
	_ = godotenv.Load()
	if envConfig := os.Getenv("CONFIG_FILE"); envConfig != "" {
		*configFile = envConfig
	}

	app, err := bootstrap.NewApp(*configFile)
	if err != nil {
		panic(err)
	}
	cfg, logger := app.Cfg, app.Logger

	tel, err := telemetry.Setup("tradebot")
	if err != nil {
		logger.Fatal("Telemetry setup failed", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	publicKey, err := auth.ParsePublicKey(cfg.Auth.PublicKeyPEM)
	if err != nil {
		logger.Fatal("Cannot parse platform public key", "error", err)
	}

	web := webhttp.NewClient(
		time.Duration(cfg.Platform.TimeoutSeconds)*time.Second,
		float64(cfg.Platform.RequestsPerSecond),
	)

	var store core.ISessionStore
	if cfg.Auth.SessionDBPath != "" {
		sqliteStore, err := auth.NewSQLiteStore(cfg.Auth.SessionDBPath)
		if err != nil {
			logger.Fatal("Cannot open session store", "error", err)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	}

	nonceClient := transport.NewClient(
		cfg.Platform.TransportURL,
		time.Duration(cfg.Timing.TransportReconnectSeconds)*time.Second,
		logger,
	)
	defer nonceClient.Close()

	authenticator := auth.NewAuthenticator(
		web, nonceClient, store, logger, publicKey,
		cfg.Account.SteamID64,
		cfg.Platform.CommunityHost, cfg.Platform.StoreHost, cfg.Platform.APIBaseURL,
	)
	if key := cfg.Account.APIKey.Value(); key != "" {
		authenticator.SetAPIKey(key)
	}
	if err := authenticator.RestoreSession(); err != nil {
		logger.Warn("Could not restore persisted session", "error", err)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if authenticator.EnsureAuthenticated(startupCtx) {
		if _, err := authenticator.EnsureAPIKey(startupCtx); err != nil {
			logger.Warn("Could not recover web API key", "error", err)
		}
	} else {
		logger.Warn("Initial authentication failed, will retry during polling")
	}
	cancelStartup()

	confirmer, err := steam.NewConfirmer(
		web, cfg.Platform.CommunityHost, cfg.Auth.IdentitySecret.Value(),
		cfg.Account.SteamID64, logger,
	)
	if err != nil {
		logger.Fatal("Cannot initialize confirmation service", "error", err)
	}

	alerts := alert.NewAlertManager(logger)
	defer alerts.Close()
	if url := cfg.Alerts.SlackWebhookURL.Value(); url != "" {
		alerts.AddChannel(alert.NewSlackChannel(url))
	}
	if token := cfg.Alerts.TelegramBotToken.Value(); token != "" {
		alerts.AddChannel(alert.NewTelegramChannel(token, cfg.Alerts.TelegramChatID))
	}

	policy := core.AccountPolicy{
		AcceptDonations:  cfg.Policy.AcceptDonations,
		AcceptEscrow:     cfg.Policy.AcceptEscrow,
		Accept1to1Trades: cfg.Policy.Accept1to1Trades,
		Accept1to2Trades: cfg.Policy.Accept1to2Trades,
		Admins:           cfg.Policy.Admins,
	}

	offerAPI := steam.NewTradeOfferAPI(web, authenticator, cfg.Platform.CommunityHost, cfg.Platform.APIBaseURL, logger)
	decisionEngine := engine.NewTradeDecisionEngine(
		offerAPI, authenticator, steam.FriendResolver{}, confirmer,
		match.NewMatcher(logger), policy, alerts, logger,
	)
	scheduler := engine.NewPollingScheduler(
		decisionEngine,
		time.Duration(cfg.Timing.PollIntervalSeconds)*time.Second,
		logger,
	)

	runners := []bootstrap.Runner{scheduler}
	if cfg.Telemetry.EnableMetrics {
		runners = append(runners, metrics.NewServer(cfg.Telemetry.MetricsPort, logger))
	}

	logger.Info("Trade offer bot starting",
		"account", cfg.Account.SteamID64,
		"poll_interval_s", cfg.Timing.PollIntervalSeconds)

	if err := app.Run(runners...); err != nil {
		os.Exit(1)
	}
}
