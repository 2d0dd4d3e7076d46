package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/yicone/chatgpt-web-share/internal/config"
	"github.com/yicone/chatgpt-web-share/internal/conversations"
	"github.com/yicone/chatgpt-web-share/internal/cron"
	"github.com/yicone/chatgpt-web-share/internal/db"
	"github.com/yicone/chatgpt-web-share/internal/proxy"
	"github.com/yicone/chatgpt-web-share/internal/rotation"
	"github.com/yicone/chatgpt-web-share/internal/secret"
	"github.com/yicone/chatgpt-web-share/internal/server"
	"github.com/yicone/chatgpt-web-share/internal/stats"
	"github.com/yicone/chatgpt-web-share/internal/upstream"
	"github.com/yicone/chatgpt-web-share/internal/version"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	log.Printf("🚀 chatgpt-web-share %s (commit %s, built %s)", version.Version, version.Commit, version.BuildTime)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Println("📦 Database initialized")

	accountStore := db.NewAccountStore(database)
	conversationStore := db.NewConversationStore(database)

	var cipher *secret.Cipher
	if cfg.AccountSecret != "" {
		cipher, err = secret.NewCipher(cfg.AccountSecret)
		if err != nil {
			log.Fatalf("Failed to initialize account cipher: %v", err)
		}
	} else {
		log.Println("⚠️ chatgpt_user_secret not set, stored passwords will be ignored")
	}

	// The startup query fixes the account set and its processing order for
	// the lifetime of the daemon.
	accounts, err := accountStore.ListActiveAccounts()
	if err != nil {
		log.Fatalf("Failed to load accounts: %v", err)
	}
	log.Printf("📦 Loaded %d active accounts", len(accounts))

	// Reverse proxy subprocess. A start failure is fatal because the
	// feature was explicitly requested.
	var handle *proxy.Handle
	if cfg.RunReverseProxy {
		supervisor := proxy.NewSupervisor(proxy.Config{
			BinaryPath:      cfg.ReverseProxyBinaryPath,
			Port:            cfg.ReverseProxyPort,
			Paid:            cfg.ChatGPTPaid,
			AutoRefreshPUID: cfg.AutoRefreshProxyPUID,
			LogDir:          cfg.LogDir,
		})
		handle, err = supervisor.Start(accounts)
		if err != nil {
			log.Fatalf("Failed to start reverse proxy: %v", err)
		}
		time.Sleep(2 * time.Second) // give the proxy time to bind its port
	}

	refreshClient := proxy.NewRefreshClient(handle, cfg.ReverseProxyPort)
	authClient := upstream.NewClient(cfg.ChatGPTBaseURL)
	log.Printf("Using %s as ChatGPT base url", cfg.ChatGPTBaseURL)

	rotator := rotation.NewRotator(accounts, accountStore, authClient, refreshClient, cipher, rotation.Options{
		AccountDelay:            cfg.AccountDelay,
		DeactivateOnAuthFailure: cfg.DeactivateOnAuthFailure,
	})
	runner := rotation.NewRunner(rotator)

	statsStore := stats.Load(cfg.StatsFile)

	syncer := conversations.NewSyncer(conversationStore, conversations.NewHTTPFetcher(cfg.ChatGPTBaseURL), statsStore)
	syncNow := func(ctx context.Context) {
		syncer.Sync(ctx, runner.Accounts())
		statsStore.CountSyncRun()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SyncConversationsOnStartup {
		syncNow(ctx)
	} else {
		log.Println("Sync conversations on startup disabled. Jumping...")
	}

	// Periodic jobs share one scheduler; shutdown cancels in-flight runs.
	scheduler := cron.NewScheduler()
	scheduler.Every("token-rotation", cfg.TokenRefreshInterval, func(ctx context.Context) {
		summary := runner.Run(ctx)
		statsStore.CountRotationTick(summary.Updated, summary.Failed)
		statsStore.CountPUIDRefreshes(summary.PUIDRefreshed)
	})
	scheduler.Every("stats-dump", cfg.StatsDumpInterval, func(ctx context.Context) {
		statsStore.Dump(false)
	})
	if cfg.SyncConversationsRegularly {
		log.Printf("Sync conversations regularly enabled, will sync conversations every %s.", cfg.SyncConversationsInterval)
		scheduler.Every("conversation-sync", cfg.SyncConversationsInterval, syncNow)
	}
	scheduler.Start(ctx)

	router := server.Router(server.Deps{
		Runner:    runner,
		SyncNow:   syncNow,
		Stats:     statsStore,
		Handle:    handle,
		StartedAt: time.Now(),
		BaseCtx:   ctx,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: router}
	go func() {
		log.Printf("🚀 chatgpt-web-share credential daemon listening on http://%s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ Server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("On shutdown...")

	scheduler.Stop()
	handle.Stop()
	statsStore.Dump(true)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
}
