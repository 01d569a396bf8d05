package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cargo-bidding-backend/bidding"
	"cargo-bidding-backend/config"
	"cargo-bidding-backend/controllers"
	"cargo-bidding-backend/database"
	"cargo-bidding-backend/metadata"
	"cargo-bidding-backend/middlewares"
	"cargo-bidding-backend/notify"
	"cargo-bidding-backend/routes"

	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := newLogger(cfg.Log)
	slog.SetDefault(log)

	// ---- Database (shared by the server and admin commands)
	db, err := database.Connect(cfg.DB, log)
	if err != nil {
		log.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		log.Error("migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := database.SeedMetadata(db); err != nil {
		log.Error("seed metadata", slog.Any("error", err))
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "create-platform" {
		if err := createPlatform(db, os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := serve(cfg, db, log); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(cfg config.Config, db *gorm.DB, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver, err := metadata.NewResolver(db, cfg.Bidding.CurrencyCacheSize)
	if err != nil {
		return err
	}

	// Webhook workers outlive ctx so Close can drain the queue after shutdown.
	dispatcher := notify.NewDispatcher(db, cfg.Webhook, log)
	dispatcher.Start(context.Background())
	defer dispatcher.Close()

	svc := bidding.NewService(db, resolver, dispatcher, bidding.WithLogger(log))
	go svc.RunReconciler(ctx, cfg.Bidding.ReconcileInterval)

	h := &controllers.Handler{
		DB:       db,
		Bidding:  svc,
		Metadata: resolver,
		JWT:      middlewares.NewJWT(cfg.JWT.Secret, cfg.JWT.TTL()),
	}
	app := routes.NewApp(cfg.Server, db, h, log)

	errc := make(chan error, 1)
	go func() {
		log.Info("API server starting", slog.String("port", cfg.Server.Port))
		errc <- app.Listen(":" + cfg.Server.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

func createPlatform(db *gorm.DB, args []string) error {
	fs := flag.NewFlagSet("create-platform", flag.ContinueOnError)
	var in database.PlatformInput
	fs.StringVar(&in.CompanyName, "name", "", "platform company name (required)")
	fs.StringVar(&in.ContactEmail, "email", "", "contact email (required)")
	fs.StringVar(&in.ContactPhone, "phone", "", "contact phone")
	fs.StringVar(&in.ContactPerson, "person", "", "contact person")
	fs.StringVar(&in.WebhookURL, "webhook", "", "URL notified when a bid is accepted or rejected")
	if err := fs.Parse(args); err != nil {
		return err
	}

	platform, key, err := database.CreatePlatform(db, in)
	if err != nil {
		return err
	}
	fmt.Printf("platform %s (%s) created\n", platform.CompanyName, platform.ID)
	fmt.Printf("API key (shown once): %s\n", key)
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
