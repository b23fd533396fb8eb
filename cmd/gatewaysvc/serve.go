package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	config "github.com/avvvet/timeline-services/configs"
	"github.com/avvvet/timeline-services/internal/comm"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/broker"
	handlers "github.com/avvvet/timeline-services/internal/gatewaysvc/handlers"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/service"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/sizeguard"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/store"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/ws"
	"github.com/avvvet/timeline-services/internal/nats"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	instanceId := config.CreateUniqueInstance(SERVICE_NAME)
	if cfg.Reload {
		log.Warnf("SERVER_RELOAD is set, live reload is not supported and the flag is ignored")
	}

	cards, media, err := openTables(cfg)
	if err != nil {
		return err
	}
	log.Infof("%s backend ready, tables %s and %s", cfg.Backend, cards.Name(), media.Name())

	hub := ws.NewWs()
	var notifier comm.Notifier = hub

	if cfg.NatsURL != "" {
		n, err := nats.Connect(cfg.NatsURL, cfg.NatsToken)
		if err != nil {
			return fmt.Errorf("unable to connect to NATS server: %w", err)
		}
		defer n.Conn.Close()
		log.Printf("NATS connection established successfully %s", n.Url)

		b := broker.NewBroker(n.Conn, cfg.EventsSubject)
		sub, err := b.Subscribe(hub.Notify)
		if err != nil {
			return fmt.Errorf("unable to subscribe to %s: %w", cfg.EventsSubject, err)
		}
		defer sub.Unsubscribe()
		notifier = b
	}

	opts := service.Options{
		Guard:    sizeguard.New(cfg.SizeCeiling, cfg.SizeIndexes),
		Limits:   store.Limits{MaxPages: cfg.MaxPages, MaxItems: cfg.MaxItems},
		Notifier: notifier,
	}
	cardService := service.NewCardService(cards, opts)
	mediaService := service.NewMediaService(media, opts)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.CORSOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if cfg.Workers > 0 {
		r.Use(middleware.Throttle(cfg.Workers))
	}
	r.Use(c.Handler)

	// Init handlers and routes
	h := handlers.NewHandler(cardService, mediaService, hub)
	h.SetRoutes(r)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	log.WithField("instance_id", instanceId).Infof("%s service running at %s", SERVICE_NAME, server.Addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("ListenAndServe(): %w", err)
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s service shutdown failed: %w", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
	return nil
}
