package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/arcwright/gamemaster/internal/config"
	"github.com/arcwright/gamemaster/internal/handler"
	"github.com/arcwright/gamemaster/internal/service/ai"
	gameService "github.com/arcwright/gamemaster/internal/service/game"
	"github.com/arcwright/gamemaster/internal/service/speech"
	"github.com/arcwright/gamemaster/internal/store/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	st, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("failed to open game database: %v", err)
	}
	defer st.Close()
	log.Printf("game database ready at %s", cfg.Storage.Path)

	// Initialize AI service
	var generator gameService.Generator
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without narration, check the Ark model environment variables")
		} else {
			generator = aiService
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, skipping AI initialization")
	}

	// Initialize Speech service
	var synthesizer gameService.Synthesizer
	if cfg.Speech.Enabled {
		synthesizer = speech.NewService(cfg.Speech)
		log.Println("Speech service initialized successfully")
	} else {
		log.Println("Speech credentials not configured, skipping voice narration")
	}

	coordinator := gameService.NewCoordinator(st, generator, synthesizer, nil)
	router := handler.NewRouter(coordinator)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Game Master backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
