package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	apihttp "github.com/liorZats/Auto-sells-call-scheduler/api/http"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/agent"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/calls"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/config"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/llm"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/storage"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/stream"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/telephony"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/transcript"
	"github.com/liorZats/Auto-sells-call-scheduler/internal/tts"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	var uploader storage.Uploader
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		sb, err := storage.NewSupabase(storage.Config{
			URL:            cfg.SupabaseURL,
			ServiceRoleKey: cfg.SupabaseKey,
			Bucket:         cfg.SupabaseBucket,
		})
		if err != nil {
			log.Printf("supabase storage unavailable, recordings will not be archived: %v", err)
		} else {
			uploader = sb
		}
	}

	telephonySvc := telephony.New(telephony.Config{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioFromNumber,
		PublicHost: cfg.PublicHost,
	}, uploader)

	var synth agent.Synthesizer
	if cfg.DeepgramKey != "" {
		synth = tts.NewDeepgramClient(cfg.DeepgramKey, cfg.DeepgramModel)
	} else {
		synth = tts.NewElevenLabsClient(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
	}

	tracker := calls.NewTracker()
	coord := agent.NewCoordinator(
		llm.NewCerebrasClient(cfg.CerebrasKey, cfg.CerebrasModelID),
		synth,
		tracker,
	)
	manager := agent.NewManager(coord, func() agent.Recognizer {
		return transcript.NewAssemblyAIService(cfg.AssemblyAIKey)
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	handlers := apihttp.NewHandlers(telephonySvc, tracker, stream.NewHandler(manager), cfg.TwilioAuthToken, cfg.PublicHost)
	handlers.Register(e)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
}
