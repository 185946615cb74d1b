package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/adiwarman/lantun/adapters/capture"
	"github.com/adiwarman/lantun/adapters/playback"
	"github.com/adiwarman/lantun/adapters/store"
	"github.com/adiwarman/lantun/domain/repositories"
	"github.com/adiwarman/lantun/internal/config"
	"github.com/adiwarman/lantun/internal/realtime"
	"github.com/adiwarman/lantun/internal/voicemode"
)

func main() {
	// Load .env if present; real environment wins.
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	var captureSource repositories.CaptureSource
	var sink repositories.AudioSink
	if os.Getenv("LANTUN_MOCK_AUDIO") == "true" {
		captureSource = capture.NewMockCapture(logger, realtime.SampleRate)
		sink = playback.NewMockSink(logger)
	} else {
		captureSource = capture.NewPortAudioCapture(logger, realtime.SampleRate)
		sink = playback.NewPortAudioSink(logger, realtime.SampleRate)
	}

	chatStore := store.NewMemoryChatStore()

	factory := func(cb realtime.Callbacks) voicemode.VoiceSession {
		return realtime.NewSession(
			realtime.Options{
				URL:                cfg.ServiceURL,
				Model:              cfg.Model,
				Token:              cfg.Token,
				TranscriptionModel: cfg.TranscriptionModel,
			},
			captureSource,
			sink,
			cb,
			logger,
		)
	}

	controller := voicemode.NewController(
		factory,
		chatStore,
		voicemode.Settings{
			Available:    cfg.Available(),
			Voice:        cfg.Voice,
			Instructions: cfg.Instructions,
			Token:        cfg.Token,
		},
		func(n voicemode.Notice) {
			fmt.Printf("! %s\n", n.Message)
		},
		logger,
	)

	if !controller.Available() {
		logger.Fatal("No realtime endpoint configured, set LANTUN_SERVICE_URL")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	fmt.Println("Press Enter to toggle listening, Ctrl+C to quit.")
	go runToggleLoop(ctx, controller, chatStore)

	<-quit
	logger.Info("Shutting down")
	controller.Stop()
	printHistory(chatStore)
}

// runToggleLoop flips the voice session on and off each time the user
// presses Enter.
func runToggleLoop(ctx context.Context, controller *voicemode.Controller, chatStore *store.MemoryChatStore) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if controller.Listening() {
			controller.Stop()
			fmt.Println("Stopped listening.")
			printHistory(chatStore)
			continue
		}
		if err := controller.Start(ctx); err != nil {
			fmt.Printf("Could not start: %v\n", err)
			continue
		}
		fmt.Println("Listening...")
	}
}

func printHistory(chatStore *store.MemoryChatStore) {
	history := chatStore.History()
	if len(history) == 0 {
		return
	}
	fmt.Println(strings.Repeat("-", 40))
	for _, msg := range history {
		fmt.Printf("%s: %s\n", msg.Role, msg.Content)
	}
	fmt.Println(strings.Repeat("-", 40))
}
