package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/adiwarman/lantun/adapters/llm"
	"github.com/adiwarman/lantun/adapters/stt"
	"github.com/adiwarman/lantun/adapters/tts"
	"github.com/adiwarman/lantun/domain/repositories"
	"github.com/adiwarman/lantun/internal/devserver"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := devserver.New(
		buildRecognizer(logger),
		buildResponder(logger),
		buildSynthesizer(logger),
		logger,
		devserver.Config{
			TokenSecret: []byte(os.Getenv("LANTUN_TOKEN_SECRET")),
			Language:    os.Getenv("LANTUN_LANGUAGE"),
		},
	)
	server.Register(e)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server stopped", zap.Error(err))
		}
	}()
	logger.Info("Voice service started", zap.String("port", port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
}

// Each backend falls back to its offline stand-in when the relevant
// credential is missing, so the emulator runs with no setup at all.

func buildRecognizer(logger *zap.Logger) repositories.SpeechToText {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		return stt.NewGoogleSpeechToText(logger)
	}
	logger.Info("No Google credentials, using mock recognizer")
	return stt.NewMockSpeechToText(logger)
}

func buildResponder(logger *zap.Logger) repositories.Responder {
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		responder, err := llm.NewGeminiResponder(context.Background(), logger, apiKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			logger.Fatal("Failed to create Gemini responder", zap.Error(err))
		}
		return responder
	}
	logger.Info("No Gemini API key, using mock responder")
	return llm.NewMockResponder(logger)
}

func buildSynthesizer(logger *zap.Logger) repositories.TextToSpeech {
	if apiKey := os.Getenv("ELEVEN_LABS_API_KEY"); apiKey != "" {
		synth, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:  apiKey,
			VoiceID: os.Getenv("ELEVEN_LABS_VOICE_ID"),
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create ElevenLabs synthesizer", zap.Error(err))
		}
		return synth
	}
	logger.Info("No ElevenLabs API key, using tone synthesizer")
	return tts.NewToneTTS(logger)
}
