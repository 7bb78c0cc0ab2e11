package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meal-planner-agent/internal/app"
	"meal-planner-agent/internal/config"
	"meal-planner-agent/internal/llm"
	"meal-planner-agent/internal/metrics"
	"meal-planner-agent/internal/telegram"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load([]string{".env"}, os.Getenv("MEAL_PLANNER_SETTINGS"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.TelegramBotToken == "" || cfg.TelegramAllowUserID == 0 {
		log.Fatalf("TELEGRAM_BOT_TOKEN and TELEGRAM_ALLOW_USER_ID must be set")
	}

	ctx := context.Background()

	// 2. Initialize the model client
	textGen, closer, err := llm.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create %s client: %v", cfg.LLM.Provider, err)
	}
	defer closer.Close()

	// 3. Initialize Services
	metricsStore := metrics.NewStore()
	application := app.NewApp(cfg, textGen, metricsStore)

	// 4. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, application, metricsStore)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	// 5. Start Server with Graceful Shutdown
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: bot.Router(),
	}

	go func() {
		log.Printf("Telegram Bot Server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	bot.Wait()

	log.Println("Server exiting")
}
