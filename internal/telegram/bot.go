// Package telegram exposes the meal planner to a single Telegram user
// through a webhook.
package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"meal-planner-agent/internal/app"
	"meal-planner-agent/internal/config"
	"meal-planner-agent/internal/metrics"
	"meal-planner-agent/internal/planner"
	"meal-planner-agent/internal/report"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageLen is Telegram's limit on the text of one message.
const maxMessageLen = 4096

// Sender delivers messages to Telegram. *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// SessionRunner runs planning sessions. *app.App implements it.
type SessionRunner interface {
	RunSession(ctx context.Context, req planner.PlanRequest, verbose bool) (*planner.Result, error)
}

// Bot answers planning requests sent over the webhook. Only one session
// runs at a time.
type Bot struct {
	api          Sender
	runner       SessionRunner
	metricsStore *metrics.Store
	allowUserID  int64
	cachePath    string
	timeout      time.Duration

	busy atomic.Bool
	wg   sync.WaitGroup
}

// New creates a bot that talks through api.
func New(api Sender, runner SessionRunner, metricsStore *metrics.Store, cfg *config.Config) *Bot {
	return &Bot{
		api:          api,
		runner:       runner,
		metricsStore: metricsStore,
		allowUserID:  cfg.TelegramAllowUserID,
		cachePath:    cfg.LLM.CachePath,
		timeout:      10 * time.Minute,
	}
}

// NewBot initializes the Telegram API and sets the webhook.
func NewBot(cfg *config.Config, runner SessionRunner, metricsStore *metrics.Store) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	webhookURL := cfg.TelegramWebhookURL
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", webhookURL, err)
	}
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return New(bot, runner, metricsStore, cfg), nil
}

// Router serves the webhook, a health snapshot and Prometheus metrics.
func (b *Bot) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/webhook", b.handleWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.GetSysHealth(b.cachePath))
	})
	r.GET("/metrics", gin.WrapH(b.metricsStore.Handler()))
	return r
}

// Wait blocks until every message being processed has been answered.
func (b *Bot) Wait() { b.wg.Wait() }

func (b *Bot) handleWebhook(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		log.Printf("Error parsing update: %v", err)
		c.Status(http.StatusBadRequest)
		return
	}
	c.Status(http.StatusOK)

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if msg.From.ID != b.allowUserID {
		log.Printf("Unauthorized access attempt from UserID: %d (@%s)", msg.From.ID, msg.From.UserName)
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.processMessage(msg)
	}()
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "plan":
		req, source, err := app.ParseRequest([]byte(msg.CommandArguments()))
		if err == nil && source != "" {
			err = fmt.Errorf("inventory_source is not supported in chat, list the items under inventory")
		}
		if err != nil {
			b.reply(msg.Chat.ID, fmt.Sprintf("❌ *Could not read your request:*\n```\n%s\n```", safe(err)))
			return
		}
		b.runPlan(msg.Chat.ID, req)
	case "demo":
		name := strings.TrimSpace(msg.CommandArguments())
		if name == "" {
			name = app.DefaultScenario
		}
		s, ok := app.ScenarioByName(name)
		if !ok {
			b.reply(msg.Chat.ID, fmt.Sprintf("Unknown scenario `%s`.\n\n%s", safe(name), scenarioList()))
			return
		}
		b.runPlan(msg.Chat.ID, s.Request)
	default:
		b.reply(msg.Chat.ID, helpText())
	}
}

func (b *Bot) runPlan(chatID int64, req planner.PlanRequest) {
	if !b.busy.CompareAndSwap(false, true) {
		b.reply(chatID, "⏳ *Busy*: a plan is already being prepared. Try again when it is done.")
		return
	}
	defer b.busy.Store(false)

	status := tgbotapi.NewMessage(chatID, "🧑‍🍳 *Thinking...*\n(Drafting, reviewing and revising your week)")
	status.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(status)
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	res, err := b.runner.RunSession(ctx, req, false)
	if err != nil {
		log.Printf("Error generating plan: %v", err)
		edit := tgbotapi.NewEditMessageText(chatID, sent.MessageID,
			fmt.Sprintf("❌ *Error generating plan:*\n```\n%s\n```", safe(err)))
		edit.ParseMode = tgbotapi.ModeMarkdown
		b.api.Send(edit)
		return
	}

	chunks := splitMessage(report.Markdown(res), maxMessageLen)
	b.api.Send(tgbotapi.NewEditMessageText(chatID, sent.MessageID, chunks[0]))
	for _, chunk := range chunks[1:] {
		b.api.Send(tgbotapi.NewMessage(chatID, chunk))
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send reply: %v", err)
	}
}

// splitMessage cuts text into pieces of at most limit bytes, breaking at
// line ends where it can and never inside a UTF-8 sequence.
func splitMessage(text string, limit int) []string {
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	return append(chunks, text)
}

func safe(v any) string {
	return strings.ReplaceAll(fmt.Sprint(v), "`", "'")
}

func scenarioList() string {
	var sb strings.Builder
	sb.WriteString("Scenarios:\n")
	for _, s := range app.Scenarios() {
		sb.WriteString(fmt.Sprintf("• `%s`: %s\n", s.Name, s.Title))
	}
	return sb.String()
}

func helpText() string {
	return "🍽 *Meal Planner*\n\n" +
		"/plan followed by a YAML request, for example:\n" +
		"```\n/plan\npreferences: [vegetarian]\ninventory: [lentils, rice, onions]\nscheduled_meals:\n  Friday: Pizza night\nbudget: 40\ncooking_skill: beginner\n```\n" +
		"/demo [scenario] runs a built-in scenario.\n\n" + scenarioList()
}
