package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"meal-planner-agent/internal/config"
	"meal-planner-agent/internal/metrics"
	"meal-planner-agent/internal/planner"
	"meal-planner-agent/internal/scoring"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const allowedUser = 42

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

// texts returns the text of every message and edit sent so far.
func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

type fakeRunner struct {
	mu   sync.Mutex
	reqs []planner.PlanRequest
	err  error
}

func (f *fakeRunner) RunSession(ctx context.Context, req planner.PlanRequest, verbose bool) (*planner.Result, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var scores []scoring.CriterionScore
	for _, c := range scoring.AllCriteria() {
		scores = append(scores, scoring.CriterionScore{Criterion: c, Score: 90})
	}
	eval, err := scoring.NewEvalResult(scores, scoring.DefaultWeights(), "")
	if err != nil {
		return nil, err
	}
	plan := planner.MealPlan{Days: []planner.DayMeal{{Day: planner.Monday, Meal: planner.Meal{Name: "Lentil Soup"}}}}
	return &planner.Result{
		Plan:       plan,
		StopReason: planner.StopThresholdMet,
		History:    []planner.IterationRecord{{Iteration: 1, Plan: plan, Evaluation: eval}},
	}, nil
}

func newTestBot(runner SessionRunner) (*Bot, *fakeSender) {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.TelegramAllowUserID = allowedUser
	sender := &fakeSender{}
	return New(sender, runner, metrics.NewStore(), cfg), sender
}

// post delivers a text message from userID through the webhook and waits
// for the bot to answer.
func post(t *testing.T, b *Bot, userID int64, text string) *httptest.ResponseRecorder {
	t.Helper()
	msg := map[string]any{
		"message_id": 1,
		"from":       map[string]any{"id": userID, "username": "cook"},
		"chat":       map[string]any{"id": 7, "type": "private"},
		"date":       0,
		"text":       text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg["entities"] = []map[string]any{{"type": "bot_command", "offset": 0, "length": len(cmd)}}
	}
	body, err := json.Marshal(map[string]any{"update_id": 1, "message": msg})
	if err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	b.Router().ServeHTTP(w, req)
	b.Wait()
	return w
}

func TestWebhook_IgnoresOtherUsers(t *testing.T) {
	runner := &fakeRunner{}
	b, sender := newTestBot(runner)

	w := post(t, b, 99, "/demo")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if len(sender.texts()) != 0 || len(runner.reqs) != 0 {
		t.Errorf("Expected no reply to a stranger, got %v", sender.texts())
	}
}

func TestWebhook_Help(t *testing.T) {
	b, sender := newTestBot(&fakeRunner{})
	post(t, b, allowedUser, "hello")

	texts := sender.texts()
	if len(texts) != 1 || !strings.Contains(texts[0], "/plan") || !strings.Contains(texts[0], "budget-vegetarian") {
		t.Errorf("Expected help text, got %v", texts)
	}
}

func TestWebhook_Plan(t *testing.T) {
	runner := &fakeRunner{}
	b, sender := newTestBot(runner)

	post(t, b, allowedUser, "/plan\ninventory: [lentils, rice]\nbudget: 30\n")

	if len(runner.reqs) != 1 {
		t.Fatalf("Expected one session, got %d", len(runner.reqs))
	}
	if got := runner.reqs[0].Inventory; len(got) != 2 || got[0] != "lentils" {
		t.Errorf("Unexpected inventory %v", got)
	}
	texts := sender.texts()
	if len(texts) != 2 {
		t.Fatalf("Expected status and plan, got %v", texts)
	}
	if !strings.Contains(texts[0], "Thinking") {
		t.Errorf("Expected a status message first, got %q", texts[0])
	}
	if !strings.Contains(texts[1], "## Monday: Lentil Soup") {
		t.Errorf("Expected the plan, got %q", texts[1])
	}
}

func TestWebhook_PlanBadYAML(t *testing.T) {
	runner := &fakeRunner{}
	b, sender := newTestBot(runner)

	post(t, b, allowedUser, "/plan\ninventroy: [eggs]")

	if len(runner.reqs) != 0 {
		t.Error("Expected no session for a bad request")
	}
	if texts := sender.texts(); len(texts) != 1 || !strings.Contains(texts[0], "Could not read your request") {
		t.Errorf("Expected a parse error reply, got %v", texts)
	}
}

func TestWebhook_Demo(t *testing.T) {
	runner := &fakeRunner{}
	b, sender := newTestBot(runner)

	post(t, b, allowedUser, "/demo nearly-empty-kitchen")
	if len(runner.reqs) != 1 || runner.reqs[0].Budget != 50 {
		t.Fatalf("Expected the nearly empty kitchen scenario, got %+v", runner.reqs)
	}

	post(t, b, allowedUser, "/demo nope")
	texts := sender.texts()
	if last := texts[len(texts)-1]; !strings.Contains(last, "Unknown scenario") {
		t.Errorf("Expected unknown scenario reply, got %q", last)
	}
}

func TestWebhook_SessionError(t *testing.T) {
	b, sender := newTestBot(&fakeRunner{err: errors.New("model `down`")})
	post(t, b, allowedUser, "/demo")

	texts := sender.texts()
	if last := texts[len(texts)-1]; !strings.Contains(last, "Error generating plan") || strings.Contains(last, "`down`") {
		t.Errorf("Expected a sanitized error reply, got %q", last)
	}
}

func TestWebhook_Busy(t *testing.T) {
	runner := &fakeRunner{}
	b, sender := newTestBot(runner)
	b.busy.Store(true)

	post(t, b, allowedUser, "/demo")

	if len(runner.reqs) != 0 {
		t.Error("Expected no session while busy")
	}
	if texts := sender.texts(); len(texts) != 1 || !strings.Contains(texts[0], "Busy") {
		t.Errorf("Expected busy reply, got %v", texts)
	}
}

func TestWebhook_BadPayload(t *testing.T) {
	b, _ := newTestBot(&fakeRunner{})
	w := httptest.NewRecorder()
	b.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	b, _ := newTestBot(&fakeRunner{})

	w := httptest.NewRecorder()
	b.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	var health metrics.SysHealth
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("Expected health JSON, got %q: %v", w.Body.String(), err)
	}
	if health.Goroutines == 0 {
		t.Error("Expected a goroutine count")
	}

	w = httptest.NewRecorder()
	b.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Errorf("Expected Prometheus metrics, got %d", w.Code)
	}
}

func TestSplitMessage(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	text := strings.Join(lines, "\n")

	chunks := splitMessage(text, 20)
	for _, c := range chunks {
		if len(c) > 20 {
			t.Errorf("Chunk too long: %q", c)
		}
	}
	if strings.Join(chunks, "\n") != text {
		t.Errorf("Chunks do not reassemble the text: %q", chunks)
	}

	if got := splitMessage(strings.Repeat("x", 25), 10); len(got) != 3 {
		t.Errorf("Expected hard cuts without newlines, got %q", got)
	}
}

func TestSplitMessage_KeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("█", 10) + strings.Repeat("🥕", 5)

	chunks := splitMessage(text, 7)
	for _, c := range chunks {
		if len(c) > 7 {
			t.Errorf("Chunk too long: %q", c)
		}
		if !utf8.ValidString(c) {
			t.Errorf("Chunk splits a rune: %q", c)
		}
	}
	if strings.Join(chunks, "") != text {
		t.Errorf("Chunks do not reassemble the text: %q", chunks)
	}
}
