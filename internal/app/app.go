// Package app wires configuration, the language model, metrics and
// publishing around planning sessions.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"meal-planner-agent/internal/config"
	"meal-planner-agent/internal/ghost"
	"meal-planner-agent/internal/llm"
	"meal-planner-agent/internal/metrics"
	"meal-planner-agent/internal/pantry"
	"meal-planner-agent/internal/planner"
	"meal-planner-agent/internal/report"
	"meal-planner-agent/internal/shared"
)

// ErrPublishingDisabled is returned by Publish when no Ghost blog is
// configured.
var ErrPublishingDisabled = errors.New("ghost publishing is not configured")

// App holds the application's dependencies.
type App struct {
	cfg          *config.Config
	textGen      llm.TextGenerator
	metricsStore *metrics.Store
	publisher    ghost.Publisher
	pantry       *pantry.Loader
	progress     planner.Observer
}

// Option configures an App.
type Option func(*App)

// WithPublisher sets where Publish sends plans.
func WithPublisher(p ghost.Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// WithProgress sets the observer used by verbose sessions.
func WithProgress(o planner.Observer) Option {
	return func(a *App) { a.progress = o }
}

// WithPantryLoader replaces the loader used for inventory sources.
func WithPantryLoader(l *pantry.Loader) Option {
	return func(a *App) { a.pantry = l }
}

// NewApp creates and initializes a new App instance. A Ghost publisher is
// created from cfg when a blog URL and admin key are set.
func NewApp(cfg *config.Config, textGen llm.TextGenerator, metricsStore *metrics.Store, opts ...Option) *App {
	a := &App{
		cfg:          cfg,
		textGen:      textGen,
		metricsStore: metricsStore,
		pantry:       pantry.NewLoader(),
		progress:     planner.LogObserver{},
	}
	if cfg.GhostURL != "" && cfg.GhostAdminKey != "" {
		a.publisher = ghost.NewClient(cfg.GhostURL, cfg.GhostAdminKey, "meal-plan")
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metricsStore == nil {
		a.metricsStore = metrics.NewStore()
	}
	return a
}

// Metrics returns the store sessions are recorded in.
func (a *App) Metrics() *metrics.Store { return a.metricsStore }

// Settings converts the planner section of the configuration.
func (a *App) Settings() (planner.Settings, error) {
	weights, err := a.cfg.Planner.Weights()
	if err != nil {
		return planner.Settings{}, err
	}
	s := planner.Settings{
		QualityThreshold: a.cfg.Planner.QualityThreshold,
		MaxIterations:    a.cfg.Planner.MaxIterations,
		Weights:          weights,
	}
	return s, s.Validate()
}

// RunSession plans a week for req. When verbose is set progress goes to
// the configured observer. A session that fails because a model reply
// could not be read is restarted up to SessionRetries times; any other
// error is returned at once.
func (a *App) RunSession(ctx context.Context, req planner.PlanRequest, verbose bool) (*planner.Result, error) {
	settings, err := a.Settings()
	if err != nil {
		return nil, err
	}

	var obs planner.Observer = planner.NopObserver{}
	if verbose {
		obs = a.progress
	}
	ctrl, err := planner.NewController(a.textGen, settings,
		planner.WithObserver(obs),
		planner.WithUsageRecorder(a.metricsStore.RecordMeta),
	)
	if err != nil {
		return nil, err
	}

	attempts := 1 + max(a.cfg.Planner.SessionRetries, 0)
	runCtx := ctx
	for attempt := 1; ; attempt++ {
		res, err := ctrl.Run(runCtx, req)
		a.metricsStore.RecordSession(res, err)
		if err == nil {
			return res, nil
		}
		if !shared.IsResponseParse(err) || attempt >= attempts || ctx.Err() != nil {
			return nil, err
		}
		log.Printf("Warning: session attempt %d/%d failed: %v. Retrying.", attempt, attempts, err)
		// A cached reply would fail the same way.
		runCtx = llm.WithRefresh(ctx)
	}
}

// Publish posts the rendered plan of res to Ghost, as a draft unless
// publish is set.
func (a *App) Publish(ctx context.Context, res *planner.Result, publish bool) (*ghost.Post, error) {
	if a.publisher == nil {
		return nil, ErrPublishingDisabled
	}
	html, err := report.HTML(report.Markdown(res))
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Weekly Meal Plan (%s)", time.Now().Format("2 Jan 2006"))
	post, err := a.publisher.CreatePost(ctx, title, html, publish)
	if err != nil {
		return nil, fmt.Errorf("failed to publish plan: %w", err)
	}
	return post, nil
}
