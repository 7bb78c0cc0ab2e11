package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meal-planner-agent/internal/app"
	"meal-planner-agent/internal/config"
	"meal-planner-agent/internal/llm"
	"meal-planner-agent/internal/metrics"
	"meal-planner-agent/internal/planner"
	"meal-planner-agent/internal/report"
	"meal-planner-agent/internal/shared"
	"meal-planner-agent/internal/shopping"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "plan":
		err = runPlan(ctx, os.Args[2:])
	case "demo":
		err = runDemo(ctx, os.Args[2:])
	case "scenarios":
		printScenarios()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		stop()
		log.Fatal(err)
	}
}

func runPlan(ctx context.Context, args []string) error {
	planCmd := flag.NewFlagSet("plan", flag.ExitOnError)
	settings := planCmd.String("config", "", "YAML settings file")
	requestPath := planCmd.String("request", "", "YAML or JSON plan request (required)")
	inventory := planCmd.String("inventory", "", "Extra inventory from a .txt/.yaml/.html file or URL")
	verbose := planCmd.Bool("verbose", false, "Show progress of every iteration")
	asJSON := planCmd.Bool("json", false, "Print the result as JSON")
	publish := planCmd.Bool("publish", false, "Publish the plan to Ghost")
	planCmd.Parse(args)

	if *requestPath == "" {
		planCmd.Usage()
		return errors.New("plan: -request is required")
	}

	return withApp(ctx, *settings, func(application *app.App) error {
		req, err := application.LoadRequest(ctx, *requestPath)
		if err == nil && *inventory != "" {
			req, err = application.WithInventory(ctx, req, *inventory)
		}
		if err != nil {
			return fmt.Errorf("invalid request: %w", err)
		}

		res, err := runSession(ctx, application, req, *verbose)
		if err != nil {
			return err
		}
		if err := printResult(res, *asJSON); err != nil {
			return err
		}

		if *publish {
			post, err := application.Publish(ctx, res, true)
			if err != nil {
				return fmt.Errorf("publishing failed: %w", err)
			}
			fmt.Printf("Published '%s' (%s)\n", post.Title, post.URL)
		}
		return nil
	})
}

func runDemo(ctx context.Context, args []string) error {
	demoCmd := flag.NewFlagSet("demo", flag.ExitOnError)
	settings := demoCmd.String("config", "", "YAML settings file")
	name := demoCmd.String("scenario", app.DefaultScenario, "Scenario to run (see 'scenarios')")
	verbose := demoCmd.Bool("verbose", true, "Show progress of every iteration")
	demoCmd.Parse(args)

	scenario, ok := app.ScenarioByName(*name)
	if !ok {
		printScenarios()
		return fmt.Errorf("unknown scenario: %s", *name)
	}

	return withApp(ctx, *settings, func(application *app.App) error {
		fmt.Printf("=== %s ===\n%s\n\n", scenario.Title, scenario.Description)
		res, err := runSession(ctx, application, scenario.Request, *verbose)
		if err != nil {
			return err
		}
		return printResult(res, false)
	})
}

// setupApp builds the application for a command. Tests replace it.
var setupApp = setup

// withApp runs fn against a freshly built application and always
// releases it afterwards, so the model cache is flushed even when fn
// fails.
func withApp(ctx context.Context, settingsPath string, fn func(*app.App) error) error {
	application, closeFn, err := setupApp(ctx, settingsPath)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(application)
}

// setup loads configuration and builds the application. The returned
// function releases the model client and flushes its cache.
func setup(ctx context.Context, settingsPath string) (*app.App, func(), error) {
	cfg, err := config.Load([]string{".env"}, settingsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	textGen, closer, err := llm.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize %s client: %w", cfg.LLM.Provider, err)
	}

	application := app.NewApp(cfg, textGen, metrics.NewStore(),
		app.WithProgress(report.NewConsoleObserver(os.Stdout)))

	return application, func() {
		if err := closer.Close(); err != nil {
			log.Printf("Warning: failed to close model client: %v", err)
		}
	}, nil
}

func runSession(ctx context.Context, application *app.App, req planner.PlanRequest, verbose bool) (*planner.Result, error) {
	res, err := application.RunSession(ctx, req, verbose)
	if err != nil {
		switch {
		case shared.IsValidation(err):
			return nil, fmt.Errorf("invalid input: %w", err)
		case shared.IsResponseParse(err):
			return nil, fmt.Errorf("the model returned an unreadable reply: %w", err)
		case shared.IsService(err):
			return nil, fmt.Errorf("the model service failed: %w", err)
		}
		return nil, fmt.Errorf("planning failed: %w", err)
	}
	return res, nil
}

type jsonResult struct {
	SessionID   string                    `json:"session_id"`
	StopReason  planner.StopReason        `json:"stop_reason"`
	FinalScore  float64                   `json:"final_score"`
	Improvement float64                   `json:"improvement"`
	Plan        planner.MealPlan          `json:"plan"`
	Shopping    shopping.List             `json:"shopping"`
	History     []planner.IterationRecord `json:"history"`
	Usage       shared.TokenUsage         `json:"usage"`
	DurationMS  int64                     `json:"duration_ms"`
}

func printResult(res *planner.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(jsonResult{
			SessionID:   res.SessionID,
			StopReason:  res.StopReason,
			FinalScore:  res.FinalScore(),
			Improvement: res.Improvement(),
			Plan:        res.Plan,
			Shopping:    shopping.Build(res.Plan),
			History:     res.History,
			Usage:       res.Usage(),
			DurationMS:  res.Duration.Milliseconds(),
		}); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return nil
	}

	fmt.Print(report.RenderTerminal(report.Markdown(res)))
	usage := res.Usage()
	fmt.Printf("\nSession %s: %d tokens in %s\n", res.SessionID, usage.PromptTokens+usage.CompletionTokens, res.Duration.Round(time.Millisecond))
	return nil
}

func printScenarios() {
	fmt.Println("Scenarios:")
	for _, s := range app.Scenarios() {
		fmt.Printf("  %-22s %s\n", s.Name, s.Title)
	}
}

func printUsage() {
	fmt.Println("Usage: ai-meal-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  plan        Plan a week from a request file (-request file.yaml)")
	fmt.Println("  demo        Run a built-in scenario (-scenario name)")
	fmt.Println("  scenarios   List the built-in scenarios")
}
