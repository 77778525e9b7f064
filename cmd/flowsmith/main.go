// Command flowsmith runs declarative workflow documents from the command
// line.
//
// Usage:
//
//	flowsmith run --config workflow.yaml       # execute a workflow
//	flowsmith run --config workflow.yaml --async
//	flowsmith validate --config workflow.yaml  # construct without executing
//	flowsmith history --workflow name          # list recent runs
//	flowsmith version
//
// Agent-backed steps talk to an OpenAI-compatible endpoint configured via
// FLOWSMITH_BASE_URL and FLOWSMITH_API_KEY. Run results are optionally
// persisted to a SQLite history database with --history.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flowsmith-ai/flowsmith/agent"
	"github.com/flowsmith-ai/flowsmith/config"
	"github.com/flowsmith-ai/flowsmith/flow"
	"github.com/flowsmith-ai/flowsmith/history"
	"github.com/flowsmith-ai/flowsmith/internal/telemetry"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger := newLogger()
	defer logger.Sync()

	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(os.Args[2:], logger)
	case "validate":
		err = cmdValidate(os.Args[2:])
	case "history":
		err = cmdHistory(os.Args[2:], logger)
	case "version":
		fmt.Println(version())
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: flowsmith <run|validate|history|version> [flags]")
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if os.Getenv("FLOWSMITH_DEBUG") != "" {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func cmdRun(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "workflow document (YAML)")
	historyPath := fs.String("history", "", "SQLite history database path")
	redisAddr := fs.String("redis", "", "Redis address for shared workflow state")
	async := fs.Bool("async", false, "run forked branches concurrently")
	otlpEndpoint := fs.String("otlp", "", "OTLP gRPC endpoint for trace export")
	fs.Parse(args)

	if *configPath == "" {
		return fmt.Errorf("--config is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Init(telemetry.Config{
		Enabled:      *otlpEndpoint != "",
		ServiceName:  "flowsmith",
		OTLPEndpoint: *otlpEndpoint,
		SampleRate:   1.0,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		providers.Shutdown(shutdownCtx)
	}()

	def, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}

	provider := agent.NewOpenAICompat(agent.OpenAICompatConfig{
		BaseURL: os.Getenv("FLOWSMITH_BASE_URL"),
		APIKey:  os.Getenv("FLOWSMITH_API_KEY"),
	}, logger)

	opts := []flow.Option{
		flow.WithLogger(logger),
		flow.WithAgentFactory(agent.Factory(agent.StaticResolver(provider), logger)),
	}
	if *redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer client.Close()
		state := flow.NewRedisState(client, "flowsmith:"+def.Name, logger)
		if err := state.Ping(ctx); err != nil {
			return fmt.Errorf("redis unreachable: %w", err)
		}
		opts = append(opts, flow.WithState(state))
	}

	wf, err := def.Workflow(opts...)
	if err != nil {
		return err
	}

	started := time.Now()
	var result *flow.RunResult
	if *async {
		result, err = wf.Start(ctx)
	} else {
		result, err = wf.Run(ctx)
	}
	if err != nil {
		return err
	}

	if *historyPath != "" {
		db, err := history.Open(*historyPath)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		recorder, err := history.NewRecorder(db, logger)
		if err != nil {
			return fmt.Errorf("init history: %w", err)
		}
		if _, err := recorder.Record(ctx, wf.Name(), started, result); err != nil {
			logger.Warn("record run failed", zap.Error(err))
		}
	}

	return printJSON(result)
}

func cmdValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "workflow document (YAML)")
	fs.Parse(args)

	if *configPath == "" {
		return fmt.Errorf("--config is required")
	}
	def, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	// Construction runs the structural checks; no step executes.
	wf, err := def.Workflow(flow.WithHandler(func(context.Context, *flow.Call) (string, error) {
		return "", nil
	}))
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d steps, process %v\n", wf.Name(), len(wf.Tasks()), def.Process)
	return nil
}

func cmdHistory(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	historyPath := fs.String("history", "flowsmith.db", "SQLite history database path")
	workflow := fs.String("workflow", "", "workflow name")
	limit := fs.Int("limit", 10, "max runs to list")
	fs.Parse(args)

	if *workflow == "" {
		return fmt.Errorf("--workflow is required")
	}
	db, err := history.Open(*historyPath)
	if err != nil {
		return err
	}
	recorder, err := history.NewRecorder(db, logger)
	if err != nil {
		return err
	}
	records, err := recorder.Recent(context.Background(), *workflow, *limit)
	if err != nil {
		return err
	}
	return printJSON(records)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func version() string {
	info, ok := debug.ReadBuildInfo()
	if ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
