package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/airbot/internal/config"
	"github.com/sandevgo/airbot/internal/core"
	"github.com/sandevgo/airbot/internal/providers/llm"
	"github.com/sandevgo/airbot/internal/sensor/retrieval"
	"github.com/sandevgo/airbot/internal/sensor/timeparse"
	"github.com/sandevgo/airbot/internal/service/assistant"
	"github.com/sandevgo/airbot/internal/service/command"
	"github.com/sandevgo/airbot/internal/service/followup"
	"github.com/sandevgo/airbot/internal/service/router"
	"github.com/sandevgo/airbot/internal/service/session"
	"github.com/sandevgo/airbot/internal/storage/objstore"
	"github.com/sandevgo/airbot/internal/storage/sqlite"
	"github.com/sandevgo/airbot/pkg/log"
	"github.com/sandevgo/airbot/pkg/retry"
	"github.com/sandevgo/airbot/pkg/srv"
)

// App is everything a command needs to run turns.
type App struct {
	cfg       *config.AppConfig
	sessCfg   *config.SessionConfig
	assistant *assistant.Assistant
	sessions  *session.Manager
	commands  *command.Router
	// turns is nil unless sessions live in sqlite.
	turns   *sqlite.Turns
	janitor *session.Janitor
	// cleanups close stores on shutdown.
	cleanups []srv.Service
}

func NewApp(ctx context.Context) (*App, error) {
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		return nil, fmt.Errorf("failed to init env: %w", err)
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	llmCfg := config.NewLLMConfig(ctx)
	storeCfg := config.NewStoreConfig(ctx)
	retCfg := config.NewRetrievalConfig(ctx)
	sessCfg := config.NewSessionConfig(ctx)

	app := &App{cfg: appCfg, sessCfg: sessCfg}

	// 2. Object stores
	sensors, err := app.openStore(ctx, *storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sensor store: %w", err)
	}
	logs := sensors
	if logCfg := storeCfg.ForLogs(); logCfg != *storeCfg {
		if logs, err = app.openStore(ctx, logCfg); err != nil {
			return nil, fmt.Errorf("failed to open chat log store: %w", err)
		}
	}
	sensors = objstore.WithRetry(sensors, retry.NewRetrier(retry.NewFetchConfig(storeCfg.FetchRetries)))

	// 3. Sessions and chat logs
	repo, purger, err := app.initSessions(ctx, logs, storeCfg.SessionPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session storage: %w", err)
	}
	chatlog := core.ChatLogs{objstore.NewChatLog(logs, storeCfg.ChatlogPrefix, core.Now)}
	if app.turns != nil {
		chatlog = append(chatlog, app.turns)
	}
	app.sessions = session.NewManager(repo, sessCfg, core.Now)
	app.janitor = session.NewJanitor(app.sessions, purger)

	// 4. LLM
	answerLLM, err := llm.NewCompleter(ctx, llmCfg, llmCfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	intentLLM := answerLLM
	if llmCfg.GetIntentModel() != llmCfg.Model {
		if intentLLM, err = llm.NewCompleter(ctx, llmCfg, llmCfg.GetIntentModel()); err != nil {
			return nil, fmt.Errorf("failed to initialize intent LLM: %w", err)
		}
	}

	// 5. Retrieval and routing
	extractor := timeparse.New(core.Now, timeparse.ParseBareHourPolicy(retCfg.BareHourDate))
	fm := followup.New(extractor)
	retriever := retrieval.New(sensors, extractor, fm, retCfg, storeCfg.MaxFileSize)
	classifier := router.NewClassifier(llm.Instrument(intentLLM, "intent", retry.NewRetrier(retry.NewFetchConfig(1))))
	rt := router.New(classifier, retriever, extractor)

	// 6. Assistant
	app.assistant = assistant.New(
		app.sessions,
		rt,
		retriever,
		fm,
		llm.Instrument(answerLLM, "answer", retry.NewDefaultRetrier()),
		chatlog,
		llmCfg,
		sessCfg,
		retCfg.TopK,
		core.Now,
	)
	app.commands = command.New(command.NewCommands(app.sessions, sessCfg.PromptHistoryTurns))

	return app, nil
}

func (a *App) openStore(ctx context.Context, cfg config.StoreConfig) (core.ObjectStore, error) {
	switch cfg.Backend {
	case "fs":
		return objstore.NewFS(cfg.Root)
	case "gcs":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("gcs store needs STORE_BUCKET")
		}
		g, err := objstore.NewGCS(ctx, cfg.Bucket, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		a.cleanups = append(a.cleanups, srv.NewCleanup("gcs", g.Close))
		return g, nil
	case "memory":
		return objstore.NewMemory(cfg.Root), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}

func (a *App) initSessions(ctx context.Context, logs core.ObjectStore, prefix string) (core.SessionRepository, session.Purger, error) {
	switch a.cfg.SessionBackend {
	case "objectstore":
		return objstore.NewSessionBlobs(logs, prefix), nil, nil
	case "sqlite":
		if err := os.MkdirAll(a.cfg.RuntimePath, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create runtime directory: %w", err)
		}
		db, err := sqlite.NewDB(ctx, a.cfg.GetDatabasePath())
		if err != nil {
			return nil, nil, err
		}
		a.cleanups = append(a.cleanups, srv.NewCleanup("sqlite", db.Close))
		a.turns = sqlite.NewTurns(db, core.Now)
		repo := sqlite.NewSessions(db)
		return repo, repo, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend: %s", a.cfg.SessionBackend)
	}
}

// Close releases stores. Safe to call once the app is no longer used.
func (a *App) Close(ctx context.Context) {
	if err := srv.StopServices(ctx, a.cleanups); err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("failed to close stores")
	}
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
