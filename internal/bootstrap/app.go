package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"smartcv-backend/internal/analyses"
	"smartcv-backend/internal/analytics"
	"smartcv-backend/internal/coupons"
	"smartcv-backend/internal/extract"
	"smartcv-backend/internal/ledger"
	"smartcv-backend/internal/llm"
	"smartcv-backend/internal/llm/gemini"
	"smartcv-backend/internal/llm/openai"
	"smartcv-backend/internal/payments"
	"smartcv-backend/internal/services/health"
	"smartcv-backend/internal/shared/config"
	"smartcv-backend/internal/shared/server"
	"smartcv-backend/internal/shared/server/middleware"
	"smartcv-backend/internal/shared/storage/db"
	"smartcv-backend/internal/shared/telemetry"
	"smartcv-backend/internal/uploads"
	"smartcv-backend/resume/render"
)

// Overrides replace external dependencies, mainly in tests. A non-nil LLM or
// Payments also lifts the matching credential check.
type Overrides struct {
	LLM       analyses.LLM
	Renderer  render.Renderer
	Extractor extract.Extractor
	Payments  payments.Gateway
	Coupons   coupons.Checker
	Ledger    ledger.Repo
}

// App holds the wired dependencies.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Ledger   ledger.Repo
	Pipeline *analyses.Service
	Payments payments.Gateway
}

// Build validates configuration and constructs every service once.
func Build(ctx context.Context, cfg config.Config, ov Overrides) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	telemetry.Init(cfg.LogLevel, cfg.LogFormat, cfg.Env)

	if err := cfg.Validate(ov.LLM != nil, ov.Payments != nil); err != nil {
		return nil, err
	}

	app := &App{Config: cfg}

	repo, err := buildLedger(ctx, app, ov.Ledger)
	if err != nil {
		return nil, err
	}
	app.Ledger = repo

	gateway := ov.LLM
	if gateway == nil {
		completer, err := NewCompleter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		gateway = llm.NewGateway(completer, llm.Options{
			Temperature:      float32(cfg.LLMTemperature),
			RewriteMaxTokens: cfg.RewriteMaxTokens,
		})
	}

	renderer := ov.Renderer
	if renderer == nil {
		renderer = render.NewChromeRenderer(render.Options{
			ChromePath: cfg.ChromePath,
			Timeout:    cfg.RenderTimeout,
		})
	}

	extractor := ov.Extractor
	if extractor == nil {
		extractor = extract.FileExtractor{}
	}

	app.Pipeline = &analyses.Service{
		Uploads:   uploads.NewStore(cfg.UploadDir, cfg.MaxUploadBytes),
		Extractor: extractor,
		LLM:       gateway,
		Renderer:  renderer,
	}

	app.Payments = ov.Payments
	if app.Payments == nil {
		app.Payments = payments.NewService(payments.Options{
			SecretKey:      cfg.StripeSecretKey,
			PublishableKey: cfg.StripePublishable,
			WebhookSecret:  cfg.StripeWebhookKey,
			Mode:           cfg.PaymentMode,
			Prices:         cfg.Prices,
		})
	}

	checker := ov.Coupons
	if checker == nil {
		checker = coupons.NewValidator(nil)
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:    cfg,
		Pipeline:  analyses.NewHandler(app.Pipeline, cfg.MaxUploadBytes),
		Payments:  payments.NewHandler(app.Payments, app.Ledger, cfg.FrontendURL),
		Coupons:   coupons.NewHandler(checker),
		Analytics: analytics.NewHandler(app.Ledger),
		Health:    health.NewService(),
		Limiter:   middleware.NewRateLimiter(nil),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"payment_mode": app.Payments.Mode(),
		"ledger":       app.DB != nil,
	})
	return app, nil
}

// Close releases the database pool, if any.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// NewCompleter builds the provider selected by LLM_PROVIDER.
func NewCompleter(ctx context.Context, cfg config.Config) (llm.Completer, error) {
	switch cfg.LLMProvider {
	case "gemini":
		return gemini.NewClient(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
	case "openai", "":
		return openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.OpenAITimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

// buildLedger connects the audit ledger when DATABASE_URL is set. Outside
// production a failed connection falls back to the no-op ledger.
func buildLedger(ctx context.Context, app *App, override ledger.Repo) (ledger.Repo, error) {
	if override != nil {
		return override, nil
	}
	url := strings.TrimSpace(app.Config.DatabaseURL)
	if url == "" {
		return ledger.NopRepo{}, nil
	}

	sqlDB, err := db.Connect(ctx, url, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if app.Config.IsProduction() {
			return nil, fmt.Errorf("ledger database: %w", err)
		}
		telemetry.Warn("bootstrap.ledger_disabled", map[string]any{"error": err})
		return ledger.NopRepo{}, nil
	}
	app.DB = sqlDB
	return &ledger.PGRepo{DB: sqlDB}, nil
}
