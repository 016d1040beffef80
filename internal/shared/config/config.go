package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	FrontendURL     string
	CORSAllowOrigin []string

	LLMProvider       string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAITimeout     time.Duration
	GeminiAPIKey      string
	GeminiModel       string
	LLMTemperature    float64
	RewriteMaxTokens  int
	UploadDir         string
	MaxUploadBytes    int64
	ChromePath        string
	RenderTimeout     time.Duration
	StripeSecretKey   string
	StripePublishable string
	StripeWebhookKey  string
	PaymentMode       string
	Prices            Prices
	DatabaseURL       string
	LogLevel          string
	LogFormat         string
}

// Prices are USD amounts per service option.
type Prices struct {
	AnalysisOnly    float64
	ImprovedOnly    float64
	CompletePackage float64
}

// Load reads configuration from .env files and the environment.
func Load() Config {
	env := normalizeEnv(firstNonEmpty(os.Getenv("ENV"), os.Getenv("NODE_ENV")))
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", ".env."+envFileSuffix(env), "cmd/.env")

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return FromViper(v, env)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper, env string) Config {
	frontend := strings.TrimRight(v.GetString("FRONTEND_URL"), "/")
	origins := append([]string{frontend}, splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS"))...)

	return Config{
		Port:              v.GetString("PORT"),
		Env:               env,
		FrontendURL:       frontend,
		CORSAllowOrigin:   dedupe(origins),
		LLMProvider:       strings.ToLower(strings.TrimSpace(v.GetString("LLM_PROVIDER"))),
		OpenAIAPIKey:      v.GetString("OPENAI_API_KEY"),
		OpenAIModel:       v.GetString("OPENAI_MODEL"),
		OpenAITimeout:     time.Duration(v.GetInt("OPENAI_TIMEOUT_SECONDS")) * time.Second,
		GeminiAPIKey:      v.GetString("GEMINI_API_KEY"),
		GeminiModel:       v.GetString("GEMINI_MODEL"),
		LLMTemperature:    v.GetFloat64("LLM_TEMPERATURE"),
		RewriteMaxTokens:  v.GetInt("LLM_REWRITE_MAX_TOKENS"),
		UploadDir:         v.GetString("UPLOAD_DIR"),
		MaxUploadBytes:    v.GetInt64("MAX_UPLOAD_MB") << 20,
		ChromePath:        v.GetString("CHROME_PATH"),
		RenderTimeout:     v.GetDuration("RENDER_TIMEOUT"),
		StripeSecretKey:   v.GetString("STRIPE_SECRET_KEY"),
		StripePublishable: v.GetString("STRIPE_PUBLISHABLE_KEY"),
		StripeWebhookKey:  v.GetString("STRIPE_WEBHOOK_SECRET"),
		PaymentMode:       normalizePaymentMode(v.GetString("PAYMENT_MODE")),
		Prices: Prices{
			AnalysisOnly:    v.GetFloat64("PRICE_ANALYSIS_ONLY"),
			ImprovedOnly:    v.GetFloat64("PRICE_IMPROVED_ONLY"),
			CompletePackage: v.GetFloat64("PRICE_COMPLETE_PACKAGE"),
		},
		DatabaseURL: v.GetString("DATABASE_URL"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		LogFormat:   v.GetString("LOG_FORMAT"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5001")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("CORS_ALLOW_ORIGINS", "")
	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("OPENAI_MODEL", "gpt-4o")
	v.SetDefault("OPENAI_TIMEOUT_SECONDS", 120)
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("LLM_TEMPERATURE", 0.7)
	v.SetDefault("LLM_REWRITE_MAX_TOKENS", 4000)
	v.SetDefault("UPLOAD_DIR", filepath.Join(os.TempDir(), "smartcv-uploads"))
	v.SetDefault("MAX_UPLOAD_MB", 10)
	v.SetDefault("RENDER_TIMEOUT", "60s")
	v.SetDefault("PAYMENT_MODE", "test")
	v.SetDefault("PRICE_ANALYSIS_ONLY", 3.90)
	v.SetDefault("PRICE_IMPROVED_ONLY", 6.90)
	v.SetDefault("PRICE_COMPLETE_PACKAGE", 9.90)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")
}

// IsTestPayments reports whether the payment gateway runs in test mode.
func (c Config) IsTestPayments() bool {
	return c.PaymentMode != "live"
}

// IsProduction reports whether the process runs with production settings.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate returns every missing required key. LLM and Stripe credentials are
// checked only when skipLLM / skipPayments are false, so callers that inject
// their own clients are not forced to configure them.
func (c Config) Validate(skipLLM, skipPayments bool) error {
	var missing []string
	if !skipLLM {
		switch c.LLMProvider {
		case "gemini":
			if strings.TrimSpace(c.GeminiAPIKey) == "" {
				missing = append(missing, "GEMINI_API_KEY")
			}
		case "openai", "":
			if strings.TrimSpace(c.OpenAIAPIKey) == "" {
				missing = append(missing, "OPENAI_API_KEY")
			}
			if strings.TrimSpace(c.OpenAIModel) == "" {
				missing = append(missing, "OPENAI_MODEL")
			}
		default:
			return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
		}
	}
	if !skipPayments {
		if strings.TrimSpace(c.StripeSecretKey) == "" {
			missing = append(missing, "STRIPE_SECRET_KEY")
		}
		if strings.TrimSpace(c.StripeWebhookKey) == "" {
			missing = append(missing, "STRIPE_WEBHOOK_SECRET")
		}
	}
	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	if !skipPayments && !c.IsTestPayments() && strings.HasPrefix(c.StripeSecretKey, "sk_test_") {
		return errors.New("PAYMENT_MODE=live requires a live STRIPE_SECRET_KEY")
	}
	return nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func envFileSuffix(env string) string {
	if env == "production" {
		return "prod"
	}
	return env
}

func normalizePaymentMode(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), "live") {
		return "live"
	}
	return "test"
}
