package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/labstock/labstock/internal/assets"
	"github.com/labstock/labstock/report"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"45s"`
	AppLanguage       string        `envconfig:"APP_LANGUAGE" default:"en"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// PGDSN enables the report log. Empty disables it.
	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"5"`

	// RedisAddr enables the collection cache, sessions and jobs. Empty falls
	// back to in-memory state.
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	SessionCookie string        `envconfig:"SESSION_COOKIE" default:"labstock_session"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	BackendURL     string        `envconfig:"BACKEND_URL" default:"http://127.0.0.1:8000/api"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"15s"`
	// BackendServiceToken authenticates the worker, which has no session.
	BackendServiceToken string `envconfig:"BACKEND_SERVICE_TOKEN"`

	CollectionTTL time.Duration `envconfig:"COLLECTION_TTL" default:"5m"`
	StateTTL      time.Duration `envconfig:"STATE_TTL" default:"12h"`

	ReportEngine       string `envconfig:"REPORT_ENGINE" default:"fpdf"`
	GotenbergURL       string `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`
	ReportLogRetention int    `envconfig:"REPORT_LOG_RETENTION" default:"1000"`

	AssetProvider string `envconfig:"ASSET_PROVIDER" default:"local"`
	AssetDir      string `envconfig:"ASSET_DIR" default:"./web/static/img"`
	LogoLeft      string `envconfig:"LOGO_LEFT" default:"logo-left.png"`
	LogoRight     string `envconfig:"LOGO_RIGHT" default:"logo-right.png"`

	S3Endpoint        string `envconfig:"S3_ENDPOINT"`
	S3Region          string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket          string `envconfig:"S3_BUCKET"`
	S3Prefix          string `envconfig:"S3_PREFIX"`
	S3AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3PathStyle       bool   `envconfig:"S3_PATH_STYLE" default:"true"`

	LetterheadOrganization  string   `envconfig:"LETTERHEAD_ORGANIZATION"`
	LetterheadAddress       string   `envconfig:"LETTERHEAD_ADDRESS"`
	LetterheadDepartment    string   `envconfig:"LETTERHEAD_DEPARTMENT"`
	LetterheadContact       string   `envconfig:"LETTERHEAD_CONTACT"`
	LetterheadAccreditation []string `envconfig:"LETTERHEAD_ACCREDITATION"`

	WarmupCron        string `envconfig:"WARMUP_CRON" default:"*/15 * * * *"`
	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"5"`
}

// LoadConfig reads configuration from a .env file, when present, and then
// the environment. Variables already set win over the file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return errors.New("session secret must be provided")
	}
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	switch c.ReportEngine {
	case "fpdf":
	case "gotenberg":
		if c.GotenbergURL == "" {
			return errors.New("gotenberg engine requires GOTENBERG_URL")
		}
	default:
		return fmt.Errorf("unknown report engine %q", c.ReportEngine)
	}
	switch c.AssetProvider {
	case "local", "":
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("s3 asset provider requires S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown asset provider %q", c.AssetProvider)
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Letterhead builds the report letterhead, keeping defaults for unset lines.
func (c *Config) Letterhead() report.Letterhead {
	lh := report.DefaultLetterhead()
	if c == nil {
		return lh
	}
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&lh.Organization, c.LetterheadOrganization)
	set(&lh.Address, c.LetterheadAddress)
	set(&lh.Department, c.LetterheadDepartment)
	set(&lh.Contact, c.LetterheadContact)
	for i := 0; i < len(lh.Accreditation) && i < len(c.LetterheadAccreditation); i++ {
		set(&lh.Accreditation[i], c.LetterheadAccreditation[i])
	}
	return lh
}

// S3 returns the asset bucket settings.
func (c *Config) S3() assets.S3Config {
	return assets.S3Config{
		Endpoint:        c.S3Endpoint,
		Region:          c.S3Region,
		Bucket:          c.S3Bucket,
		Prefix:          c.S3Prefix,
		AccessKeyID:     c.S3AccessKeyID,
		SecretAccessKey: c.S3SecretAccessKey,
		PathStyle:       c.S3PathStyle,
	}
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c != nil && strings.TrimSpace(c.RedisAddr) != ""
}
