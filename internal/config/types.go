package config

import (
	"time"
)

// Config is the fully loaded, validated configuration: runtime settings plus
// the selector and instruction bundles. A run never starts from a Config that
// failed validation.
type Config struct {
	Settings     Settings
	Selectors    *SelectorBundle
	Instructions *InstructionBundle
}

// Settings is the runtime settings block with durations already parsed.
type Settings struct {
	// Provider is the provider a run starts with: "dom" or "llm".
	Provider string

	Fallback FallbackSettings
	Browser  BrowserSettings
	Retry    RetrySettings
	Safety   SafetySettings
	Vision   VisionSettings
	Server   ServerSettings
	Log      LogSettings

	// RunTimeout bounds a whole publish run.
	RunTimeout time.Duration

	// SelectorCacheTTL bounds reuse of resolved selectors.
	SelectorCacheTTL time.Duration

	// CostBudgetUSD caps the estimated spend of a single run; 0 disables
	// the cap.
	CostBudgetUSD float64

	// ScreenshotDir and AuditDir hold run artifacts. Both default to
	// subdirectories of the config dir.
	ScreenshotDir string
	AuditDir      string
}

// FallbackSettings controls the one-shot provider failover.
type FallbackSettings struct {
	Enabled  bool
	Provider string
}

// BrowserSettings controls the shared browser stack.
type BrowserSettings struct {
	Headless bool

	// ControlURL attaches to an already-running browser via CDP instead of
	// launching one. Empty means launch.
	ControlURL string

	ElementTimeout    time.Duration
	NavigationTimeout time.Duration
}

// RetrySettings controls per-phase retries of transient failures.
type RetrySettings struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// SafetySettings controls pre-publish validation. Safety can only be
// disabled outside production mode.
type SafetySettings struct {
	Enabled    bool
	Production bool
}

// VisionSettings configures the model-driven provider.
type VisionSettings struct {
	Model string

	// APIKeyEnv names the environment variable holding the API key. The key
	// itself never appears in settings files or logs.
	APIKeyEnv string

	// MaxIterations caps the instruction loop per operation.
	MaxIterations int

	// MaxTokensPerRun caps total token usage across one publish run.
	MaxTokensPerRun int
}

// ServerSettings configures the observability endpoint in daemon mode.
type ServerSettings struct {
	Listen      string
	MetricsPath string
}

// LogSettings configures structured logging.
type LogSettings struct {
	Level  string
	Format string
}

// settingsFile is the YAML-facing shape of settings.yaml. Durations are
// strings ("20s", "5m") parsed during conversion; bools that default to true
// are pointers so an omitted field keeps its default.
type settingsFile struct {
	Provider string `yaml:"provider,omitempty"`

	Fallback struct {
		Enabled  *bool  `yaml:"enabled,omitempty"`
		Provider string `yaml:"provider,omitempty"`
	} `yaml:"fallback,omitempty"`

	Browser struct {
		Headless          *bool  `yaml:"headless,omitempty"`
		ControlURL        string `yaml:"control_url,omitempty"`
		ElementTimeout    string `yaml:"element_timeout,omitempty"`
		NavigationTimeout string `yaml:"navigation_timeout,omitempty"`
	} `yaml:"browser,omitempty"`

	Retry struct {
		MaxRetries *int   `yaml:"max_retries,omitempty"`
		BaseDelay  string `yaml:"base_delay,omitempty"`
	} `yaml:"retry,omitempty"`

	Safety struct {
		Enabled    *bool `yaml:"enabled,omitempty"`
		Production *bool `yaml:"production,omitempty"`
	} `yaml:"safety,omitempty"`

	Vision struct {
		Model           string `yaml:"model,omitempty"`
		APIKeyEnv       string `yaml:"api_key_env,omitempty"`
		MaxIterations   *int   `yaml:"max_iterations,omitempty"`
		MaxTokensPerRun *int   `yaml:"max_tokens_per_run,omitempty"`
	} `yaml:"vision,omitempty"`

	Server struct {
		Listen      string `yaml:"listen,omitempty"`
		MetricsPath string `yaml:"metrics_path,omitempty"`
	} `yaml:"server,omitempty"`

	Log struct {
		Level  string `yaml:"level,omitempty"`
		Format string `yaml:"format,omitempty"`
	} `yaml:"log,omitempty"`

	RunTimeout       string   `yaml:"run_timeout,omitempty"`
	SelectorCacheTTL string   `yaml:"selector_cache_ttl,omitempty"`
	CostBudgetUSD    *float64 `yaml:"cost_budget_usd,omitempty"`
	ScreenshotDir    string   `yaml:"screenshot_dir,omitempty"`
	AuditDir         string   `yaml:"audit_dir,omitempty"`
}
