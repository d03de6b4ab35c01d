package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"presswork/internal/template"
	"presswork/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	settingsFileName     = "settings.yaml"
	selectorsFileName    = "selectors.yaml"
	instructionsFileName = "instructions.yaml"
)

// Load reads settings.yaml, selectors.yaml, and instructions.yaml from the
// config directory, overlays them on the compiled-in defaults, and validates
// the result. Missing files are fine; a malformed or invalid file is not.
//
// The returned error is a ValidationErrors (or wraps one) when the content
// was readable but invalid, so callers can map it to a configuration failure
// rather than an I/O failure.
func Load(configPath string) (*Config, error) {
	settings := DefaultSettings()
	var file settingsFile
	found, err := readYAML(filepath.Join(configPath, settingsFileName), &file)
	if err != nil {
		return nil, err
	}
	if found {
		logging.Info("Config", "Loaded settings from %s", filepath.Join(configPath, settingsFileName))
	} else {
		logging.Debug("Config", "No settings.yaml in %s, using defaults", configPath)
	}
	if err := applySettingsFile(&settings, &file, configPath); err != nil {
		return nil, err
	}

	selectors := DefaultSelectorBundle()
	var fileSelectors SelectorBundle
	found, err = readYAML(filepath.Join(configPath, selectorsFileName), &fileSelectors)
	if err != nil {
		return nil, err
	}
	if found {
		selectors.merge(&fileSelectors)
		logging.Info("Config", "Loaded selector bundle from %s (%d kinds)",
			filepath.Join(configPath, selectorsFileName), len(selectors.Kinds))
	}

	instructions := DefaultInstructionBundle()
	var fileInstructions InstructionBundle
	found, err = readYAML(filepath.Join(configPath, instructionsFileName), &fileInstructions)
	if err != nil {
		return nil, err
	}
	if found {
		instructions.merge(&fileInstructions)
		logging.Info("Config", "Loaded instruction bundle from %s (%d actions)",
			filepath.Join(configPath, instructionsFileName), len(instructions.Actions))
	}

	cfg := &Config{
		Settings:     settings,
		Selectors:    selectors,
		Instructions: instructions,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readYAML reads and unmarshals one optional YAML file. The bool reports
// whether the file existed.
func readYAML(path string, out interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("parsing %s: %w", path, err)
	}
	return true, nil
}

// applySettingsFile overlays the file values onto settings, parsing duration
// strings as it goes. Parse failures are collected, not short-circuited, so
// one load reports every bad field.
func applySettingsFile(s *Settings, f *settingsFile, configPath string) error {
	var errs ValidationErrors

	if f.Provider != "" {
		s.Provider = f.Provider
	}
	if f.Fallback.Enabled != nil {
		s.Fallback.Enabled = *f.Fallback.Enabled
	}
	if f.Fallback.Provider != "" {
		s.Fallback.Provider = f.Fallback.Provider
	}

	if f.Browser.Headless != nil {
		s.Browser.Headless = *f.Browser.Headless
	}
	if f.Browser.ControlURL != "" {
		s.Browser.ControlURL = f.Browser.ControlURL
	}
	s.Browser.ElementTimeout = applyDuration(&errs, "browser.element_timeout", f.Browser.ElementTimeout, s.Browser.ElementTimeout)
	s.Browser.NavigationTimeout = applyDuration(&errs, "browser.navigation_timeout", f.Browser.NavigationTimeout, s.Browser.NavigationTimeout)

	if f.Retry.MaxRetries != nil {
		s.Retry.MaxRetries = *f.Retry.MaxRetries
	}
	s.Retry.BaseDelay = applyDuration(&errs, "retry.base_delay", f.Retry.BaseDelay, s.Retry.BaseDelay)

	if f.Safety.Enabled != nil {
		s.Safety.Enabled = *f.Safety.Enabled
	}
	if f.Safety.Production != nil {
		s.Safety.Production = *f.Safety.Production
	}

	if f.Vision.Model != "" {
		s.Vision.Model = f.Vision.Model
	}
	if f.Vision.APIKeyEnv != "" {
		s.Vision.APIKeyEnv = f.Vision.APIKeyEnv
	}
	if f.Vision.MaxIterations != nil {
		s.Vision.MaxIterations = *f.Vision.MaxIterations
	}
	if f.Vision.MaxTokensPerRun != nil {
		s.Vision.MaxTokensPerRun = *f.Vision.MaxTokensPerRun
	}

	if f.Server.Listen != "" {
		s.Server.Listen = f.Server.Listen
	}
	if f.Server.MetricsPath != "" {
		s.Server.MetricsPath = f.Server.MetricsPath
	}

	if f.Log.Level != "" {
		s.Log.Level = f.Log.Level
	}
	if f.Log.Format != "" {
		s.Log.Format = f.Log.Format
	}

	s.RunTimeout = applyDuration(&errs, "run_timeout", f.RunTimeout, s.RunTimeout)
	s.SelectorCacheTTL = applyDuration(&errs, "selector_cache_ttl", f.SelectorCacheTTL, s.SelectorCacheTTL)

	if f.CostBudgetUSD != nil {
		s.CostBudgetUSD = *f.CostBudgetUSD
	}
	if f.ScreenshotDir != "" {
		s.ScreenshotDir = f.ScreenshotDir
	}
	if f.AuditDir != "" {
		s.AuditDir = f.AuditDir
	}

	if s.ScreenshotDir == "" {
		s.ScreenshotDir = filepath.Join(configPath, "screenshots")
	}
	if s.AuditDir == "" {
		s.AuditDir = filepath.Join(configPath, "audit")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func applyDuration(errs *ValidationErrors, field, value string, current time.Duration) time.Duration {
	d, err := ValidateDuration(field, value, current)
	if err != nil {
		var ve ValidationError
		if errors.As(err, &ve) {
			*errs = append(*errs, ve)
		} else {
			errs.Add(field, err.Error())
		}
		return current
	}
	return d
}

// Validate checks the assembled configuration: settings ranges, selector
// bundle completeness, instruction bundle completeness and variable usage.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if err := ValidateOneOf("provider", c.Settings.Provider, []string{"dom", "llm"}); err != nil {
		appendValidation(&errs, err)
	}
	if c.Settings.Fallback.Enabled {
		if err := ValidateOneOf("fallback.provider", c.Settings.Fallback.Provider, []string{"dom", "llm"}); err != nil {
			appendValidation(&errs, err)
		}
		if c.Settings.Fallback.Provider == c.Settings.Provider {
			errs.Add("fallback.provider", "must differ from the primary provider")
		}
	}
	if err := ValidatePositive("retry.max_retries", c.Settings.Retry.MaxRetries); err != nil {
		appendValidation(&errs, err)
	}
	if err := ValidateOneOf("log.level", c.Settings.Log.Level, []string{"debug", "info", "warn", "error"}); err != nil {
		appendValidation(&errs, err)
	}
	if err := ValidateOneOf("log.format", c.Settings.Log.Format, []string{"text", "json"}); err != nil {
		appendValidation(&errs, err)
	}
	if err := ValidatePositive("vision.max_iterations", c.Settings.Vision.MaxIterations); err != nil {
		appendValidation(&errs, err)
	}
	if c.Settings.Provider == "llm" || (c.Settings.Fallback.Enabled && c.Settings.Fallback.Provider == "llm") {
		if err := ValidateRequired("vision.model", c.Settings.Vision.Model, "llm provider"); err != nil {
			appendValidation(&errs, err)
		}
		if err := ValidateRequired("vision.api_key_env", c.Settings.Vision.APIKeyEnv, "llm provider"); err != nil {
			appendValidation(&errs, err)
		}
	}
	if !c.Settings.Safety.Enabled && c.Settings.Safety.Production {
		errs.Add("safety.enabled", "safety validation cannot be disabled in production mode")
	}

	if c.Selectors == nil {
		errs.Add("selectors", "selector bundle is missing")
	} else if err := c.Selectors.Validate(); err != nil {
		appendValidation(&errs, err)
	}

	if c.Instructions == nil {
		errs.Add("instructions", "instruction bundle is missing")
	} else if err := c.Instructions.Validate(template.New()); err != nil {
		appendValidation(&errs, err)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// appendValidation flattens single errors and collections into errs.
func appendValidation(errs *ValidationErrors, err error) {
	var many ValidationErrors
	if errors.As(err, &many) {
		*errs = append(*errs, many...)
		return
	}
	var one ValidationError
	if errors.As(err, &one) {
		*errs = append(*errs, one)
		return
	}
	errs.Add("", err.Error())
}
