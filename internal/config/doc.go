// Package config provides configuration management for presswork.
//
// Configuration is loaded from a single directory. The default directory is
// ~/.config/presswork, overridable with the --config flag. Three files are
// recognized, all optional:
//
//   - settings.yaml: runtime settings (provider selection, timeouts, retry
//     policy, safety mode, vision model, server address)
//   - selectors.yaml: the selector bundle mapping CMS kinds to named element
//     selectors and admin paths
//   - instructions.yaml: the instruction bundle mapping action names to the
//     natural-language templates the vision provider renders
//
// Compiled-in defaults cover a stock WordPress install, so an empty config
// directory produces a working configuration.
//
// # Validation
//
// Everything is validated eagerly at load: settings ranges, required bundle
// entries per CMS kind, and instruction template variables against the
// per-action declarations. A failed load refuses startup; a publish run
// never begins with an invalid configuration. Validation failures use the
// ValidationError/ValidationErrors types so every bad field is reported in
// one pass.
//
// # Hot Reload
//
// In daemon mode, Watcher monitors the config directory (fsnotify with a
// polling fallback) and delivers re-validated configurations through a
// callback. An edit that fails validation is logged and dropped; the
// previous configuration stays active.
package config
