package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"presswork/internal/config"
	"presswork/internal/server"
	"presswork/pkg/logging"
)

// RunServe runs daemon mode: the ops server plus the configuration watcher,
// until the context is canceled, a termination signal arrives, or the
// listener fails.
func (a *Application) RunServe(ctx context.Context) error {
	settings := a.Settings()

	srv := server.New(server.Config{
		Listen:      settings.Server.Listen,
		MetricsPath: settings.Server.MetricsPath,
		Gatherer:    a.registry,
		Version:     a.config.Version,
	})

	watcher := config.NewWatcher(config.WatcherConfig{
		ConfigDir: a.config.ConfigPath,
		OnChange:  a.Reload,
	})
	if err := watcher.Start(); err != nil {
		logging.Warn("Daemon", "Configuration watcher failed to start, hot reload disabled: %v", err)
	}
	defer watcher.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	notify(daemon.SdNotifyReady)

	select {
	case sig := <-sigCh:
		logging.Info("Daemon", "Received signal %s, shutting down", sig)
	case <-ctx.Done():
		logging.Info("Daemon", "Context canceled, shutting down")
	case err := <-errCh:
		return err
	}

	notify(daemon.SdNotifyStopping)

	// Detached from ctx so a canceled context still gets the full drain
	// window before the listener closes.
	if err := srv.Shutdown(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	return <-errCh
}

// notify reports daemon state to systemd. Outside systemd SdNotify is a
// no-op.
func notify(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		logging.Debug("Daemon", "sd_notify failed: %v", err)
	}
}
