package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gns3/gns3-proxy/internal/accesslog"
	"github.com/gns3/gns3-proxy/internal/clog"
	"github.com/gns3/gns3-proxy/internal/config"
	"github.com/gns3/gns3-proxy/internal/pathutil"
	"github.com/gns3/gns3-proxy/internal/proxy"
)

// shutdownGrace bounds how long Stop waits for in-flight connection
// workers to finish on their own once the listener has closed, per
// spec.md §5 ("waits up to a grace period for in-flight workers before
// force-closing").
const shutdownGrace = 30 * time.Second

// run loads the configuration, starts the proxy server, and blocks until a
// shutdown signal arrives. Its return value becomes Execute's error, wrapped
// in an *ExitCodeError carrying the exit code spec.md §6 mandates for
// startup failures; a nil return means the process exits 0.
func run(configFile, logLevel string) error {
	configureLogging(logLevel)

	path := pathutil.ExpandHome(configFile)
	snap, err := config.Load(path)
	if err != nil {
		clog.Critical("startup: %v", err)
		return NewExitCodeError(ExitConfigError, err)
	}

	access := accesslog.NewLogger(os.Stdout)

	srv, err := proxy.NewServer(snap, access)
	if err != nil {
		clog.Critical("startup: %v", err)
		return NewExitCodeError(ExitConfigError, err)
	}

	if err := srv.Start(); err != nil {
		clog.Critical("startup: %v", err)
		return NewExitCodeError(ExitBindFailed, err)
	}
	clog.Info("gns3-proxy: listening on %s", srv.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	clog.Info("gns3-proxy: received %s, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		clog.Warn("shutdown: %v", err)
	}

	clog.Info("gns3-proxy: stopped")
	return nil
}
