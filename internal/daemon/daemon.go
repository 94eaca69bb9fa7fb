// Package daemon assembles the stores, session manager, and HTTP server
// into a running process.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"lernhilfe/internal/httpapi"
	"lernhilfe/internal/session"
	"lernhilfe/internal/store"
	"lernhilfe/internal/web"
)

type Options struct {
	DataDir  string
	BindAddr string
	Port     int

	SessionSecret string
	SessionTTL    time.Duration

	LoginAttemptLimit int
	LoginWindow       time.Duration

	Logger *slog.Logger
}

// Run starts the web server and blocks until it fails or ctx is cancelled.
func Run(ctx context.Context, opt Options) error {
	if opt.DataDir == "" {
		return errors.New("data dir is required")
	}
	lg := opt.Logger
	if lg == nil {
		lg = slog.Default()
	}

	fs := afero.NewOsFs()
	users := store.NewUsers(fs, opt.DataDir, lg)
	// Bootstraps the data dir and registry file before we accept requests.
	if _, err := users.Load(); err != nil {
		return err
	}
	documents := store.NewDocuments(fs, opt.DataDir)

	sessions, err := session.NewManager(opt.SessionSecret, opt.SessionTTL)
	if err != nil {
		return err
	}
	defer sessions.Stop()

	renderer, err := web.New()
	if err != nil {
		return err
	}

	api := &httpapi.Server{
		Users:             users,
		Documents:         documents,
		Sessions:          sessions,
		Renderer:          renderer,
		Logger:            lg,
		BindAddr:          opt.BindAddr,
		Port:              opt.Port,
		LoginAttemptLimit: opt.LoginAttemptLimit,
		LoginWindow:       opt.LoginWindow,
	}

	lg.Info("starting web server", "bind", opt.BindAddr, "port", opt.Port, "data_dir", opt.DataDir)
	return api.ListenAndServe(ctx)
}
