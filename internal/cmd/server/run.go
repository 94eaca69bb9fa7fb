// Package server implements the `lernhilfe server` subcommand.
package server

import (
	"context"
	"flag"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"lernhilfe/internal/config"
	"lernhilfe/internal/daemon"
	"lernhilfe/internal/logging"
)

type Options struct {
	ConfigPath string
	EnvFile    string
	LogLevel   string

	DataDir  string
	BindAddr string
	Port     int
}

func Run(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	var opt Options
	fs.StringVar(&opt.ConfigPath, "config", "", "path to lernhilfe.yaml (when set, server flags are ignored)")
	fs.StringVar(&opt.EnvFile, "env", "", "path to .env file with "+config.SecretEnv)
	fs.StringVar(&opt.LogLevel, "log-level", "", "log level: debug|info|warning|error")
	fs.StringVar(&opt.DataDir, "data-dir", "./data", "data directory (users.json and userdata/)")
	fs.StringVar(&opt.BindAddr, "bind", "127.0.0.1", "bind address")
	fs.IntVar(&opt.Port, "port", 3000, "HTTP port")
	if err := fs.Parse(args); err != nil {
		return err
	}

	secret, err := config.LoadSecret(opt.EnvFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opt.ConfigPath != "" {
		c, err := config.Load(opt.ConfigPath)
		if err != nil {
			return err
		}
		level := c.Log.Level
		// CLI overrides config.
		if strings.TrimSpace(opt.LogLevel) != "" {
			level = opt.LogLevel
		}
		lg, err := logging.New(logging.Options{Level: level, JSON: c.Log.JSON, DefaultSlog: true})
		if err != nil {
			return err
		}
		base := filepath.Dir(opt.ConfigPath)
		return daemon.Run(ctx, daemon.Options{
			DataDir:           resolvePath(base, c.DataDir),
			BindAddr:          c.HTTP.Bind,
			Port:              c.HTTP.Port,
			SessionSecret:     secret,
			SessionTTL:        time.Duration(c.Session.TTLMinutes) * time.Minute,
			LoginAttemptLimit: c.Login.AttemptLimit,
			LoginWindow:       time.Duration(c.Login.WindowSeconds) * time.Second,
			Logger:            lg,
		})
	}

	lg, err := logging.New(logging.Options{Level: opt.LogLevel, DefaultSlog: true})
	if err != nil {
		return err
	}
	return daemon.Run(ctx, daemon.Options{
		DataDir:       opt.DataDir,
		BindAddr:      opt.BindAddr,
		Port:          opt.Port,
		SessionSecret: secret,
		Logger:        lg,
	})
}

func resolvePath(baseDir, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
