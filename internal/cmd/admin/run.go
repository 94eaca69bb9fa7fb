// Package admin implements the `lernhilfe admin` subcommand.
package admin

import (
	"flag"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"lernhilfe/internal/adminui"
	"lernhilfe/internal/store"
)

type Options struct {
	DataDir string
}

func Run(args []string) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	var opt Options
	fs.StringVar(&opt.DataDir, "data-dir", "./data", "data directory (users.json and userdata/)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Store warnings would corrupt the TUI; keep them out of the terminal.
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))

	osFs := afero.NewOsFs()
	users := store.NewUsers(osFs, opt.DataDir, lg)
	documents := store.NewDocuments(osFs, opt.DataDir)

	p := tea.NewProgram(adminui.New(users, documents, opt.DataDir), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
