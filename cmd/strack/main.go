package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tgienger/strack/internal/config"
	"github.com/tgienger/strack/internal/db"
	"github.com/tgienger/strack/internal/logging"
	"github.com/tgienger/strack/internal/reports"
	"github.com/tgienger/strack/internal/ui"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	configPath string
	dbPath     string
	verbose    bool
	noColor    bool
)

func main() {
	if err := run(); err != nil {
		printError("error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	sess := &session{}
	defer sess.close()
	return newRootCmd(sess).Execute()
}

// session holds what a single invocation opens. The database is opened on
// first use so that version and config never touch it.
type session struct {
	cfg      config.Config
	logger   *zap.Logger
	database *db.DB
	store    *reports.Store
}

func (s *session) openDB() (*db.DB, error) {
	if s.database != nil {
		return s.database, nil
	}
	database, err := db.Open(s.cfg.DBFile())
	if err != nil {
		return nil, err
	}
	s.database = database
	return database, nil
}

// openStore returns the loaded report store for one-shot commands
func (s *session) openStore() (*reports.Store, error) {
	if s.store != nil {
		return s.store, nil
	}
	database, err := s.openDB()
	if err != nil {
		return nil, err
	}
	s.store = reports.New(database, reports.WithLogger(s.logger))
	s.store.Load()
	s.logger.Debug("opened report store",
		zap.String("db", s.cfg.DBFile()),
		zap.Int("reports", s.store.Count()))
	return s.store, nil
}

func (s *session) close() {
	if s.database != nil {
		if err := s.database.Close(); err != nil {
			s.logger.Warn("closing database", zap.Error(err))
		}
		s.database = nil
		s.store = nil
	}
	if s.logger != nil {
		_ = s.logger.Sync()
	}
}

// newRootCmd builds the command tree around sess. Each call returns fresh
// flag state. The caller closes sess.
func newRootCmd(sess *session) *cobra.Command {
	root := &cobra.Command{
		Use:   "strack",
		Short: "Keep a local log of incident reports",
		Long: `strack keeps incident reports (what happened, where, when) in a local
SQLite database.

Run without arguments to open the interactive interface.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Storage.DBPath = dbPath
			}
			sess.cfg = cfg

			// The TUI owns the terminal, so its logs go to the file or nowhere
			sink := logging.SinkStderr
			if !cmd.HasParent() {
				sink = logging.SinkDiscard
			}
			sess.logger, err = logging.New(cfg.Logging, sink, verbose)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(sess)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/strack/config.yaml)")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "database file (overrides storage settings)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newAddCmd(sess),
		newEditCmd(sess),
		newRmCmd(sess),
		newLsCmd(sess),
		newShowCmd(sess),
		newExportCmd(sess),
		newImportCmd(sess),
		newClearCmd(sess),
		newVersionCmd(),
		newConfigCmd(sess),
	)
	return root
}

func runInteractive(sess *session) error {
	app, err := newInteractiveApp(sess)
	if err != nil {
		return err
	}

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running application: %w", err)
	}
	return nil
}

// newInteractiveApp hands an unloaded store to the UI, which loads it
func newInteractiveApp(sess *session) (*ui.App, error) {
	database, err := sess.openDB()
	if err != nil {
		return nil, err
	}
	store := reports.New(database, reports.WithLogger(sess.logger))
	return ui.NewApp(store, database, sess.cfg.ExportFile(), sess.logger), nil
}
