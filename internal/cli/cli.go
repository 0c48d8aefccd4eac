// Package cli wires the stores, importer, search pipeline and picker behind
// the rewind command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yiblet/rewind/internal/candidate"
	"github.com/yiblet/rewind/internal/clipboard"
	"github.com/yiblet/rewind/internal/clipboard/sysboard"
	"github.com/yiblet/rewind/internal/config"
	"github.com/yiblet/rewind/internal/datadir"
	"github.com/yiblet/rewind/internal/importer"
	"github.com/yiblet/rewind/internal/picker"
	"github.com/yiblet/rewind/internal/pipeline"
	"github.com/yiblet/rewind/internal/store"
	"github.com/yiblet/rewind/internal/store/dbstore"
	"github.com/yiblet/rewind/internal/tui"
)

// Env is the process environment the CLI runs in
type Env struct {
	Getenv   func(string) string
	Home     string
	Cwd      string
	Hostname string
	Now      func() time.Time
	Stdout   io.Writer
	Stderr   io.Writer
}

// ProcessEnv captures the environment of the running process
func ProcessEnv() Env {
	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()
	hostname, _ := os.Hostname()
	return Env{
		Getenv:   os.Getenv,
		Home:     home,
		Cwd:      cwd,
		Hostname: hostname,
		Now:      time.Now,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// Option customizes a CLI
type Option func(*CLI)

// WithSelector replaces the interactive terminal selector
func WithSelector(sel picker.Selector) Option {
	return func(c *CLI) { c.selector = sel }
}

// WithClipboard replaces the system clipboard
func WithClipboard(cb clipboard.Clipboard) Option {
	return func(c *CLI) { c.clipboard = cb }
}

// CLI handles the command-line interface
type CLI struct {
	env           Env
	configManager *config.ConfigManager
	config        *config.Config
	dbPath        string
	logger        *slog.Logger
	logFile       *os.File

	store     store.Store
	clipboard clipboard.Clipboard
	selector  picker.Selector
}

// New creates a CLI for args. The config file is loaded and the database
// path resolved, but the database is only opened by commands that need it.
func New(args *Args, env Env, opts ...Option) (*CLI, error) {
	if env.Now == nil {
		env.Now = time.Now
	}

	var cm *config.ConfigManager
	if args.ConfigPath != nil {
		cm = config.NewConfigManagerWithPath(*args.ConfigPath)
	} else {
		var err error
		if cm, err = config.NewConfigManager(env.Home); err != nil {
			return nil, err
		}
	}

	c := &CLI{env: env, configManager: cm}
	for _, opt := range opts {
		opt(c)
	}

	// config subcommands must work even when the file holds bad values
	if args.Config != nil {
		c.config = config.DefaultConfig()
		c.logger = slog.New(slog.NewTextHandler(env.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		return c, nil
	}

	cfg, err := cm.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.config = cfg

	if err := c.setupLogger(); err != nil {
		return nil, err
	}

	dir, err := datadir.New(env.Getenv, env.Home)
	if err != nil {
		c.Close()
		return nil, err
	}
	var flagPath string
	if args.DBPath != nil {
		flagPath = *args.DBPath
	}
	c.dbPath = dir.DBPath(flagPath, env.Getenv(datadir.EnvDB), cfg.DBPath)

	return c, nil
}

func (c *CLI) setupLogger() error {
	level, err := c.config.Level()
	if err != nil {
		return err
	}

	out := c.env.Stderr
	if c.config.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(c.config.LogFile), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(c.config.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		c.logFile = file
		out = file
	}

	c.logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return nil
}

// DBPath returns the resolved database location
func (c *CLI) DBPath() string {
	return c.dbPath
}

// Close releases the database and log file
func (c *CLI) Close() error {
	var firstErr error
	if c.store != nil {
		firstErr = c.store.Close()
		c.store = nil
	}
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.logFile = nil
	}
	return firstErr
}

// openStore opens the database on first use. Opening also creates the
// schema, which the read-only search connection relies on.
func (c *CLI) openStore() (store.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	st, err := dbstore.NewSQLiteStore(c.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	c.logger.Debug("database opened", "path", c.dbPath)
	c.store = st
	return st, nil
}

// Execute runs the CLI command based on parsed arguments
func (c *CLI) Execute(ctx context.Context, args *Args) error {
	if err := args.Validate(); err != nil {
		return err
	}

	switch {
	case args.Import != nil:
		return c.executeImport(args.Import)
	case args.Record != nil:
		return c.executeRecord(args.Record)
	case args.Query != nil:
		return c.executeQuery(args.Query)
	case args.Save != nil:
		return c.executeSave(args.Save)
	case args.Delete != nil:
		return c.executeDelete(args.Delete)
	case args.List != nil:
		return c.executeList(args.List)
	case args.Config != nil:
		return c.executeConfig(args.Config)
	case args.Search != nil:
		return c.executeSearch(ctx, args.Search)
	default:
		return c.executeSearch(ctx, &SearchCmd{})
	}
}

// executeSearch handles the 'rewind search' command
func (c *CLI) executeSearch(ctx context.Context, cmd *SearchCmd) error {
	mode, err := c.config.Mode()
	if err != nil {
		return err
	}
	if cmd.Mode != nil {
		if mode, err = store.ParseMode(*cmd.Mode); err != nil {
			return err
		}
	}

	query := store.Query{
		Mode:    mode,
		Limit:   c.config.DefaultLimit,
		Session: cmd.Session,
		Cwd:     cmd.Cwd,
	}
	if cmd.Limit != nil {
		query.Limit = *cmd.Limit
	}
	if query.Cwd == "" {
		query.Cwd = c.env.Cwd
	}

	if _, err := c.openStore(); err != nil {
		return err
	}

	start := func(ctx context.Context, mode store.Mode) *pipeline.Handle {
		q := query
		q.Mode = mode
		c.logger.Debug("starting search", "mode", mode, "limit", q.Limit)
		return pipeline.Start(ctx, c.dbPath, q,
			pipeline.WithCapacity(c.config.ChannelCapacity),
			pipeline.WithLogger(c.logger),
			pipeline.WithNow(c.env.Now))
	}

	if c.selector == nil {
		c.selector = tui.NewSelector()
	}

	outcome, err := picker.Run(ctx, start, c.selector, mode)
	if err != nil {
		return err
	}
	if outcome.Empty {
		c.logger.Info("no history to search", "mode", outcome.Mode)
		return nil
	}
	if outcome.Aborted {
		return nil
	}

	if cmd.Clipboard {
		if c.clipboard == nil {
			c.clipboard = sysboard.New()
		}
		if err := clipboard.Copy(c.clipboard, outcome.Command); err != nil {
			return err
		}
		fmt.Fprintln(c.env.Stderr, "Copied to clipboard")
		return nil
	}

	action := "execute"
	if outcome.Edit {
		action = "edit"
	}
	fmt.Fprintf(c.env.Stdout, "%s\n%s\n", action, outcome.Command)
	return nil
}

// executeImport handles the 'rewind import' command
func (c *CLI) executeImport(cmd *ImportCmd) error {
	path := importer.DefaultPath(c.env.Getenv("HISTFILE"), c.env.Home)
	if cmd.File != nil {
		path = *cmd.File
	}

	st, err := c.openStore()
	if err != nil {
		return err
	}

	im := importer.New(st.History(), importer.Options{
		Hostname: c.env.Hostname,
		Now:      c.env.Now,
		Logger:   c.logger,
	})
	result, err := im.ImportFile(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.env.Stdout, "Imported %d commands from %s (%d skipped)\n", result.Imported, path, result.Skipped)
	return nil
}

// executeRecord handles the 'rewind record' command
func (c *CLI) executeRecord(cmd *RecordCmd) error {
	st, err := c.openStore()
	if err != nil {
		return err
	}

	event := &store.NewHistoryEvent{
		Command:  strings.TrimSpace(cmd.CommandLine()),
		ExitCode: cmd.Exit,
		Cwd:      cmd.Cwd,
		Hostname: c.env.Hostname,
		Session:  cmd.Session,
		StartTS:  c.env.Now().Unix(),
		Duration: cmd.Duration,
	}
	if cmd.Start != nil {
		event.StartTS = *cmd.Start
	}
	if event.Cwd == "" {
		event.Cwd = c.env.Cwd
	}

	inserted, err := st.History().Insert(event)
	if err != nil {
		return fmt.Errorf("failed to record command: %w", err)
	}
	if !inserted {
		c.logger.Debug("command already recorded", "start", event.StartTS)
	}
	return nil
}

// executeQuery handles the 'rewind query' command
func (c *CLI) executeQuery(cmd *QueryCmd) error {
	st, err := c.openStore()
	if err != nil {
		return err
	}

	limit := c.config.DefaultLimit
	if cmd.Limit != nil {
		limit = *cmd.Limit
	}

	events, err := st.History().Match(strings.Join(cmd.Text, " "), limit)
	if err != nil {
		return fmt.Errorf("failed to search history: %w", err)
	}
	for _, event := range events {
		fmt.Fprintln(c.env.Stdout, event.Command)
	}
	return nil
}

// executeSave handles the 'rewind save' command
func (c *CLI) executeSave(cmd *SaveCmd) error {
	st, err := c.openStore()
	if err != nil {
		return err
	}

	id, err := st.Saved().Save(&store.SaveCommandInput{
		Command:     cmd.Command,
		Description: cmd.Description,
		Tags:        cmd.Tags,
		CreatedAt:   c.env.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to save command: %w", err)
	}

	fmt.Fprintf(c.env.Stdout, "Saved #%d\n", id)
	return nil
}

// executeDelete handles the 'rewind delete' command
func (c *CLI) executeDelete(cmd *DeleteCmd) error {
	st, err := c.openStore()
	if err != nil {
		return err
	}

	found, err := st.Saved().Delete(cmd.ID)
	if err != nil {
		return fmt.Errorf("failed to delete command: %w", err)
	}
	if !found {
		return store.NewError("delete", store.KindNotFound, fmt.Errorf("no saved command with id %d", cmd.ID))
	}

	fmt.Fprintf(c.env.Stdout, "Deleted #%d\n", cmd.ID)
	return nil
}

// executeList handles the 'rewind list' command
func (c *CLI) executeList(cmd *ListCmd) error {
	st, err := c.openStore()
	if err != nil {
		return err
	}

	commands, err := st.Saved().List(cmd.Tags)
	if err != nil {
		return fmt.Errorf("failed to list saved commands: %w", err)
	}
	if len(commands) == 0 {
		fmt.Fprintln(c.env.Stdout, "No saved commands")
		return nil
	}

	now := c.env.Now()
	for _, saved := range commands {
		label := candidate.NewSavedCandidate(saved, now).Label()
		fmt.Fprintf(c.env.Stdout, "#%-4d %s\n", saved.ID, label)
	}
	return nil
}

// executeConfig handles the 'rewind config' command
func (c *CLI) executeConfig(cmd *ConfigCmd) error {
	switch {
	case cmd.Get != nil:
		return c.executeConfigGet(cmd.Get)
	case cmd.Set != nil:
		return c.executeConfigSet(cmd.Set)
	case cmd.List != nil:
		return c.executeConfigList()
	default:
		return fmt.Errorf("no config subcommand specified")
	}
}

func (c *CLI) executeConfigGet(cmd *ConfigGetCmd) error {
	value, err := c.configManager.Get(cmd.Key)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.env.Stdout, value)
	return nil
}

func (c *CLI) executeConfigSet(cmd *ConfigSetCmd) error {
	if err := c.configManager.Update(cmd.Key, cmd.Value); err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}
	fmt.Fprintf(c.env.Stdout, "Set %s = %s\n", cmd.Key, cmd.Value)
	return nil
}

func (c *CLI) executeConfigList() error {
	values, err := c.configManager.List()
	if err != nil {
		return err
	}

	fmt.Fprintln(c.env.Stdout, "Current configuration:")
	for _, key := range config.SortedKeys(values) {
		fmt.Fprintf(c.env.Stdout, "  %s: %s\n", key, values[key])
	}
	fmt.Fprintf(c.env.Stdout, "\nConfig file: %s\n", c.configManager.GetConfigPath())
	return nil
}
