package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/yiblet/rewind/internal/config"
	"github.com/yiblet/rewind/internal/store"
)

// Args represents the top-level command structure
type Args struct {
	DBPath     *string `arg:"--db" help:"Database file (overrides REWIND_DB and the config file)"`
	ConfigPath *string `arg:"--config" help:"Config file (default ~/.config/rewind/config.yaml)"`

	Search *SearchCmd `arg:"subcommand:search" help:"Interactively search history (default)"`
	Import *ImportCmd `arg:"subcommand:import" help:"Import a zsh history file"`
	Record *RecordCmd `arg:"subcommand:record" help:"Record one executed command (for shell hooks)"`
	Query  *QueryCmd  `arg:"subcommand:query" help:"Full-text search history, one command per line"`
	Save   *SaveCmd   `arg:"subcommand:save" help:"Save a command with an optional description and tags"`
	Delete *DeleteCmd `arg:"subcommand:delete" help:"Delete a saved command by id"`
	List   *ListCmd   `arg:"subcommand:list" help:"List saved commands"`
	Config *ConfigCmd `arg:"subcommand:config" help:"Manage configuration"`
}

// SearchCmd represents 'rewind search'
type SearchCmd struct {
	Mode      *string `arg:"-m,--mode" help:"global, session, cwd or saved"`
	Limit     *int    `arg:"-n,--limit" help:"Maximum number of candidates"`
	Session   string  `arg:"--session,env:REWIND_SESSION" help:"Shell session id for session mode"`
	Cwd       string  `arg:"--cwd" help:"Directory for cwd mode (default: current directory)"`
	Clipboard bool    `arg:"-c,--clipboard" help:"Copy the selection to the clipboard instead of printing it"`
}

// ImportCmd represents 'rewind import'
type ImportCmd struct {
	File *string `arg:"positional" help:"History file (default: $HISTFILE or ~/.zsh_history)"`
}

// RecordCmd represents 'rewind record'
type RecordCmd struct {
	Exit     *int     `arg:"--exit" help:"Exit status"`
	Duration *int64   `arg:"--duration" help:"Duration in seconds"`
	Start    *int64   `arg:"--start" help:"Start time in epoch seconds (default: now)"`
	Session  string   `arg:"--session,env:REWIND_SESSION" help:"Shell session id"`
	Cwd      string   `arg:"--cwd" help:"Working directory (default: current directory)"`
	Command  []string `arg:"positional,required" help:"The command line"`
}

// QueryCmd represents 'rewind query'
type QueryCmd struct {
	Text  []string `arg:"positional,required" help:"Words that must all appear"`
	Limit *int     `arg:"-n,--limit" help:"Maximum number of results"`
}

// SaveCmd represents 'rewind save'
type SaveCmd struct {
	Command     string   `arg:"positional,required" help:"Command text"`
	Description string   `arg:"-d,--description" help:"Description"`
	Tags        []string `arg:"-t,--tag,separate" help:"Tag (repeatable)"`
}

// DeleteCmd represents 'rewind delete'
type DeleteCmd struct {
	ID uint `arg:"positional,required" help:"Saved command id"`
}

// ListCmd represents 'rewind list'
type ListCmd struct {
	Tags []string `arg:"-t,--tag,separate" help:"Only commands with any of these tags (repeatable)"`
}

// ConfigCmd represents 'rewind config'
type ConfigCmd struct {
	Get  *ConfigGetCmd  `arg:"subcommand:get" help:"Get a configuration value"`
	Set  *ConfigSetCmd  `arg:"subcommand:set" help:"Set a configuration value"`
	List *ConfigListCmd `arg:"subcommand:list" help:"List all configuration values"`
}

// ConfigGetCmd represents 'rewind config get'
type ConfigGetCmd struct {
	Key string `arg:"positional,required" help:"Configuration key"`
}

// ConfigSetCmd represents 'rewind config set'
type ConfigSetCmd struct {
	Key   string `arg:"positional,required" help:"Configuration key"`
	Value string `arg:"positional,required" help:"Configuration value"`
}

// ConfigListCmd represents 'rewind config list'
type ConfigListCmd struct{}

// Description returns the program description
func (Args) Description() string {
	return "rewind - shell history with interactive fuzzy search"
}

// Version returns the program version
func (Args) Version() string {
	return "rewind 0.1.0"
}

// Epilogue returns additional help text
func (Args) Epilogue() string {
	return `Examples:
  rewind                              # search all history
  rewind search -m cwd                # start in the current directory
  rewind import ~/.zsh_history        # load existing zsh history
  rewind record --exit 0 -- make test # record from a shell hook
  rewind save 'kubectl get pods' -t k8s -d 'list pods'
  rewind list -t k8s

An accepted selection prints "execute" or "edit" on the first line and the
command after it. Keys: enter run, ctrl+e edit, tab cycle mode, esc quit.`
}

// HasSubcommand reports whether any subcommand was given
func (args *Args) HasSubcommand() bool {
	return args.Search != nil || args.Import != nil || args.Record != nil ||
		args.Query != nil || args.Save != nil || args.Delete != nil ||
		args.List != nil || args.Config != nil
}

// Validate performs validation on the parsed arguments
func (args *Args) Validate() error {
	switch {
	case args.Search != nil:
		return args.Search.Validate()
	case args.Record != nil:
		return args.Record.Validate()
	case args.Query != nil:
		return args.Query.Validate()
	case args.Save != nil:
		return args.Save.Validate()
	case args.Delete != nil:
		return args.Delete.Validate()
	case args.Config != nil:
		return args.Config.Validate()
	}
	return nil
}

// Validate validates search command arguments
func (s *SearchCmd) Validate() error {
	if s.Mode != nil {
		if _, err := store.ParseMode(*s.Mode); err != nil {
			return err
		}
	}
	if s.Limit != nil && *s.Limit <= 0 {
		return fmt.Errorf("limit must be positive")
	}
	return nil
}

// Validate validates record command arguments
func (r *RecordCmd) Validate() error {
	if strings.TrimSpace(r.CommandLine()) == "" {
		return fmt.Errorf("command must not be empty")
	}
	if r.Duration != nil && *r.Duration < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	return nil
}

// CommandLine joins the positional words back into one command
func (r *RecordCmd) CommandLine() string {
	return strings.Join(r.Command, " ")
}

// Validate validates query command arguments
func (q *QueryCmd) Validate() error {
	if strings.TrimSpace(strings.Join(q.Text, " ")) == "" {
		return fmt.Errorf("query text must not be empty")
	}
	if q.Limit != nil && *q.Limit <= 0 {
		return fmt.Errorf("limit must be positive")
	}
	return nil
}

// Validate validates save command arguments
func (s *SaveCmd) Validate() error {
	if strings.TrimSpace(s.Command) == "" {
		return fmt.Errorf("command must not be empty")
	}
	return nil
}

// Validate validates delete command arguments
func (d *DeleteCmd) Validate() error {
	if d.ID == 0 {
		return fmt.Errorf("id must be positive")
	}
	return nil
}

// Validate validates config command arguments
func (c *ConfigCmd) Validate() error {
	count := 0
	var key string
	if c.Get != nil {
		count++
		key = c.Get.Key
	}
	if c.Set != nil {
		count++
		key = c.Set.Key
	}
	if c.List != nil {
		count++
	}

	if count == 0 {
		return fmt.Errorf("no config subcommand specified")
	}
	if count > 1 {
		return fmt.Errorf("only one config subcommand can be specified")
	}
	if key != "" && !slices.Contains(config.Keys(), key) {
		return fmt.Errorf("unknown configuration key: %s (valid keys: %s)", key, strings.Join(config.Keys(), ", "))
	}
	return nil
}
