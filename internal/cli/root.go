// Package cli implements the stepforge command line, which inspects and
// edits a preference file through the same session, history and commands
// the editor uses.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stepforge/stepforge/internal/history"
	"github.com/stepforge/stepforge/internal/logging"
	"github.com/stepforge/stepforge/internal/session"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	PrefsPath string
	LogLevel  string
	LogFormat string
	Verbose   bool
	Format    string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the stepforge CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "stepforge",
		Short: "Inspect and edit stepforge preferences",
		Long: `Inspect and edit the preferences of the stepforge chart editor:
chart generation configs, key bindings and editor settings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default "+DefaultPrefsPath()+")")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "console", "log format (console|json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewPrefsCommand(opts))
	cmd.AddCommand(NewConfigsCommand(opts))
	cmd.AddCommand(NewBindingsCommand(opts))

	return cmd
}

// DefaultPrefsPath returns the per-user preferences file.
func DefaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "preferences.toml"
	}
	return filepath.Join(dir, "stepforge", "preferences.toml")
}

func (o *RootOptions) path() string {
	if o.PrefsPath != "" {
		return o.PrefsPath
	}
	return DefaultPrefsPath()
}

func (o *RootOptions) logger(cmd *cobra.Command) *zap.Logger {
	level := o.LogLevel
	if o.Verbose {
		level = "debug"
	}
	return logging.NewTo(zapcore.AddSync(cmd.ErrOrStderr()), level, logging.ParseFormat(o.LogFormat))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// openSession opens the preferences file. A missing file yields defaults;
// an unreadable one is an error, so edits never overwrite a file that
// could not be understood.
func (o *RootOptions) openSession(cmd *cobra.Command) (*session.Session, error) {
	s := session.New(session.WithLogger(o.logger(cmd)))
	if err := s.Open(o.path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_ = s.Close()
		return nil, WrapExitError(ExitCommandError, "cannot load preferences", err)
	}
	return s, nil
}

// withSession runs fn against an open session.
func (o *RootOptions) withSession(cmd *cobra.Command, fn func(s *session.Session, out *OutputFormatter) error) error {
	s, err := o.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s, o.formatter(cmd))
}

// edit submits the command built by build and saves.
func (o *RootOptions) edit(cmd *cobra.Command, build func(s *session.Session) (history.Command, error)) error {
	return o.withSession(cmd, func(s *session.Session, out *OutputFormatter) error {
		c, err := build(s)
		if err != nil {
			return err
		}
		if err := s.Submit(c); err != nil {
			return WrapExitError(ExitCommandError, "cannot apply edit", err)
		}
		if err := s.Save(); err != nil {
			return WrapExitError(ExitCommandError, "cannot save preferences", err)
		}
		return out.Success(map[string]string{"applied": c.Description(), "path": s.Path()},
			func(w io.Writer) { fmt.Fprintf(w, "%s\n", c.Description()) })
	})
}

// rejected reports an edit that would be refused or change nothing.
func rejected(format string, args ...any) error {
	return NewExitError(ExitFailure, fmt.Sprintf(format, args...))
}
