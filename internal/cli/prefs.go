package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stepforge/stepforge/internal/history"
	"github.com/stepforge/stepforge/internal/prefs"
	"github.com/stepforge/stepforge/internal/session"
)

// setting is one scalar preference editable from the command line.
type setting struct {
	name   string
	format func(r *prefs.Root) string
	build  func(r *prefs.Root, s string) (history.Command, bool, error)
}

var settings = []setting{
	{
		name:   "undo-history-size",
		format: func(r *prefs.Root) string { return strconv.Itoa(r.UndoHistorySize()) },
		build: func(r *prefs.Root, s string) (history.Command, bool, error) {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, false, err
			}
			return asCommand(prefs.NewSetUndoHistorySize(r, n))
		},
	},
	volumeSetting("music-volume", prefs.VolumeMusic, (*prefs.Root).MusicVolume),
	volumeSetting("assist-tick-volume", prefs.VolumeAssistTick, (*prefs.Root).AssistTickVolume),
	{
		name: "receptor-position",
		format: func(r *prefs.Root) string {
			p := r.ReceptorPosition()
			return fmt.Sprintf("%d,%d", p.X, p.Y)
		},
		build: func(r *prefs.Root, s string) (history.Command, bool, error) {
			p, err := parsePosition(s)
			if err != nil {
				return nil, false, err
			}
			return asCommand(prefs.NewSetReceptorPosition(r, p))
		},
	},
	viewSetting("show-waveform", prefs.ViewWaveform, (*prefs.Root).ShowWaveform),
	viewSetting("show-mini-map", prefs.ViewMiniMap, (*prefs.Root).ShowMiniMap),
	viewSetting("show-log", prefs.ViewLog, (*prefs.Root).ShowLog),
}

func asCommand(cmd *history.SetFieldsCommand, ok bool) (history.Command, bool, error) {
	if !ok {
		return nil, false, nil
	}
	return cmd, true, nil
}

func volumeSetting(name string, which prefs.Volume, get func(*prefs.Root) float64) setting {
	return setting{
		name:   name,
		format: func(r *prefs.Root) string { return strconv.FormatFloat(get(r), 'g', -1, 64) },
		build: func(r *prefs.Root, s string) (history.Command, bool, error) {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, false, err
			}
			return asCommand(prefs.NewSetVolume(r, which, v))
		},
	}
}

func viewSetting(name string, which prefs.View, get func(*prefs.Root) bool) setting {
	return setting{
		name:   name,
		format: func(r *prefs.Root) string { return strconv.FormatBool(get(r)) },
		build: func(r *prefs.Root, s string) (history.Command, bool, error) {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return nil, false, err
			}
			if v == get(r) {
				return nil, false, nil
			}
			return asCommand(prefs.NewToggleView(r, which))
		},
	}
}

func parsePosition(s string) (prefs.Position, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return prefs.Position{}, fmt.Errorf("position %q: want X,Y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return prefs.Position{}, fmt.Errorf("position %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return prefs.Position{}, fmt.Errorf("position %q: %w", s, err)
	}
	return prefs.Position{X: x, Y: y}, nil
}

func lookupSetting(name string) (setting, bool) {
	for _, s := range settings {
		if s.name == name {
			return s, true
		}
	}
	return setting{}, false
}

func settingNames() []string {
	names := make([]string, len(settings))
	for i, s := range settings {
		names[i] = s.name
	}
	return names
}

// NewPrefsCommand creates the prefs command group.
func NewPrefsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show, check and edit editor preferences",
	}
	cmd.AddCommand(
		newPrefsShowCommand(opts),
		newPrefsValidateCommand(opts),
		newPrefsSetCommand(opts),
		newPrefsResetCommand(opts),
	)
	return cmd
}

type prefsView struct {
	Path     string            `json:"path"`
	Settings map[string]string `json:"settings"`

	DefaultExpressedConfig string `json:"defaultExpressedConfig"`
	ExpressedConfigs       int    `json:"expressedConfigs"`
	PerformedConfigs       int    `json:"performedConfigs"`
}

func newPrefsShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session.Session, out *OutputFormatter) error {
				r := s.Prefs()
				v := prefsView{
					Path:                   s.Path(),
					Settings:               make(map[string]string, len(settings)),
					DefaultExpressedConfig: r.DefaultExpressedConfig().Name(),
					ExpressedConfigs:       r.Expressed.Len(),
					PerformedConfigs:       r.Performed.Len(),
				}
				for _, st := range settings {
					v.Settings[st.name] = st.format(r)
				}
				return out.Success(v, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintf(tw, "path\t%s\n", v.Path)
					for _, st := range settings {
						fmt.Fprintf(tw, "%s\t%s\n", st.name, v.Settings[st.name])
					}
					fmt.Fprintf(tw, "default-expressed-config\t%s\n", v.DefaultExpressedConfig)
					fmt.Fprintf(tw, "expressed-configs\t%d\n", v.ExpressedConfigs)
					fmt.Fprintf(tw, "performed-configs\t%d\n", v.PerformedConfigs)
					_ = tw.Flush()
				})
			})
		},
	}
}

type validationIssue struct {
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

type validationReport struct {
	Path   string            `json:"path"`
	Valid  bool              `json:"valid"`
	Issues []validationIssue `json:"issues,omitempty"`
}

func newPrefsValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the preferences file for problems a load would repair",
		Long: `Load the preferences file and report every problem found on the way:
unparseable content, unknown values, invalid or duplicate configs and
broken bindings. The file is not modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, logs := observer.New(zapcore.WarnLevel)
			logger := zap.New(zapcore.NewTee(opts.logger(cmd).Core(), core))

			path := opts.path()
			r := prefs.New(prefs.WithLogger(logger))
			defer r.Close()
			_, err := r.Load(path)
			if errors.Is(err, fs.ErrNotExist) {
				return WrapExitError(ExitCommandError, "cannot validate preferences", err)
			}

			report := validationReport{Path: path}
			for _, entry := range logs.All() {
				report.Issues = append(report.Issues, validationIssue{
					Level:   entry.Level.String(),
					Message: entry.Message,
					Fields:  entry.ContextMap(),
				})
			}
			report.Valid = len(report.Issues) == 0

			out := opts.formatter(cmd)
			if err := out.Success(report, func(w io.Writer) {
				if report.Valid {
					fmt.Fprintf(w, "%s: ok\n", path)
					return
				}
				fmt.Fprintf(w, "%s: %d issue(s)\n", path, len(report.Issues))
				for _, is := range report.Issues {
					fmt.Fprintf(w, "  %s: %s%s\n", is.Level, is.Message, formatFields(is.Fields))
				}
			}); err != nil {
				return err
			}
			if !report.Valid {
				return NewExitError(ExitFailure, "preferences file has issues")
			}
			return nil
		},
	}
}

func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

func newPrefsSetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set NAME VALUE",
		Short: "Change one preference",
		Long:  "Change one preference. Names: " + strings.Join(settingNames(), ", ") + ".",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, ok := lookupSetting(args[0])
			if !ok {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("unknown preference %q: must be one of %v", args[0], settingNames()))
			}
			return opts.edit(cmd, func(s *session.Session) (history.Command, error) {
				c, ok, err := st.build(s.Prefs(), args[1])
				if err != nil {
					return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid value for %s", st.name), err)
				}
				if !ok {
					return nil, rejected("%s is already %s", st.name, st.format(s.Prefs()))
				}
				return c, nil
			})
		},
	}
}

func newPrefsResetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore default preferences and key bindings",
		Long:  "Restore default preferences and key bindings. Chart configs are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.edit(cmd, func(s *session.Session) (history.Command, error) {
				c, ok := prefs.NewRestoreDefaultsCommand(s.Prefs())
				if !ok {
					return nil, rejected("preferences are already at their defaults")
				}
				return c, nil
			})
		},
	}
}
