package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stepforge/stepforge/internal/history"
	"github.com/stepforge/stepforge/internal/keybind"
	"github.com/stepforge/stepforge/internal/session"
)

type bindingView struct {
	Action   string   `json:"action"`
	Category string   `json:"category"`
	Chords   []string `json:"chords"`
	Default  bool     `json:"default"`
}

type conflictView struct {
	Chord   string   `json:"chord"`
	Actions []string `json:"actions"`
}

type bindingsReport struct {
	Bindings  []bindingView  `json:"bindings"`
	Conflicts []conflictView `json:"conflicts,omitempty"`
}

func chordStrings(chords []keybind.Chord) []string {
	out := make([]string, len(chords))
	for i, c := range chords {
		out[i] = c.String()
	}
	return out
}

func bindingsOf(t *keybind.Table, category string) bindingsReport {
	var report bindingsReport
	for _, d := range keybind.Descriptors() {
		if category != "" && !strings.EqualFold(category, d.Category) {
			continue
		}
		report.Bindings = append(report.Bindings, bindingView{
			Action:   d.Name,
			Category: d.Category,
			Chords:   chordStrings(t.Get(d.Action)),
			Default:  t.IsDefault(d.Action),
		})
	}
	for _, c := range t.Conflicts() {
		names := make([]string, len(c.Actions))
		for i, a := range c.Actions {
			names[i] = a.String()
		}
		report.Conflicts = append(report.Conflicts, conflictView{Chord: c.Chord.String(), Actions: names})
	}
	return report
}

func lookupAction(name string) (keybind.Action, error) {
	a, ok := keybind.ActionByName(name)
	if !ok {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("unknown action %q", name))
	}
	return a, nil
}

// NewBindingsCommand creates the bindings command group.
func NewBindingsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bindings",
		Short: "Show and edit key bindings",
	}
	cmd.AddCommand(
		newBindingsListCommand(opts),
		newBindingsSetCommand(opts),
		newBindingsResetCommand(opts),
	)
	return cmd
}

func newBindingsListCommand(opts *RootOptions) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List key bindings and conflicting chords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session.Session, out *OutputFormatter) error {
				report := bindingsOf(s.Prefs().KeyBindings, category)
				return out.Success(report, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ACTION\tCATEGORY\tCHORDS\t")
					for _, b := range report.Bindings {
						mark := ""
						if !b.Default {
							mark = "*"
						}
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Action, b.Category, strings.Join(b.Chords, " "), mark)
					}
					_ = tw.Flush()
					for _, c := range report.Conflicts {
						fmt.Fprintf(w, "conflict: %s is bound to %s\n", c.Chord, strings.Join(c.Actions, ", "))
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list actions in this category")
	return cmd
}

func newBindingsSetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set ACTION [CHORD...]",
		Short: "Bind an action to chords; no chords unbinds it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := lookupAction(args[0])
			if err != nil {
				return err
			}
			chords := make([]keybind.Chord, 0, len(args)-1)
			for _, spec := range args[1:] {
				c, err := keybind.ParseChord(spec)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid chord", err)
				}
				chords = append(chords, c)
			}
			return opts.edit(cmd, func(s *session.Session) (history.Command, error) {
				c, ok := keybind.NewSetBindingCommand(s.Prefs().KeyBindings, a, chords)
				if !ok {
					return nil, rejected("%s is already bound to those chords", a)
				}
				return c, nil
			})
		},
	}
}

func newBindingsResetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset [ACTION]",
		Short: "Restore the default binding of one action, or of all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return opts.edit(cmd, func(s *session.Session) (history.Command, error) {
					c, ok := keybind.NewResetAllCommand(s.Prefs().KeyBindings)
					if !ok {
						return nil, rejected("all bindings are already at their defaults")
					}
					return c, nil
				})
			}
			a, err := lookupAction(args[0])
			if err != nil {
				return err
			}
			return opts.edit(cmd, func(s *session.Session) (history.Command, error) {
				c, ok := keybind.NewResetBindingCommand(s.Prefs().KeyBindings, a)
				if !ok {
					return nil, rejected("%s already has its default binding", a)
				}
				return c, nil
			})
		},
	}
}
