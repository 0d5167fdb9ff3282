package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stepforge/stepforge/internal/configset"
	"github.com/stepforge/stepforge/internal/history"
	"github.com/stepforge/stepforge/internal/prefs"
	"github.com/stepforge/stepforge/internal/session"
	"github.com/stepforge/stepforge/internal/tuning"
)

// configView is the listing form of one named config.
type configView struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Builtin     bool              `json:"builtin"`
	Default     bool              `json:"default,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Order       []string          `json:"-"`
}

// configKind edits one of the config collections by entry name.
type configKind interface {
	views(r *prefs.Root, withFields bool) []configView
	view(r *prefs.Root, name string) (configView, error)
	id(r *prefs.Root, name string) (configset.ID, error)
	add(r *prefs.Root, name string) (history.Command, error)
	clone(r *prefs.Root, name, newName string) (history.Command, error)
	rename(r *prefs.Root, name, newName string) (history.Command, error)
	remove(r *prefs.Root, name string) (history.Command, error)
	describe(r *prefs.Root, name, text string) (history.Command, error)
	set(r *prefs.Root, name, field, value string) (history.Command, error)
	restore(r *prefs.Root, name string) (history.Command, error)
	fieldNames() []string
}

type kindOps[T configset.Payload[T]] struct {
	collection func(*prefs.Root) *configset.Collection[T]
	fields     tuning.Fields[T]
}

// Values of the --kind flag.
const (
	kindExpressed = "expressed"
	kindPerformed = "performed"
)

var configKinds = map[string]configKind{
	kindExpressed: kindOps[*tuning.ExpressedChartConfig]{
		collection: func(r *prefs.Root) *configset.Collection[*tuning.ExpressedChartConfig] { return r.Expressed },
		fields:     tuning.ExpressedFields,
	},
	kindPerformed: kindOps[*tuning.PerformedChartConfig]{
		collection: func(r *prefs.Root) *configset.Collection[*tuning.PerformedChartConfig] { return r.Performed },
		fields:     tuning.PerformedFields,
	},
}

func (k kindOps[T]) entry(r *prefs.Root, name string) (*configset.Entry[T], error) {
	c := k.collection(r)
	e, ok := c.FindByName(name)
	if !ok {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("no %s config named %q", c.Kind(), name))
	}
	return e, nil
}

func (k kindOps[T]) toView(r *prefs.Root, e *configset.Entry[T], withFields bool) configView {
	v := configView{
		ID:          e.ID().String(),
		Name:        e.Name(),
		Description: e.Description(),
		Builtin:     e.IsBuiltin(),
	}
	if k.collection(r).Kind() == tuning.ExpressedKind {
		v.Default = e.Name() == r.DefaultExpressedConfig().Name()
	}
	if withFields {
		v.Fields = make(map[string]string, len(k.fields))
		for _, f := range k.fields {
			v.Fields[f.Name] = f.Format(e.Payload())
			v.Order = append(v.Order, f.Name)
		}
	}
	return v
}

func (k kindOps[T]) views(r *prefs.Root, withFields bool) []configView {
	entries := k.collection(r).Entries()
	out := make([]configView, len(entries))
	for i, e := range entries {
		out[i] = k.toView(r, e, withFields)
	}
	return out
}

func (k kindOps[T]) view(r *prefs.Root, name string) (configView, error) {
	e, err := k.entry(r, name)
	if err != nil {
		return configView{}, err
	}
	return k.toView(r, e, true), nil
}

func (k kindOps[T]) id(r *prefs.Root, name string) (configset.ID, error) {
	e, err := k.entry(r, name)
	if err != nil {
		return configset.NilID, err
	}
	return e.ID(), nil
}

func (k kindOps[T]) add(r *prefs.Root, name string) (history.Command, error) {
	c := k.collection(r)
	cmd, ok := configset.NewAddCommand(c, name)
	if !ok {
		return nil, rejected("cannot add %s config %q: name is empty or taken", c.Kind(), name)
	}
	return cmd, nil
}

func (k kindOps[T]) clone(r *prefs.Root, name, newName string) (history.Command, error) {
	e, err := k.entry(r, name)
	if err != nil {
		return nil, err
	}
	if newName == "" {
		newName = k.collection(r).UniqueName(e.Name())
	}
	cmd, ok := configset.NewCloneCommand(k.collection(r), e.ID(), newName)
	if !ok {
		return nil, rejected("cannot clone %q as %q: name is empty or taken", name, newName)
	}
	return cmd, nil
}

func (k kindOps[T]) rename(r *prefs.Root, name, newName string) (history.Command, error) {
	e, err := k.entry(r, name)
	if err != nil {
		return nil, err
	}
	cmd, ok := configset.NewRenameCommand(k.collection(r), e.ID(), newName)
	if !ok {
		return nil, rejected("cannot rename %q to %q", name, newName)
	}
	return cmd, nil
}

func (k kindOps[T]) remove(r *prefs.Root, name string) (history.Command, error) {
	e, err := k.entry(r, name)
	if err != nil {
		return nil, err
	}
	cmd, ok := configset.NewDeleteCommand(k.collection(r), e.ID())
	if !ok {
		return nil, rejected("cannot delete built-in config %q", name)
	}
	return cmd, nil
}

func (k kindOps[T]) describe(r *prefs.Root, name, text string) (history.Command, error) {
	e, err := k.entry(r, name)
	if err != nil {
		return nil, err
	}
	cmd, ok := configset.NewSetDescriptionCommand(k.collection(r), e.ID(), text)
	if !ok {
		return nil, rejected("description of %q not changed", name)
	}
	return cmd, nil
}

func (k kindOps[T]) set(r *prefs.Root, name, field, value string) (history.Command, error) {
	e, err := k.entry(r, name)
	if err != nil {
		return nil, err
	}
	cmd, ok, err := tuning.NewSetFieldCommand(k.collection(r), k.fields, e.ID(), field, value)
	if errors.Is(err, configset.ErrInvalidPayload) {
		return nil, WrapExitError(ExitFailure, fmt.Sprintf("%s of %q not changed", field, name), err)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("cannot set %s", field), err)
	}
	if !ok {
		return nil, rejected("%s of %q not changed", field, name)
	}
	return cmd, nil
}

func (k kindOps[T]) restore(r *prefs.Root, name string) (history.Command, error) {
	e, err := k.entry(r, name)
	if err != nil {
		return nil, err
	}
	cmd, ok := configset.NewRestoreDefaultsCommand(k.collection(r), e.ID())
	if !ok {
		return nil, rejected("cannot restore %q: built-in or already at defaults", name)
	}
	return cmd, nil
}

func (k kindOps[T]) fieldNames() []string {
	return k.fields.Names()
}

type configsOptions struct {
	*RootOptions
	kind string
}

func (o *configsOptions) resolveKind() (configKind, error) {
	k, ok := configKinds[o.kind]
	if !ok {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("invalid kind %q: must be %s or %s", o.kind, kindExpressed, kindPerformed))
	}
	return k, nil
}

// editConfig resolves the kind and submits the command built by build.
func (o *configsOptions) editConfig(cmd *cobra.Command, build func(k configKind, r *prefs.Root) (history.Command, error)) error {
	k, err := o.resolveKind()
	if err != nil {
		return err
	}
	return o.edit(cmd, func(s *session.Session) (history.Command, error) {
		return build(k, s.Prefs())
	})
}

// NewConfigsCommand creates the configs command group.
func NewConfigsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &configsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "configs",
		Short: "Manage named chart configs",
	}
	cmd.PersistentFlags().StringVarP(&opts.kind, "kind", "k", kindExpressed,
		"config kind ("+kindExpressed+"|"+kindPerformed+")")

	cmd.AddCommand(
		newConfigsListCommand(opts),
		newConfigsShowCommand(opts),
		newConfigsFieldsCommand(opts),
		&cobra.Command{
			Use:   "add NAME",
			Short: "Add a config with default values",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.editConfig(cmd, func(k configKind, r *prefs.Root) (history.Command, error) {
					return k.add(r, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "clone NAME [NEW_NAME]",
			Short: "Copy a config under a new name",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				newName := ""
				if len(args) == 2 {
					newName = args[1]
				}
				return opts.editConfig(cmd, func(k configKind, r *prefs.Root) (history.Command, error) {
					return k.clone(r, args[0], newName)
				})
			},
		},
		&cobra.Command{
			Use:   "rename NAME NEW_NAME",
			Short: "Rename a user config",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.editConfig(cmd, func(k configKind, r *prefs.Root) (history.Command, error) {
					return k.rename(r, args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Delete a user config",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.editConfig(cmd, func(k configKind, r *prefs.Root) (history.Command, error) {
					return k.remove(r, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "describe NAME TEXT",
			Short: "Set the description of a user config",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.editConfig(cmd, func(k configKind, r *prefs.Root) (history.Command, error) {
					return k.describe(r, args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "set NAME FIELD VALUE",
			Short: "Set one field of a user config",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.editConfig(cmd, func(k configKind, r *prefs.Root) (history.Command, error) {
					return k.set(r, args[0], args[1], args[2])
				})
			},
		},
		&cobra.Command{
			Use:   "restore NAME",
			Short: "Restore default values in a user config",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.editConfig(cmd, func(k configKind, r *prefs.Root) (history.Command, error) {
					return k.restore(r, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "default NAME",
			Short: "Use an expressed config for new charts",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.edit(cmd, func(s *session.Session) (history.Command, error) {
					r := s.Prefs()
					id, err := configKinds[kindExpressed].id(r, args[0])
					if err != nil {
						return nil, err
					}
					c, ok := prefs.NewSetDefaultExpressedConfig(r, id)
					if !ok {
						return nil, rejected("%q is already the default", args[0])
					}
					return c, nil
				})
			},
		},
	)
	return cmd
}

func newConfigsListCommand(opts *configsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := opts.resolveKind()
			if err != nil {
				return err
			}
			return opts.withSession(cmd, func(s *session.Session, out *OutputFormatter) error {
				views := k.views(s.Prefs(), false)
				return out.Success(views, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "NAME\tKIND\tDESCRIPTION")
					for _, v := range views {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Name, entryKind(v), v.Description)
					}
					_ = tw.Flush()
				})
			})
		},
	}
}

func entryKind(v configView) string {
	var tags []string
	if v.Builtin {
		tags = append(tags, "built-in")
	} else {
		tags = append(tags, "user")
	}
	if v.Default {
		tags = append(tags, "default")
	}
	return strings.Join(tags, ",")
}

func newConfigsShowCommand(opts *configsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show the values of a config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := opts.resolveKind()
			if err != nil {
				return err
			}
			return opts.withSession(cmd, func(s *session.Session, out *OutputFormatter) error {
				v, err := k.view(s.Prefs(), args[0])
				if err != nil {
					return err
				}
				return out.Success(v, func(w io.Writer) {
					fmt.Fprintf(w, "%s (%s)\n", v.Name, entryKind(v))
					if v.Description != "" {
						fmt.Fprintf(w, "%s\n", v.Description)
					}
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					for _, name := range v.Order {
						fmt.Fprintf(tw, "  %s\t%s\n", name, v.Fields[name])
					}
					_ = tw.Flush()
				})
			})
		},
	}
}

func newConfigsFieldsCommand(opts *configsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the fields a config kind accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := opts.resolveKind()
			if err != nil {
				return err
			}
			names := k.fieldNames()
			return opts.formatter(cmd).Success(names, func(w io.Writer) {
				for _, n := range names {
					fmt.Fprintln(w, n)
				}
			})
		},
	}
}
