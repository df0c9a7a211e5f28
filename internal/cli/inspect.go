package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hiscores/internal/codec"
	"github.com/roach88/hiscores/internal/computed"
	"github.com/roach88/hiscores/internal/effects"
	"github.com/roach88/hiscores/internal/metric"
)

// CodecOptions holds flags shared by decode and encode.
type CodecOptions struct {
	*RootOptions
	Metric string
	Policy string
}

// policy resolves --metric or --policy. --metric wins when both are set.
func (o *CodecOptions) policy(catalog *metric.Catalog) (codec.Policy, error) {
	if o.Metric != "" {
		m, err := catalog.Parse(o.Metric)
		if err != nil {
			return codec.Policy{}, err
		}
		return catalog.Policy(m), nil
	}
	if o.Policy != "" {
		return codec.ParsePolicy(o.Policy)
	}
	return codec.Policy{}, fmt.Errorf("one of --metric or --policy is required")
}

func addCodecFlags(cmd *cobra.Command, opts *CodecOptions) {
	cmd.Flags().StringVar(&opts.Metric, "metric", "", "use the policy of this metric")
	cmd.Flags().StringVar(&opts.Policy, "policy", "", "policy: identity | ratio | ratio(N)")
}

// CodecResult is the output of decode and encode.
type CodecResult struct {
	Stored codec.StoredNumeric `json:"stored"`
	Value  float64             `json:"value"`
	Policy string              `json:"policy"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CodecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <stored>",
		Short: "Decode a stored integer into its semantic value",
		Long: `Decode a stored integer into its semantic value.

Example:
  hiscores decode 12345 --metric ehp      # 1.2345
  hiscores decode 4611686018427387904 --policy identity   # precision loss`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			catalog, err := catalogFor(rootOpts)
			if err != nil {
				return fail(f, ExitCommandError, "invalid configuration", err)
			}
			p, err := opts.policy(catalog)
			if err != nil {
				return fail(f, ExitCommandError, "invalid policy", err)
			}
			stored, err := codec.ParseNumeric(args[0])
			if err != nil {
				return fail(f, ExitCommandError, "invalid stored value", err)
			}
			v, err := codec.Decode(stored, p)
			if err != nil {
				return fail(f, ExitFailure, "decode failed", err)
			}
			res := CodecResult{Stored: stored, Value: v, Policy: p.String()}
			return f.Result(res, func(w io.Writer) {
				fmt.Fprintln(w, formatValue(v))
			})
		},
	}
	addCodecFlags(cmd, opts)
	return cmd
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CodecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode <value>",
		Short: "Encode a semantic value into its stored integer",
		Long: `Encode a semantic value into its stored integer.

The value is parsed as an exact decimal, so integers of any size are
accepted under the identity policy.

Example:
  hiscores encode 1.2345 --metric ehp     # 12345
  hiscores encode 200000000 --metric attack`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			catalog, err := catalogFor(rootOpts)
			if err != nil {
				return fail(f, ExitCommandError, "invalid configuration", err)
			}
			p, err := opts.policy(catalog)
			if err != nil {
				return fail(f, ExitCommandError, "invalid policy", err)
			}
			stored, err := codec.EncodeValue(strings.TrimSpace(args[0]), p)
			if err != nil {
				return fail(f, ExitFailure, "encode failed", err)
			}
			res := CodecResult{Stored: stored, Policy: p.String()}
			if v, derr := codec.Decode(stored, p); derr == nil {
				res.Value = v
			}
			return f.Result(res, func(w io.Writer) {
				fmt.Fprintln(w, stored.String())
			})
		},
	}
	addCodecFlags(cmd, opts)
	return cmd
}

func catalogFor(opts *RootOptions) (*metric.Catalog, error) {
	catalog := metric.NewCatalog()
	if err := opts.Config.ApplyDenominators(catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// SpecView is the printable form of a computed field spec.
type SpecView struct {
	Entity    string            `json:"entity"`
	Field     string            `json:"field"`
	Kind      string            `json:"kind"`
	Policy    string            `json:"policy,omitempty"`
	Selector  string            `json:"selector,omitempty"`
	Policies  map[string]string `json:"policies,omitempty"`
	DependsOn []string          `json:"depends_on,omitempty"`
	Nullable  bool              `json:"nullable,omitempty"`
	Mandatory bool              `json:"mandatory,omitempty"`
}

func specViews(specs []computed.Spec) []SpecView {
	out := make([]SpecView, len(specs))
	for i, s := range specs {
		v := SpecView{
			Entity:    string(s.Entity),
			Field:     s.Field,
			Kind:      s.Kind.String(),
			DependsOn: s.DependsOn(),
			Nullable:  s.Nullable,
			Mandatory: s.Mandatory,
		}
		if s.Kind == computed.Numeric {
			if s.Selector != nil {
				v.Selector = s.Selector.Field
				v.Policy = s.Selector.Default.String()
				v.Policies = make(map[string]string, len(s.Selector.Policies))
				for k, p := range s.Selector.Policies {
					v.Policies[k] = p.String()
				}
			} else {
				v.Policy = s.Policy.String()
			}
		}
		out[i] = v
	}
	return out
}

// NewSpecsCommand creates the specs command.
func NewSpecsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "specs",
		Short: "List derived field specs",
		Long: `List the derived fields attached to read results, with the scaling policy
each one decodes with and the columns it depends on.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			app, err := Components(rootOpts.Config)
			if err != nil {
				return fail(f, ExitCommandError, "invalid configuration", err)
			}
			views := specViews(app.Registry.Specs())
			return f.Result(views, func(w io.Writer) {
				for _, v := range views {
					line := fmt.Sprintf("%s.%s %s", v.Entity, v.Field, v.Kind)
					if v.Selector != "" {
						line += fmt.Sprintf(" by %s (default %s)", v.Selector, v.Policy)
					} else if v.Policy != "" {
						line += " " + v.Policy
					}
					if v.Nullable {
						line += " nullable"
					}
					fmt.Fprintln(w, line)
				}
			})
		},
	}
}

// HooksView lists hook and job registrations.
type HooksView struct {
	Enabled bool     `json:"enabled"`
	Hooks   []string `json:"hooks"`
	Jobs    []string `json:"jobs"`
}

// NewHooksCommand creates the hooks command.
func NewHooksCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hooks",
		Short: "List hook registrations",
		Long: `List the side effects registered per (entity, operation) and the job kinds
they hand work to. HISCORES_HOOKS_ENABLED sets whether they run.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			app, err := Components(rootOpts.Config)
			if err != nil {
				return fail(f, ExitCommandError, "invalid configuration", err)
			}
			// Job handlers only use the client when a job runs.
			if err := effects.RegisterJobs(app.Runner, nil); err != nil {
				return fail(f, ExitCommandError, "invalid configuration", err)
			}

			view := HooksView{Enabled: app.Router.Enabled()}
			for _, k := range app.Router.Registrations() {
				view.Hooks = append(view.Hooks, k.String())
			}
			for _, k := range app.Runner.Kinds() {
				view.Jobs = append(view.Jobs, string(k))
			}
			return f.Result(view, func(w io.Writer) {
				state := "enabled"
				if !view.Enabled {
					state = "disabled"
				}
				fmt.Fprintf(w, "Hooks %s\n", state)
				for _, h := range view.Hooks {
					fmt.Fprintf(w, "  hook %s\n", h)
				}
				for _, j := range view.Jobs {
					fmt.Fprintf(w, "  job  %s\n", j)
				}
			})
		},
	}
}
