package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hiscores/internal/hooks"
	"github.com/roach88/hiscores/internal/model"
)

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Long: `Create or upgrade the database schema.

Opening the database applies the schema and any pending migrations. The
command is idempotent.

Example:
  hiscores migrate --db ./hiscores.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd)
			ctx := cmd.Context()

			st, err := openStore(ctx, rootOpts.Config)
			if err != nil {
				return fail(f, ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			version, err := st.SchemaVersion(ctx)
			if err != nil {
				return fail(f, ExitFailure, "failed to read schema version", err)
			}
			data := map[string]any{
				"driver":         string(st.Dialect()),
				"schema_version": version,
			}
			return f.Result(data, func(w io.Writer) {
				fmt.Fprintf(w, "Schema ready (%s, version %d)\n", st.Dialect(), version)
			})
		},
	}
}

// WriteOptions holds flags for the write command.
type WriteOptions struct {
	*RootOptions
	Entity         string
	Operation      string
	Data           string
	Where          string
	Rows           string
	Create         string
	SkipDuplicates bool
	NoHooks        bool
}

// NewWriteCommand creates the write command.
func NewWriteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Commit a write and run its side effects",
		Long: `Commit a write and run its side effects.

Payload values for derived fields are given in their natural units, e.g.
an EHP of 12.5 rather than its stored numerator. Side effects queued by the
write run before the command exits.

Example:
  hiscores write --entity player --op create --data '{"username":"zezima","ehp":12.5}'
  hiscores write --entity player --op update --where '{"id":1}' --data '{"country":"GB"}'
  hiscores write --entity record --op upsert \
    --where '{"player_id":1,"period":"week","metric":"ehp"}' \
    --create '{"player_id":1,"period":"week","metric":"ehp","value":1.5}' \
    --data '{"value":1.5}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Entity, "entity", "", "entity type (required)")
	cmd.Flags().StringVar(&opts.Operation, "op", "", "operation: "+joinOps()+" (required)")
	cmd.Flags().StringVar(&opts.Data, "data", "", "row data as a JSON object")
	cmd.Flags().StringVar(&opts.Where, "where", "", "filter as a JSON object")
	cmd.Flags().StringVar(&opts.Rows, "rows", "", "rows for createMany as a JSON array")
	cmd.Flags().StringVar(&opts.Create, "create", "", "row to insert when upsert matches nothing")
	cmd.Flags().BoolVar(&opts.SkipDuplicates, "skip-duplicates", false, "createMany ignores rows violating unique constraints")
	cmd.Flags().BoolVar(&opts.NoHooks, "no-hooks", false, "commit without running side effects")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("op")

	return cmd
}

func joinOps() string {
	names := make([]string, len(model.Operations))
	for i, o := range model.Operations {
		names[i] = string(o)
	}
	return strings.Join(names, "|")
}

func runWrite(opts *WriteOptions, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	req, err := buildWriteRequest(opts)
	if err != nil {
		return fail(f, ExitCommandError, "invalid write request", err)
	}

	app, err := OpenApp(ctx, opts.Config)
	if err != nil {
		return fail(f, ExitCommandError, "failed to open database", err)
	}
	defer func(ctx context.Context) {
		app.Close(ctx)
		app.reportMetrics(f)
	}(ctx)

	ctx, span := app.startSpan(ctx, f, "hiscores.write")
	defer span.End()

	if opts.NoHooks {
		ctx = hooks.WithSuppressed(ctx)
	}
	res, err := app.Client.Write(ctx, req)
	if err != nil {
		return fail(f, ExitFailure, "write failed", err)
	}

	return f.Result(res, func(w io.Writer) {
		if res.Row == nil {
			fmt.Fprintf(w, "%s %s: %d row(s)\n", req.Entity, req.Operation, res.Count)
			return
		}
		fmt.Fprintf(w, "%s %s:\n", req.Entity, req.Operation)
		printRow(w, res.Row)
	})
}

func buildWriteRequest(opts *WriteOptions) (model.WriteRequest, error) {
	entity, err := model.ParseEntityType(opts.Entity)
	if err != nil {
		return model.WriteRequest{}, err
	}
	op, err := model.ParseOperationKind(opts.Operation)
	if err != nil {
		return model.WriteRequest{}, err
	}

	req := model.WriteRequest{Entity: entity, Operation: op, SkipDuplicates: opts.SkipDuplicates}
	if req.Data, err = parseRow("data", opts.Data); err != nil {
		return model.WriteRequest{}, err
	}
	if req.Where, err = parseRow("where", opts.Where); err != nil {
		return model.WriteRequest{}, err
	}
	if req.Create, err = parseRow("create", opts.Create); err != nil {
		return model.WriteRequest{}, err
	}
	if req.Rows, err = parseRows("rows", opts.Rows); err != nil {
		return model.WriteRequest{}, err
	}
	if err := req.Validate(); err != nil {
		return model.WriteRequest{}, err
	}
	return req, nil
}

// ReadOptions holds flags for the read command.
type ReadOptions struct {
	*RootOptions
	Entity string
	Where  string
	Fields string
	Order  string
	Limit  int
}

// NewReadCommand creates the read command.
func NewReadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read rows with derived fields resolved",
		Long: `Read rows with derived fields resolved.

A derived field is omitted when the columns it depends on are not selected
with --fields.

Example:
  hiscores read --entity record --where '{"player_id":1}' --order=-value --limit 10
  hiscores read --entity player --fields id,username,ehp`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Entity, "entity", "", "entity type (required)")
	cmd.Flags().StringVar(&opts.Where, "where", "", "filter as a JSON object")
	cmd.Flags().StringVar(&opts.Fields, "fields", "", "comma-separated columns to select")
	cmd.Flags().StringVar(&opts.Order, "order", "", "comma-separated sort columns, prefix - for descending")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows (0 for no limit)")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func runRead(opts *ReadOptions, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	entity, err := model.ParseEntityType(opts.Entity)
	if err != nil {
		return fail(f, ExitCommandError, "invalid read request", err)
	}
	where, err := parseRow("where", opts.Where)
	if err != nil {
		return fail(f, ExitCommandError, "invalid read request", err)
	}
	if opts.Limit < 0 {
		return fail(f, ExitCommandError, "invalid read request", fmt.Errorf("--limit must not be negative"))
	}

	app, err := OpenApp(ctx, opts.Config)
	if err != nil {
		return fail(f, ExitCommandError, "failed to open database", err)
	}
	defer func(ctx context.Context) {
		app.Close(ctx)
		app.reportMetrics(f)
	}(ctx)

	ctx, span := app.startSpan(ctx, f, "hiscores.read")
	defer span.End()

	rows, err := app.Client.Read(ctx, model.ReadRequest{
		Entity:  entity,
		Where:   where,
		Fields:  splitList(opts.Fields),
		OrderBy: splitList(opts.Order),
		Limit:   opts.Limit,
	})
	if err != nil {
		return fail(f, ExitFailure, "read failed", err)
	}

	return f.Result(rows, func(w io.Writer) {
		fmt.Fprintf(w, "%d %s row(s)\n", len(rows), entity)
		for i, r := range rows {
			fmt.Fprintf(w, "[%d]\n", i)
			printRow(w, r)
		}
	})
}

func printRow(w io.Writer, r model.Row) {
	for _, k := range r.Keys() {
		fmt.Fprintf(w, "  %s: %s\n", k, formatValue(r[k]))
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case *model.ReviewOutcome:
		data, err := x.MarshalJSON()
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
