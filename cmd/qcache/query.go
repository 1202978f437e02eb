package main

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-query-cache/connector"
	"github.com/goliatone/go-query-cache/pkg/di"
	"github.com/goliatone/go-query-cache/row"
)

// queryFlags are shared by get and list.
type queryFlags struct {
	conn   string
	query  string
	params []string
	repeat int
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.conn, "conn", "main", "connection key")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "query text, with ? placeholders")
	cmd.Flags().StringArrayVarP(&f.params, "param", "p", nil, "query parameter, repeatable; integers and floats are passed as numbers")
	cmd.Flags().IntVar(&f.repeat, "repeat", 1, "run the query this many times")
	_ = cmd.MarkFlagRequired("query")
}

func (f *queryFlags) validate() error {
	if f.repeat < 1 {
		return errors.Newf("--repeat must be at least 1, got %d", f.repeat)
	}
	return nil
}

// record is the JSON line printed for each outcome.
type record struct {
	Kind        string `json:"kind"`
	Fingerprint string `json:"fingerprint"`
	Value       any    `json:"value"`
}

func newGetCmd(a *app) *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Retrieve at most one row",
		Long: `Get runs a single-row query. Zero rows print a null value; more than
one row is an error.

Example:
  qcache get --conn main -q "SELECT * FROM users WHERE id = ?" -p 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.validate(); err != nil {
				return err
			}
			conn, err := di.NewConnector(cmd.Context(), a.container, f.conn, projectMap)
			if err != nil {
				return err
			}
			return run(cmd.Context(), a, f, func(ctx context.Context) (record, error) {
				outcome, err := conn.GetEntity(ctx, f.query, parseParams(f.params)...)
				if err != nil {
					return record{}, err
				}
				opt, err := connector.Resolve(ctx, a.container.Store(), outcome)
				if err != nil {
					return record{}, err
				}
				var value any
				if v, ok := opt.Get(); ok {
					value = v
				}
				return newRecord(outcome, value), nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Retrieve every row",
		Long: `List runs a query and prints every row in result order.

Example:
  qcache list --conn main -q "SELECT * FROM users ORDER BY id" --repeat 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.validate(); err != nil {
				return err
			}
			conn, err := di.NewConnector(cmd.Context(), a.container, f.conn, projectMap)
			if err != nil {
				return err
			}
			return run(cmd.Context(), a, f, func(ctx context.Context) (record, error) {
				outcome, err := conn.GetEntities(ctx, f.query, parseParams(f.params)...)
				if err != nil {
					return record{}, err
				}
				list, err := connector.Resolve(ctx, a.container.Store(), outcome)
				if err != nil {
					return record{}, err
				}
				return newRecord(outcome, list), nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func run(ctx context.Context, a *app, f queryFlags, once func(context.Context) (record, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	enc := json.NewEncoder(a.out)
	for i := 0; i < f.repeat; i++ {
		rec, err := once(ctx)
		if err != nil {
			return err
		}
		if err := enc.Encode(rec); err != nil {
			return errors.Wrap(err, "encode outcome")
		}
	}
	return nil
}

func newRecord[T any](o connector.Outcome[T], value any) record {
	return record{
		Kind:        o.Kind().String(),
		Fingerprint: o.Fingerprint().Text(),
		Value:       value,
	}
}

// projectMap keeps every column, decoding byte slices as text.
func projectMap(r row.Row) (map[string]any, error) {
	m := r.Map()
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			m[k] = string(b)
		}
	}
	return m, nil
}

func parseParams(raw []string) []any {
	params := make([]any, 0, len(raw))
	for _, p := range raw {
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			params = append(params, n)
			continue
		}
		if f, err := strconv.ParseFloat(p, 64); err == nil {
			params = append(params, f)
			continue
		}
		params = append(params, p)
	}
	return params
}
