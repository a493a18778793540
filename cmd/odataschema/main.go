package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tordrt/odataschema"
	"github.com/tordrt/odataschema/internal/config"
	"github.com/tordrt/odataschema/internal/logging"
	"github.com/tordrt/odataschema/internal/response"
)

// app holds state shared by every subcommand
type app struct {
	configPath string
	storeURL   string
	debug      bool
	timeout    time.Duration
	headers    []string

	cfg    config.Config
	logger *zap.Logger
	store  odataschema.Store
	stdout io.Writer
}

// execute runs the CLI with args and releases the store and logger afterwards
func execute(ctx context.Context, args []string, stdout io.Writer) error {
	a := &app{stdout: stdout}
	rootCmd := a.rootCmd()
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	a.teardown(ctx)
	return err
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "odataschema",
		Short: "Inspect OData service schemas and build queries",
		Long: `odataschema reads the metadata document of an OData service (protocol versions 1.0 to 4.01),
prints its entity types and sets in a compact format, compiles query URLs and flattens data responses into rows.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	rootCmd.SetOut(a.stdout)

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: "+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&a.storeURL, "store", "", "Snapshot store URL (sqlite://, postgres://, mysql://)")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 30*time.Second, "HTTP request timeout")
	rootCmd.PersistentFlags().StringArrayVarP(&a.headers, "header", "H", nil, "Extra request header 'Name: value' (repeatable)")

	rootCmd.AddCommand(
		a.schemaCmd(),
		a.queryCmd(),
		a.rowsCmd(),
		a.detectCmd(),
		a.historyCmd(),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Flags override config
	if a.storeURL != "" {
		cfg.Store = a.storeURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = a.timeout
	}
	headers, err := parseHeaders(a.headers)
	if err != nil {
		return err
	}
	if len(headers) > 0 && cfg.Headers == nil {
		cfg.Headers = make(map[string]string, len(headers))
	}
	for k, v := range headers {
		cfg.Headers[k] = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = logging.New(a.debug)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	if cfg.Store != "" {
		a.store, err = odataschema.OpenStore(cmd.Context(), cfg.Store, a.logger)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
	}
	return nil
}

func (a *app) teardown(ctx context.Context) {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close store: %v\n", err)
		}
	}
}

func (a *app) fetchOptions() *odataschema.FetchOptions {
	return &odataschema.FetchOptions{
		Timeout: a.cfg.Timeout,
		Headers: a.cfg.Headers,
		Store:   a.store,
		Logger:  a.logger,
	}
}

// loadModel parses a local metadata file or fetches the schema of the
// service a URL points into. root is the service root for URLs, empty for files.
func (a *app) loadModel(ctx context.Context, src string, offline bool) (m *odataschema.Model, root string, err error) {
	if !isURL(src) {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read metadata file: %w", err)
		}
		m, err := odataschema.ParseMetadata(data)
		return m, "", err
	}

	opts := a.fetchOptions()
	opts.Offline = offline
	m, err = odataschema.FetchSchema(ctx, src, opts)
	return m, odataschema.ServiceRoot(src), err
}

func (a *app) schemaCmd() *cobra.Command {
	var (
		outputFile     string
		outputDir      string
		format         string
		splitThreshold int
		offline        bool
	)

	cmd := &cobra.Command{
		Use:   "schema <file|url>",
		Short: "Print the entity types and sets of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir != "" && outputFile != "" {
				return fmt.Errorf("cannot use both --output-dir and --output flags")
			}
			if !cmd.Flags().Changed("format") && a.cfg.Format != "" {
				format = a.cfg.Format
			}

			m, _, err := a.loadModel(cmd.Context(), args[0], offline)
			if err != nil {
				return err
			}

			// Multi-file output
			shouldSplit := outputDir != "" && (splitThreshold == 0 || len(m.EntityTypes) > splitThreshold)
			if shouldSplit {
				return odataschema.FormatSchema(m, &odataschema.OutputOptions{OutputDir: outputDir, Format: format})
			}

			// Single-file output
			writer := cmd.OutOrStdout()
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer func() {
					if err := f.Close(); err != nil {
						fmt.Fprintf(os.Stderr, "warning: failed to close output file: %v\n", err)
					}
				}()
				writer = f
			}

			return odataschema.FormatSchema(m, &odataschema.OutputOptions{Writer: writer, Format: format})
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory for multi-file output")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, markdown, json or yaml")
	cmd.Flags().IntVar(&splitThreshold, "split-threshold", 0, "Split into multiple files when entity type count exceeds this (requires --output-dir)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Load the schema from the store instead of the network")
	return cmd
}

func (a *app) queryCmd() *cobra.Command {
	var (
		sel     odataschema.Selection
		selects string
		expands string
		top     int
		skip    int
		base    string
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "query <file|url>",
		Short: "Compile a query URL for an entity set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if sel.EntitySet == "" {
				return fmt.Errorf("--set is required")
			}

			m, root, err := a.loadModel(ctx, args[0], offline)
			if err != nil {
				return err
			}
			if base != "" {
				root = strings.TrimRight(base, "/")
			}
			if root == "" {
				return fmt.Errorf("--base is required when reading metadata from a file")
			}
			if _, ok := m.EntitySet(sel.EntitySet); !ok {
				a.logger.Warn("entity set not declared by the service", zap.String("set", sel.EntitySet))
			}

			sel.Select = parseList(selects)
			sel.Expand = parseList(expands)
			if cmd.Flags().Changed("top") {
				sel.Top = &top
			}
			if cmd.Flags().Changed("skip") {
				sel.Skip = &skip
			}

			q := odataschema.CompileQuery(m, root, sel)
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, q.URL)
			if q.Display != q.URL {
				_, _ = fmt.Fprintln(out, q.Display)
			}

			if a.store != nil {
				err := a.store.RecordQuery(ctx, odataschema.QueryRecord{
					ServiceURL: root,
					URL:        q.URL,
					Display:    q.Display,
					CreatedAt:  time.Now(),
				})
				if err != nil {
					a.logger.Warn("failed to record query", zap.Error(err))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sel.EntitySet, "set", "", "Entity set to query")
	cmd.Flags().StringVar(&selects, "select", "", "Properties to select (comma-separated)")
	cmd.Flags().StringVar(&expands, "expand", "", "Navigation properties to expand (comma-separated)")
	cmd.Flags().StringVar(&sel.Filter, "filter", "", "Filter expression, passed through verbatim")
	cmd.Flags().StringVar(&sel.OrderBy, "orderby", "", "Property to order by")
	cmd.Flags().BoolVar(&sel.Descending, "desc", false, "Order descending")
	cmd.Flags().IntVar(&top, "top", 0, "Maximum number of rows")
	cmd.Flags().IntVar(&skip, "skip", 0, "Number of rows to skip")
	cmd.Flags().BoolVar(&sel.Count, "count", false, "Request the total row count")
	cmd.Flags().StringVar(&base, "base", "", "Service root (default: derived from the URL argument)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Load the schema from the store instead of the network")
	return cmd
}

func (a *app) rowsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "rows <url>",
		Short: "Fetch a data URL and print its rows as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preferred, err := response.ParseFormat(format)
			if err != nil {
				return err
			}
			opts := a.fetchOptions()
			opts.Format = preferred

			rows, used, err := odataschema.FetchRows(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			if list, ok := response.Rows(rows); ok {
				a.logger.Debug("decoded rows",
					zap.Int("count", len(list)),
					zap.String("format", string(used)))
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Preferred response format: json or atom (the other is tried on failure)")
	return cmd
}

func (a *app) detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>",
		Short: "Print the protocol version of a metadata document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			version, ok := odataschema.Detect(data)
			if !ok {
				return fmt.Errorf("%s: %w", args[0], odataschema.ErrNotMetadata)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var (
		service string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently compiled queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return fmt.Errorf("history requires --store or a store in the config file")
			}
			if service != "" {
				service = odataschema.ServiceRoot(service)
			}

			records, err := a.store.RecentQueries(cmd.Context(), service, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range records {
				_, _ = fmt.Fprintf(out, "%s  %s\n", r.CreatedAt.Local().Format(time.DateTime), r.Display)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Only list queries for this service")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of queries")
	return cmd
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// parseList splits a comma-separated flag value, dropping empty items
func parseList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// parseHeaders parses "Name: value" pairs
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (expected 'Name: value')", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", odataschema.Describe(err))
		if detail := err.Error(); detail != odataschema.Describe(err) {
			fmt.Fprintf(os.Stderr, "  %s\n", detail)
		}
		os.Exit(1)
	}
}
