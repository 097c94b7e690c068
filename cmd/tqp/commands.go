package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tqp/internal/backup"
	"github.com/JonMunkholm/tqp/internal/csvcodec"
	"github.com/JonMunkholm/tqp/internal/interchange"
	"github.com/JonMunkholm/tqp/internal/schema"
)

// Command flags
var (
	kindFlag   string
	formatFlag string
	outputFile string
	queryFlag  string
	allColumns bool
	debounce   time.Duration
	backupDir  string
	listOnly   bool
	confirmed  bool
	sheetName  string
)

var importCmd = &cobra.Command{
	Use:   "import <file|dir>...",
	Short: "Import CSV, XLSX or JSON files into the store",
	Long: `Import one or more files. CSV and XLSX files are classified by their
header row; JSON files replace the whole collection and need --kind unless the
file is named after it (connections.json).

A directory argument imports every supported file in it and moves each
successfully imported file into its Imported/ subdirectory.

Examples:
  tqp import connections.csv
  tqp import exports/testcases.xlsx
  tqp import --kind connections backup.json
  tqp import ./drop`,
	Args: cobra.MinimumNArgs(1),
	RunE: withApp(runImport),
}

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Show what importing a CSV or XLSX file would change",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runPreview),
}

var exportCmd = &cobra.Command{
	Use:   "export <kind>",
	Short: "Export a collection as CSV, JSON or XLSX",
	Long: `Export testcases or connections. The format defaults to the output file's
extension, or CSV when writing to stdout.

Examples:
  tqp export connections > connections.csv
  tqp export testcases -o testcases.xlsx
  tqp export testcases --format json`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runExport),
}

var listCmd = &cobra.Command{
	Use:   "list <kind>",
	Short: "Print a collection as a table",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runList),
}

var headersCmd = &cobra.Command{
	Use:   "headers <file>",
	Short: "Show a file's header row and which record kind it matches",
	Args:  cobra.ExactArgs(1),
	RunE:  runHeaders,
}

var templateCmd = &cobra.Command{
	Use:   "template <kind>",
	Short: "Write a header-only CSV for a record kind",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplate,
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Import files dropped into a directory",
	Long: `Import every supported file already in dir, then keep watching it. A file
is imported once it has stopped changing for --debounce, and moved into
Imported/ on success. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runWatch),
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a JSON snapshot of both collections now, or list snapshots",
	Args:  cobra.NoArgs,
	RunE:  withApp(runBackup),
}

var resetCmd = &cobra.Command{
	Use:   "reset <kind>",
	Short: "Delete every record of a kind",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runReset),
}

func init() {
	importCmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Record kind for JSON files (testcases, connections)")

	exportCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format (csv, json, xlsx)")
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default stdout)")

	listCmd.Flags().StringVarP(&queryFlag, "query", "q", "", "Only test cases containing this text")
	listCmd.Flags().BoolVar(&allColumns, "all", false, "Show every column")

	headersCmd.Flags().StringVar(&sheetName, "sheet", "", "Workbook sheet to read (default first sheet)")

	templateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default stdout)")

	watchCmd.Flags().DurationVar(&debounce, "debounce", 0, "Quiet period before a file is imported (default IMPORT_WATCH_DEBOUNCE)")

	backupCmd.Flags().StringVar(&backupDir, "dir", "", "Snapshot directory (default BACKUP_DIR)")
	backupCmd.Flags().BoolVar(&listOnly, "list", false, "List existing snapshots instead of writing one")

	resetCmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm the deletion")
}

func runImport(cmd *cobra.Command, a *app, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	kind := schema.TagUnknown
	if kindFlag != "" {
		var err error
		if kind, err = schema.ParseTag(kindFlag); err != nil {
			return err
		}
	}

	var total, failed int
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			total++
			failed++
			reportFile(out, interchange.FileResult{Path: path, Err: err})
			continue
		}

		if info.IsDir() {
			results, err := a.svc.ImportDir(ctx, path)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("  no importable files in "+path))
			}
			for _, r := range results {
				total++
				if r.Err != nil {
					failed++
				}
				reportFile(out, r)
			}
			continue
		}

		total++
		res, err := a.svc.ImportFile(ctx, path, kind)
		if err != nil {
			failed++
		}
		reportFile(out, interchange.FileResult{Path: path, Result: res, Err: err})
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to import", failed, total)
	}
	return nil
}

func runPreview(cmd *cobra.Command, a *app, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	p, err := a.svc.Preview(cmd.Context(), filepath.Base(args[0]), data)
	out := cmd.OutOrStdout()
	if p != nil {
		printPreview(out, p)
	}
	return err
}

func runExport(cmd *cobra.Command, a *app, args []string) error {
	kind, err := schema.ParseTag(args[0])
	if err != nil {
		return err
	}

	f := formatFlag
	if f == "" && outputFile != "" {
		f = strings.TrimPrefix(filepath.Ext(outputFile), ".")
	}
	format, err := interchange.ParseFormat(f)
	if err != nil {
		return err
	}

	exp, err := a.svc.Export(cmd.Context(), kind, format)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), outputFile, exp.Data); err != nil {
		return err
	}
	if outputFile != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("✓ ")+fmt.Sprintf("wrote %d %s to %s", exp.Rows, kind, outputFile))
	}
	return nil
}

func runList(cmd *cobra.Command, a *app, args []string) error {
	kind, err := schema.ParseTag(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	switch kind {
	case schema.TagTestCases:
		list, err := a.svc.SearchTestCases(cmd.Context(), queryFlag)
		if err != nil {
			return err
		}
		cols := summaryColumns
		if allColumns {
			cols = schema.TestCaseFields
		}
		rows := make([][]string, len(list))
		for i, tc := range list {
			row := make([]string, len(cols))
			for j, c := range cols {
				row[j] = tc.Field(c)
			}
			rows[i] = row
		}
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Test Cases (%d)", len(list))))
		fmt.Fprintln(out, renderTable(cols, rows))

	case schema.TagConnections:
		list, err := a.svc.ListConnections(cmd.Context())
		if err != nil {
			return err
		}
		rows := make([][]string, len(list))
		for i, c := range list {
			rows[i] = c.Values()
		}
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Connections (%d)", len(list))))
		fmt.Fprintln(out, renderTable(schema.ConnectionFields, rows))
	}
	return nil
}

// runHeaders needs no store.
func runHeaders(cmd *cobra.Command, args []string) error {
	path := args[0]
	var header []string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if header, err = interchange.ReadHeaders(f, sheetName); err != nil {
			return err
		}
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		data, err := csvcodec.ReadAll(f, 0)
		if err != nil {
			return err
		}
		if rows := csvcodec.Decode(data); len(rows) > 0 {
			header = rows[0]
		}
	default:
		return fmt.Errorf("%s: %w", path, interchange.ErrUnsupportedFormat)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(filepath.Base(path)))
	for i, h := range header {
		fmt.Fprintf(out, "  %s %s\n", mutedStyle.Render(fmt.Sprintf("%2d", i+1)), h)
	}

	idx := schema.MakeHeaderIndex(header)
	tag := schema.Detect(header)
	if tag != schema.TagUnknown {
		fmt.Fprintln(out, successStyle.Render("✓ ")+"matches "+string(tag))
		return nil
	}
	fmt.Fprintln(out, errorStyle.Render("✗ ")+"matches no record kind")
	for _, d := range schema.Definitions() {
		fmt.Fprintf(out, "  %s missing %s\n", d.Tag, strings.Join(idx.Missing(d.Tag), ", "))
	}
	return nil
}

func runTemplate(cmd *cobra.Command, args []string) error {
	kind, err := schema.ParseTag(args[0])
	if err != nil {
		return err
	}
	tmpl, err := interchange.Template(kind)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), outputFile, []byte(tmpl))
}

func runWatch(cmd *cobra.Command, a *app, args []string) error {
	d := debounce
	if d <= 0 {
		d = a.cfg.Import.WatchDebounce
	}
	w, err := interchange.NewWatcher(a.svc, args[0], d)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	w.OnImport = func(r interchange.FileResult) { reportFile(out, r) }

	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("watching %s (Ctrl-C to stop)", args[0])))
	if err := w.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runBackup(cmd *cobra.Command, a *app, _ []string) error {
	cfg := a.cfg.Backup
	if backupDir != "" {
		cfg.Dir = backupDir
	}
	sched := backup.New(a.svc, cfg)
	out := cmd.OutOrStdout()

	if listOnly {
		for _, d := range schema.Definitions() {
			files, err := sched.Snapshots(d.Tag)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s (%d)", d.Label, len(files))))
			if len(files) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("  (none)"))
			}
			for _, f := range files {
				fmt.Fprintln(out, "  "+f)
			}
		}
		return nil
	}

	paths, err := sched.Snapshot(cmd.Context())
	for _, p := range paths {
		fmt.Fprintln(out, successStyle.Render("✓ ")+p)
	}
	return err
}

func runReset(cmd *cobra.Command, a *app, args []string) error {
	kind, err := schema.ParseTag(args[0])
	if err != nil {
		return err
	}
	if !confirmed {
		return fmt.Errorf("refusing to delete every %s record without --yes", kind)
	}
	n, err := a.svc.Reset(cmd.Context(), kind)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ ")+fmt.Sprintf("removed %d %s", n, kind))
	return nil
}

// writeOutput writes data to path, or to w when path is empty or "-".
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
