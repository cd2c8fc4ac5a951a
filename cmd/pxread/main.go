package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pxbase/pxread/pkg/config"
	"github.com/pxbase/pxread/pkg/export"
	"github.com/pxbase/pxread/pkg/pxdata"
	"github.com/pxbase/pxread/pkg/pxfile"
	"github.com/pxbase/pxread/pkg/server"
	"github.com/pxbase/pxread/pkg/snapshot"
	"github.com/pxbase/pxread/pkg/watcher"
)

var (
	Version = "1.0.0"

	// Global flags
	configFile   string
	password     string
	blobFile     string
	encoding     string
	outputDir    string
	outputFormat string
	watchMode    bool
	useSnapshot  bool
	verbose      bool
	debounceStr  string

	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pxread",
		Short: "Read legacy Paradox database files",
		Long: `Reads Paradox .db tables (including encrypted tables and tables with
.MB blob side files) and exports them to JSON or CSV, shows their
schema, or serves them over HTTP with live change notifications.`,
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a TOML configuration file")
	rootCmd.PersistentFlags().StringVarP(&password, "password", "p", "", "Password for encrypted tables")
	rootCmd.PersistentFlags().StringVarP(&blobFile, "blob", "b", "", "Path to the .MB blob side file")
	rootCmd.PersistentFlags().StringVarP(&encoding, "encoding", "e", "", "Override the table codepage (e.g. CP866)")
	rootCmd.PersistentFlags().BoolVarP(&useSnapshot, "snapshot", "s", false, "Copy table files to a temp directory before reading")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	exportCmd := &cobra.Command{
		Use:   "export [database-file]",
		Short: "Export a table to JSON or CSV",
		Args:  cobra.ExactArgs(1),
		Run:   runExport,
	}
	exportCmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json or csv)")
	exportCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory")
	exportCmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Watch the table and re-export on change")
	exportCmd.Flags().StringVarP(&debounceStr, "debounce", "d", "1s", "Debounce duration for watch mode (e.g. 500ms, 1s)")

	infoCmd := &cobra.Command{
		Use:   "info [database-file]",
		Short: "Show table schema and record count",
		Args:  cobra.ExactArgs(1),
		Run:   runInfo,
	}

	codepageCmd := &cobra.Command{
		Use:   "codepage [database-file]",
		Short: "Show the codepage recorded in the table header",
		Args:  cobra.ExactArgs(1),
		Run:   runCodepage,
	}

	serveCmd := &cobra.Command{
		Use:   "serve [database-file]",
		Short: "Serve a table over HTTP with WebSocket updates",
		Args:  cobra.ExactArgs(1),
		Run:   runServe,
	}
	serveCmd.Flags().StringP("addr", "a", "", "Server address (e.g. :8080)")
	serveCmd.Flags().BoolP("watch", "w", true, "Watch the table and broadcast updates")

	rootCmd.AddCommand(exportCmd, infoCmd, codepageCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// settings merges the config file with command-line flags. Flags win.
func settings() *config.Config {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			errorColor.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if password != "" {
		cfg.Password = password
	}
	if blobFile != "" {
		cfg.BlobFile = blobFile
	}
	if encoding != "" {
		cfg.Encoding = encoding
	}
	if useSnapshot {
		cfg.Snapshot = true
	}
	return cfg
}

// decodeOptions builds session options from the settings, wiring the
// encoding override into the backend open.
func decodeOptions(cfg *config.Config) *pxdata.Options {
	opts := &pxdata.Options{DateUpperBound: cfg.DateUpperBound}
	if cfg.Encoding != "" {
		target := cfg.Encoding
		opts.OpenDocument = func(path string) (pxdata.Document, error) {
			doc := pxfile.New()
			if err := doc.Open(path); err != nil {
				return nil, err
			}
			if err := doc.SetEncoding(target); err != nil {
				doc.Close()
				return nil, err
			}
			return doc, nil
		}
	}
	return opts
}

// openSession opens a session per the settings, taking a snapshot first
// when requested. The returned cleanup closes everything.
func openSession(dbFile string, cfg *config.Config) (*pxdata.Session, func(), error) {
	dbPath, mbPath := dbFile, cfg.BlobFile
	release := func() {}

	if cfg.Snapshot {
		snap, err := snapshot.Take(dbPath, mbPath)
		if err != nil {
			return nil, nil, err
		}
		dbPath, mbPath = snap.DBPath, snap.MBPath
		release = func() { snap.Release() }
	}

	sess, err := pxdata.Open(dbPath, cfg.Password, decodeOptions(cfg))
	if err != nil {
		release()
		return nil, nil, err
	}
	if mbPath != "" {
		if ok, err := sess.SetBlobFile(mbPath); !ok {
			sess.Close()
			release()
			if err == nil {
				err = fmt.Errorf("blob file rejected: %s", mbPath)
			}
			return nil, nil, fmt.Errorf("failed to attach blob file: %w", err)
		}
	}
	return sess, func() {
		sess.Close()
		release()
	}, nil
}

func runExport(cmd *cobra.Command, args []string) {
	dbFile := args[0]
	cfg := settings()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		errorColor.Printf("Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	if !watchMode {
		exportFile(dbFile, cfg)
		return
	}

	debounce := parseDebounce(debounceStr)
	infoColor.Printf("Watching table: %s\n", dbFile)
	infoColor.Println("Press Ctrl+C to stop")

	exportFile(dbFile, cfg)

	tw, err := watcher.New()
	if err != nil {
		errorColor.Printf("Failed to create file watcher: %v\n", err)
		os.Exit(1)
	}
	defer tw.Close()

	err = tw.WatchTable(dbFile, cfg.BlobFile, func(path string) {
		infoColor.Printf("Table changed: %s\n", filepath.Base(path))
		exportFile(dbFile, cfg)
	}, debounce)
	if err != nil {
		errorColor.Printf("Failed to watch table: %v\n", err)
		os.Exit(1)
	}
	tw.Start()
	select {}
}

func exportFile(dbFile string, cfg *config.Config) {
	infoColor.Printf("Opening table: %s\n", filepath.Base(dbFile))

	sess, done, err := openSession(dbFile, cfg)
	if err != nil {
		errorColor.Printf("Failed to open table: %v\n", err)
		return
	}
	defer done()

	ds, err := sess.GetData()
	if err != nil {
		errorColor.Printf("Failed to read records: %v\n", err)
		return
	}
	if ds == nil {
		infoColor.Println("Table has no records")
		return
	}
	infoColor.Printf("Read %d records\n", ds.NumRecords())

	baseName := strings.TrimSuffix(filepath.Base(dbFile), filepath.Ext(dbFile))
	exp := export.NewExporter()

	var outputFile string
	if outputFormat == "csv" {
		outputFile = filepath.Join(outputDir, baseName+".csv")
		err = exp.ToCSV(ds, outputFile)
	} else {
		outputFile = filepath.Join(outputDir, baseName+".json")
		err = exp.ToJSON(ds, outputFile)
	}
	if err != nil {
		errorColor.Printf("Failed to export: %v\n", err)
		return
	}
	successColor.Printf("Exported to: %s\n", outputFile)
}

func runInfo(cmd *cobra.Command, args []string) {
	dbFile := args[0]
	cfg := settings()

	sess, done, err := openSession(dbFile, cfg)
	if err != nil {
		errorColor.Printf("Failed to open table: %v\n", err)
		os.Exit(1)
	}
	defer done()

	meta, err := sess.GetMetadata()
	if err != nil {
		errorColor.Printf("Failed to read metadata: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	successColor.Println("Table Information")
	fmt.Println(strings.Repeat("-", 40))
	infoColor.Printf("File:    %s\n", filepath.Base(dbFile))
	infoColor.Printf("Records: %d\n", meta.NumRecords)
	infoColor.Printf("Fields:  %d\n", meta.NumFields)
	fmt.Println()

	successColor.Println("Field Definitions")
	fmt.Println(strings.Repeat("-", 40))
	for i, field := range meta.Fields {
		fmt.Printf("%2d. %-20s %-12s (size: %d)\n", i+1, field.Name, field.TypeName(), field.Size)
	}
	fmt.Println()
}

func runCodepage(cmd *cobra.Command, args []string) {
	dbFile := args[0]
	cfg := settings()

	sess, done, err := openSession(dbFile, cfg)
	if err != nil {
		errorColor.Printf("Failed to open table: %v\n", err)
		os.Exit(1)
	}
	defer done()

	name, ok, err := sess.GetCodepage()
	if err != nil {
		errorColor.Printf("Failed to read codepage: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		infoColor.Println("No codepage recorded in the table header")
		return
	}
	successColor.Printf("Codepage: %s\n", name)
}

func runServe(cmd *cobra.Command, args []string) {
	dbFile := args[0]
	cfg := settings()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}
	watchTable, _ := cmd.Flags().GetBool("watch")

	srv := server.New(server.Options{
		DBPath:   dbFile,
		BlobPath: cfg.BlobFile,
		Password: cfg.Password,
		Decode:   decodeOptions(cfg),
		Snapshot: cfg.Snapshot,
		Origins:  cfg.Server.Origins,
	})
	defer srv.Close()

	if watchTable {
		if err := srv.StartWatching(cfg.Server.Debounce()); err != nil {
			errorColor.Printf("Failed to start file watching: %v\n", err)
			os.Exit(1)
		}
	}

	successColor.Printf("Server running at http://localhost%s\n", addr)
	infoColor.Println("Press Ctrl+C to stop")

	if err := srv.Start(addr); err != nil {
		errorColor.Printf("Server error: %v\n", err)
		os.Exit(1)
	}
}

func parseDebounce(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		errorColor.Printf("Invalid debounce duration %q: %v\n", s, err)
		os.Exit(1)
	}
	return d
}
