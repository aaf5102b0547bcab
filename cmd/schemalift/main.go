// Package main implements the schemalift CLI. It drives the lifecycle
// entry points of an embedded SQLite database against an asset
// directory holding the seed image and migration scripts.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/spf13/afero"

	"github.com/schemalift/schemalift"
)

var versionString = schemalift.Version

// usage prints the help text.
func usage() {
	header := `Usage:
  schemalift [command] [arguments] [options]

Commands:
  create              Provision the seed image and build the schema at the target version.
  upgrade <old> <new> Migrate the schema from version <old> to <new> and merge the seed image.
  open                Apply session settings to a fresh connection.
  list                List discovered migration scripts in execution order.
  new                 Create the next empty migration script in the asset directory.

Options:`
	fmt.Fprintln(os.Stderr, header)
	flag.PrintDefaults()
}

func main() {
	name := flag.String("name", "", "Database file name; also the seed image key in the asset directory")
	dir := flag.String("dir", ".", "Directory holding the live database file")
	assetsDir := flag.String("assets", "assets", "Asset directory holding the seed image and migrations/")
	configPath := flag.String("config", "", "Path to JSON configuration file (optional)")
	parserMode := flag.String("parser", "", "Script parser mode (\"delimited\" or \"legacy\")")
	target := flag.Int("target", 0, "Target schema version (>= 0)")
	foreignKeys := flag.Bool("foreign-keys", false, "Enable foreign-key enforcement on every connection")
	helpFlag := flag.Bool("help", false, "Show help message")
	versionFlag := flag.Bool("version", false, "Show version")

	flag.Usage = usage
	flag.Parse()

	// Safeguard: check for any flag-like arguments after positional arguments.
	for _, arg := range flag.Args() {
		if strings.HasPrefix(arg, "-") {
			fmt.Fprintln(os.Stderr, "Error: Flags must be specified before the command. Please reorder your arguments.")
			usage()
			os.Exit(1)
		}
	}

	if *helpFlag {
		usage()
		os.Exit(0)
	}
	if *versionFlag {
		fmt.Println("schemalift version:", versionString)
		os.Exit(0)
	}

	cfg := cliConfig{
		Config: schemalift.Config{
			Name:          *name,
			Dir:           *dir,
			TargetVersion: *target,
			Parser:        *parserMode,
			ForeignKeys:   *foreignKeys,
		},
	}
	if *configPath != "" {
		if err := loadConfig(*configPath, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config file: %v\n", err)
			os.Exit(1)
		}
	}
	if cfg.Name == "" {
		fmt.Fprintln(os.Stderr, "Error: a database name must be provided via -name or the config file.")
		usage()
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no command provided.")
		usage()
		os.Exit(1)
	}
	command := args[0]

	switch command {
	case "create":
		withConn(cfg, *assetsDir, func(h *schemalift.Helper, ctx context.Context, conn *sql.Conn) {
			fmt.Printf("[%s] Creating schema at version %d...\n", time.Now().Format(time.Kitchen), cfg.TargetVersion)
			if err := h.OnCreate(ctx, conn); err != nil {
				fmt.Fprintf(os.Stderr, "Create error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("[%s] Schema created.\n", time.Now().Format(time.Kitchen))
		})
	case "upgrade":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: upgrade requires <old> and <new> version arguments.")
			usage()
			os.Exit(1)
		}
		oldVersion, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid old version: %s\n", args[1])
			os.Exit(1)
		}
		newVersion, err := strconv.Atoi(args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid new version: %s\n", args[2])
			os.Exit(1)
		}
		withConn(cfg, *assetsDir, func(h *schemalift.Helper, ctx context.Context, conn *sql.Conn) {
			fmt.Printf("[%s] Upgrading schema from %d to %d...\n", time.Now().Format(time.Kitchen), oldVersion, newVersion)
			report, err := h.OnUpgrade(ctx, conn, oldVersion, newVersion)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Upgrade error: %v\n", err)
				os.Exit(1)
			}
			switch {
			case report.Skipped:
				fmt.Printf("[%s] Merge skipped: %v\n", time.Now().Format(time.Kitchen), report.Err)
			case report.Err != nil:
				fmt.Printf("[%s] Merge degraded: %v\n", time.Now().Format(time.Kitchen), report.Err)
			default:
				fmt.Printf("[%s] Upgrade complete. Restored %d table(s) from backup:\n", time.Now().Format(time.Kitchen), len(report.Restored))
				for _, t := range report.Restored {
					fmt.Printf("  - %s\n", t)
				}
			}
		})
	case "open":
		withConn(cfg, *assetsDir, func(h *schemalift.Helper, ctx context.Context, conn *sql.Conn) {
			if err := h.OnOpen(ctx, conn); err != nil {
				fmt.Fprintf(os.Stderr, "Open error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("[%s] Session settings applied.\n", time.Now().Format(time.Kitchen))
		})
	case "list":
		scripts, err := schemalift.ListScripts(os.DirFS(*assetsDir), cfg.Config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing migration scripts: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Migration scripts in execution order:")
		for _, s := range scripts {
			fmt.Printf("Version %d: %s\n", s.Version, s.Name)
		}
	case "new":
		migrationDir := cfg.MigrationDir
		if migrationDir == "" {
			migrationDir = schemalift.DefaultConfig.MigrationDir
		}
		path, err := schemalift.CreateScript(afero.NewOsFs(), filepath.Join(*assetsDir, migrationDir), cfg.ScriptSuffix)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating migration script: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[%s] Created %s\n", time.Now().Format(time.Kitchen), path)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

// cliConfig is the JSON configuration surface: the engine Config plus
// literal table definitions for the schema registry collaborator.
type cliConfig struct {
	schemalift.Config
	Tables schemalift.SQLRegistry `json:"tables"`
}

func withConn(cfg cliConfig, assetsDir string, f func(h *schemalift.Helper, ctx context.Context, conn *sql.Conn)) {
	h, err := schemalift.NewHelper(cfg.Config, os.DirFS(assetsDir), cfg.Tables)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing schemalift: %v\n", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite3", filepath.Join(cfg.Dir, cfg.Name))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	conn, err := db.Conn(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error acquiring connection: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	f(h, ctx, conn)
}

func loadConfig(path string, cfg *cliConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(cfg)
}
