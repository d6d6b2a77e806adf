// Package main is the tansaku CLI entry point.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/tansaku/internal/catalog"
	"github.com/hyperjump/tansaku/internal/cli"
	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/server"
	"github.com/hyperjump/tansaku/internal/specs"
	"github.com/hyperjump/tansaku/internal/watcher"
	"github.com/hyperjump/tansaku/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tansaku/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// loadConfigOrDefaults is loadConfig for commands that can run on built-in defaults.
func loadConfigOrDefaults(path string) *config.Config {
	cfg, _, err := loadConfig(path)
	if err != nil {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}
	return cfg
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "build":
		runBuild()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "expand":
		runExpand()
	case "parse":
		runParse()
	case "version", "--version", "-v":
		fmt.Printf("tansaku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads the config and creates the logger and components.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger, *Components, string) {
	cfg, resolvedConfigPath, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, logger, components, resolvedConfigPath
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	watch := fs.Bool("watch", false, "rebuild the index when the catalog file changes (overrides catalog.watch)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components, resolvedConfigPath := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()
	logger.Info("config loaded", zap.String("config_path", resolvedConfigPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ensureIndex(ctx, components, cfg, logger); err != nil {
		logger.Warn("initial build failed; POST /api/v1/build to retry", zap.Error(err))
	}

	if (cfg.Catalog.Watch || *watch) && cfg.Catalog.SourcePath != "" {
		w := watcher.NewWatcher(cfg.Catalog.SourcePath,
			watcher.Rebuild(ctx, components.Builder, logger),
			watcher.WithLogger(logger),
		)
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start catalog watcher", zap.Error(err))
		}
		defer w.Stop()
		logger.Info("watching catalog", zap.String("path", w.Path()))
	}

	srv := server.NewServer(
		components.Engine,
		components.Builder,
		components.Docs,
		cfg,
		logger,
		server.WithMetrics(components.Metrics),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	catalogPath := fs.String("catalog", "", "catalog file (.csv or .xlsx); defaults to catalog.source_path")
	force := fs.Bool("force", false, "rebuild even when the index is fresh")
	serverURL := fs.String("server", "", "ask a running server to rebuild from its configured catalog instead")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		res, err := buildViaHTTP(*serverURL, *force)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
			os.Exit(1)
		}
		printBuildResult(res.Skipped, res.Records, res.BuildID, time.Duration(res.DurationMS)*time.Millisecond)
		return
	}

	cfg, logger, components, _ := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	path := *catalogPath
	if path == "" {
		path = cfg.Catalog.SourcePath
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "Usage: tansaku build --catalog <file.csv|file.xlsx> [--force]")
		os.Exit(1)
	}
	records, err := catalog.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load catalog: %v\n", err)
		os.Exit(1)
	}
	res, err := components.Builder.Build(context.Background(), records, *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		os.Exit(1)
	}
	buildID := ""
	if res.Manifest != nil {
		buildID = res.Manifest.BuildID
	}
	printBuildResult(res.Skipped, res.Records, buildID, res.Duration)
}

func printBuildResult(skipped bool, records int, buildID string, d time.Duration) {
	if skipped {
		fmt.Printf("Index is fresh (%d records); nothing to do. Use --force to rebuild.\n", records)
		return
	}
	fmt.Printf("Indexed %d records in %s (build %s)\n", records, d.Round(time.Millisecond), buildID)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: tansaku search [flags] [query]\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Without a query, an interactive prompt starts.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Attribute words in the query (brand, RAM, SSD/HDD size, CPU, GPU, OS, type) become exact
filters; the rest of the query ranks what passes them.

Examples:
  tansaku search dell gaming laptop with 16gb ram
  tansaku search "apple ultrabook"                # same as unquoted
  tansaku search --top-k 10 --output json nvidia gaming
  tansaku search                                  # interactive; :q, exit or quit to leave
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchConfigPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func searchConfigPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// searchSizeDefaultsFromConfig loads config at path and returns the default top-k and
// retrieve-k. On load failure, returns the built-in defaults.
func searchSizeDefaultsFromConfig(path string) (topK, retrieveK int) {
	topK, retrieveK = models.DefaultTopK, models.DefaultRetrieveK
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return topK, retrieveK
	}
	return cfg.Search.TopK, cfg.Search.RetrieveK
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// isQuit reports whether an interactive input line ends the session.
func isQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case ":q", "exit", "quit":
		return true
	}
	return false
}

// repl reads queries line by line from in until EOF or a quit word. Errors from
// handle are printed and the loop continues.
func repl(in io.Reader, out io.Writer, handle func(query string) error) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "query> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isQuit(line) {
			return nil
		}
		if err := handle(line); err != nil {
			fmt.Fprintf(out, "Search failed: %v\n", err)
		}
	}
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])
	configPath := searchConfigPathFromArgs(searchArgs, defaultConfigPath)
	defaultTopK, defaultRetrieveK := searchSizeDefaultsFromConfig(configPath)

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = search the local index directly)")
	topK := fs.Int("top-k", defaultTopK, "number of reranked results")
	retrieveK := fs.Int("retrieve-k", defaultRetrieveK, "number of nearest neighbors retrieved before filtering")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	queryStr := buildSearchQuery(fs.Args())

	var searchFn func(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error)
	if *serverURL != "" {
		searchFn = func(_ context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
			return searchViaHTTP(*serverURL, q)
		}
	} else {
		cfg, logger, components, _ := setup(*configPathFlag, false)
		defer logger.Sync()
		defer components.Close()
		if err := ensureIndex(context.Background(), components, cfg, logger); err != nil {
			logger.Warn("index build failed", zap.Error(err))
		}
		searchFn = components.Engine.Search
	}

	handle := func(query string) error {
		response, err := searchFn(context.Background(), &models.SearchQuery{
			Query:     query,
			TopK:      *topK,
			RetrieveK: *retrieveK,
		})
		if err != nil {
			return err
		}
		return cli.WriteSearchResults(os.Stdout, response, format)
	}

	if queryStr == "" {
		if err := repl(os.Stdin, os.Stdout, handle); err != nil {
			fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := handle(queryStr); err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	var response models.SearchResponse
	if err := doJSON(http.MethodPost, serverURL+"/api/v1/search", query, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

type buildResponse struct {
	Skipped    bool   `json:"skipped"`
	Records    int    `json:"records"`
	BuildID    string `json:"build_id"`
	DurationMS int64  `json:"duration_ms"`
}

func buildViaHTTP(serverURL string, force bool) (*buildResponse, error) {
	var res buildResponse
	target := serverURL + "/api/v1/build?force=" + strconv.FormatBool(force)
	if err := doJSON(http.MethodPost, target, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Index  *indexer.Status        `json:"index"`
	Config map[string]interface{} `json:"config,omitempty"`
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	var s statusResponse
	if err := doJSON(http.MethodGet, serverURL+"/api/v1/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// doJSON sends body (when non-nil) as JSON and decodes a 200 response into out.
func doJSON(method, target string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read the local index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, logger, components, _ := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		var records []*models.Record
		if cfg.Catalog.SourcePath != "" {
			loaded, err := catalog.Load(cfg.Catalog.SourcePath)
			if err != nil {
				logger.Warn("catalog unavailable", zap.Error(err))
			} else {
				records = loaded
			}
		}
		st, err := components.Builder.Status(context.Background(), records)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{Index: st}
	}
	if status.Index == nil {
		fmt.Fprintln(os.Stderr, "Status failed: empty response")
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		cli.WriteStatus(os.Stdout, status.Index)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func runExpand() {
	fs := flag.NewFlagSet("expand", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (expansion section)")
	_ = fs.Parse(os.Args[2:])
	text := buildSearchQuery(fs.Args())
	if text == "" {
		fmt.Println("Usage: tansaku expand [flags] <text>")
		os.Exit(1)
	}
	cfg := loadConfigOrDefaults(*configPath)
	expander, err := newExpander(&cfg.Expansion, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Expand failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(expander.Expand(text))
}

func runParse() {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	_ = fs.Parse(os.Args[2:])
	text := buildSearchQuery(fs.Args())
	if text == "" {
		fmt.Println("Usage: tansaku parse <text>")
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(specs.Extract(text))
}

func printUsage() {
	fmt.Println(`tansaku - hybrid semantic search over a laptop catalog

Usage:
  tansaku server [flags]           Start the HTTP server
  tansaku build [flags]            Build the index from a catalog (skipped when fresh)
  tansaku search [flags] [query]   Search the catalog (interactive without a query)
  tansaku status [flags]           Show index state, record and vector counts
  tansaku expand <text>            Show the synonym-expanded form of text
  tansaku parse <text>             Show the attribute filters parsed from text
  tansaku version                  Show version
  tansaku help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/tansaku/config.yaml)
  --debug            Enable debug logging
  --watch            Rebuild when the catalog file changes

Build Flags:
  --config string    Config file path
  --catalog string   Catalog file (.csv or .xlsx); defaults to catalog.source_path
  --force            Rebuild even when the index is fresh
  --server string    Ask a running server to rebuild instead

Search Flags:
  --config string    Config file path (for direct mode; also used for default sizes)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to search the local index directly.
  --top-k int        Number of reranked results (default from config, or 5)
  --retrieve-k int   Nearest neighbors retrieved before filtering (default from config, or 50)
  --output string    Output format: text, compact, or json (default: text)

Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for the local index.
  --output string    Output format: text or json (default: text)

Examples:
  tansaku build --catalog laptops.csv
  tansaku server
  tansaku search "dell gaming laptop with 16gb ram"
  tansaku search --output json --top-k 3 apple ultrabook
  tansaku expand "cheap gaming laptop"
  tansaku parse "hp notebook 8gb ram 256gb ssd"
  tansaku status --output json`)
}
