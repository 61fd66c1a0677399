// Package cli implements the sentichart command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sentichart/pkg/buildinfo"
	"github.com/matzehuels/sentichart/pkg/cache"
	"github.com/matzehuels/sentichart/pkg/chart"
	"github.com/matzehuels/sentichart/pkg/config"
	"github.com/matzehuels/sentichart/pkg/errors"
	"github.com/matzehuels/sentichart/pkg/observability"
	"github.com/matzehuels/sentichart/pkg/pipeline"
	"github.com/matzehuels/sentichart/pkg/source"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "sentichart"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level pipeline, cache
// and HTTP events are logged as well.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		hooks := observability.NewLogHooks(c.Logger)
		observability.SetPipelineHooks(hooks)
		observability.SetCacheHooks(hooks)
		observability.SetHTTPHooks(hooks)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Sentichart charts price, sentiment and trades from strategy simulations",
		Long: `Sentichart fetches sentiment-driven strategy simulations from the backend
and lays them out as a price line, a sentiment band and BUY/SELL markers.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (.toml, .yaml; default ./"+config.DefaultFile+")")

	// Register all subcommands
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.pickCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config loads the configuration once per process.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded config", "path", c.configPath, "backend", cfg.Backend.BaseURL, "cache", cfg.Cache.Backend)
	c.cfg = cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// runnerOpts selects which data sources a command needs.
type runnerOpts struct {
	noCache bool
	// offline skips the backend client and the store; used for local files.
	offline bool
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, ro runnerOpts) (*pipeline.Runner, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}

	ch, err := newCache(ctx, cfg, ro.noCache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(ch, nil, c.Logger)
	if ro.offline {
		return runner, nil
	}

	clientOpts := append(cfg.ClientOptions(), source.WithLogger(c.Logger))
	if runner.Client, err = source.NewClient(cfg.Backend.BaseURL, clientOpts...); err != nil {
		_ = runner.Close()
		return nil, err
	}
	if runner.Store, err = openStore(ctx, cfg); err != nil {
		_ = runner.Close()
		return nil, err
	}
	return runner, nil
}

func newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	opts := cfg.CacheOptions()
	if opts.Dir == "" {
		if dir, err := cacheDir(); err == nil {
			opts.Dir = dir
		}
	}
	return cache.Open(ctx, opts)
}

// openStore opens MongoDB when configured and the local store directory otherwise.
func openStore(ctx context.Context, cfg *config.Config) (source.Store, error) {
	if cfg.Store.MongoURI != "" {
		s, err := source.NewMongoStore(ctx, cfg.MongoOptions())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongodb")
		}
		return s, nil
	}
	dir, err := storeDir(cfg)
	if err != nil {
		return nil, err
	}
	return source.NewDirStore(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/sentichart/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// storeDir returns the configured store directory or the XDG data
// directory (~/.local/share/sentichart/simulations/).
func storeDir(cfg *config.Config) (string, error) {
	if cfg.Store.Dir != "" {
		return cfg.Store.Dir, nil
	}
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName, "simulations"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName, "simulations"), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// viewFlags are the layout and render flags shared by several commands.
type viewFlags struct {
	width, height float64
	margins       string
	style         string
	formats       string
	title         string
	noTitle       bool
	legend        bool
	dateFormat    string
	scale         float64
}

func (v *viewFlags) register(cmd *cobra.Command, withFormats bool) {
	cmd.Flags().Float64Var(&v.width, "width", 0, "chart width in pixels (default from config, 1000)")
	cmd.Flags().Float64Var(&v.height, "height", 0, "chart height in pixels (default from config, 360)")
	cmd.Flags().StringVar(&v.margins, "margins", "", "margins as top,right,bottom,left (default 20,20,50,60)")
	cmd.Flags().StringVar(&v.style, "style", "", "visual style: dark (default), light")
	if !withFormats {
		return
	}
	cmd.Flags().StringVarP(&v.formats, "format", "f", "", "output format(s): svg (default), json, pdf, png (comma-separated)")
	cmd.Flags().StringVar(&v.title, "title", "", "chart title (default \"Market Reaction & Simulation for TICKER\")")
	cmd.Flags().BoolVar(&v.noTitle, "no-title", false, "omit the title and performance header")
	cmd.Flags().BoolVar(&v.legend, "legend", false, "draw a legend below the chart")
	cmd.Flags().StringVar(&v.dateFormat, "date-format", "", "Go time layout for x-axis labels (default \"Jan 2\")")
	cmd.Flags().Float64Var(&v.scale, "scale", 0, "PNG scale factor (default 2)")
}

// apply copies the flags onto opts, falling back to the config for anything unset.
func (v *viewFlags) apply(opts *pipeline.Options, cfg *config.Config) error {
	opts.Width, opts.Height = v.width, v.height
	if opts.Width == 0 {
		opts.Width = cfg.Chart.Width
	}
	if opts.Height == 0 {
		opts.Height = cfg.Chart.Height
	}
	m := cfg.Viewport().Margins
	if v.margins != "" {
		parsed, err := parseMargins(v.margins)
		if err != nil {
			return err
		}
		m = parsed
	}
	opts.Margins = &m

	opts.Style = v.style
	if opts.Style == "" {
		opts.Style = cfg.Chart.Style
	}
	opts.Formats = parseFormats(v.formats)
	opts.Title = v.title
	opts.NoTitle = v.noTitle
	opts.Legend = v.legend
	opts.DateFormat = v.dateFormat
	opts.Scale = v.scale
	return nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseMargins parses "top,right,bottom,left".
func parseMargins(s string) (chart.Margins, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return chart.Margins{}, errors.New(errors.ErrCodeInvalidInput, "margins must be top,right,bottom,left (got %q)", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return chart.Margins{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "margin %q", p)
		}
		v[i] = f
	}
	return chart.Margins{Top: v[0], Right: v[1], Bottom: v[2], Left: v[3]}, nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .pdf, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// readInput reads a backend response from path, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "%s not found", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
