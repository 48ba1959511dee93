package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depgraph/internal/config"
	"github.com/matzehuels/depgraph/pkg/buildinfo"
	"github.com/matzehuels/depgraph/pkg/deps"
	"github.com/matzehuels/depgraph/pkg/registry"
)

// appName is the application name used for display.
const appName = "depgraph"

// LogInfo is the initial log level used by main.go.
const LogInfo = log.InfoLevel

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
	quiet      bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "depgraph resolves npm dependency trees",
		Long: `depgraph fetches package manifests from an npm registry and builds the
transitive dependency tree of a package, level by level and in parallel.
Failed lookups become error leaves instead of failing the whole run.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "path to a TOML config file (default: $DEPGRAPH_CONFIG)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	pf.BoolVarP(&c.quiet, "quiet", "q", false, "only log errors")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Shared Helpers
// =============================================================================

// loadConfig reads the configuration and applies its log level unless a
// verbosity flag was given.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.verbose || c.quiet {
		c.SetLogLevel(levelFor(c.verbose, c.quiet))
	} else {
		c.SetLogLevel(cfg.LogLevel())
	}
	return cfg, nil
}

// newResolver wires a registry client into a resolver.
func (c *CLI) newResolver(cfg *config.Config) *deps.Resolver {
	client := registry.NewClient(cfg.RegistryOptions())
	return deps.NewResolver(client, cfg.ResolverOptions(c.Logger))
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}
