package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/depgraph/internal/config"
	"github.com/matzehuels/depgraph/pkg/deps"
	"github.com/matzehuels/depgraph/pkg/errors"
	"github.com/matzehuels/depgraph/pkg/observability"
	"github.com/matzehuels/depgraph/pkg/render"
)

// Output formats.
const (
	formatJSON = "json"
	formatTree = "tree"
	formatDOT  = "dot"
)

// resolveOptions holds flag values for the resolve command.
type resolveOptions struct {
	format   string
	output   string
	versions bool

	maxDepth    int
	maxNodes    int
	concurrency int
	retries     int
	timeout     time.Duration
	policy      string
	registry    string
}

func (c *CLI) resolveCommand() *cobra.Command {
	var opts resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve <package>[@version] [version]",
		Short: "Resolve the dependency tree of an npm package",
		Long: `Resolve fetches the manifest of a package and all of its transitive
dependencies, then prints the resulting tree.

Each package is fetched at most once per run. Dependencies that cannot be
fetched appear as "Error: <name>" leaves; references back to an ancestor
are marked as cycles instead of being expanded again.`,
		Example: `  depgraph resolve express
  depgraph resolve react@18.2.0 --format tree
  depgraph resolve @types/node 20.0.0 --format dot -o node.dot`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, ver := parsePackageArg(args)
			return c.runResolve(cmd, name, ver, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", formatJSON, "output format: json, tree, dot")
	f.StringVarP(&opts.output, "output", "o", "", "write output to file instead of stdout")
	f.BoolVar(&opts.versions, "versions", false, "include versions in DOT labels")
	f.IntVar(&opts.maxDepth, "max-depth", 0, "stop expanding below this depth (0 = unlimited)")
	f.IntVar(&opts.maxNodes, "max-nodes", deps.DefaultMaxNodes, "maximum nodes in the output tree")
	f.IntVar(&opts.concurrency, "concurrency", deps.DefaultConcurrency, "parallel registry requests")
	f.IntVar(&opts.retries, "retries", deps.DefaultRetries, "attempts per registry request")
	f.DurationVar(&opts.timeout, "timeout", deps.DefaultTimeout, "overall resolution budget")
	f.StringVar(&opts.policy, "policy", "lenient", "pre-release handling: lenient, strict")
	f.StringVar(&opts.registry, "registry", "", "registry base URL")

	return cmd
}

// parsePackageArg splits "name@version" or "name version" arguments.
// A leading "@" belongs to the scope, not the version.
func parsePackageArg(args []string) (name, ver string) {
	name = args[0]
	if i := strings.LastIndex(name, "@"); i > 0 {
		name, ver = name[:i], name[i+1:]
	}
	if len(args) > 1 {
		ver = args[1]
	}
	if ver == "" {
		ver = "latest"
	}
	return name, ver
}

// applyResolveFlags overrides cfg with the flags the user actually set.
func applyResolveFlags(flags *pflag.FlagSet, cfg *config.Config, opts resolveOptions) {
	if flags.Changed("max-depth") {
		cfg.Resolve.MaxDepth = opts.maxDepth
	}
	if flags.Changed("max-nodes") {
		cfg.Resolve.MaxNodes = opts.maxNodes
	}
	if flags.Changed("concurrency") {
		cfg.Resolve.Concurrency = opts.concurrency
	}
	if flags.Changed("retries") {
		cfg.Resolve.Retries = opts.retries
	}
	if flags.Changed("timeout") {
		cfg.Resolve.Timeout = opts.timeout
	}
	if flags.Changed("policy") {
		cfg.Resolve.Policy = opts.policy
	}
	if flags.Changed("registry") {
		cfg.Registry.URL = opts.registry
	}
}

func (c *CLI) runResolve(cmd *cobra.Command, name, ver string, opts resolveOptions) error {
	switch opts.format {
	case formatJSON, formatTree, formatDOT:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want json, tree or dot)", opts.format)
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	applyResolveFlags(cmd.Flags(), cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()
	resolver := c.newResolver(cfg)

	var spinner *Spinner
	if isTerminal(errOut) {
		label := fmt.Sprintf("Resolving %s@%s", name, ver)
		spinner = newSpinner(ctx, errOut, label)
		observability.SetResolveHooks(&fetchCounter{notify: func(fetched, failed int64) {
			msg := fmt.Sprintf("%s · %d fetched", label, fetched)
			if failed > 0 {
				msg += fmt.Sprintf(", %d failed", failed)
			}
			spinner.SetMessage(msg)
		}})
		defer observability.SetResolveHooks(observability.NoopResolveHooks{})
		spinner.Start()
	}

	prog := newProgress(c.Logger)
	res, err := resolver.Resolve(ctx, name, ver)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Resolved %s@%s", res.Tree.Name, res.Tree.Version),
		"packages", res.Stats.Packages, "failed", res.Stats.Failed)
	if res.TimedOut {
		printWarning(errOut, "Timed out after %s; the tree is partial", cfg.Resolve.Timeout)
	}

	write := func(w io.Writer) error { return writeTree(w, res.Tree, name, opts) }
	if opts.output == "" {
		if err := write(cmd.OutOrStdout()); err != nil {
			return err
		}
	} else if err := writeFile(opts.output, write); err != nil {
		return err
	}
	if opts.format == formatTree {
		printStats(errOut, res.Stats)
	}
	if opts.output != "" {
		printSuccess(errOut, "Wrote %s", opts.output)
	}
	return nil
}

// writeFile creates path and fills it with write. Close errors are returned.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "close %s", path)
	}
	return nil
}

func writeTree(w io.Writer, t *deps.Tree, name string, opts resolveOptions) error {
	switch opts.format {
	case formatTree:
		_, err := fmt.Fprintln(w, renderTree(t))
		return err
	case formatDOT:
		_, err := io.WriteString(w, render.ToDOT(t, render.Options{Versions: opts.versions, Name: name}))
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	}
}
