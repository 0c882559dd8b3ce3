package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/vanderheijden86/netinv/internal/datasource"
	"github.com/vanderheijden86/netinv/pkg/clipboard"
	"github.com/vanderheijden86/netinv/pkg/config"
	"github.com/vanderheijden86/netinv/pkg/debug"
	"github.com/vanderheijden86/netinv/pkg/hooks"
	"github.com/vanderheijden86/netinv/pkg/inventory"
	"github.com/vanderheijden86/netinv/pkg/metrics"
	"github.com/vanderheijden86/netinv/pkg/render"
	"github.com/vanderheijden86/netinv/pkg/session"
	"github.com/vanderheijden86/netinv/pkg/tree"
	"github.com/vanderheijden86/netinv/pkg/version"
	"github.com/vanderheijden86/netinv/pkg/watcher"
	"github.com/vanderheijden86/netinv/pkg/workspace"
)

const usage = `Usage: ni [options] [command]

Edit a network inventory: groups, servers and other entities in a tree,
with undo, copy and paste.

Commands:
  (none)                    start the interactive editor
  show [loc]                print the tree
  validate                  check the inventory (or every workspace inventory)
  diff [-u] <a> <b>         compare two inventories (-u prints a line diff)
  workspace init [dir]      write an example workspace file

Options:`

// options are the parsed command line flags.
type options struct {
	file       string
	workspace  string
	configPath string
	noWatch    bool
	noHooks    bool
	metrics    bool
	version    bool
	help       bool
	cpuProfile string
	color      string
	args       []string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	flags := flag.NewFlagSet("ni", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&o.file, "file", "", "Inventory file or directory (.yaml, .json, .db)")
	flags.StringVar(&o.workspace, "workspace", "", "Workspace file, directory, or name from the config")
	flags.StringVar(&o.configPath, "config", "", "Config file (default "+config.ConfigPath()+")")
	flags.BoolVar(&o.noWatch, "no-watch", false, "Do not reload when the inventory changes on disk")
	flags.BoolVar(&o.noHooks, "no-hooks", false, "Do not run the pre-save and post-save hooks")
	flags.BoolVar(&o.metrics, "metrics", false, "Print timing metrics on exit")
	flags.BoolVar(&o.version, "version", false, "Show version")
	flags.BoolVar(&o.help, "help", false, "Show help")
	flags.StringVar(&o.cpuProfile, "cpu-profile", "", "Write CPU profile to file")
	flags.StringVar(&o.color, "color", "", "Color output: auto, always or never (default from config)")
	flags.Usage = func() {
		fmt.Fprintln(stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return o, err
	}
	o.args = flags.Args()
	return o, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.ReadCloser, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	if o.help {
		fmt.Fprintln(stdout, usage)
		return 0
	}
	if o.version {
		fmt.Fprintf(stdout, "ni %s\n", version.String())
		return 0
	}

	// CPU profiling support
	if o.cpuProfile != "" {
		f, err := os.Create(o.cpuProfile)
		if err != nil {
			fmt.Fprintf(stderr, "Could not create CPU profile: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(stderr, "Could not start CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	if o.metrics {
		metrics.SetEnabled(true)
		defer func() {
			fmt.Fprintln(stderr)
			_ = metrics.WriteReport(stderr, metrics.Take())
		}()
	}

	cfg, err := loadConfig(o.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if o.color != "" {
		cfg.UI.Color = o.color
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	}
	if o.noWatch {
		cfg.Watch.Enabled = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := ""
	if len(o.args) > 0 {
		cmd = o.args[0]
	}
	switch cmd {
	case "show":
		err = runShow(ctx, o, cfg, stdout, stderr)
	case "validate":
		err = runValidate(ctx, o, cfg, stdout)
	case "diff":
		err = runDiff(o.args[1:], stdout)
	case "workspace":
		err = runWorkspace(o.args[1:], stdout)
	case "", "edit":
		err = runREPL(ctx, o, cfg, stdin, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown command %q\n", cmd)
		fmt.Fprintln(stderr, usage)
		return 2
	}

	var exit exitError
	switch {
	case errors.As(err, &exit):
		return int(exit)
	case err != nil:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// exitError ends the program with a status but no message.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func renderOptions(cfg config.Config) render.Options {
	return render.Options{Width: cfg.UI.Width, Color: render.ColorMode(cfg.UI.Color)}
}

// target is what ni edits: a workspace file or a single inventory.
type target struct {
	workspace string
	file      string
}

// resolveTarget picks, in order: --file, --workspace, a workspace file in
// the current directory or above, an inventory in the current directory,
// and the configured default inventory.
func resolveTarget(o options, cfg config.Config) (target, error) {
	if o.file != "" {
		return target{file: o.file}, nil
	}
	if o.workspace != "" {
		if ws := cfg.FindWorkspace(o.workspace); ws != nil {
			return target{workspace: ws.ResolvedPath()}, nil
		}
		info, err := os.Stat(o.workspace)
		if err != nil {
			return target{}, fmt.Errorf("workspace %q: %w", o.workspace, err)
		}
		if !info.IsDir() {
			return target{workspace: o.workspace}, nil
		}
		path, err := workspace.FindWorkspaceConfig(o.workspace)
		if err != nil {
			return target{}, fmt.Errorf("no %s under %s", filepath.Join(workspace.ConfigDirName, workspace.ConfigFileName), o.workspace)
		}
		return target{workspace: path}, nil
	}
	if path, err := workspace.FindWorkspaceConfig("."); err == nil {
		return target{workspace: path}, nil
	}
	if path, err := datasource.Resolve("."); err == nil {
		return target{file: path}, nil
	}
	return target{file: cfg.InventoryPath()}, nil
}

func sessionOptions(cfg config.Config, logger *log.Logger) (session.Options, error) {
	format, err := clipboard.ParseFormat(cfg.Clipboard.Format)
	if err != nil {
		return session.Options{}, err
	}
	var clip clipboard.Clipboard = &clipboard.Buffer{}
	if cfg.Clipboard.System && clipboard.SystemAvailable() {
		clip = clipboard.NewMirror(clipboard.System{}, logger)
	}
	return session.Options{
		HistoryLimit: cfg.History.Limit,
		Clipboard:    clip,
		Format:       format,
		Watch:        cfg.Watch.Enabled,
		WatchOptions: []watcher.Option{
			watcher.WithDebounceDuration(cfg.Watch.Debounce),
			watcher.WithForcePoll(cfg.Watch.ForcePoll),
		},
		Logger: logger,
	}, nil
}

// loadHooks reads the save hooks of the workspace root, or of the directory
// holding the inventory.
func loadHooks(t target, logger *log.Logger) (*hooks.Config, error) {
	dir := filepath.Dir(t.file)
	if t.workspace != "" {
		dir = workspace.RootOf(t.workspace)
	} else if info, err := os.Stat(t.file); err == nil && info.IsDir() {
		dir = t.file
	}
	cfg, warnings, err := hooks.LoadDir(dir)
	for _, w := range warnings {
		logger.Printf("warning: hooks: %s", w)
	}
	return cfg, err
}

func openSession(ctx context.Context, t target, opts session.Options) (*session.Session, error) {
	if t.workspace != "" {
		debug.Log("ni: opening workspace %s", t.workspace)
		return session.OpenWorkspace(ctx, t.workspace, opts)
	}
	debug.Log("ni: opening %s", t.file)
	return session.Open(t.file, opts)
}

func runShow(ctx context.Context, o options, cfg config.Config, stdout, stderr io.Writer) error {
	t, err := resolveTarget(o, cfg)
	if err != nil {
		return err
	}
	opts, err := sessionOptions(cfg, log.New(stderr, "", 0))
	if err != nil {
		return err
	}
	opts.Watch = false
	s, err := openSession(ctx, t, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	loc := tree.Location{}
	if len(o.args) > 1 {
		if loc, err = tree.ParseLocation(o.args[1]); err != nil {
			return err
		}
	}
	ropts := renderOptions(cfg)
	ropts.Locations = true
	p := render.New(stdout, ropts)
	s.View(func(root *tree.Node[inventory.Item]) {
		var n *tree.Node[inventory.Item]
		if n, err = tree.Resolve(loc, root); err == nil {
			err = writeString(stdout, p.SubtreeString(n, loc))
		}
	})
	return err
}

func writeString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}

func runValidate(ctx context.Context, o options, cfg config.Config, stdout io.Writer) error {
	t, err := resolveTarget(o, cfg)
	if err != nil {
		return err
	}
	if t.workspace == "" {
		path, err := datasource.Resolve(t.file)
		if err != nil {
			return err
		}
		root, err := datasource.Load(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "ok: %s (%s)\n", path, render.Summary(root))
		return nil
	}

	_, results, err := workspace.LoadAllFromConfig(ctx, t.workspace)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(stdout, "FAIL: %s: %v\n", r.Name, r.Error)
			continue
		}
		fmt.Fprintf(stdout, "ok: %s: %s (%s)\n", r.Name, r.Path, render.Summary(r.Root))
	}
	sum := workspace.Summarize(results)
	fmt.Fprintln(stdout, sum)
	if sum.FailedInventories > 0 {
		return exitError(1)
	}
	return nil
}

func runDiff(args []string, stdout io.Writer) error {
	unified := len(args) > 0 && args[0] == "-u"
	if unified {
		args = args[1:]
	}
	if len(args) != 2 {
		return errors.New("usage: ni diff [-u] <a> <b>")
	}
	var sources [2]datasource.DataSource
	for i, arg := range args {
		path, err := datasource.Resolve(arg)
		if err != nil {
			return err
		}
		if sources[i], err = datasource.NewDataSource(path); err != nil {
			return err
		}
	}
	diff, err := datasource.CompareSources(sources[0], sources[1], datasource.DefaultDiffOptions())
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, diff.Summary())
	if unified {
		if err := writeTextDiff(stdout, sources); err != nil {
			return err
		}
	}
	if diff.HasInconsistencies() {
		return exitError(1)
	}
	return nil
}

func writeTextDiff(w io.Writer, sources [2]datasource.DataSource) error {
	var roots [2]*tree.Node[inventory.Item]
	for i, src := range sources {
		root, err := datasource.LoadFromSource(src)
		if err != nil {
			return err
		}
		roots[i] = root
	}
	text, err := datasource.TextDiff(roots[0], roots[1], sources[0].Path, sources[1].Path)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

func runWorkspace(args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] != "init" {
		return errors.New("usage: ni workspace init [dir]")
	}
	dir := "."
	if len(args) > 1 {
		dir = args[1]
	}
	path := filepath.Join(dir, workspace.ConfigDirName, workspace.ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	cfg := workspace.ExampleConfig()
	if err := workspace.SaveConfig(path, &cfg); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "created %s\n", path)
	return nil
}

func runREPL(ctx context.Context, o options, cfg config.Config, stdin io.ReadCloser, stdout, stderr io.Writer) error {
	t, err := resolveTarget(o, cfg)
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ni> ",
		HistoryFile:     historyFile(),
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdin:           stdin,
		Stdout:          stdout,
		Stderr:          stderr,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	logger := log.New(rl.Stderr(), "", 0)
	opts, err := sessionOptions(cfg, logger)
	if err != nil {
		return err
	}
	if !o.noHooks {
		if opts.Hooks, err = loadHooks(t, logger); err != nil {
			return err
		}
	}
	opts.OnExternalChange = func(ev session.Event) {
		switch {
		case ev.Err != nil:
		case ev.Reloaded:
			fmt.Fprintf(rl.Stdout(), "reloaded %s (changed on disk)\n", ev.Path)
		default:
			fmt.Fprintln(rl.Stdout(), "use 'reload -f' to discard your edits and load the file")
		}
		rl.Refresh()
	}

	s, err := openSession(ctx, t, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()
	return NewREPL(s, rl.Stdout(), renderOptions(cfg)).Run(rl)
}

// historyFile makes sure the REPL history directory exists.
func historyFile() string {
	path := config.HistoryFile()
	if path == "" {
		return ""
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		debug.Log("ni: no history file: %v", err)
		return ""
	}
	return path
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("ls"),
		readline.PcItem("find"),
		readline.PcItem("where"),
		readline.PcItem("stats"),
		readline.PcItem("add", readline.PcItem("/",
			readline.PcItem("group"), readline.PcItem("server"), readline.PcItem("entity"))),
		readline.PcItem("rm"),
		readline.PcItem("set"),
		readline.PcItem("cp", readline.PcItem("-r")),
		readline.PcItem("cut"),
		readline.PcItem("paste"),
		readline.PcItem("undo"),
		readline.PcItem("redo"),
		readline.PcItem("history"),
		readline.PcItem("save"),
		readline.PcItem("reload", readline.PcItem("-f")),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}
