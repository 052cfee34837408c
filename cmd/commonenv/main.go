package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/commonenv/internal/builtins"
	"github.com/kingrea/commonenv/internal/config"
	"github.com/kingrea/commonenv/internal/jsonrpc"
	"github.com/kingrea/commonenv/internal/logging"
	"github.com/kingrea/commonenv/internal/module"
	"github.com/kingrea/commonenv/internal/thrower"
	"github.com/kingrea/commonenv/internal/tui"
	"github.com/kingrea/commonenv/plugins"
)

type options struct {
	bundleDir  string
	configFile string
	root       string
	logLevel   string
	sets       injectFlag
	tail       int
	init       bool
	check      bool
	inspect    bool
	quiet      bool
}

func main() {
	opts := options{sets: injectFlag{}}
	flag.StringVar(&opts.bundleDir, "bundle", "", "path to the bundle directory (defaults to cwd)")
	flag.StringVar(&opts.configFile, "config", "", "path to commonenv.yaml (defaults to <bundle>/commonenv.yaml)")
	flag.StringVar(&opts.root, "root", "", "module id to declare as the root dependency")
	flag.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flag.Var(&opts.sets, "set", "value injected into the global scope (key=value, repeatable)")
	flag.IntVar(&opts.tail, "tail", 0, "print the last N lines of the log file and exit")
	flag.BoolVar(&opts.init, "init", false, "write a default commonenv.yaml into the bundle and exit")
	flag.BoolVar(&opts.check, "check", false, "interpret every resource without running it and exit")
	flag.BoolVar(&opts.inspect, "inspect", false, "open the module inspector after bootstrap")
	flag.BoolVar(&opts.quiet, "quiet", false, "do not echo log lines to stderr")
	flag.Parse()

	if err := run(opts, os.Stdout, os.Stderr); err != nil {
		die("%v", err)
	}
}

func run(opts options, stdout, stderr io.Writer) error {
	dir := opts.bundleDir
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve bundle dir: %w", err)
	}

	if opts.init {
		if err := config.Init(dir); err != nil {
			return fmt.Errorf("init bundle: %w", err)
		}
		fmt.Fprintf(stdout, "Wrote %s\n", filepath.Join(dir, config.FileName))
		return nil
	}

	cfg, err := config.Load(dir, opts.configFile)
	if err != nil {
		return err
	}
	for key, raw := range opts.sets {
		if err := cfg.Inject(key, parseValue(raw)); err != nil {
			return err
		}
	}
	logOpts := cfg.LogOptions()
	if level := strings.TrimSpace(opts.logLevel); level != "" {
		logOpts.Level = level
	}

	if opts.tail > 0 {
		lines, total, err := logging.Tail(logOpts.File, opts.tail)
		if err != nil {
			return fmt.Errorf("read log: %w", err)
		}
		for _, line := range lines {
			fmt.Fprintln(stdout, line)
		}
		fmt.Fprintf(stdout, "(%d of %d lines)\n", len(lines), total)
		return nil
	}

	bundle, err := plugins.LoadBundle(cfg.ModulesDir())
	if err != nil {
		return err
	}
	if opts.check {
		if err := bundle.Check(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%d modules ok\n", len(bundle.Sources))
		return nil
	}

	if !opts.quiet {
		logOpts.Console = stderr
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return err
	}
	defer logger.Close()

	env := module.New(
		module.WithLogger(logger.Module("env")),
		module.WithValues(cfg.Values()),
	)
	queue := thrower.NewQueue()
	raiser := thrower.NewRaiser(queue, thrower.LogReporter(logger.Module(builtins.Thrower)))
	if err := builtins.Register(env, builtins.Deps{
		Logger:    logger,
		Queue:     queue,
		Raiser:    raiser,
		Transport: jsonrpc.NewHTTPTransport(jsonrpc.WithTimeout(cfg.RPCTimeout())),
		RPCURL:    cfg.Bundle.RPC.URL,
		Methods:   cfg.Bundle.RPC.Methods,
	}); err != nil {
		return err
	}
	bundle.Register(env)

	root := firstNonEmpty(opts.root, cfg.Root(), bundle.Root)
	if root == "" {
		return fmt.Errorf("no root module: pass -root or set root in %s", config.FileName)
	}
	if !env.HasResource(root) {
		return unknownModule(root, env.IDs())
	}

	bootErr := env.Global().Module.Declare([]string{root}, func(require module.Require, _ *module.Exports, _ *module.Module) error {
		_, err := require(root)
		return err
	})
	if bootErr != nil {
		raiser.Raise(bootErr)
	}
	raiser.Wait()

	if opts.inspect {
		inspector := tui.NewInspector(env.Snapshot,
			tui.WithHistory(logger.History().Entries),
			tui.WithTitle("⬡ COMMONENV · "+filepath.Base(dir)),
		)
		if err := tui.Run(inspector); err != nil {
			return fmt.Errorf("inspector: %w", err)
		}
	} else {
		printSnapshot(stdout, env.Snapshot())
	}
	if bootErr != nil {
		return fmt.Errorf("bootstrap %s: %w", root, bootErr)
	}
	return nil
}

func printSnapshot(w io.Writer, entries []module.Entry) {
	for _, entry := range entries {
		id := entry.ID
		if id == module.RootID {
			id = "(root)"
		}
		line := fmt.Sprintf("%-12s %s", entry.State, id)
		if len(entry.Dependencies) > 0 {
			line += " <- " + strings.Join(entry.Dependencies, ", ")
		}
		if entry.Err != nil {
			line += " : " + entry.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
}

func unknownModule(id string, known []string) error {
	matches := fuzzy.Find(id, known)
	if len(matches) == 0 {
		return fmt.Errorf("unknown module %q", id)
	}
	var suggestions []string
	for idx, match := range matches {
		if idx == 3 {
			break
		}
		suggestions = append(suggestions, match.Str)
	}
	return fmt.Errorf("unknown module %q (did you mean %s?)", id, strings.Join(suggestions, ", "))
}

// parseValue decodes a -set value as YAML so numbers and booleans keep
// their types.
func parseValue(raw string) any {
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
		return raw
	}
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// injectFlag collects repeatable -set key=value pairs.
type injectFlag map[string]string

// String lists the pairs sorted by key.
func (f *injectFlag) String() string {
	if f == nil {
		return ""
	}
	keys := make([]string, 0, len(*f))
	for key := range *f {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, key := range keys {
		pairs[i] = key + "=" + (*f)[key]
	}
	return strings.Join(pairs, ", ")
}

func (f *injectFlag) Set(pair string) error {
	key, value, ok := strings.Cut(pair, "=")
	if !ok {
		return fmt.Errorf("-set wants key=value, got %q", pair)
	}
	if key = strings.TrimSpace(key); key == "" {
		return fmt.Errorf("-set key is empty in %q", pair)
	}
	if *f == nil {
		*f = injectFlag{}
	}
	(*f)[key] = value
	return nil
}
