package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"
	"visual-regression/internal/callback"
	"visual-regression/internal/capability"
	"visual-regression/internal/compare"
	"visual-regression/internal/config"
	"visual-regression/internal/runnable"
	"visual-regression/internal/storage"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"
)

const (
	exitOK          = 0
	exitUsage       = 1
	exitDifferences = 2
	exitErrors      = 3
)

type options struct {
	configPath  string
	callbackURL string
	failOnDiff  bool
	backend     string
	bucket      string

	output    string
	outputDir string
	baseline  string
	reference string
}

func (o *options) register(flags *flag.FlagSet) {
	flags.StringVar(&o.configPath, "config", config.EnvOrDefault("CONFIG", ""), "YAML configuration overrides")
	flags.StringVar(&o.callbackURL, "callback-url", config.EnvOrDefault("CALLBACK_URL", ""), "PATCH the JSON result to this URL instead of printing it")
	flags.BoolVar(&o.failOnDiff, "fail-on-diff", config.EnvOrDefault("FAIL_ON_DIFF", false), "Exit 2 when differences are found and 3 when a comparison failed")
	flags.StringVar(&o.backend, "storage", config.EnvOrDefault("STORAGE_BACKEND", "file"), "Composite storage backend (file or s3)")
	flags.StringVar(&o.bucket, "bucket", config.EnvOrDefault("S3_BUCKET", ""), "S3 bucket for the s3 storage backend")
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, `usage:
  compare pair [flags] <baseline> <target>
  compare batch [flags] <screenshot>...
  compare contexts [flags] <name=dir>...
  compare capabilities [flags]`)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(exitUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1], os.Args[2:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, command string, args []string, stdout io.Writer, stderr io.Writer) int {
	var o options
	flags := flag.NewFlagSet(command, flag.ContinueOnError)
	flags.SetOutput(stderr)
	o.register(flags)

	switch command {
	case "pair":
		flags.StringVar(&o.output, "output", config.EnvOrDefault("OUTPUT", "diff.png"), "Composite output path")
	case "batch":
		flags.StringVar(&o.outputDir, "output-dir", config.EnvOrDefault("OUTPUT_DIR", "diffs"), "Composite output directory")
		flags.StringVar(&o.baseline, "baseline", config.EnvOrDefault("BASELINE", ""), "Baseline screenshot, defaults to the first one")
	case "contexts":
		flags.StringVar(&o.outputDir, "output-dir", config.EnvOrDefault("OUTPUT_DIR", "diffs"), "Composite output directory")
		flags.StringVar(&o.reference, "reference", config.EnvOrDefault("REFERENCE", ""), "Reference context, defaults to the first one")
	case "capabilities":
	default:
		usage(stderr)
		return exitUsage
	}

	if err := flags.Parse(args); err != nil {
		return exitUsage
	}

	logger, err := runnable.NewLogger(stderr)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitUsage
	}

	c, err := loadConfig(o.configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return exitUsage
	}

	if command == "capabilities" {
		return report(ctx, o, capabilities(ctx, c, capability.NewCache(capability.NewBrowserProber()), time.Now()), nil, stdout, logger)
	}

	s, err := storage.New(ctx, storage.Config{Backend: o.backend, Bucket: o.bucket})
	if err != nil {
		logger.Error("failed to create storage", "error", err)
		return exitUsage
	}
	pair := compare.NewPairDiffer(c, s, logger)

	switch command {
	case "pair":
		if flags.NArg() != 2 {
			usage(stderr)
			return exitUsage
		}
		result := pair.Compare(ctx, flags.Arg(0), flags.Arg(1), o.output)
		return report(ctx, o, result, []*compare.DiffResult{result}, stdout, logger)

	case "batch":
		result := compare.NewBatchComparator(pair, c.Concurrency, logger).CompareBatch(ctx, flags.Args(), o.outputDir, o.baseline)
		if result.Err != nil {
			_ = report(ctx, o, result, nil, stdout, logger)
			return exitUsage
		}
		results := make([]*compare.DiffResult, 0, len(result.Results))
		for _, r := range result.Results {
			results = append(results, r)
		}
		return report(ctx, o, result, results, stdout, logger)

	default:
		contexts, err := parseContexts(flags.Args())
		if err != nil {
			logger.Error("failed to parse contexts", "error", err)
			return exitUsage
		}
		result := compare.NewCrossContextComparator(pair, c.Concurrency, logger).CompareAcrossContexts(ctx, contexts, o.outputDir, o.reference)
		if result.Err != nil {
			_ = report(ctx, o, result, nil, stdout, logger)
			return exitUsage
		}
		return report(ctx, o, result, result.Results(), stdout, logger)
	}
}

func loadConfig(path string) (config.Config, error) {
	c := config.Default().FromEnv()
	if path == "" {
		return c, nil
	}
	return c.LoadOverridesFile(path)
}

// parseContexts reads name=dir arguments, keeping their order.
func parseContexts(args []string) (compare.Contexts, error) {
	contexts := make(compare.Contexts, 0, len(args))
	for _, arg := range args {
		name, dir, ok := strings.Cut(arg, "=")
		if !ok || name == "" || dir == "" {
			return nil, xerrors.Errorf("invalid context %q, want name=dir", arg)
		}
		contexts = append(contexts, compare.Context{Name: name, Dir: dir})
	}
	return contexts, nil
}

type capabilityReport struct {
	Browsers    []string          `json:"browsers"`
	ScreenSizes map[string]string `json:"screen_sizes"`
}

// capabilities lists the enabled browsers installed on this host and the
// capture filename each enabled screen size would get.
func capabilities(ctx context.Context, c config.Config, prober capability.Prober, now time.Time) capabilityReport {
	set, err := prober.Probe(ctx)
	if err != nil {
		set = capability.NewSet()
	}

	r := capabilityReport{
		Browsers:    []string{},
		ScreenSizes: map[string]string{},
	}
	for _, b := range c.AvailableBrowsers(set) {
		r.Browsers = append(r.Browsers, b.Name)
	}
	for _, s := range c.EnabledScreenSizes() {
		r.ScreenSizes[s.String()] = s.Filename("", now)
	}
	return r
}

func report(ctx context.Context, o options, v any, results []*compare.DiffResult, stdout io.Writer, logger *slog.Logger) int {
	if o.callbackURL != "" {
		if err := callback.New(o.callbackURL).Send(ctx, v); err != nil {
			logger.Error("failed to send result", "error", err)
			return exitUsage
		}
	} else {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(v); err != nil {
			logger.Error("failed to encode result", "error", err)
			return exitUsage
		}
	}

	if !o.failOnDiff {
		return exitOK
	}
	return exitCode(results)
}

func exitCode(results []*compare.DiffResult) int {
	code := exitOK
	for _, r := range results {
		switch {
		case r.Failed():
			return exitErrors
		case r.Differs():
			code = exitDifferences
		}
	}
	return code
}
