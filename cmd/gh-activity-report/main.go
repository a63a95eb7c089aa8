package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alimgiray/gh-activity-report/internal/models"
	"github.com/alimgiray/gh-activity-report/internal/pipeline"
	"github.com/alimgiray/gh-activity-report/internal/services"
	"github.com/alimgiray/gh-activity-report/pkg/config"
	"github.com/alimgiray/gh-activity-report/pkg/logger"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type cliOptions struct {
	Org        string
	User       string
	Since      string
	Until      string
	Out        string
	XLSX       bool
	Workers    int
	ConfigPath string
}

func main() {
	logger.Init()
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("gh-activity-report", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts cliOptions
	fs.StringVar(&opts.Org, "org", "", "GitHub organization to report on (or GH_ORG)")
	fs.StringVar(&opts.User, "user", "", "Restrict the report to one login; without --org reports on the user's own repositories")
	fs.StringVar(&opts.Since, "since", "", "First day of the window, YYYY-MM-DD (default: DEFAULT_WINDOW_DAYS before --until)")
	fs.StringVar(&opts.Until, "until", "", "Last day of the window, YYYY-MM-DD (default: today, UTC)")
	fs.StringVar(&opts.Out, "out", "", "Output directory (or OUTPUT_DIR)")
	fs.BoolVar(&opts.XLSX, "xlsx", false, "Also write an Excel workbook (or REPORT_XLSX=true)")
	fs.IntVar(&opts.Workers, "workers", 0, "Repositories fetched concurrently (or FETCH_WORKERS)")
	fs.StringVar(&opts.ConfigPath, "config", "", "YAML config file (or REPORT_CONFIG)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: gh-activity-report --org <ORG> [--user <LOGIN>] [--since YYYY-MM-DD] [--until YYYY-MM-DD] [--out DIR] [--xlsx]\n")
		fmt.Fprintf(stderr, "The GitHub token is read from GH_TOKEN (or GITHUB_TOKEN).\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitUsage
	}
	applyFlags(cfg, opts)

	if cfg.Report.Org == "" && opts.User == "" {
		fmt.Fprintln(stderr, "either --org or --user is required")
		fs.Usage()
		return exitUsage
	}

	window, err := models.ParseWindow(opts.Since, opts.Until, cfg.Report.DefaultWindowDays, time.Now())
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service, err := pipeline.New(ctx, cfg)
	if err != nil {
		return fail(err)
	}

	result, err := service.Run(ctx, pipeline.Request{
		Org:    cfg.Report.Org,
		User:   opts.User,
		Window: window,
	})
	if err != nil {
		return fail(err)
	}

	for _, path := range result.Files {
		fmt.Fprintln(os.Stdout, path)
	}
	return exitOK
}

// applyFlags lets explicit flags win over environment and config file
func applyFlags(cfg *config.Config, opts cliOptions) {
	if opts.Org != "" {
		cfg.Report.Org = opts.Org
	}
	if opts.Out != "" {
		cfg.Report.OutputDir = opts.Out
	}
	if opts.XLSX {
		cfg.Report.WriteXLSX = true
	}
	if opts.Workers > 0 {
		cfg.Fetch.Workers = opts.Workers
	}
}

func fail(err error) int {
	log := logger.WithError(err)

	var authErr *services.AuthError
	var fetchErr *services.FetchError
	var writeErr *services.WriteError
	switch {
	case errors.As(err, &authErr):
		log.Error("GitHub authentication failed")
	case errors.As(err, &fetchErr):
		log.WithField("query", fetchErr.Query.String()).Error("GitHub query failed")
	case errors.As(err, &writeErr):
		log.WithField("path", writeErr.Path).Error("Report could not be written")
	default:
		log.Error("Activity report failed")
	}
	return exitError
}
