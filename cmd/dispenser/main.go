// Turn ticket dispenser cli tool
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/sawdustofmind/adv-sync/internal/config"
	"github.com/sawdustofmind/adv-sync/internal/logging"
	"github.com/sawdustofmind/adv-sync/internal/session"
)

var (
	Version = "dev"
	Build   = "unknown"
)

var cli struct {
	LogLevel    string     `help:"Log level, overrides DISPENSER_LOG_LEVEL."`
	LogFormat   string     `help:"Log format [text, json], overrides DISPENSER_LOG_FORMAT."`
	MetricsAddr string     `help:"Serve prometheus metrics on this address, overrides DISPENSER_METRICS_ADDR."`
	Run         RunCmd     `cmd:"" help:"Run a concurrent dispensing session."`
	Version     VersionCmd `cmd:"" help:"Show version."`
}

// Context is handed to every command.
type Context struct {
	Log         *logrus.Logger
	MetricsAddr string
}

func main() {

	ctx := kong.Parse(&cli,
		kong.Name("dispenser"),
		kong.Description("Hand out unique turn tickets from dispensers sharing one counter."))

	cfg, err := config.Load()
	ctx.FatalIfErrorf(err)
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.LogFormat = cli.LogFormat
	}
	if cli.MetricsAddr != "" {
		cfg.MetricsAddr = cli.MetricsAddr
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	ctx.FatalIfErrorf(err)

	err = ctx.Run(&Context{Log: log, MetricsAddr: cfg.MetricsAddr})
	ctx.FatalIfErrorf(err)
}

// VersionCmd - Version command
type VersionCmd struct {
}

// Run - Version command implementation
func (v *VersionCmd) Run(ctx *Context) error {

	fmt.Printf("Version: %s\n  Build: %s\n", Version, Build)
	return nil
}

// RunCmd - Dispensing session command
type RunCmd struct {
	Workers    int      `default:"50" help:"Concurrent customers."`
	Tickets    int      `default:"1000" help:"Tickets requested by each customer."`
	Dispensers int      `default:"2" help:"Dispensers sharing the counter."`
	Script     []uint64 `help:"Issue these turn numbers instead of counting from 0."`
	Serve      bool     `help:"Serve every ticket at a window in turn order."`
}

// Run - Dispensing session implementation
func (r *RunCmd) Run(ctx *Context) error {

	if ctx.MetricsAddr != "" {
		go serveMetrics(ctx.Log, ctx.MetricsAddr)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := session.Run(sigCtx, session.Options{
		Workers:    r.Workers,
		Tickets:    r.Tickets,
		Dispensers: r.Dispensers,
		Script:     r.Script,
		Serve:      r.Serve,
		Log:        ctx.Log,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Issued: %d\n", report.Issued)
	if r.Serve {
		fmt.Printf("Served: %d\n", report.Served)
	}
	for name, n := range report.PerDispenser {
		fmt.Printf("  %s: %d\n", name, n)
	}
	if report.Exhausted {
		fmt.Println("Script exhausted before every customer was served.")
	}
	return nil
}

func serveMetrics(log logrus.FieldLogger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.WithField("addr", addr).Info("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("metrics server stopped")
	}
}
