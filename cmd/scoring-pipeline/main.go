package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	apperrors "github.com/ajharbinger/lead-funnel/internal/errors"
	"github.com/ajharbinger/lead-funnel/internal/funnel"
	"github.com/ajharbinger/lead-funnel/internal/ingest"
	"github.com/ajharbinger/lead-funnel/internal/logger"
	"github.com/ajharbinger/lead-funnel/internal/normalizer"
	"github.com/ajharbinger/lead-funnel/internal/scoring"
	"github.com/ajharbinger/lead-funnel/internal/services"
	"github.com/ajharbinger/lead-funnel/pkg/config"
)

type options struct {
	input            string
	calibrationID    string
	calibrationFile  string
	at               string
	format           string
	output           string
	workers          int
	requireOwner     bool
	requireCreatedAt bool
	lang             string
	currency         string
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	opts := options{}
	flag.StringVar(&opts.input, "file", "", "CSV or XLSX export to evaluate (default: first argument)")
	flag.StringVar(&opts.calibrationID, "calibration", cfg.DefaultCalibration, "calibration ID")
	flag.StringVar(&opts.calibrationFile, "calibration-file", cfg.CalibrationFile, "YAML or JSON calibration to register")
	flag.StringVar(&opts.at, "at", "", "evaluation instant, RFC3339 or YYYY-MM-DD (default: now)")
	flag.StringVar(&opts.format, "format", "table", "output format: table, json, csv or prom")
	flag.StringVar(&opts.output, "out", "", "write output to this file instead of stdout")
	flag.IntVar(&opts.workers, "workers", cfg.Workers, "scoring workers")
	flag.BoolVar(&opts.requireOwner, "require-owner", cfg.RequireOwner, "reject records without an owner")
	flag.BoolVar(&opts.requireCreatedAt, "require-created-at", false, "reject records without a creation date when decay is enabled")
	flag.StringVar(&opts.lang, "lang", "es-MX", "locale for table amounts")
	flag.StringVar(&opts.currency, "currency", "MXN", "ISO currency code for table amounts")
	flag.Parse()

	if opts.input == "" {
		opts.input = flag.Arg(0)
	}
	if opts.input == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger.NewLogger(cfg.Environment)); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run(ctx context.Context, opts options, appLog logger.Logger) error {
	defer func() { _ = appLog.Sync() }()

	registry, err := scoring.LoadRegistry(scoring.BaselineID, opts.calibrationFile)
	if err != nil {
		return err
	}

	records, err := readRecords(opts.input)
	if err != nil {
		return err
	}

	evalOpts := services.EvaluateOptions{
		CalibrationID:    opts.calibrationID,
		RequireOwner:     opts.requireOwner,
		RequireCreatedAt: opts.requireCreatedAt,
	}
	if opts.at != "" {
		if evalOpts.At, err = parseInstant(opts.at); err != nil {
			return fmt.Errorf("invalid -at %q: %w", opts.at, err)
		}
	}

	evaluator := services.NewEvaluator(registry, normalizer.DefaultOptions(), opts.workers, appLog)
	result, err := evaluator.Evaluate(ctx, records, evalOpts)
	if err != nil {
		var appErr *apperrors.AppError
		if apperrors.As(err, &appErr) {
			if rejected, ok := appErr.Details.([]normalizer.Rejection); ok {
				for _, r := range rejected {
					fmt.Fprintf(os.Stderr, "row %d: %v\n", r.Row, r.Err)
				}
			}
		}
		return err
	}

	out := io.Writer(os.Stdout)
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch opts.format {
	case "table":
		unit, err := currency.ParseISO(opts.currency)
		if err != nil {
			return fmt.Errorf("invalid -currency %q: %w", opts.currency, err)
		}
		printer := message.NewPrinter(language.Make(opts.lang))
		return writeTable(out, result, printer, unit)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "csv":
		data, err := services.NewLeadExportService().Export(result, services.LeadExportOptions{Format: services.FormatCSV})
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "prom":
		return funnel.WriteMetrics(out, result.Summary, result.CalibrationID)
	default:
		return fmt.Errorf("unsupported format %q", opts.format)
	}
}

func readRecords(path string) ([]normalizer.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return ingest.Read(path, f)
}

func parseInstant(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", value, time.UTC)
}

func writeTable(out io.Writer, result *services.EvaluationResult, p *message.Printer, unit currency.Unit) error {
	money := func(v float64) string {
		return p.Sprint(currency.Symbol(unit.Amount(v)))
	}

	fmt.Fprintf(out, "🎯 Lead Funnel Evaluation (%s)\n", result.CalibrationID)
	fmt.Fprintf(out, "%s\n", strings.Repeat("=", 40))
	fmt.Fprintf(out, "Run: %s | Evaluated at: %s\n\n", result.RunID, result.EvaluatedAt.Format(time.RFC3339))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tLEAD\tOWNER\tSTAGE\tBASE\tDECAY\tHORIZON\tFINAL\tEXPECTED VALUE\tGATE")
	for _, lead := range result.Scored {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t%s\n",
			lead.Row, lead.Name, funnel.OwnerKey(lead.Owner), lead.Stage,
			lead.BaseProbability, lead.DecayFactor, lead.HorizonFactor, lead.FinalProbability,
			money(lead.ExpectedValue), lead.Gate)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	summary := result.Summary
	fmt.Fprintf(out, "\n📊 Funnel total: %s across %d leads\n", money(summary.Total), summary.LeadCount)
	for _, owner := range summary.Owners {
		fmt.Fprintf(out, "   • %s: %s (%d leads)\n", owner.Owner, money(owner.Total), owner.Leads)
	}
	if summary.StaleCount > 0 {
		fmt.Fprintf(out, "   • Stale leads: %d\n", summary.StaleCount)
	}
	if summary.ExcludedTerminal > 0 {
		fmt.Fprintf(out, "   • Closed leads excluded: %d\n", summary.ExcludedTerminal)
	}
	if summary.Overflow {
		fmt.Fprintf(out, "⚠️  Total exceeds historical ceiling of %s\n", money(summary.Ceiling))
	}

	if len(result.Rejected) > 0 {
		fmt.Fprintf(out, "\n❌ Rejected records: %d\n", len(result.Rejected))
		for _, r := range result.Rejected {
			fmt.Fprintf(out, "   • row %d: %v\n", r.Row, r.Err)
		}
	}

	fmt.Fprintf(out, "\n✅ %s\n", result.Stats.Summary())
	return nil
}
