// Command processor computes cleaning progress for workbooks in batch and
// writes one <plant>_progreso.csv per plant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"solarclean/internal/config"
	"solarclean/internal/dataprocessing"
	apperrors "solarclean/internal/errors"
	"solarclean/internal/exporter"
	"solarclean/internal/files"
	"solarclean/internal/infrastructure"
	"solarclean/internal/validation"
	"solarclean/pkg/contracts"
	"solarclean/pkg/contracts/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "processor: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	inDir      string
	outDir     string
	sheetID    string
	workers    int
	target     string
	configFile string
	version    bool
	inputs     []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("processor", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.inDir, "in", "", "directory containing workbooks")
	fs.StringVar(&opts.outDir, "out", "", "output directory (default: configured exports directory)")
	fs.StringVar(&opts.sheetID, "sheet", "", "Google Sheets spreadsheet ID to process instead of local files")
	fs.IntVar(&opts.workers, "workers", config.DefaultBatchWorkers, "number of workbooks processed concurrently")
	fs.StringVar(&opts.target, "target", "", "target policy: selection or dataset")
	fs.StringVar(&opts.configFile, "config", "", "path to a YAML config file")
	fs.BoolVar(&opts.version, "version", false, "print version information and exit")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: processor [flags] [workbook or directory ...]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.inputs = fs.Args()
	if opts.workers < 1 {
		opts.workers = 1
	}
	if opts.sheetID == "" && opts.inDir == "" && len(opts.inputs) == 0 {
		opts.inDir = "."
	}
	return opts, nil
}

// result is the outcome of processing one workbook
type result struct {
	source string
	plant  string
	path   string
	report *domain.ProgressReport
	err    error
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	var cfg *config.Config
	if opts.configFile != "" {
		cfg, err = config.LoadFile(opts.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logger, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		return apperrors.NewConfigError("failed to initialize logger", err)
	}
	defer infrastructure.CloseLogFile()
	ctx = infrastructure.EnsureTraceID(ctx)

	policy, ok := dataprocessing.ParseTargetPolicy(opts.target, domain.TargetPolicy(cfg.Progress.TargetPolicy))
	if !ok {
		return apperrors.NewAppValidationError(fmt.Sprintf("unknown target policy %q", opts.target))
	}

	outDir := opts.outDir
	if outDir == "" {
		paths, err := cfg.ResolvePaths()
		if err != nil {
			return apperrors.NewConfigError("failed to resolve paths", err)
		}
		outDir = paths.ExportsDir
	}

	validator := validation.NewFileValidator(cfg.Upload.Extensions, cfg.Upload.MaxBytes, logger)
	if err := validator.ValidateOutputDirectory(outDir); err != nil {
		return err
	}

	p := &processor{
		loader:     dataprocessing.NewLoader(logger),
		summarizer: dataprocessing.NewSummarizer(logger, dataprocessing.SummarizerConfig{TargetPolicy: policy}),
		writer:     exporter.NewCSVWriter(outDir, logger),
		validator:  validator,
		policy:     policy,
		logger:     logger,
	}

	var results []result
	if opts.sheetID != "" {
		results = []result{p.processSheet(ctx, cfg.Sources.GoogleSheets.ReaderConfig(), opts.sheetID)}
	} else {
		inputs := opts.inputs
		if opts.inDir != "" {
			if err := validator.ValidateInputDirectory(opts.inDir); err != nil {
				return err
			}
			inputs = append([]string{opts.inDir}, inputs...)
		}
		workbooks, err := files.NewDiscovery("", validator.Extensions()).Collect(inputs...)
		if err != nil {
			return err
		}
		if len(workbooks) == 0 {
			return apperrors.NewNotFoundError("workbooks")
		}
		results, err = p.processFiles(ctx, workbooks, opts.workers)
		if err != nil {
			return err
		}
	}

	return report(stdout, results)
}

type processor struct {
	loader     *dataprocessing.Loader
	summarizer *dataprocessing.Summarizer
	writer     *exporter.CSVWriter
	validator  *validation.FileValidator
	policy     domain.TargetPolicy
	logger     *slog.Logger

	mu      sync.Mutex
	written map[string]string // output file name -> source
}

// processFiles handles the workbooks concurrently, at most workers at a time.
// A failing workbook does not stop the others.
func (p *processor) processFiles(ctx context.Context, workbooks []files.FileInfo, workers int) ([]result, error) {
	results := make([]result, len(workbooks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, wb := range workbooks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.processFile(gctx, wb)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *processor) processFile(ctx context.Context, wb files.FileInfo) result {
	res := result{source: wb.Path, plant: dataprocessing.PlantName(wb.Name)}

	if err := p.validator.ValidateWorkbookFile(wb.Path); err != nil {
		res.err = apperrors.NewParsingError("rejected "+wb.Name, err)
		return res
	}

	f, err := os.Open(wb.Path)
	if err != nil {
		res.err = apperrors.NewStorageError("failed to open workbook", err).WithContext("file", wb.Path)
		return res
	}
	defer f.Close()

	loaded, err := p.loader.LoadWorkbook(f, wb.Name)
	if err != nil {
		res.err = apperrors.NewParsingError("failed to load "+wb.Name, err)
		return res
	}
	return p.finish(ctx, res, loaded)
}

func (p *processor) processSheet(ctx context.Context, cfg dataprocessing.SheetsConfig, spreadsheetID string) result {
	res := result{source: "sheet:" + spreadsheetID}

	ctx, cancel := context.WithTimeout(ctx, config.SheetsFetchTimeout)
	defer cancel()

	reader, err := dataprocessing.NewSheetsReader(ctx, cfg, p.logger)
	if err != nil {
		res.err = apperrors.NewConfigError("google sheets source unavailable", err)
		return res
	}
	wb, err := reader.ReadWorkbook(ctx, spreadsheetID)
	if err != nil {
		res.err = apperrors.NewSourceError("failed to read spreadsheet", err).WithContext("spreadsheet_id", spreadsheetID)
		return res
	}
	loaded, err := p.loader.Load(wb)
	if err != nil {
		res.err = apperrors.NewParsingError("failed to load spreadsheet "+spreadsheetID, err)
		return res
	}
	return p.finish(ctx, res, loaded)
}

func (p *processor) finish(ctx context.Context, res result, loaded *dataprocessing.LoadResult) result {
	res.plant = loaded.Dataset.PlantName

	if err := p.claim(res.plant, res.source); err != nil {
		res.err = err
		return res
	}

	rep, err := p.summarizer.BuildReport(ctx, loaded.Dataset, domain.Filter{}, p.policy)
	if err != nil {
		res.err = apperrors.NewParsingError("failed to compute progress", err).WithContext("plant", res.plant)
		return res
	}
	res.report = rep

	path, err := p.writer.WriteProgress(res.plant, rep.Rows)
	if err != nil {
		res.err = apperrors.NewStorageError("failed to write progress", err).WithContext("plant", res.plant)
		return res
	}
	res.path = path
	return res
}

// claim reserves the output file of a plant so two workbooks of the same
// plant never write the same file.
func (p *processor) claim(plant, source string) error {
	name := exporter.FileName(plant, exporter.FormatCSV)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.written == nil {
		p.written = make(map[string]string)
	}
	if other, ok := p.written[name]; ok {
		return apperrors.NewAppValidationError(
			fmt.Sprintf("plant %q already written from %s", plant, filepath.Base(other)))
	}
	p.written[name] = source
	return nil
}

func report(w io.Writer, results []result) error {
	var errs []error
	for _, r := range results {
		if r.err != nil {
			fmt.Fprintf(w, "FAIL %s: %v\n", r.source, r.err)
			errs = append(errs, r.err)
			continue
		}
		fmt.Fprintf(w, "OK   %s -> %s (%d days, max %.2f%%)\n",
			r.source, r.path, len(r.report.Rows), r.report.Summary.MaxProgress)
	}
	fmt.Fprintf(w, "%d processed, %d failed\n", len(results)-len(errs), len(errs))

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d workbooks failed: %w", len(errs), len(results), errors.Join(errs...))
	}
	return nil
}
