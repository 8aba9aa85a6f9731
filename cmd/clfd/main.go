// Command clfd removes radio-frequency interference from folded pulsar
// archives. Each input file is loaded, profiles with outlier statistics are
// masked, optionally broadband time-phase spikes are repaired, and a cleaned
// copy is written next to an optional JSON report.
//
// Files are independent, so a batch is dispatched to a bounded pool of
// workers; a failing file is logged and skipped, never aborting the run.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/v-morello/clfd/archive"
	"github.com/v-morello/clfd/features"
	"github.com/v-morello/clfd/mask"
	"github.com/v-morello/clfd/report"
)

func main() {
	cfg, paths, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "clfd:", err)
		os.Exit(2)
	}

	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "clfd: no input files")
		os.Exit(2)
	}

	if run(cfg, paths) > 0 {
		os.Exit(1)
	}
}

// parseArgs resolves flags over the optional YAML config file. Flags given
// on the command line win.
func parseArgs(args []string) (Config, []string, error) {
	defaults := defaultConfig()

	fs := flag.NewFlagSet("clfd", flag.ContinueOnError)

	configPath := fs.String("config", "", "YAML config file (flags override it)")
	featureList := fs.String("features", strings.Join(defaults.Features, ","), "comma-separated profile features")
	qmask := fs.Float64("qmask", defaults.QMask, "Tukey fence multiplier for profile masking")
	qspike := fs.Float64("qspike", defaults.QSpike, "Tukey fence multiplier for spike finding")
	despike := fs.Bool("despike", defaults.Despike, "find and repair broadband time-phase spikes")
	zap := fs.String("zap", defaults.Zap, "zap channels, e.g. '0:31,64'")
	format := fs.String("fmt", defaults.Format, "archive format ("+strings.Join(archive.Formats(), ", ")+")")
	outDir := fs.String("o", defaults.OutDir, "output directory")
	workers := fs.Int("workers", defaults.Workers, "number of files processed in parallel")
	writeReport := fs.Bool("report", defaults.Report, "write a JSON report per file")
	strict := fs.Bool("strict", defaults.Strict, "fail on degenerate input instead of using fallbacks")
	verbose := fs.Bool("v", defaults.Verbose, "log fence statistics per feature")

	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	cfg := defaults

	if *configPath != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			return Config{}, nil, err
		}

		cfg = loaded
	}

	// Apply only the flags that were explicitly set.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "features":
			cfg.Features = strings.Split(*featureList, ",")
		case "qmask":
			cfg.QMask = *qmask
		case "qspike":
			cfg.QSpike = *qspike
		case "despike":
			cfg.Despike = *despike
		case "zap":
			cfg.Zap = *zap
		case "fmt":
			cfg.Format = *format
		case "o":
			cfg.OutDir = *outDir
		case "workers":
			cfg.Workers = *workers
		case "report":
			cfg.Report = *writeReport
		case "strict":
			cfg.Strict = *strict
		case "v":
			cfg.Verbose = *verbose
		}
	})

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return cfg, fs.Args(), nil
}

// run fans the input files out to cfg.Workers goroutines and returns the
// number of files that failed.
func run(cfg Config, paths []string) int {
	logger := log.New(os.Stderr, "clfd: ", log.LstdFlags)

	jobs := make(chan string)

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for path := range jobs {
				if err := processFile(cfg, path, logger); err != nil {
					failed.Add(1)
					logger.Printf("[%s] failed: %v", filepath.Base(path), err)
				}
			}
		}()
	}

	for _, path := range paths {
		jobs <- path
	}

	close(jobs)
	wg.Wait()

	return int(failed.Load())
}

// processFile cleans a single archive: load, mask profiles, optionally
// repair spikes, save the cleaned copy and the report.
func processFile(cfg Config, path string, logger *log.Logger) error {
	name := filepath.Base(path)

	handler, err := archive.ForFormat(cfg.Format)
	if err != nil {
		return err
	}

	zapChans, err := parseZap(cfg.Zap)
	if err != nil {
		return fmt.Errorf("zap spec: %w", err)
	}

	selected := make([]features.Name, 0, len(cfg.Features))

	for _, s := range cfg.Features {
		feat, err := features.Parse(strings.TrimSpace(s))
		if err != nil {
			return err
		}

		selected = append(selected, feat)
	}

	c, err := handler.Load(path)
	if err != nil {
		return err
	}

	if cfg.Strict {
		if err := c.CheckDegenerate(); err != nil {
			return err
		}
	}

	logger.Printf("[%s] loaded (%d, %d, %d)", name, c.NumSubints(), c.NumChans(), c.NumBins())

	table, err := features.Extract(c, selected)
	if err != nil {
		return err
	}

	prof, err := mask.Profiles(table, cfg.QMask, zapChans)
	if err != nil {
		return err
	}

	logger.Printf("[%s] masked %d of %d profiles (%.1f%%)",
		name, prof.NumMasked(), c.NumSubints()*c.NumChans(), 100*prof.MaskedFraction())

	if cfg.Verbose {
		for _, feat := range table.Names() {
			s := prof.Stats[feat]
			logger.Printf("[%s] %-8s q1=%-12.5g med=%-12.5g q3=%-12.5g accept [%.5g, %.5g]",
				name, feat, s.Q1, s.Med, s.Q3, s.VMin, s.VMax)
		}
	}

	var spikes *mask.SpikeResult

	if cfg.Despike {
		spikes, err = mask.FindSpikes(c, cfg.QSpike, zapChans)
		if err != nil {
			return err
		}

		logger.Printf("[%s] flagged %d time-phase cells", name, spikes.NumMasked())
	}

	cleaned := c

	// Spike repair first, on the cube the replacement values were derived
	// from; profile zeroing afterwards discards whole profiles outright.
	if spikes != nil {
		cleaned, err = handler.ApplySpikes(cleaned, spikes)
		if err != nil {
			return err
		}
	}

	cleaned, err = handler.ApplyProfileMask(cleaned, prof.Mask)
	if err != nil {
		return err
	}

	outPath := outputPath(cfg.OutDir, path, "_clean")
	if err := handler.Save(outPath, cleaned); err != nil {
		return err
	}

	logger.Printf("[%s] wrote %s", name, outPath)

	if cfg.Report {
		rep := report.New(path, c, table, prof, spikes)

		reportPath := outputPath(cfg.OutDir, path, "_report")
		reportPath = strings.TrimSuffix(reportPath, filepath.Ext(reportPath)) + ".json"

		if err := rep.Save(reportPath); err != nil {
			return err
		}

		logger.Printf("[%s] wrote %s", name, reportPath)
	}

	return nil
}

// outputPath places path's base name in dir with a suffix inserted before
// the extension.
func outputPath(dir, path, suffix string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	return filepath.Join(dir, stem+suffix+ext)
}
