package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds one batch run's settings. Every field can come from the YAML
// config file; command-line flags override it.
type Config struct {
	Features []string `yaml:"features"`
	QMask    float64  `yaml:"qmask"`
	QSpike   float64  `yaml:"qspike"`
	Despike  bool     `yaml:"despike"`
	Zap      string   `yaml:"zap"`
	Format   string   `yaml:"format"`
	OutDir   string   `yaml:"outdir"`
	Workers  int      `yaml:"workers"`
	Report   bool     `yaml:"report"`
	Strict   bool     `yaml:"strict"`
	Verbose  bool     `yaml:"verbose"`
}

func defaultConfig() Config {
	return Config{
		Features: []string{"std", "ptp", "lfamp"},
		QMask:    2.0,
		QSpike:   4.0,
		Format:   "npy",
		OutDir:   ".",
		Workers:  1,
	}
}

func loadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

// parseZap converts a zap-channel spec into a sorted list of channel
// indices. The spec is a comma-separated mix of single indices and
// inclusive ranges, e.g. "0:31,64,100:110".
func parseZap(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	seen := make(map[int]bool)

	for _, field := range strings.Split(spec, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		lo, hi, err := parseZapField(field)
		if err != nil {
			return nil, err
		}

		for ch := lo; ch <= hi; ch++ {
			seen[ch] = true
		}
	}

	chans := make([]int, 0, len(seen))
	for ch := range seen {
		chans = append(chans, ch)
	}

	sort.Ints(chans)

	return chans, nil
}

func parseZapField(field string) (lo, hi int, err error) {
	lo64, err := strconv.Atoi(field)
	if err == nil {
		if lo64 < 0 {
			return 0, 0, fmt.Errorf("negative channel index %d", lo64)
		}

		return lo64, lo64, nil
	}

	parts := strings.SplitN(field, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid zap entry %q", field)
	}

	lo, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid zap entry %q", field)
	}

	hi, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid zap entry %q", field)
	}

	if lo < 0 || hi < lo {
		return 0, 0, fmt.Errorf("invalid zap range %q", field)
	}

	return lo, hi, nil
}
