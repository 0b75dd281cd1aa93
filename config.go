package histstats

import (
	"fmt"
	"io"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Config describes the bucket layouts of a set of histograms, it is usually
// loaded from a YAML document such as:
//
//	namespace: myapp
//	histograms:
//	  request_latency:
//	    bounds: [0.005, 0.01, 0.05, 0.1, 0.5, 1]
//	  payload_size:
//	    exponential: {start: 64, factor: 4, count: 8}
//	  queue_depth:
//	    linear: {start: 1, width: 1, count: 10}
type Config struct {
	Namespace  string                     `yaml:"namespace"`
	Histograms map[string]HistogramConfig `yaml:"histograms"`
}

// HistogramConfig is the bucket layout of a single histogram. Exactly one of
// the fields must be set.
type HistogramConfig struct {
	Bounds      []float64    `yaml:"bounds,omitempty"`
	Linear      *BucketRange `yaml:"linear,omitempty"`
	Exponential *BucketRange `yaml:"exponential,omitempty"`
}

// BucketRange is the set of parameters of the bucket generators. Width is
// used by linear layouts, Factor by exponential ones.
type BucketRange struct {
	Start  float64 `yaml:"start"`
	Width  float64 `yaml:"width,omitempty"`
	Factor float64 `yaml:"factor,omitempty"`
	Count  int     `yaml:"count"`
}

// LoadConfig decodes a YAML configuration from r. Unknown fields are reported
// as errors.
func LoadConfig(r io.Reader) (Config, error) {
	var config Config

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&config); err != nil {
		if err == io.EOF {
			return config, nil
		}
		return config, fmt.Errorf("histstats: decoding configuration: %w", err)
	}

	return config, nil
}

// Layout returns the bucket bounds described by c.
func (c HistogramConfig) Layout() ([]float64, error) {
	set := 0
	for _, ok := range []bool{c.Bounds != nil, c.Linear != nil, c.Exponential != nil} {
		if ok {
			set++
		}
	}

	if set != 1 {
		return nil, fmt.Errorf("exactly one of bounds, linear or exponential must be set")
	}

	switch {
	case c.Linear != nil:
		return LinearBuckets(c.Linear.Start, c.Linear.Width, c.Linear.Count), nil
	case c.Exponential != nil:
		return ExponentialBuckets(c.Exponential.Start, c.Exponential.Factor, c.Exponential.Count), nil
	default:
		return c.Bounds, nil
	}
}

// Initializer is implemented by Manager and SyncManager.
type Initializer[K Key] interface {
	Init(key K, bounds []float64) error
}

// ApplyConfig initializes the histograms described by config on m, using
// lookup to resolve histogram names to keys.
//
// All histograms are applied, the returned error aggregates the failures of
// each of them.
func ApplyConfig[K Key](m Initializer[K], config Config, lookup func(string) (K, bool)) error {
	var err error

	names := make([]string, 0, len(config.Histograms))
	for name := range config.Histograms {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		key, ok := lookup(name)
		if !ok {
			err = appendError(err, fmt.Errorf("histstats: %s: unknown histogram", name))
			continue
		}

		bounds, e := config.Histograms[name].Layout()
		if e == nil {
			e = m.Init(key, bounds)
		}

		if e != nil {
			err = appendError(err, fmt.Errorf("histstats: %s: %w", name, e))
		}
	}

	return err
}
