// Package sweep stretches a wav file with every combination of ratios and
// engine options from config and names output files after them.
package sweep

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"pipelined.dev/stretch"
	"pipelined.dev/stretch/option"
	"pipelined.dev/stretch/signal"
	"pipelined.dev/stretch/vocoder"
	"pipelined.dev/stretch/wav"
)

const (
	// TagStereo marks output of the stereo pass in split mode.
	TagStereo = "st"
	// TagDualMono marks output of the channel by channel passes in split
	// mode.
	TagDualMono = "dm"
)

// Errors contains failures of sweep combinations.
type Errors []error

func (e Errors) Error() string {
	s := make([]string, 0, len(e))
	for _, err := range e {
		s = append(s, err.Error())
	}
	return fmt.Sprintf("%d combinations failed: %s", len(e), strings.Join(s, "; "))
}

// Unwrap returns failures of combinations.
func (e Errors) Unwrap() []error {
	return e
}

// ret returns untyped nil if list is empty.
func (e Errors) ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}

// OutputPath returns path of the output file. It's placed next to input
// and named after options, ratio and tag:
//
//	<dir>/<stem>-out<suffix>[-r<num>_<den>][-<tag>].wav
//
// Ratio is added only if multiple ratios are swept. Empty tag is omitted.
func OutputPath(input string, flags []option.Flag, ratio Ratio, multiRatio bool, tag string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	var b strings.Builder
	b.WriteString(stem)
	b.WriteString("-out")
	b.WriteString(option.Suffix(flags))
	if multiRatio {
		fmt.Fprintf(&b, "-r%d_%d", ratio.Num, ratio.Den)
	}
	if tag != "" {
		b.WriteString("-")
		b.WriteString(tag)
	}
	b.WriteString(".wav")
	return filepath.Join(filepath.Dir(input), b.String())
}

// Sweeper runs the sweep.
type Sweeper struct {
	config Config
	logger logrus.FieldLogger
}

// New returns a sweeper for provided config.
func New(config Config, logger logrus.FieldLogger) (*Sweeper, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Sweeper{
		config: config,
		logger: logger,
	}, nil
}

// Run processes the input with every combination. Failed combinations
// don't stop the sweep, they are logged and returned as Errors. Paths of
// written files are returned.
func (s *Sweeper) Run(input string) ([]string, error) {
	var (
		outputs    []string
		errs       Errors
		multiRatio = len(s.config.Ratios) > 1
	)
	for _, ratio := range s.config.Ratios {
		for _, flags := range s.config.Combinations {
			id := xid.New().String()
			l := s.logger.WithFields(logrus.Fields{
				"run":     id,
				"input":   input,
				"ratio":   ratio.String(),
				"options": option.Merge(flags...).String(),
			})
			written, err := s.combination(input, flags, ratio, multiRatio, id, l)
			if err != nil {
				l.WithError(err).Error("combination failed")
				errs = append(errs, fmt.Errorf("ratio %v options %q: %w", ratio, option.Suffix(flags), err))
				continue
			}
			l.WithField("output", written).Info("combination done")
			outputs = append(outputs, written...)
		}
	}
	return outputs, errs.ret()
}

// combination processes input with single set of options.
func (s *Sweeper) combination(input string, flags []option.Flag, ratio Ratio, multiRatio bool, id string, l logrus.FieldLogger) ([]string, error) {
	source, err := wav.Open(input)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	engines := vocoder.Allocator(option.Merge(flags...), ratio.Float())
	options := []stretch.Option{stretch.WithID(id), stretch.WithLogger(l)}
	switch s.config.Mode {
	case ModeSingle:
		output := OutputPath(input, flags, ratio, multiRatio, "")
		if _, err := stretch.Single(source, engines, s.sink(output), options...); err != nil {
			return nil, err
		}
		return []string{output}, nil
	default:
		stereo := OutputPath(input, flags, ratio, multiRatio, TagStereo)
		dualMono := OutputPath(input, flags, ratio, multiRatio, TagDualMono)
		if _, err := stretch.Split(source, engines, s.sink(stereo), s.sink(dualMono), options...); err != nil {
			return nil, err
		}
		return []string{stereo, dualMono}, nil
	}
}

// sink returns allocator of wav sink with configured bit depth.
func (s *Sweeper) sink(path string) stretch.SinkAllocatorFunc {
	return func(sampleRate, channels int) (stretch.Sink, error) {
		sink, err := wav.Create(path, sampleRate, channels, signal.BitDepth(s.config.BitDepth))
		if err != nil {
			return nil, err
		}
		return sink, nil
	}
}
