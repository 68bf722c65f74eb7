package sweep

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"pipelined.dev/stretch/option"
	"pipelined.dev/stretch/signal"
)

// Mode defines how every combination is processed.
type Mode string

const (
	// ModeSplit stretches stereo input both as a whole and channel by
	// channel. Two files are written per combination.
	ModeSplit Mode = "split"
	// ModeSingle stretches input as a whole. One file is written per
	// combination.
	ModeSingle Mode = "single"
)

var (
	// ErrInvalidRatio is returned when ratio cannot be parsed or is not
	// positive.
	ErrInvalidRatio = errors.New("invalid ratio")
	// ErrInvalidConfig is returned when config values are not valid.
	ErrInvalidConfig = errors.New("invalid config")
)

// Ratio is a stretch ratio expressed as a fraction of output to input
// durations.
type Ratio struct {
	Num int
	Den int
}

// ParseRatio parses ratio from "num/den" or "num" notation.
func ParseRatio(s string) (Ratio, error) {
	num, den, found := strings.Cut(strings.TrimSpace(s), "/")
	r := Ratio{Den: 1}
	var err error
	if r.Num, err = strconv.Atoi(num); err != nil {
		return Ratio{}, fmt.Errorf("%q: %w", s, ErrInvalidRatio)
	}
	if found {
		if r.Den, err = strconv.Atoi(den); err != nil {
			return Ratio{}, fmt.Errorf("%q: %w", s, ErrInvalidRatio)
		}
	}
	if r.Num <= 0 || r.Den <= 0 {
		return Ratio{}, fmt.Errorf("%q: %w", s, ErrInvalidRatio)
	}
	return r, nil
}

// Float returns ratio value.
func (r Ratio) Float() float64 {
	return float64(r.Num) / float64(r.Den)
}

// String returns ratio in "num/den" notation.
func (r Ratio) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Ratio) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseRatio(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (r Ratio) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

// Combination is a list of options used together. Order of options
// defines the order of names in output file name.
type Combination []option.Flag

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Combination) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var names []string
	if err := unmarshal(&names); err != nil {
		return err
	}
	flags := make(Combination, 0, len(names))
	for _, name := range names {
		f, err := option.Parse(name)
		if err != nil {
			return err
		}
		flags = append(flags, f)
	}
	*c = flags
	return nil
}

// MarshalYAML implements yaml.Marshaler. Default options are omitted.
func (c Combination) MarshalYAML() (interface{}, error) {
	names := []string{}
	for _, f := range c {
		if name, ok := option.Name(f); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// Config of the sweep.
type Config struct {
	Mode         Mode          `yaml:"mode"`
	BitDepth     int           `yaml:"bitDepth"`
	Ratios       []Ratio       `yaml:"ratios"`
	Combinations []Combination `yaml:"combinations"`
}

// Default returns the built-in sweep.
func Default() Config {
	return Config{
		Mode:     ModeSplit,
		BitDepth: 16,
		Ratios:   []Ratio{{Num: 2, Den: 1}},
		Combinations: []Combination{
			{},
			{option.ChannelsTogether},
			{option.EngineFiner},
			{option.ChannelsTogether, option.EngineFiner},
			{option.WindowShort},
			{option.WindowLong, option.ThreadingNever},
		},
	}
}

// Load reads config from yaml file. Values missing in the file are taken
// from Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	c := Default()
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks config values.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeSplit, ModeSingle:
	default:
		return fmt.Errorf("mode %q: %w", c.Mode, ErrInvalidConfig)
	}
	switch signal.BitDepth(c.BitDepth) {
	case signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
	default:
		return fmt.Errorf("bit depth %d: %w", c.BitDepth, ErrInvalidConfig)
	}
	if len(c.Ratios) == 0 {
		return fmt.Errorf("no ratios: %w", ErrInvalidConfig)
	}
	for _, r := range c.Ratios {
		if r.Num <= 0 || r.Den <= 0 {
			return fmt.Errorf("ratio %v: %w", r, ErrInvalidRatio)
		}
	}
	if len(c.Combinations) == 0 {
		return fmt.Errorf("no combinations: %w", ErrInvalidConfig)
	}
	return nil
}
