package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"pipelined.dev/stretch/log"
	"pipelined.dev/stretch/sweep"
)

const (
	successExitCode = 0
	errorExitCode   = 1
)

// ratioList is a repeatable ratio flag.
type ratioList []sweep.Ratio

func (l *ratioList) String() string {
	s := make([]string, 0, len(*l))
	for _, r := range *l {
		s = append(s, r.String())
	}
	return strings.Join(s, ",")
}

func (l *ratioList) Set(value string) error {
	r, err := sweep.ParseRatio(value)
	if err != nil {
		return err
	}
	*l = append(*l, r)
	return nil
}

type config struct {
	args   []string
	stderr io.Writer
	logger logrus.FieldLogger

	configPath string
	mode       string
	ratios     ratioList
}

func (c *config) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "yaml file with sweep `config`")
	fs.StringVar(&c.mode, "mode", "", "processing `mode`: split or single (overrides config)")
	fs.Var(&c.ratios, "ratio", "stretch `ratio` as num/den, repeatable (overrides config)")
}

func (c *config) run() int {
	fs := flag.NewFlagSet("stretch", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() { c.printUsage(fs) }
	c.register(fs)
	if err := fs.Parse(c.args[1:]); err != nil {
		return errorExitCode
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(c.stderr, "Expected at least 1 wav file argument.")
		c.printUsage(fs)
		return errorExitCode
	}

	sc, err := c.sweepConfig()
	if err != nil {
		fmt.Fprintf(c.stderr, "Invalid config: %v\n", err)
		return errorExitCode
	}
	s, err := sweep.New(sc, c.logger)
	if err != nil {
		fmt.Fprintf(c.stderr, "Invalid config: %v\n", err)
		return errorExitCode
	}

	code := successExitCode
	for _, input := range fs.Args() {
		outputs, err := s.Run(input)
		for _, output := range outputs {
			c.logger.WithField("output", output).Info("written")
		}
		if err != nil {
			fmt.Fprintf(c.stderr, "Sweep of %s failed: %v\n", input, err)
			code = errorExitCode
		}
	}
	return code
}

// sweepConfig loads config file and applies flag overrides.
func (c *config) sweepConfig() (sweep.Config, error) {
	sc := sweep.Default()
	if c.configPath != "" {
		var err error
		if sc, err = sweep.Load(c.configPath); err != nil {
			return sweep.Config{}, err
		}
	}
	if c.mode != "" {
		sc.Mode = sweep.Mode(c.mode)
	}
	if len(c.ratios) > 0 {
		sc.Ratios = c.ratios
	}
	return sc, sc.Validate()
}

func (c *config) printUsage(fs *flag.FlagSet) {
	fmt.Fprintln(c.stderr, "Stretch is a batch time-stretching tool for wav files")
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "Usage: stretch [flags] <input.wav>...")
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "Flags:")
	fs.PrintDefaults()
}

func main() {
	c := config{
		args:   os.Args,
		stderr: os.Stderr,
		logger: log.GetLogger(),
	}
	os.Exit(c.run())
}
