package stretch

import (
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"pipelined.dev/stretch/log"
)

// Option provides a way to set functional parameters to runs.
type Option func(*config)

type config struct {
	id     string
	logger logrus.FieldLogger
}

// WithLogger sets logger to the run. If this option is not provided,
// silent logger is used.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithID sets id of the run. If this option is not provided, unique id is
// generated.
func WithID(id string) Option {
	return func(c *config) {
		c.id = id
	}
}

func newConfig(options []Option) config {
	c := config{}
	for _, option := range options {
		option(&c)
	}
	if c.logger == nil {
		c.logger = log.Silent()
	}
	if c.id == "" {
		c.id = newUID()
	}
	return c
}

// newUID returns new unique id value.
func newUID() string {
	return xid.New().String()
}
