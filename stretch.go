package stretch

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"pipelined.dev/stretch/metric"
	"pipelined.dev/stretch/signal"
)

type (
	// Source is the origin of the signal.
	Source interface {
		SampleRate() int
		Channels() int
		// Remaining returns number of frames which are not read yet.
		Remaining() int
		// Read fills the buffer with next frames.
		Read(out signal.Float32) (int, error)
	}

	// Sink is the destination of the signal.
	Sink interface {
		Write(in signal.Float32) error
	}

	// Committer is implemented by sinks which must be finalized after
	// successful run.
	Committer interface {
		Commit() error
	}

	// Aborter is implemented by sinks which must discard written signal
	// after failed run.
	Aborter interface {
		Abort() error
	}

	// SinkAllocatorFunc returns a sink for the signal properties.
	SinkAllocatorFunc func(sampleRate, channels int) (Sink, error)
)

// Stats describes the frames flow of a single run.
type Stats struct {
	Blocks    int // Number of input blocks, priming block excluded.
	Read      int // Frames read from the source.
	Retrieved int // Frames retrieved from the engine.
	Trimmed   int // Frames of start delay discarded from the output head.
	Written   int // Frames written to the sink.
}

// Run drives the engine over the source and writes the stretched signal
// to the sink. The engine is primed with its preferred start pad, start
// delay is trimmed from the output head and the engine is drained after
// the final block.
//
// Run doesn't commit or abort the sink. If engine reports fault,
// ErrEngineFault is returned along with the stats gathered so far. If the
// engine retrieves less frames than it reported as available, Run panics.
func Run(source Source, sink Sink, engine Engine, options ...Option) (Stats, error) {
	return run(newConfig(options), source, sink, engine)
}

func run(c config, source Source, sink Sink, engine Engine) (Stats, error) {
	var (
		channels   = source.Channels()
		sampleRate = source.SampleRate()
		l          = c.logger.WithFields(logrus.Fields{
			"run":        c.id,
			"channels":   channels,
			"sampleRate": sampleRate,
		})
		r = runner{
			engine:    engine,
			sink:      sink,
			channels:  channels,
			measureIn: metric.Meter(source, sampleRate)(),
			measure:   metric.Meter(sink, sampleRate)(),
		}
	)

	pad := engine.PreferredStartPad()
	engine.Process(signal.Allocate(channels, pad), false)
	r.leadDelay = engine.StartDelay()
	l.WithFields(logrus.Fields{
		"startPad":   pad,
		"startDelay": r.leadDelay,
	}).Debug("engine primed")

	for final := false; !final; {
		need := engine.SamplesRequired()
		remaining := source.Remaining()
		toRead := min(need, remaining)
		final = need >= remaining

		in := signal.Allocate(channels, toRead)
		if toRead > 0 {
			if err := read(source, in); err != nil {
				return r.stats, fmt.Errorf("block %d: %w", r.stats.Blocks, err)
			}
			r.measureIn(toRead)
		}
		engine.Process(in, final)
		r.stats.Blocks++
		r.stats.Read += toRead

		available := engine.Available()
		if available < 0 {
			l.WithField("block", r.stats.Blocks).Warn("engine fault")
			return r.stats, fmt.Errorf("block %d: %w", r.stats.Blocks, ErrEngineFault)
		}
		if err := r.pull(available); err != nil {
			return r.stats, err
		}
		l.WithFields(logrus.Fields{
			"required":  need,
			"read":      toRead,
			"available": available,
			"final":     final,
		}).Debug("block processed")
	}

	for {
		available := engine.Available()
		if available == 0 {
			break
		}
		if available < 0 {
			l.Warn("engine fault while draining")
			return r.stats, fmt.Errorf("drain: %w", ErrEngineFault)
		}
		if err := r.pull(available); err != nil {
			return r.stats, err
		}
	}

	l.WithFields(logrus.Fields{
		"blocks":    r.stats.Blocks,
		"read":      r.stats.Read,
		"retrieved": r.stats.Retrieved,
		"trimmed":   r.stats.Trimmed,
		"written":   r.stats.Written,
	}).Info("run finished")
	return r.stats, nil
}

// read fills the buffer from the source completely.
func read(source Source, in signal.Float32) error {
	n, err := source.Read(in)
	if n == in.Size() {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		return err
	}
	if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
		err = ErrShortRead
	}
	return fmt.Errorf("read %d of %d frames: %w", n, in.Size(), err)
}

// runner holds the state of output side of the run.
type runner struct {
	engine    Engine
	sink      Sink
	channels  int
	leadDelay int
	measureIn metric.MeasureFunc
	measure   metric.MeasureFunc
	stats     Stats
}

// pull retrieves available frames from the engine, trims the remaining
// lead delay and writes the rest to the sink.
func (r *runner) pull(available int) error {
	out := signal.Allocate(r.channels, available)
	if retrieved := r.engine.Retrieve(out); retrieved != available {
		panic(fmt.Sprintf("stretch: engine retrieved %d of %d available frames", retrieved, available))
	}
	r.stats.Retrieved += available

	trim := min(available, r.leadDelay)
	r.leadDelay -= trim
	r.stats.Trimmed += trim
	if trim == available {
		return nil
	}
	if err := r.sink.Write(out.Offset(trim)); err != nil {
		return fmt.Errorf("write %d frames: %w", available-trim, err)
	}
	r.stats.Written += available - trim
	r.measure(available - trim)
	return nil
}

// Single allocates an engine and a sink for the source and runs them.
// The sink is committed after successful run and aborted otherwise.
func Single(source Source, engines EngineAllocatorFunc, sinks SinkAllocatorFunc, options ...Option) (Stats, error) {
	c := newConfig(options)
	engine, err := engines(source.SampleRate(), source.Channels())
	if err != nil {
		return Stats{}, fmt.Errorf("allocate engine: %w", err)
	}
	sink, err := sinks(source.SampleRate(), source.Channels())
	if err != nil {
		return Stats{}, fmt.Errorf("allocate sink: %w", err)
	}
	stats, err := run(c, source, sink, engine)
	if err != nil {
		return stats, abort(err, sink)
	}
	return stats, commit(sink)
}

// commit finalizes sinks. If any of them fails, the rest is aborted.
func commit(sinks ...Sink) error {
	for i, s := range sinks {
		if c, ok := s.(Committer); ok {
			if err := c.Commit(); err != nil {
				return abort(fmt.Errorf("commit: %w", err), sinks[i+1:]...)
			}
		}
	}
	return nil
}

// abort discards sinks after failed run. Run error is returned unchanged
// if all sinks are aborted.
func abort(errRun error, sinks ...Sink) error {
	var errAbort error
	for _, s := range sinks {
		if a, ok := s.(Aborter); ok {
			if err := a.Abort(); err != nil && errAbort == nil {
				errAbort = err
			}
		}
	}
	if errAbort != nil {
		return &ErrorRun{ErrRun: errRun, ErrAbort: errAbort}
	}
	return errRun
}
