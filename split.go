package stretch

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"pipelined.dev/stretch/asset"
	"pipelined.dev/stretch/signal"
)

// SplitStats describes the frames flow of a split run.
type SplitStats struct {
	Stereo Stats
	Left   Stats
	Right  Stats
	// Frames is the length of dual-mono output.
	Frames int
	// LengthMismatch is the difference between lengths of independently
	// stretched channels. Shorter channel is padded with silence.
	LengthMismatch int
}

// Split stretches the stereo source three times: both channels together
// into stereo sink, then left and right channels with independent mono
// engines. Mono results are multiplexed back into the dual-mono sink.
//
// Lengths of mono results are not guaranteed to match, even for
// identical channels. The dual-mono output has the length of the longest
// one and the shorter channel is zero-filled.
//
// If the source doesn't have exactly two channels, ErrNotStereo is
// returned and no sinks are allocated. If any of passes fails, allocated
// sinks are aborted.
func Split(source Source, engines EngineAllocatorFunc, stereo, dualMono SinkAllocatorFunc, options ...Option) (SplitStats, error) {
	var stats SplitStats
	if channels := source.Channels(); channels != 2 {
		return stats, fmt.Errorf("%d channels: %w", channels, ErrNotStereo)
	}
	c := newConfig(options)
	sampleRate := source.SampleRate()

	in := signal.Allocate(2, source.Remaining())
	if in.Size() > 0 {
		if err := read(source, in); err != nil {
			return stats, err
		}
	}

	pass := func(name string, in signal.Float32, sink Sink) (Stats, error) {
		engine, err := engines(sampleRate, in.Channels())
		if err != nil {
			return Stats{}, fmt.Errorf("%s: allocate engine: %w", name, err)
		}
		pc := c
		pc.logger = c.logger.WithField("pass", name)
		s, err := run(pc, asset.New(sampleRate, in), sink, engine)
		if err != nil {
			return s, fmt.Errorf("%s: %w", name, err)
		}
		return s, nil
	}

	stereoSink, err := stereo(sampleRate, 2)
	if err != nil {
		return stats, fmt.Errorf("allocate stereo sink: %w", err)
	}
	if stats.Stereo, err = pass("stereo", in, stereoSink); err != nil {
		return stats, abort(err, stereoSink)
	}

	left, right := asset.Empty(sampleRate, 1), asset.Empty(sampleRate, 1)
	if stats.Left, err = pass("left", in.Channel(0), left); err != nil {
		return stats, abort(err, stereoSink)
	}
	if stats.Right, err = pass("right", in.Channel(1), right); err != nil {
		return stats, abort(err, stereoSink)
	}

	leftSize, rightSize := left.Data().Size(), right.Data().Size()
	stats.Frames = max(leftSize, rightSize)
	stats.LengthMismatch = stats.Frames - min(leftSize, rightSize)
	if stats.LengthMismatch != 0 {
		c.logger.WithFields(logrus.Fields{
			"run":   c.id,
			"left":  leftSize,
			"right": rightSize,
		}).Warn("mono passes produced different lengths")
	}
	out := signal.Allocate(2, stats.Frames)
	out.Channel(0).CopyFrom(left.Data())
	out.Channel(1).CopyFrom(right.Data())

	dualMonoSink, err := dualMono(sampleRate, 2)
	if err != nil {
		return stats, abort(fmt.Errorf("allocate dual-mono sink: %w", err), stereoSink)
	}
	if err := dualMonoSink.Write(out); err != nil {
		return stats, abort(fmt.Errorf("dual-mono: write %d frames: %w", stats.Frames, err), stereoSink, dualMonoSink)
	}
	return stats, commit(stereoSink, dualMonoSink)
}
