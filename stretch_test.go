package stretch_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pipelined.dev/stretch"
	"pipelined.dev/stretch/asset"
	"pipelined.dev/stretch/mock"
	"pipelined.dev/stretch/option"
	"pipelined.dev/stretch/signal"
	"pipelined.dev/stretch/vocoder"
)

const sampleRate = 44100

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ramp returns a signal where every frame holds its index.
func ramp(channels, frames int) signal.Float32 {
	s := signal.Allocate(channels, frames)
	for i := range s {
		for j := range s[i] {
			s[i][j] = float32(j + i*frames)
		}
	}
	return s
}

func TestRun(t *testing.T) {
	tests := []struct {
		description string
		engine      mock.Engine
		channels    int
		frames      int
		blocks      int
	}{
		{
			description: "no delay",
			engine:      mock.Engine{Required: []int{100}},
			channels:    2,
			frames:      1000,
			blocks:      10,
		},
		{
			description: "delay and pad",
			engine:      mock.Engine{Pad: 64, Delay: 37, Required: []int{100}},
			channels:    1,
			frames:      1001,
			blocks:      11,
		},
		{
			description: "delay longer than first block",
			engine:      mock.Engine{Delay: 250, Required: []int{10, 20, 300}},
			channels:    2,
			frames:      500,
			blocks:      4,
		},
		{
			description: "delay trimmed while draining",
			engine:      mock.Engine{Delay: 25, Hold: 10000, DrainChunk: 10, Required: []int{64}},
			channels:    2,
			frames:      200,
			blocks:      4,
		},
		{
			description: "required exactly remaining",
			engine:      mock.Engine{Delay: 3, Required: []int{500}},
			channels:    1,
			frames:      500,
			blocks:      1,
		},
		{
			description: "empty source",
			engine:      mock.Engine{Pad: 16, Delay: 40},
			channels:    2,
			frames:      0,
			blocks:      1,
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			engine := test.engine
			in := ramp(test.channels, test.frames)
			sink := asset.Empty(sampleRate, test.channels)
			stats, err := stretch.Run(asset.New(sampleRate, in), sink, &engine)
			require.NoError(t, err)

			// lead delay is trimmed exactly.
			assert.Equal(t, in, sink.Data())
			assert.Equal(t, test.frames+test.engine.Delay, stats.Retrieved)
			assert.Equal(t, test.engine.Delay, stats.Trimmed)
			assert.Equal(t, test.frames, stats.Written)
			assert.Equal(t, test.frames, stats.Read)
			assert.Equal(t, test.blocks, stats.Blocks)

			// priming happens once and final block is the last one.
			require.Len(t, engine.Calls, test.blocks+1)
			assert.Equal(t, mock.Call{Frames: test.engine.Pad}, engine.Calls[0])
			assert.Equal(t, 1, engine.Final())
			assert.True(t, engine.Calls[len(engine.Calls)-1].Final)
			assert.Equal(t, 0, engine.Available())
		})
	}
}

func TestRunLongDelay(t *testing.T) {
	engine := mock.Engine{Delay: 1000, Required: []int{10}}
	sink := &mock.Sink{}
	_, err := sink.Allocator(nil)(sampleRate, 1)
	require.NoError(t, err)

	stats, err := stretch.Run(&mock.Source{SampleRateValue: sampleRate, ChannelsValue: 1, Limit: 50, Value: 0.5}, sink, &engine)
	require.NoError(t, err)
	assert.Equal(t, 50, stats.Written)
	assert.Equal(t, 1000, stats.Trimmed)
	blocks, frames := sink.Count()
	assert.Equal(t, 5, blocks)
	assert.Equal(t, 50, frames)
}

func TestRunErrors(t *testing.T) {
	errRead := errors.New("read")
	errWrite := errors.New("write")
	tests := []struct {
		description string
		engine      mock.Engine
		source      mock.Source
		sink        mock.Sink
		expected    error
	}{
		{
			description: "engine fault",
			engine:      mock.Engine{FaultAt: 2, Required: []int{10}},
			source:      mock.Source{ChannelsValue: 2, Limit: 100},
			expected:    stretch.ErrEngineFault,
		},
		{
			description: "engine fault on final block",
			engine:      mock.Engine{FaultAt: 2, Hold: 100, DrainChunk: 1, Required: []int{10}},
			source:      mock.Source{ChannelsValue: 2, Limit: 15},
			expected:    stretch.ErrEngineFault,
		},
		{
			description: "read error",
			engine:      mock.Engine{Required: []int{10}},
			source:      mock.Source{ChannelsValue: 1, Limit: 100, ErrorOnRead: errRead},
			expected:    errRead,
		},
		{
			description: "short read",
			engine:      mock.Engine{Required: []int{10}},
			source:      mock.Source{ChannelsValue: 1, Limit: 100, ShortBy: 1},
			expected:    stretch.ErrShortRead,
		},
		{
			description: "write error",
			engine:      mock.Engine{Required: []int{10}},
			source:      mock.Source{ChannelsValue: 1, Limit: 100},
			sink:        mock.Sink{ErrorOnWrite: errWrite},
			expected:    errWrite,
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			engine, source, sink := test.engine, test.source, test.sink
			source.SampleRateValue = sampleRate
			_, err := stretch.Run(&source, &sink, &engine)
			assert.ErrorIs(t, err, test.expected)
		})
	}
}

func TestRunFaultStats(t *testing.T) {
	engine := mock.Engine{FaultAt: 2, Required: []int{10}}
	source := mock.Source{SampleRateValue: sampleRate, ChannelsValue: 1, Limit: 100}
	stats, err := stretch.Run(&source, &mock.Sink{}, &engine)
	assert.ErrorIs(t, err, stretch.ErrEngineFault)
	assert.Equal(t, 2, stats.Blocks)
	assert.Equal(t, 20, stats.Read)
	assert.Equal(t, 10, stats.Written)
}

func TestRunShortRetrieve(t *testing.T) {
	engine := mock.Engine{ShortRetrieve: true, Required: []int{10}}
	source := mock.Source{SampleRateValue: sampleRate, ChannelsValue: 1, Limit: 100}
	assert.Panics(t, func() {
		_, _ = stretch.Run(&source, &mock.Sink{}, &engine)
	})
}

func TestSingle(t *testing.T) {
	errAllocate := errors.New("allocate")
	errAbort := errors.New("abort")
	errCommit := errors.New("commit")
	tests := []struct {
		description  string
		engines      mock.Allocator
		source       mock.Source
		sink         mock.Sink
		sinkErr      error
		expected     error
		committed    bool
		aborted      bool
		errorRunType bool
	}{
		{
			description: "ok",
			engines:     mock.Allocator{Template: mock.Engine{Delay: 5}},
			source:      mock.Source{ChannelsValue: 2, Limit: 1000},
			committed:   true,
		},
		{
			description: "engine allocation error",
			engines:     mock.Allocator{ErrorOnAllocate: errAllocate},
			source:      mock.Source{ChannelsValue: 2, Limit: 1000},
			expected:    errAllocate,
		},
		{
			description: "sink allocation error",
			source:      mock.Source{ChannelsValue: 2, Limit: 1000},
			sinkErr:     errAllocate,
			expected:    errAllocate,
		},
		{
			description: "fault aborts sink",
			engines:     mock.Allocator{Template: mock.Engine{FaultAt: 1}},
			source:      mock.Source{ChannelsValue: 2, Limit: 1000},
			expected:    stretch.ErrEngineFault,
			aborted:     true,
		},
		{
			description:  "abort error",
			engines:      mock.Allocator{Template: mock.Engine{FaultAt: 1}},
			source:       mock.Source{ChannelsValue: 2, Limit: 1000},
			sink:         mock.Sink{Hooks: mock.Hooks{ErrorOnAbort: errAbort}},
			expected:     errAbort,
			aborted:      true,
			errorRunType: true,
		},
		{
			description: "commit error",
			engines:     mock.Allocator{},
			source:      mock.Source{ChannelsValue: 1, Limit: 10},
			sink:        mock.Sink{Hooks: mock.Hooks{ErrorOnCommit: errCommit}},
			expected:    errCommit,
			committed:   true,
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			engines, source, sink := test.engines, test.source, test.sink
			source.SampleRateValue = sampleRate
			stats, err := stretch.Single(&source, engines.Allocate, sink.Allocator(test.sinkErr))
			if test.expected == nil {
				assert.NoError(t, err)
				assert.Equal(t, source.Limit, stats.Written)
				assert.Equal(t, source.Limit, sink.Buffer().Size())
				assert.Equal(t, sampleRate, sink.SampleRate)
				assert.Equal(t, source.ChannelsValue, sink.Channels)
			} else {
				assert.ErrorIs(t, err, test.expected)
			}
			var errorRun *stretch.ErrorRun
			assert.Equal(t, test.errorRunType, errors.As(err, &errorRun))
			assert.Equal(t, test.committed, sink.Committed)
			assert.Equal(t, test.aborted, sink.Aborted)
		})
	}
}

func TestErrorRun(t *testing.T) {
	err := &stretch.ErrorRun{ErrRun: stretch.ErrEngineFault, ErrAbort: io.ErrClosedPipe}
	assert.ErrorIs(t, err, stretch.ErrEngineFault)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.NotErrorIs(t, err, stretch.ErrNotStereo)
	assert.Equal(t, "abort error: io: read/write on closed pipe after run error: engine fault", err.Error())
}

func TestRunVocoder(t *testing.T) {
	tests := []struct {
		description string
		channels    int
		frames      int
		ratio       float64
		expected    int
	}{
		{
			description: "stereo silence unchanged",
			channels:    2,
			frames:      48000,
			ratio:       1,
			expected:    48000,
		},
		{
			description: "stereo silence doubled",
			channels:    2,
			frames:      48000,
			ratio:       2,
			expected:    96000,
		},
		{
			description: "mono halved",
			channels:    1,
			frames:      44100,
			ratio:       0.5,
			expected:    22050,
		},
		{
			description: "empty",
			channels:    2,
			frames:      0,
			ratio:       2,
			expected:    0,
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			sink := &mock.Sink{}
			stats, err := stretch.Single(
				asset.New(48000, signal.Allocate(test.channels, test.frames)),
				vocoder.Allocator(option.Merge(), test.ratio),
				sink.Allocator(nil),
			)
			require.NoError(t, err)
			assert.Equal(t, test.expected, stats.Written)
			assert.Equal(t, test.expected, sink.Buffer().Size())
			assert.True(t, sink.Committed)
			for _, channel := range sink.Buffer() {
				for _, v := range channel {
					require.Zero(t, v)
				}
			}
		})
	}
}
