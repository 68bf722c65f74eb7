// Package mock provides mocks for stretch components and allows to
// execute driver tests without real signal processing.
package mock

import (
	"io"

	"pipelined.dev/stretch"
	"pipelined.dev/stretch/signal"
)

// DelayValue is the value of start delay frames produced by Engine.
const DelayValue = -1

// Call is a recorded Engine.Process call.
type Call struct {
	Frames int
	Final  bool
}

// Engine mocks a stretch.Engine interface. It passes the signal through
// unchanged, prefixed with Delay frames of DelayValue. The first Process
// call is considered as priming and its frames are dropped.
type Engine struct {
	Pad   int
	Delay int
	// Required is the sequence of SamplesRequired values, the last value
	// is repeated. If empty, 512 is used.
	Required []int
	// Hold is the number of latest frames kept back until the final call.
	Hold int
	// DrainChunk limits the number of frames released per Retrieve after
	// the final call. Zero means everything is released at once.
	DrainChunk int
	// Tail is the number of silent frames appended to the output after
	// the final call.
	Tail int
	// FaultAt makes Available return -1 after this number of non-priming
	// Process calls. Zero means no fault.
	FaultAt int
	// ShortRetrieve makes Retrieve move one frame less than requested.
	ShortRetrieve bool

	SampleRate int
	Channels   int
	Calls      []Call

	pending signal.Float32
	ready   signal.Float32
	backlog signal.Float32
	final   bool
}

var _ stretch.Engine = (*Engine)(nil)

// PreferredStartPad implements stretch.Engine.
func (e *Engine) PreferredStartPad() int {
	return e.Pad
}

// StartDelay implements stretch.Engine.
func (e *Engine) StartDelay() int {
	return e.Delay
}

// SamplesRequired implements stretch.Engine.
func (e *Engine) SamplesRequired() int {
	if len(e.Required) == 0 {
		return 512
	}
	// priming call is not counted.
	i := len(e.Calls) - 1
	if i < 0 {
		i = 0
	}
	if i >= len(e.Required) {
		i = len(e.Required) - 1
	}
	return e.Required[i]
}

// Process implements stretch.Engine.
func (e *Engine) Process(in signal.Float32, final bool) {
	e.Calls = append(e.Calls, Call{Frames: in.Size(), Final: final})
	if e.final {
		return
	}
	if len(e.Calls) == 1 {
		e.Channels = in.Channels()
		e.pending = signal.Allocate(e.Channels, 0)
		e.ready = signal.Allocate(e.Channels, 0)
		e.backlog = signal.Allocate(e.Channels, 0)
		return
	}
	if len(e.Calls) == 2 {
		e.pending = e.pending.Append(fill(e.Channels, e.Delay, DelayValue))
	}
	e.pending = e.pending.Append(in)
	if final {
		e.final = true
		e.backlog = e.pending.Append(fill(e.Channels, e.Tail, 0))
		e.pending = signal.Allocate(e.Channels, 0)
		e.release()
		return
	}
	if n := e.pending.Size() - e.Hold; n > 0 {
		e.ready = e.ready.Append(e.pending.Slice(0, n))
		e.pending = e.pending.Offset(n)
	}
}

// release moves backlog frames into ready output.
func (e *Engine) release() {
	n := e.backlog.Size()
	if e.DrainChunk > 0 && n > e.DrainChunk {
		n = e.DrainChunk
	}
	e.ready = e.ready.Append(e.backlog.Slice(0, n))
	e.backlog = e.backlog.Offset(n)
}

// Available implements stretch.Engine.
func (e *Engine) Available() int {
	if e.FaultAt > 0 && len(e.Calls)-1 >= e.FaultAt {
		return -1
	}
	return e.ready.Size()
}

// Retrieve implements stretch.Engine.
func (e *Engine) Retrieve(out signal.Float32) int {
	n := min(out.Size(), e.ready.Size())
	if e.ShortRetrieve && n > 0 {
		n--
	}
	out.Slice(0, n).CopyFrom(e.ready)
	e.ready = e.ready.Offset(n)
	if e.final && e.ready.Size() == 0 {
		e.release()
	}
	return n
}

// Final returns the number of Process calls with final flag.
func (e *Engine) Final() int {
	var n int
	for _, c := range e.Calls {
		if c.Final {
			n++
		}
	}
	return n
}

func fill(channels, frames int, value float32) signal.Float32 {
	b := signal.Allocate(channels, frames)
	for i := range b {
		for j := range b[i] {
			b[i][j] = value
		}
	}
	return b
}

// Allocator makes engines from the template and records them.
type Allocator struct {
	Template Engine
	// Tails overrides template Tail for engines in allocation order.
	Tails           []int
	ErrorOnAllocate error
	Engines         []*Engine
}

// Allocate implements stretch.EngineAllocatorFunc.
func (a *Allocator) Allocate(sampleRate, channels int) (stretch.Engine, error) {
	if a.ErrorOnAllocate != nil {
		return nil, a.ErrorOnAllocate
	}
	e := a.Template
	e.SampleRate = sampleRate
	e.Calls = nil
	if i := len(a.Engines); i < len(a.Tails) {
		e.Tail = a.Tails[i]
	}
	a.Engines = append(a.Engines, &e)
	return &e, nil
}

// Source mocks a stretch.Source interface. It sources Limit frames of
// Value.
type Source struct {
	counter
	SampleRateValue int
	ChannelsValue   int
	Limit           int
	Value           float32
	// ShortBy makes Read return less frames than requested.
	ShortBy     int
	ErrorOnRead error
}

var _ stretch.Source = (*Source)(nil)

// SampleRate implements stretch.Source.
func (m *Source) SampleRate() int {
	return m.SampleRateValue
}

// Channels implements stretch.Source.
func (m *Source) Channels() int {
	return m.ChannelsValue
}

// Remaining implements stretch.Source.
func (m *Source) Remaining() int {
	return m.Limit - m.frames
}

// Read implements stretch.Source.
func (m *Source) Read(out signal.Float32) (int, error) {
	if m.ErrorOnRead != nil {
		return 0, m.ErrorOnRead
	}
	n := min(out.Size(), m.Remaining()) - m.ShortBy
	if n <= 0 {
		return 0, io.EOF
	}
	for i := range out {
		for j := 0; j < n; j++ {
			out[i][j] = m.Value
		}
	}
	m.advance(n)
	return n, nil
}

// Sink mocks up a stretch.Sink interface.
type Sink struct {
	counter
	Hooks
	buffer       signal.Float32
	SampleRate   int
	Channels     int
	ErrorOnWrite error
}

var (
	_ stretch.Sink      = (*Sink)(nil)
	_ stretch.Committer = (*Sink)(nil)
	_ stretch.Aborter   = (*Sink)(nil)
)

// Allocator returns allocator of this sink.
func (m *Sink) Allocator(err error) stretch.SinkAllocatorFunc {
	return func(sampleRate, channels int) (stretch.Sink, error) {
		if err != nil {
			return nil, err
		}
		m.SampleRate = sampleRate
		m.Channels = channels
		m.buffer = signal.Allocate(channels, 0)
		return m, nil
	}
}

// Write implements stretch.Sink.
func (m *Sink) Write(in signal.Float32) error {
	if m.ErrorOnWrite != nil {
		return m.ErrorOnWrite
	}
	m.buffer = m.buffer.Append(in)
	m.advance(in.Size())
	return nil
}

// Commit implements stretch.Committer.
func (m *Sink) Commit() error {
	m.Committed = true
	return m.ErrorOnCommit
}

// Abort implements stretch.Aborter.
func (m *Sink) Abort() error {
	m.Aborted = true
	return m.ErrorOnAbort
}

// Buffer returns sink's buffer.
func (m *Sink) Buffer() signal.Float32 {
	return m.buffer
}

// Hooks allows to mock sink hooks.
type Hooks struct {
	Committed bool
	Aborted   bool

	ErrorOnCommit error
	ErrorOnAbort  error
}

// counter counts blocks and frames.
type counter struct {
	blocks int
	frames int
}

// advance counter's metrics.
func (c *counter) advance(size int) {
	c.blocks++
	c.frames = c.frames + size
}

// Count returns blocks and frames metrics.
func (c *counter) Count() (int, int) {
	return c.blocks, c.frames
}
