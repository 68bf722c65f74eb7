// Package vocoder implements a phase vocoder time stretcher. It changes the
// duration of the signal without changing its pitch.
//
// Engine follows the block-oriented contract of stretch.Engine: it asks
// for input with SamplesRequired, accepts any amount of it with Process
// and buffers the output until it's retrieved.
package vocoder

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/dsp/fourier"

	"pipelined.dev/stretch"
	"pipelined.dev/stretch/option"
	"pipelined.dev/stretch/signal"
)

var (
	// ErrInvalidRatio is returned when time ratio is not positive.
	ErrInvalidRatio = errors.New("invalid time ratio")
	// ErrInvalidFormat is returned for zero channels or sample rate.
	ErrInvalidFormat = errors.New("invalid signal format")
)

const (
	// standard window size for sample rates up to 48 kHz.
	standardWindow = 2048
	highRate       = 48000
)

// Engine is a phase vocoder. Engine is not safe for concurrent use, but
// it processes channels in parallel when threading is enabled.
type Engine struct {
	ratio     float64
	size      int // window size
	hop       int // synthesis hop
	step      float64
	threaded  bool
	midSide   bool
	channels  []*channel
	window    []float64
	scale     float64
	base      int     // absolute index of the first buffered input frame
	buffered  int     // buffered input frames
	received  int     // total input frames, start pad included
	pos       float64 // absolute position of the next analysis frame
	lastStart int
	produced  int
	target    int
	final     bool
	ready     signal.Float32
	fault     error
}

// frame describes a single analysis-synthesis step.
type frame struct {
	offset   int // frame start relative to buffered input
	analysis int // analysis hop, zero for the first frame
	emit     int // output frames completed by this frame
	first    bool
}

var _ stretch.Engine = (*Engine)(nil)

// New returns a new engine for the signal format. The ratio is the output
// to input duration ratio.
func New(sampleRate, channels int, options option.Set, ratio float64) (*Engine, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%d Hz %d channels: %w", sampleRate, channels, ErrInvalidFormat)
	}
	if !(ratio > 0) || math.IsInf(ratio, 0) {
		return nil, fmt.Errorf("%v: %w", ratio, ErrInvalidRatio)
	}
	size := standardWindow
	if sampleRate > highRate {
		size *= 2
	}
	switch {
	case options.Has(option.WindowShort):
		size /= 2
	case options.Has(option.WindowLong):
		size *= 2
	}
	hop := size / 4
	if options.Has(option.EngineFiner) {
		hop = size / 8
	}

	threaded := channels > 1
	switch {
	case options.Has(option.ThreadingNever):
		threaded = false
	case options.Has(option.ThreadingAlways):
		threaded = true
	}

	e := Engine{
		ratio:     ratio,
		size:      size,
		hop:       hop,
		step:      float64(hop) / ratio,
		threaded:  threaded,
		midSide:   channels == 2 && options.Has(option.ChannelsTogether),
		channels:  make([]*channel, channels),
		window:    hann(size),
		lastStart: -1,
		ready:     signal.Allocate(channels, 0),
	}
	// sum of squared hann windows overlapped with hop is 3*size/(8*hop).
	e.scale = 8 * float64(hop) / (3 * float64(size)) / float64(size)
	for i := range e.channels {
		e.channels[i] = newChannel(size)
	}
	return &e, nil
}

// Allocator returns a stretch.EngineAllocatorFunc for provided options
// and ratio.
func Allocator(options option.Set, ratio float64) stretch.EngineAllocatorFunc {
	return func(sampleRate, channels int) (stretch.Engine, error) {
		return New(sampleRate, channels, options, ratio)
	}
}

// PreferredStartPad returns half a window. It centers the first analysis
// frame on the first input frame.
func (e *Engine) PreferredStartPad() int {
	return e.size / 2
}

// StartDelay returns the number of frames the output lags behind the
// input, start pad included.
func (e *Engine) StartDelay() int {
	return e.size / 2
}

// SamplesRequired returns the number of input frames needed to produce
// the next output.
func (e *Engine) SamplesRequired() int {
	if e.final {
		return 0
	}
	need := int(math.Floor(e.pos)) + e.size - (e.base + e.buffered)
	return max(need, 1)
}

// Process buffers the input and processes every complete frame. After the
// final block the input is padded with silence until the output reaches
// its expected length.
func (e *Engine) Process(in signal.Float32, final bool) {
	if e.final || e.fault != nil {
		return
	}
	if in.Channels() != len(e.channels) && in.Size() > 0 {
		e.fault = fmt.Errorf("process %d channels: %w", in.Channels(), ErrInvalidFormat)
		return
	}
	if err := e.push(in); err != nil {
		e.fault = err
		return
	}
	if final {
		e.final = true
		input := max(e.received-e.PreferredStartPad(), 0)
		e.target = e.StartDelay() + int(math.Round(float64(input)*e.ratio))
	}
	frames := e.plan()
	if err := e.synthesize(frames); err != nil {
		e.fault = err
		return
	}
	e.collect()
	e.consume()
}

// Available returns the number of frames ready to retrieve or -1 if the
// engine failed.
func (e *Engine) Available() int {
	if e.fault != nil {
		return -1
	}
	return e.ready.Size()
}

// Retrieve moves ready frames into the buffer.
func (e *Engine) Retrieve(out signal.Float32) int {
	n := out.CopyFrom(e.ready)
	e.ready = e.ready.Offset(n)
	return n
}

// Err returns the reason of engine fault.
func (e *Engine) Err() error {
	return e.fault
}

// push appends the input to the channel buffers.
func (e *Engine) push(in signal.Float32) error {
	n := in.Size()
	for i, c := range e.channels {
		for j := 0; j < n; j++ {
			v := float64(in[i][j])
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("channel %d frame %d: non-finite sample", i, e.received+j)
			}
		}
		c.push(in[i])
	}
	if e.midSide {
		toMidSide(e.channels[0].in[e.buffered:], e.channels[1].in[e.buffered:])
	}
	e.buffered += n
	e.received += n
	return nil
}

// plan returns frames which can be processed with buffered input. After
// the final block the input is padded with silence to complete the output.
func (e *Engine) plan() []frame {
	var frames []frame
	for {
		if e.final && e.produced >= e.target {
			return frames
		}
		start := int(math.Floor(e.pos))
		if start+e.size > e.base+e.buffered {
			if !e.final {
				return frames
			}
			for _, c := range e.channels {
				c.pad(e.size)
			}
			e.buffered += e.size
			continue
		}
		f := frame{
			offset: start - e.base,
			emit:   e.hop,
			first:  e.lastStart < 0,
		}
		if !f.first {
			f.analysis = start - e.lastStart
		}
		if e.final {
			f.emit = min(f.emit, e.target-e.produced)
		}
		frames = append(frames, f)
		e.lastStart = start
		e.produced += f.emit
		e.pos += e.step
	}
}

// synthesize processes frames for every channel.
func (e *Engine) synthesize(frames []frame) error {
	if len(frames) == 0 {
		return nil
	}
	if !e.threaded {
		for _, c := range e.channels {
			c.process(frames, e.window, e.hop, e.scale)
		}
		return nil
	}
	var g errgroup.Group
	for _, c := range e.channels {
		c := c
		g.Go(func() error {
			c.process(frames, e.window, e.hop, e.scale)
			return nil
		})
	}
	return g.Wait()
}

// collect moves synthesized frames into ready output.
func (e *Engine) collect() {
	n := len(e.channels[0].out)
	if n == 0 {
		return
	}
	out := signal.Allocate(len(e.channels), n)
	for i, c := range e.channels {
		copy(out[i], c.out)
		c.out = c.out[:0]
	}
	if e.midSide {
		fromMidSide(out[0], out[1])
	}
	e.ready = e.ready.Append(out)
}

// consume drops buffered input before the next analysis frame.
func (e *Engine) consume() {
	n := min(int(math.Floor(e.pos))-e.base, e.buffered)
	if n <= 0 {
		return
	}
	for _, c := range e.channels {
		c.in = c.in[n:]
	}
	e.base += n
	e.buffered -= n
}

// channel holds the state of a single channel.
type channel struct {
	fft    *fourier.FFT
	in     []float32
	seq    []float64
	coeffs []complex128
	phase  []float64 // analysis phase of the previous frame
	synth  []float64 // accumulated synthesis phase
	acc    []float64 // overlap-add accumulator
	out    []float32
}

func newChannel(size int) *channel {
	bins := size/2 + 1
	return &channel{
		fft:    fourier.NewFFT(size),
		seq:    make([]float64, size),
		coeffs: make([]complex128, bins),
		phase:  make([]float64, bins),
		synth:  make([]float64, bins),
		acc:    make([]float64, size),
	}
}

func (c *channel) push(in []float32) {
	c.in = append(c.in, in...)
}

func (c *channel) pad(frames int) {
	c.in = append(c.in, make([]float32, frames)...)
}

// process runs analysis, phase propagation and overlap-add synthesis for
// every frame.
func (c *channel) process(frames []frame, window []float64, hop int, scale float64) {
	size := len(window)
	for _, f := range frames {
		for i := range c.seq {
			c.seq[i] = float64(c.in[f.offset+i]) * window[i]
		}
		c.fft.Coefficients(c.coeffs, c.seq)
		for k, v := range c.coeffs {
			magnitude, phase := cmplx.Abs(v), cmplx.Phase(v)
			switch {
			case f.first:
				c.synth[k] = phase
			case f.analysis == 0:
				c.synth[k] += binFrequency(k, size) * float64(hop)
			default:
				omega := binFrequency(k, size)
				deviation := wrap(phase - c.phase[k] - omega*float64(f.analysis))
				c.synth[k] += (omega + deviation/float64(f.analysis)) * float64(hop)
			}
			c.phase[k] = phase
			c.coeffs[k] = cmplx.Rect(magnitude, c.synth[k])
		}
		c.fft.Sequence(c.seq, c.coeffs)
		for i, v := range c.seq {
			c.acc[i] += v * window[i] * scale
		}
		for i := 0; i < f.emit; i++ {
			c.out = append(c.out, float32(c.acc[i]))
		}
		copy(c.acc, c.acc[hop:])
		clear(c.acc[size-hop:])
	}
}

// binFrequency returns the center frequency of the bin in radians per
// frame.
func binFrequency(k, size int) float64 {
	return 2 * math.Pi * float64(k) / float64(size)
}

// wrap maps the phase into [-pi, pi].
func wrap(phase float64) float64 {
	return phase - 2*math.Pi*math.Round(phase/(2*math.Pi))
}

// hann returns periodic hann window.
func hann(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size))
	}
	return w
}

func toMidSide(left, right []float32) {
	for i := range left {
		l, r := left[i], right[i]
		left[i], right[i] = (l+r)/2, (l-r)/2
	}
}

func fromMidSide(mid, side []float32) {
	for i := range mid {
		m, s := mid[i], side[i]
		mid[i], side[i] = m+s, m-s
	}
}
