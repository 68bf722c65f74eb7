package stretch

import "pipelined.dev/stretch/signal"

// Engine is a stateful block transform which stretches the signal. It
// demands variable number of frames per step, introduces fixed output
// latency and buffers processed frames internally.
type Engine interface {
	// PreferredStartPad returns the number of silent frames the engine
	// wants to receive before the signal. Valid before the first Process
	// call only.
	PreferredStartPad() int
	// StartDelay returns the number of frames which must be discarded from
	// the head of the output.
	StartDelay() int
	// SamplesRequired returns the number of frames the engine wants for its
	// next step.
	SamplesRequired() int
	// Process consumes all frames of the buffer. Final must be true for the
	// last block only, the engine then flushes its backlog.
	Process(in signal.Float32, final bool)
	// Available returns the number of processed frames ready to be
	// retrieved. -1 means an unrecoverable engine error.
	Available() int
	// Retrieve moves up to out.Size() processed frames into the buffer and
	// returns the number of moved frames.
	Retrieve(out signal.Float32) int
}

// EngineAllocatorFunc returns a fresh engine for the signal properties.
type EngineAllocatorFunc func(sampleRate, channels int) (Engine, error)
