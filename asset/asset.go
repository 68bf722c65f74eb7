// Package asset provides in-memory signal storage which can be used both
// as a source and as a sink of stretch runs.
package asset

import (
	"io"

	"pipelined.dev/stretch/signal"
)

// Asset is a source and a sink which uses a regular buffer as underlying
// storage. Reads consume the buffer from the start, writes append to the
// end of it.
type Asset struct {
	sampleRate int
	data       signal.Float32
	read       int
}

// New returns an asset which sources provided data. Data is not copied.
func New(sampleRate int, data signal.Float32) *Asset {
	return &Asset{
		sampleRate: sampleRate,
		data:       data,
	}
}

// Empty returns an asset without frames, ready to sink signal with
// provided number of channels.
func Empty(sampleRate, channels int) *Asset {
	return New(sampleRate, signal.Allocate(channels, 0))
}

// SampleRate of the asset signal.
func (a *Asset) SampleRate() int {
	return a.sampleRate
}

// Channels returns number of channels of the asset signal.
func (a *Asset) Channels() int {
	return a.data.Channels()
}

// Remaining returns number of frames which weren't read yet.
func (a *Asset) Remaining() int {
	return a.data.Size() - a.read
}

// Read copies next frames into provided buffer. It returns io.EOF if
// there are no frames left.
func (a *Asset) Read(out signal.Float32) (int, error) {
	if out.Size() == 0 {
		return 0, nil
	}
	if a.Remaining() == 0 {
		return 0, io.EOF
	}
	n := out.CopyFrom(a.data.Offset(a.read))
	a.read += n
	return n, nil
}

// Write appends frames to the asset.
func (a *Asset) Write(in signal.Float32) error {
	a.data = a.data.Append(in)
	return nil
}

// Data returns the whole asset signal.
func (a *Asset) Data() signal.Float32 {
	return a.data
}
