// Package signal provides the sample buffers exchanged between sources,
// the stretch engine and sinks. It allows to:
// 	- allocate non-interleaved float32 buffers and take views of them
// 	- convert interleaved int data to non-interleaved float32 and back
package signal

import (
	"time"
)

// Float32 is a non-interleaved float32 signal. The first dimension is for
// channels, the second one for frames. All channels have the same length.
type Float32 [][]float32

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth24 is 24 bit depth.
	BitDepth24 = BitDepth(24)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// BitDepth contains values required for int-to-float and backward conversion.
type BitDepth int

// InterInt is an interleaved int signal.
type InterInt struct {
	Data     []int
	Channels int
	BitDepth
}

// divider is used when int to float conversion is done.
func (bitDepth BitDepth) divider() float32 {
	switch bitDepth {
	case BitDepth8, BitDepth16, BitDepth24, BitDepth32:
		return float32(int64(1) << uint(bitDepth-1))
	default:
		return 1
	}
}

// multiplier is used when float to int conversion is done.
func (bitDepth BitDepth) multiplier() float64 {
	switch bitDepth {
	case BitDepth8, BitDepth16, BitDepth24, BitDepth32:
		return float64(int64(1)<<uint(bitDepth-1) - 1)
	default:
		return 1
	}
}

// DurationOf returns time duration of passed frames for this sample rate.
func DurationOf(sampleRate int, frames int64) time.Duration {
	if sampleRate == 0 {
		return 0
	}
	return time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
}

// Allocate returns a zero-filled buffer of specified dimensions.
func Allocate(channels, frames int) Float32 {
	result := make([][]float32, channels)
	for i := range result {
		result[i] = make([]float32, frames)
	}
	return result
}

// Channels returns number of channels in this buffer.
func (floats Float32) Channels() int {
	return len(floats)
}

// Size returns number of frames in this buffer.
func (floats Float32) Size() int {
	if floats.Channels() == 0 {
		return 0
	}
	return len(floats[0])
}

// Offset returns a view of the buffer with every channel advanced by k
// frames. The view shares storage with the buffer. Caller must ensure
// 0 <= k <= Size(), otherwise Offset panics.
func (floats Float32) Offset(k int) Float32 {
	return floats.Slice(k, floats.Size())
}

// Slice returns a view of frames [start, end) of every channel. The view
// shares storage with the buffer. Out of range bounds panic.
func (floats Float32) Slice(start, end int) Float32 {
	result := make([][]float32, len(floats))
	for i := range floats {
		result[i] = floats[i][start:end:end]
	}
	return result
}

// Channel returns a single-channel view of channel i.
func (floats Float32) Channel(i int) Float32 {
	return Float32{floats[i]}
}

// CopyFrom copies frames from source into buffer. Only common channels
// and frames are copied. Number of copied frames is returned.
func (floats Float32) CopyFrom(source Float32) int {
	channels := floats.Channels()
	if source.Channels() < channels {
		channels = source.Channels()
	}
	if channels == 0 {
		return 0
	}
	var n int
	for i := 0; i < channels; i++ {
		n = copy(floats[i], source[i])
	}
	return n
}

// Append source frames to the buffer. New buffer is allocated if floats
// is nil.
func (floats Float32) Append(source Float32) Float32 {
	if floats == nil {
		floats = make([][]float32, source.Channels())
		for i := range floats {
			floats[i] = make([]float32, 0, source.Size())
		}
	}
	for i := range source {
		floats[i] = append(floats[i], source[i]...)
	}
	return floats
}

// CopyTo de-interleaves int signal into provided buffer, normalizing
// values with bit depth. Number of written frames is returned. It's
// limited by the buffer size and amount of complete frames in data.
func (ints InterInt) CopyTo(floats Float32) int {
	if ints.Channels == 0 || floats.Channels() < ints.Channels {
		return 0
	}
	frames := len(ints.Data) / ints.Channels
	if size := floats.Size(); size < frames {
		frames = size
	}
	divider := ints.BitDepth.divider()
	for i := 0; i < frames; i++ {
		for c := 0; c < ints.Channels; c++ {
			floats[c][i] = float32(ints.Data[i*ints.Channels+c]) / divider
		}
	}
	return frames
}

// AsInterInt converts float32 signal to interleaved int. Values outside
// of [-1, 1] are clipped.
func (floats Float32) AsInterInt(bitDepth BitDepth) []int {
	channels := floats.Channels()
	if channels == 0 {
		return nil
	}
	multiplier := bitDepth.multiplier()
	ints := make([]int, floats.Size()*channels)
	for c := range floats {
		for i, v := range floats[c] {
			switch {
			case v > 1:
				v = 1
			case v < -1:
				v = -1
			}
			ints[i*channels+c] = int(float64(v) * multiplier)
		}
	}
	return ints
}
