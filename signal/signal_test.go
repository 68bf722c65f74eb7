package signal_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/stretch/signal"
)

func TestAllocate(t *testing.T) {
	b := signal.Allocate(3, 10)
	assert.Equal(t, 3, b.Channels())
	assert.Equal(t, 10, b.Size())
	for i := range b {
		assert.Equal(t, make([]float32, 10), b[i])
	}

	empty := signal.Allocate(2, 0)
	assert.Equal(t, 2, empty.Channels())
	assert.Equal(t, 0, empty.Size())
	assert.Equal(t, 0, signal.Float32(nil).Size())
}

func TestOffset(t *testing.T) {
	b := signal.Float32{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
	}
	tests := []struct {
		offset   int
		expected signal.Float32
	}{
		{
			offset:   0,
			expected: b,
		},
		{
			offset:   1,
			expected: signal.Float32{{2, 3, 4}, {6, 7, 8}},
		},
		{
			offset:   4,
			expected: signal.Float32{{}, {}},
		},
	}
	for _, test := range tests {
		v := b.Offset(test.offset)
		assert.Equal(t, b.Size()-test.offset, v.Size())
		assert.Equal(t, test.expected.Channels(), v.Channels())
		for i := range test.expected {
			assert.Equal(t, []float32(test.expected[i]), []float32(v[i]))
		}
	}

	// views share storage
	v := b.Offset(2)
	v[1][0] = 42
	assert.Equal(t, float32(42), b[1][2])

	assert.Panics(t, func() { b.Offset(5) })
	assert.Panics(t, func() { b.Offset(-1) })
}

func TestSliceAndChannel(t *testing.T) {
	b := signal.Float32{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
	}
	s := b.Slice(1, 3)
	assert.Equal(t, signal.Float32{{2, 3}, {6, 7}}, s)

	// appending to a view must not overwrite the parent buffer
	s[0] = append(s[0], 100)
	assert.Equal(t, float32(4), b[0][3])

	right := b.Channel(1)
	assert.Equal(t, 1, right.Channels())
	assert.Equal(t, []float32{5, 6, 7, 8}, right[0])
}

func TestCopyFrom(t *testing.T) {
	dst := signal.Allocate(2, 3)
	n := dst.CopyFrom(signal.Float32{{1, 2, 3, 4}, {5, 6, 7, 8}})
	assert.Equal(t, 3, n)
	assert.Equal(t, signal.Float32{{1, 2, 3}, {5, 6, 7}}, dst)

	dst = signal.Allocate(2, 3)
	n = dst.CopyFrom(signal.Float32{{1}})
	assert.Equal(t, 1, n)
	assert.Equal(t, signal.Float32{{1, 0, 0}, {0, 0, 0}}, dst)

	assert.Equal(t, 0, dst.CopyFrom(nil))
}

func TestAppend(t *testing.T) {
	var b signal.Float32
	b = b.Append(signal.Float32{{1, 2}, {3, 4}})
	b = b.Append(signal.Float32{{5}, {6}})
	assert.Equal(t, signal.Float32{{1, 2, 5}, {3, 4, 6}}, b)
}

func TestInterIntCopyTo(t *testing.T) {
	tests := []struct {
		description string
		ints        signal.InterInt
		frames      int
		expected    signal.Float32
		n           int
	}{
		{
			description: "stereo",
			ints: signal.InterInt{
				Data:     []int{1, 2, 1, 2, 1, 2},
				Channels: 2,
			},
			frames:   3,
			expected: signal.Float32{{1, 1, 1}, {2, 2, 2}},
			n:        3,
		},
		{
			description: "incomplete frame",
			ints: signal.InterInt{
				Data:     []int{1, 2, 1, 2, 1},
				Channels: 2,
			},
			frames:   3,
			expected: signal.Float32{{1, 1, 0}, {2, 2, 0}},
			n:        2,
		},
		{
			description: "16 bit",
			ints: signal.InterInt{
				Data:     []int{-0x8000, 0x4000},
				Channels: 2,
				BitDepth: signal.BitDepth16,
			},
			frames:   1,
			expected: signal.Float32{{-1}, {0.5}},
			n:        1,
		},
		{
			description: "short buffer",
			ints: signal.InterInt{
				Data:     []int{1, 2, 3, 4},
				Channels: 1,
			},
			frames:   2,
			expected: signal.Float32{{1, 2}},
			n:        2,
		},
		{
			description: "no channels",
			ints: signal.InterInt{
				Data: []int{1, 2, 3},
			},
			frames:   1,
			expected: signal.Float32{{0}},
			n:        0,
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			floats := signal.Allocate(test.expected.Channels(), test.frames)
			n := test.ints.CopyTo(floats)
			assert.Equal(t, test.n, n)
			assert.Equal(t, test.expected, floats)
		})
	}
}

func TestFloat32AsInterInt(t *testing.T) {
	tests := []struct {
		floats   signal.Float32
		bitDepth signal.BitDepth
		expected []int
	}{
		{
			floats:   signal.Float32{{1, 0}, {-1, 2}},
			bitDepth: signal.BitDepth16,
			expected: []int{math.MaxInt16, -math.MaxInt16, 0, math.MaxInt16},
		},
		{
			floats:   signal.Float32{{0.5}},
			bitDepth: signal.BitDepth8,
			expected: []int{63},
		},
		{
			floats:   signal.Float32{{1}},
			bitDepth: signal.BitDepth24,
			expected: []int{1<<23 - 1},
		},
		{
			floats:   nil,
			expected: nil,
		},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, test.floats.AsInterInt(test.bitDepth))
	}
}

func TestDurationOf(t *testing.T) {
	assert.Equal(t, time.Second, signal.DurationOf(48000, 48000))
	assert.Equal(t, 500*time.Millisecond, signal.DurationOf(44100, 22050))
	assert.Equal(t, time.Duration(0), signal.DurationOf(0, 100))
}
