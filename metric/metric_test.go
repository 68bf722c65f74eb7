package metric_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/stretch/metric"
)

type (
	meteredSource struct{}
	meteredSink   struct{}
)

func TestMeter(t *testing.T) {
	sampleRate := 48000
	var tests = []struct {
		component          interface{}
		routines           int
		blocks             int
		frames             int
		expectedFrames     string
		expectedBlocks     string
		expectedComponents string
		expectedDuration   string
	}{
		{
			component:          meteredSource{},
			routines:           2,
			blocks:             10,
			frames:             2400,
			expectedFrames:     "48000",
			expectedBlocks:     "20",
			expectedComponents: "2",
			expectedDuration:   `"1s"`,
		},
		{
			component:          &meteredSink{},
			routines:           1,
			blocks:             4,
			frames:             6000,
			expectedFrames:     "24000",
			expectedBlocks:     "4",
			expectedComponents: "1",
			expectedDuration:   `"500ms"`,
		},
	}
	testFn := func(fn metric.MeasureFunc, wg *sync.WaitGroup, blocks, frames int) {
		for i := 0; i < blocks; i++ {
			fn(frames)
		}
		wg.Done()
	}

	for _, c := range tests {
		wg := &sync.WaitGroup{}
		wg.Add(c.routines)
		for i := 0; i < c.routines; i++ {
			go testFn(metric.Meter(c.component, sampleRate)(), wg, c.blocks, c.frames)
		}
		wg.Wait()
		values := metric.Get(c.component)
		assert.Equal(t, c.expectedFrames, values[metric.FrameCounter])
		assert.Equal(t, c.expectedBlocks, values[metric.BlockCounter])
		assert.Equal(t, c.expectedComponents, values[metric.ComponentCounter])
		assert.Equal(t, c.expectedDuration, values[metric.DurationCounter])
	}

	all := metric.GetAll()
	assert.Contains(t, all, "metric_test.meteredSource")
	assert.Contains(t, all, "metric_test.meteredSink")
}
