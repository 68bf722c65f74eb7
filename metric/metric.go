// Package metric publishes per-component counters of stretch runs with
// expvar.
package metric

import (
	"expvar"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"pipelined.dev/stretch/signal"
)

const componentsLabel = "stretch.components"

const (
	// BlockCounter measures number of blocks.
	BlockCounter = "Blocks"
	// FrameCounter measures number of frames.
	FrameCounter = "Frames"
	// DurationCounter counts what's the duration of signal.
	DurationCounter = "Duration"
	// ComponentCounter counts number of metered instances.
	ComponentCounter = "Components"
)

var (
	components = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		BlockCounter,
		FrameCounter,
		DurationCounter,
		ComponentCounter,
	}
)

// Get metrics values for provided component type.
func Get(component interface{}) map[string]string {
	return getCounters(getType(component))
}

// GetAll returns counters for all measured components.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	components.Lock()
	defer components.Unlock()
	for component := range components.m {
		m[component] = getCounters(component)
	}
	return m
}

func getCounters(componentType string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(componentType, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// ResetFunc returns new Measure closure. This closure is needed to postpone
// metrics capture until component is actually running.
type ResetFunc func() MeasureFunc

// MeasureFunc captures metrics when block is passed.
type MeasureFunc func(frames int)

// Meter creates new meter closure to capture component counters.
func Meter(component interface{}, sampleRate int) ResetFunc {
	metric := components.get(getType(component))
	metric.components.Add(1)
	return func() MeasureFunc {
		return func(frames int) {
			metric.blocks.Add(1)
			metric.frames.Add(int64(frames))
			metric.duration.add(signal.DurationOf(sampleRate, int64(frames)))
		}
	}
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(componentType string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[componentType]; ok {
		return metric
	}
	metric := newMetric(componentType)
	m.m[componentType] = metric
	return metric
}

type metric struct {
	components *expvar.Int
	blocks     *expvar.Int
	frames     *expvar.Int
	duration   *duration
}

func newMetric(componentType string) metric {
	m := metric{
		components: expvar.NewInt(key(componentType, ComponentCounter)),
		blocks:     expvar.NewInt(key(componentType, BlockCounter)),
		frames:     expvar.NewInt(key(componentType, FrameCounter)),
		duration:   &duration{},
	}
	expvar.Publish(key(componentType, DurationCounter), m.duration)
	return m
}

func key(componentType, counter string) string {
	return fmt.Sprintf("%s.%s.%s", componentsLabel, componentType, counter)
}

func getType(component interface{}) string {
	rv := reflect.ValueOf(component)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	return rv.Type().String()
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%q", time.Duration(atomic.LoadInt64(&v.d)).String())
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}
