package agent

import (
	"fmt"
	"math/rand"
	"reflect"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	models "github.com/Schera-ole/zabbix-sender/internal/model"
)

// Collector turns runtime and host statistics into measurements for one host.
type Collector struct {
	host      string
	pollCount atomic.Int64
	now       func() time.Time
}

// NewCollector creates a collector that stamps measurements for host.
func NewCollector(host string) *Collector {
	return &Collector{host: host, now: time.Now}
}

// PollCount returns how many times CollectRuntime has run.
func (c *Collector) PollCount() int64 {
	return c.pollCount.Load()
}

func (c *Collector) measurement(name string, value any, at time.Time) models.Measurement {
	return models.NewMeasurementAt(c.host, KeyPrefix+name, value, at)
}

// CollectRuntime reads the Go memstats listed in RuntimeMetrics, plus
// RandomValue and PollCount.
func (c *Collector) CollectRuntime() []models.Measurement {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	at := c.now()

	msValue := reflect.ValueOf(memStats)
	measurements := make([]models.Measurement, 0, len(RuntimeMetrics)+2)
	for _, name := range RuntimeMetrics {
		value := msValue.FieldByName(name)
		if !value.IsValid() {
			continue
		}
		measurements = append(measurements, c.measurement(name, value.Interface(), at))
	}

	pollCount := c.pollCount.Add(1)
	measurements = append(measurements, c.measurement("RandomValue", rand.Float64(), at))
	measurements = append(measurements, c.measurement("PollCount", pollCount, at))

	return measurements
}

// CollectSystem reads host memory and per-CPU utilization.
func (c *Collector) CollectSystem() ([]models.Measurement, error) {
	memory, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("error getting memory stats: %w", err)
	}

	cpuPercents, err := cpu.Percent(time.Second, true)
	if err != nil {
		return nil, fmt.Errorf("error getting cpu info: %w", err)
	}

	at := c.now()
	measurements := []models.Measurement{
		c.measurement("TotalMemory", memory.Total, at),
		c.measurement("FreeMemory", memory.Free, at),
	}
	for i, percent := range cpuPercents {
		measurements = append(measurements, c.measurement(fmt.Sprintf("CPUutilization%d", i), percent, at))
	}
	return measurements, nil
}
