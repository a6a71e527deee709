package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gen2brain/alsad/iodev"
)

// DeviceCollector reports the underrun counters of tracked devices at scrape time.
type DeviceCollector struct {
	mu      sync.Mutex
	devices map[*iodev.Device]struct{}

	underruns *prometheus.Desc
	severe    *prometheus.Desc
}

// NewDeviceCollector creates a collector tracking no device.
func NewDeviceCollector() *DeviceCollector {
	labels := []string{"card", "device", "direction"}

	return &DeviceCollector{
		devices: make(map[*iodev.Device]struct{}),
		underruns: prometheus.NewDesc("alsad_device_underruns",
			"Underruns since the device was last opened", labels, nil),
		severe: prometheus.NewDesc("alsad_device_severe_underruns_total",
			"Severe underruns over the life of the device", labels, nil),
	}
}

// Track adds devices to the collector.
func (c *DeviceCollector) Track(devices ...*iodev.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range devices {
		c.devices[d] = struct{}{}
	}
}

// Untrack removes devices from the collector.
func (c *DeviceCollector) Untrack(devices ...*iodev.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range devices {
		delete(c.devices, d)
	}
}

// Describe implements prometheus.Collector.
func (c *DeviceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.underruns
	ch <- c.severe
}

// Collect implements prometheus.Collector.
func (c *DeviceCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for d := range c.devices {
		labels := []string{card(d.Card().Index), d.Name(), d.Direction().String()}

		ch <- prometheus.MustNewConstMetric(c.underruns, prometheus.GaugeValue, float64(d.NumUnderruns()), labels...)
		ch <- prometheus.MustNewConstMetric(c.severe, prometheus.CounterValue, float64(d.NumSevereUnderruns()), labels...)
	}
}
