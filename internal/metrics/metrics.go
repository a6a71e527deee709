// Package metrics exports device counters and bus activity to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gen2brain/alsad/internal/events"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alsad",
		Subsystem: "events",
		Name:      "total",
		Help:      "Events published on the bus by type",
	}, []string{"type"})

	cardsPresent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "alsad",
		Name:      "cards",
		Help:      "Sound cards currently managed",
	})

	nodePlugged = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "alsad",
		Subsystem: "node",
		Name:      "plugged",
		Help:      "Whether a node is plugged (1) or not (0)",
	}, []string{"card", "device", "node"})

	nodeActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "alsad",
		Subsystem: "node",
		Name:      "active",
		Help:      "Whether a node is the active node of its device",
	}, []string{"card", "device", "node"})
)

func card(index uint32) string {
	return strconv.FormatUint(uint64(index), 10)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}

	return 0
}

// SetNodePlugged records the plugged state of a node.
func SetNodePlugged(ref events.NodeRef, plugged bool) {
	nodePlugged.WithLabelValues(card(ref.Card), ref.Device, ref.Node).Set(boolValue(plugged))
}

// SetActiveNode marks ref as the only active node of its device.
func SetActiveNode(ref events.NodeRef) {
	nodeActive.DeletePartialMatch(prometheus.Labels{"card": card(ref.Card), "device": ref.Device})
	nodeActive.WithLabelValues(card(ref.Card), ref.Device, ref.Node).Set(1)
}

// DeleteCardMetrics removes the node metrics of a card.
func DeleteCardMetrics(index uint32) {
	nodePlugged.DeletePartialMatch(prometheus.Labels{"card": card(index)})
	nodeActive.DeletePartialMatch(prometheus.Labels{"card": card(index)})
}

// Subscribe keeps the bus-derived metrics current and returns the unsubscribe function.
func Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.NodePluggedEvent) {
			eventsTotal.WithLabelValues("node_plugged").Inc()
			SetNodePlugged(e.NodeRef, e.Plugged)
		}),
		bus.Subscribe(func(e events.ActiveNodeChangedEvent) {
			eventsTotal.WithLabelValues("active_node_changed").Inc()
			SetActiveNode(e.NodeRef)
		}),
		bus.Subscribe(func(events.NodesChangedEvent) {
			eventsTotal.WithLabelValues("nodes_changed").Inc()
		}),
		bus.Subscribe(func(events.SevereUnderrunEvent) {
			eventsTotal.WithLabelValues("severe_underrun").Inc()
		}),
		bus.Subscribe(func(events.CardAddedEvent) {
			eventsTotal.WithLabelValues("card_added").Inc()
			cardsPresent.Inc()
		}),
		bus.Subscribe(func(e events.CardRemovedEvent) {
			eventsTotal.WithLabelValues("card_removed").Inc()
			cardsPresent.Dec()
			DeleteCardMetrics(e.Card)
		}),
	}

	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
