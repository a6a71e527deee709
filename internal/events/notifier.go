package events

import (
	"github.com/gen2brain/alsad/iodev"
)

// Notifier publishes device changes on a bus.
type Notifier struct {
	bus *Bus
}

// NewNotifier returns an iodev notifier backed by bus.
func NewNotifier(bus *Bus) *Notifier {
	return &Notifier{bus: bus}
}

func nodeRef(d *iodev.Device, n *iodev.Node) NodeRef {
	return NodeRef{
		Card:     d.Card().Index,
		Device:   d.Name(),
		Node:     n.Name(),
		Index:    n.Index(),
		StableID: n.StableID(),
	}
}

// NodePlugged publishes a NodePluggedEvent.
func (p *Notifier) NodePlugged(d *iodev.Device, n *iodev.Node, plugged bool) {
	p.bus.Publish(NodePluggedEvent{NodeRef: nodeRef(d, n), Plugged: plugged})
}

// ActiveNodeChanged publishes an ActiveNodeChangedEvent.
func (p *Notifier) ActiveNodeChanged(d *iodev.Device, n *iodev.Node) {
	p.bus.Publish(ActiveNodeChangedEvent{NodeRef: nodeRef(d, n)})
}

// NodesChanged publishes a NodesChangedEvent.
func (p *Notifier) NodesChanged(d *iodev.Device) {
	p.bus.Publish(NodesChangedEvent{Card: d.Card().Index, Device: d.Name(), Nodes: len(d.Nodes())})
}

// SevereUnderrun publishes a SevereUnderrunEvent.
func (p *Notifier) SevereUnderrun(d *iodev.Device) {
	p.bus.Publish(SevereUnderrunEvent{Card: d.Card().Index, Device: d.Name(), Count: d.NumSevereUnderruns()})
}
