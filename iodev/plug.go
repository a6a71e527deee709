package iodev

import (
	"unicode/utf8"
)

// jackPlugged handles a plug state change reported by the jack list.
func (d *Device) jackPlugged(j Jack, plugged bool) {
	if j == nil {
		return
	}

	name := j.Name()
	if name == speakerPhantomJack {
		name = InternalSpeaker
	}

	n := d.ops.nodeForJack(d, j)
	if n == nil {
		if d.fullySpecified {
			logger.Error("No matching node for jack", "device", d.name, "jack", name, "error", ErrFullySpecified)

			return
		}

		n = d.ops.newNodeForJack(d, j, name)
	}

	if n.jack == nil {
		if d.fullySpecified {
			logger.Warn("Jack matched a node by control, the use-case configuration should name it", "device", d.name, "jack", name, "node", n.name)
		}

		d.ops.bindJack(d, n, j)
	}

	logger.Debug("Jack plug event", "device", d.name, "jack", name, "node", n.name, "plugged", plugged)

	if monitor := j.MonitorName(); monitor != "" {
		n.name = monitor
		if !utf8.ValidString(n.name) {
			n.name = fallbackName(n.typ)
		}
	}

	d.setNodePlugged(n, plugged)
	d.checkAutoUnplug(n, plugged)
}

// checkAutoUnplug keeps the built-in endpoint and the external ones mutually exclusive
// when the use-case configuration asks for it.
func (d *Device) checkAutoUnplug(n *Node, plugged bool) {
	if !d.ucm.AutoUnplug(d.dir) {
		return
	}

	canonical := d.ops.canonicalName()

	if n.name == canonical {
		if !plugged {
			return
		}

		for _, other := range d.nodes {
			if other != n && other.plugged {
				d.setNodePlugged(other, false)
			}
		}

		return
	}

	for _, other := range d.nodes {
		if other.name == canonical {
			d.setNodePlugged(other, !plugged)
		}
	}
}
