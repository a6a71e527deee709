package events

// Event type constants for kelindar/event.
const (
	TypeNodePlugged uint32 = iota + 1
	TypeActiveNodeChanged
	TypeNodesChanged
	TypeSevereUnderrun
	TypeCardAdded
	TypeCardRemoved
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// NodeRef identifies a node without holding on to it.
type NodeRef struct {
	Card     uint32 `json:"card"`
	Device   string `json:"device"`
	Node     string `json:"node"`
	Index    uint32 `json:"index"`
	StableID uint32 `json:"stable_id"`
}

// NodePluggedEvent reports a jack or auto-unplug change of a node.
type NodePluggedEvent struct {
	NodeRef
	Plugged bool `json:"plugged"`
}

// Type returns the event type identifier for NodePluggedEvent.
func (e NodePluggedEvent) Type() uint32 { return TypeNodePlugged }

// ActiveNodeChangedEvent reports a new active node of a device.
type ActiveNodeChangedEvent struct {
	NodeRef
}

// Type returns the event type identifier for ActiveNodeChangedEvent.
func (e ActiveNodeChangedEvent) Type() uint32 { return TypeActiveNodeChanged }

// NodesChangedEvent reports that nodes were added to or removed from a device.
type NodesChangedEvent struct {
	Card   uint32 `json:"card"`
	Device string `json:"device"`
	Nodes  int    `json:"nodes"`
}

// Type returns the event type identifier for NodesChangedEvent.
func (e NodesChangedEvent) Type() uint32 { return TypeNodesChanged }

// SevereUnderrunEvent reports a hardware pointer that ran far past the application pointer.
type SevereUnderrunEvent struct {
	Card   uint32 `json:"card"`
	Device string `json:"device"`
	Count  uint64 `json:"count"`
}

// Type returns the event type identifier for SevereUnderrunEvent.
func (e SevereUnderrunEvent) Type() uint32 { return TypeSevereUnderrun }

// CardAddedEvent reports a card brought up.
type CardAddedEvent struct {
	Card    uint32 `json:"card"`
	Name    string `json:"name"`
	USB     bool   `json:"usb"`
	Devices int    `json:"devices"`
}

// Type returns the event type identifier for CardAddedEvent.
func (e CardAddedEvent) Type() uint32 { return TypeCardAdded }

// CardRemovedEvent reports a card torn down.
type CardRemovedEvent struct {
	Card uint32 `json:"card"`
	Name string `json:"name"`
}

// Type returns the event type identifier for CardRemovedEvent.
func (e CardRemovedEvent) Type() uint32 { return TypeCardRemoved }
