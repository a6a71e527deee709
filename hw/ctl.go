package hw

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DevDir is the directory holding the ALSA device nodes.
var DevDir = "/dev/snd"

// CardInfo is the identification reported by a card's control device.
type CardInfo struct {
	Index     int
	ID        string
	Driver    string
	Name      string
	LongName  string
	MixerName string
}

// PcmInfo describes one PCM device in one direction.
type PcmInfo struct {
	Device uint32
	Stream int
	ID     string
	Name   string
}

// ElemInfo describes one control element.
type ElemInfo struct {
	NumID     uint32
	Iface     ElemIface
	Device    uint32
	Subdevice uint32
	Name      string
	Index     uint32
	Type      ElemType
	Access    uint32
	Count     uint32
	Min       int64
	Max       int64
	Step      int64
}

// Readable reports whether the element value can be read.
func (e ElemInfo) Readable() bool { return e.Access&SNDRV_CTL_ELEM_ACCESS_READ != 0 }

// Writable reports whether the element value can be written.
func (e ElemInfo) Writable() bool { return e.Access&SNDRV_CTL_ELEM_ACCESS_WRITE != 0 }

// HasTLV reports whether the element exposes TLV (dB) data.
func (e ElemInfo) HasTLV() bool { return e.Access&SNDRV_CTL_ELEM_ACCESS_TLV_READ != 0 }

// Event is one control-interface notification.
type Event struct {
	Mask  uint32
	NumID uint32
	Iface ElemIface
	Name  string
	Index uint32
}

// Removed reports whether the element was removed.
func (e Event) Removed() bool { return e.Mask == SNDRV_CTL_EVENT_MASK_REMOVE }

// ValueChanged reports whether the element value changed.
func (e Event) ValueChanged() bool {
	return !e.Removed() && e.Mask&SNDRV_CTL_EVENT_MASK_VALUE != 0
}

// Ctl is an open control device of one card.
type Ctl struct {
	file *os.File
	card uint
	info sndCtlCardInfo
}

// CtlOpen opens the control device of a card and reads its card info.
func CtlOpen(card uint) (*Ctl, error) {
	return ctlOpen(card, 0)
}

// CtlOpenEvents opens a non-blocking control device subscribed to element events.
func CtlOpenEvents(card uint) (*Ctl, error) {
	ctl, err := ctlOpen(card, unix.O_NONBLOCK)
	if err != nil {
		return nil, err
	}

	if err := ctl.SubscribeEvents(true); err != nil {
		_ = ctl.Close()

		return nil, err
	}

	return ctl, nil
}

func ctlOpen(card uint, flags int) (*Ctl, error) {
	path := filepath.Join(DevDir, fmt.Sprintf("controlC%d", card))

	file, err := os.OpenFile(path, os.O_RDWR|flags|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open control device %s: %w", path, err)
	}

	ctl := &Ctl{file: file, card: card}

	if err := ioctl(file.Fd(), SNDRV_CTL_IOCTL_CARD_INFO, uintptr(unsafe.Pointer(&ctl.info))); err != nil {
		_ = ctl.Close()

		return nil, fmt.Errorf("ioctl CARD_INFO failed: %w", err)
	}

	return ctl, nil
}

// Close closes the control device.
func (c *Ctl) Close() error {
	if c == nil || c.file == nil {
		return nil
	}

	err := c.file.Close()
	c.file = nil

	return err
}

// Fd returns the pollable descriptor of the control device.
func (c *Ctl) Fd() int {
	if c == nil || c.file == nil {
		return -1
	}

	return int(c.file.Fd())
}

// Card returns the card index.
func (c *Ctl) Card() uint {
	if c == nil {
		return 0
	}

	return c.card
}

// CardInfo returns the card identification read at open time.
func (c *Ctl) CardInfo() CardInfo {
	if c == nil {
		return CardInfo{}
	}

	return CardInfo{
		Index:     int(c.info.Card),
		ID:        cString(c.info.Id[:]),
		Driver:    cString(c.info.Driver[:]),
		Name:      cString(c.info.Name[:]),
		LongName:  cString(c.info.Longname[:]),
		MixerName: cString(c.info.Mixername[:]),
	}
}

// PcmDevices lists the PCM devices that support the given stream direction.
func (c *Ctl) PcmDevices(stream int) ([]PcmInfo, error) {
	if c == nil || c.file == nil {
		return nil, fmt.Errorf("control device is nil")
	}

	var devices []PcmInfo
	device := int32(-1)

	for {
		if err := ioctl(c.file.Fd(), SNDRV_CTL_IOCTL_PCM_NEXT_DEVICE, uintptr(unsafe.Pointer(&device))); err != nil {
			return nil, fmt.Errorf("ioctl PCM_NEXT_DEVICE failed: %w", err)
		}

		if device < 0 {
			break
		}

		info := sndPcmInfo{Device: uint32(device), Stream: int32(stream)}
		if err := ioctl(c.file.Fd(), SNDRV_CTL_IOCTL_PCM_INFO, uintptr(unsafe.Pointer(&info))); err != nil {
			// ENOENT: the device has no substream in this direction.
			continue
		}

		devices = append(devices, PcmInfo{
			Device: info.Device,
			Stream: stream,
			ID:     cString(info.Id[:]),
			Name:   cString(info.Name[:]),
		})
	}

	return devices, nil
}

// Elems enumerates every control element of the card.
func (c *Ctl) Elems() ([]ElemInfo, error) {
	if c == nil || c.file == nil {
		return nil, fmt.Errorf("control device is nil")
	}

	list := &sndCtlElemList{}
	if err := ioctl(c.file.Fd(), SNDRV_CTL_IOCTL_ELEM_LIST, uintptr(unsafe.Pointer(list))); err != nil {
		return nil, fmt.Errorf("ioctl ELEM_LIST (count) failed: %w", err)
	}

	if list.Count == 0 {
		return nil, nil
	}

	ids := make([]sndCtlElemId, list.Count)
	list.Space = list.Count
	list.Pids = uintptr(unsafe.Pointer(&ids[0]))

	if err := ioctl(c.file.Fd(), SNDRV_CTL_IOCTL_ELEM_LIST, uintptr(unsafe.Pointer(list))); err != nil {
		return nil, fmt.Errorf("ioctl ELEM_LIST (ids) failed: %w", err)
	}

	elems := make([]ElemInfo, 0, list.Used)
	for i := uint32(0); i < list.Used; i++ {
		info := sndCtlElemInfo{Id: ids[i]}
		if err := ioctl(c.file.Fd(), SNDRV_CTL_IOCTL_ELEM_INFO, uintptr(unsafe.Pointer(&info))); err != nil {
			continue
		}

		elems = append(elems, elemFromInfo(&info))
	}

	return elems, nil
}

func elemFromInfo(info *sndCtlElemInfo) ElemInfo {
	e := ElemInfo{
		NumID:     info.Id.Numid,
		Iface:     ElemIface(info.Id.Iface),
		Device:    info.Id.Device,
		Subdevice: info.Id.Subdevice,
		Name:      cString(info.Id.Name[:]),
		Index:     info.Id.Index,
		Type:      ElemType(info.Typ),
		Access:    info.Access,
		Count:     info.Count,
	}

	switch e.Type {
	case SNDRV_CTL_ELEM_TYPE_INTEGER:
		r := (*sndCtlElemIntegerInfo)(unsafe.Pointer(&info.Value[0]))
		e.Min, e.Max, e.Step = int64(r.Min), int64(r.Max), int64(r.Step)
	case SNDRV_CTL_ELEM_TYPE_BOOLEAN:
		e.Min, e.Max, e.Step = 0, 1, 1
	}

	return e
}

// ReadValues reads the per-channel values of an integer or boolean element.
func (c *Ctl) ReadValues(numid uint32, count uint32) ([]int64, error) {
	if c == nil || c.file == nil {
		return nil, fmt.Errorf("control device is nil")
	}

	value := &sndCtlElemValue{}
	value.Id.Numid = numid

	if err := ioctl(c.file.Fd(), SNDRV_CTL_IOCTL_ELEM_READ, uintptr(unsafe.Pointer(value))); err != nil {
		return nil, fmt.Errorf("ioctl ELEM_READ failed: %w", err)
	}

	longs := valueLongs(value)
	if count > uint32(len(longs)) {
		count = uint32(len(longs))
	}

	out := make([]int64, count)
	for i := range out {
		out[i] = int64(longs[i])
	}

	return out, nil
}

// ReadBytes reads the raw payload of a bytes element, such as an ELD.
func (c *Ctl) ReadBytes(numid uint32, count uint32) ([]byte, error) {
	if c == nil || c.file == nil {
		return nil, fmt.Errorf("control device is nil")
	}

	value := &sndCtlElemValue{}
	value.Id.Numid = numid

	if err := ioctl(c.file.Fd(), SNDRV_CTL_IOCTL_ELEM_READ, uintptr(unsafe.Pointer(value))); err != nil {
		return nil, fmt.Errorf("ioctl ELEM_READ failed: %w", err)
	}

	if count > uint32(len(value.Value)) {
		count = uint32(len(value.Value))
	}

	return bytes.Clone(value.Value[:count]), nil
}

// WriteValues writes per-channel values to an integer or boolean element.
func (c *Ctl) WriteValues(numid uint32, values []int64) error {
	if c == nil || c.file == nil {
		return fmt.Errorf("control device is nil")
	}

	value := &sndCtlElemValue{}
	value.Id.Numid = numid

	longs := valueLongs(value)
	if len(values) > len(longs) {
		return fmt.Errorf("too many values for element %d: %d", numid, len(values))
	}

	for i, v := range values {
		longs[i] = clong(v)
	}

	if err := ioctl(c.file.Fd(), SNDRV_CTL_IOCTL_ELEM_WRITE, uintptr(unsafe.Pointer(value))); err != nil {
		return fmt.Errorf("ioctl ELEM_WRITE failed: %w", err)
	}

	return nil
}

// WriteAll sets every channel of an element to the same value.
func (c *Ctl) WriteAll(e ElemInfo, v int64) error {
	values := make([]int64, e.Count)
	for i := range values {
		values[i] = v
	}

	return c.WriteValues(e.NumID, values)
}

func valueLongs(v *sndCtlElemValue) []clong {
	n := len(v.Value) / int(unsafe.Sizeof(clong(0)))

	return unsafe.Slice((*clong)(unsafe.Pointer(&v.Value[0])), n)
}

// ReadTLV reads the raw TLV words of an element.
func (c *Ctl) ReadTLV(numid uint32) ([]uint32, error) {
	if c == nil || c.file == nil {
		return nil, fmt.Errorf("control device is nil")
	}

	const maxWords = 256
	buf := make([]uint32, 2+maxWords)
	buf[0] = numid
	buf[1] = maxWords * 4

	if err := ioctl(c.file.Fd(), SNDRV_CTL_IOCTL_TLV_READ, uintptr(unsafe.Pointer(&buf[0]))); err != nil {
		return nil, fmt.Errorf("ioctl TLV_READ failed: %w", err)
	}

	// buf[2:] holds type, length, payload.
	words := buf[2:]
	if len(words) < 2 {
		return nil, fmt.Errorf("short TLV for element %d", numid)
	}

	size := 2 + int(words[1]+3)/4
	if size > len(words) {
		size = len(words)
	}

	return words[:size], nil
}

// DBScale reads and parses the dB mapping of an element.
func (c *Ctl) DBScale(e ElemInfo) (*DBScale, error) {
	if !e.HasTLV() {
		return nil, ErrNoDBInfo
	}

	words, err := c.ReadTLV(e.NumID)
	if err != nil {
		return nil, err
	}

	return ParseDBScale(words, e.Min, e.Max)
}

// SubscribeEvents enables or disables event delivery on this handle.
func (c *Ctl) SubscribeEvents(enable bool) error {
	if c == nil || c.file == nil {
		return fmt.Errorf("control device is nil")
	}

	var val int32
	if enable {
		val = 1
	}

	if err := ioctl(c.file.Fd(), SNDRV_CTL_IOCTL_SUBSCRIBE_EVENTS, uintptr(unsafe.Pointer(&val))); err != nil {
		return fmt.Errorf("ioctl SUBSCRIBE_EVENTS failed: %w", err)
	}

	return nil
}

// ReadEvents drains pending element events from a non-blocking handle.
func (c *Ctl) ReadEvents() ([]Event, error) {
	if c == nil || c.file == nil {
		return nil, fmt.Errorf("control device is nil")
	}

	var events []Event
	buf := make([]byte, unsafe.Sizeof(sndCtlEvent{}))

	for {
		n, err := unix.Read(int(c.file.Fd()), buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				return events, nil
			}

			return events, fmt.Errorf("read event failed: %w", err)
		}

		if n < len(buf) {
			return events, nil
		}

		ev := (*sndCtlEvent)(unsafe.Pointer(&buf[0]))
		if ev.Typ != SNDRV_CTL_EVENT_ELEM {
			continue
		}

		events = append(events, Event{
			Mask:  ev.Mask,
			NumID: ev.Id.Numid,
			Iface: ElemIface(ev.Id.Iface),
			Name:  cString(ev.Id.Name[:]),
			Index: ev.Id.Index,
		})
	}
}

// cString converts a NUL-terminated byte array to a Go string.
func cString(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i == -1 {
		return string(b)
	}

	return string(b[:i])
}
