package card

import (
	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/iodev"
	"github.com/gen2brain/alsad/jack"
	"github.com/gen2brain/alsad/ucm"
)

// jackList adapts a jack.List to the device's view of it.
type jackList struct {
	*jack.List
}

// AddForSection returns a nil interface, not a typed nil, for sections without a jack.
func (l jackList) AddForSection(sec ucm.Section) (iodev.Jack, error) {
	j, err := l.List.AddForSection(sec)
	if err != nil || j == nil {
		return nil, err
	}

	return j, nil
}

// jackFactory builds the jack list of one device and remembers it for event dispatch.
func (m *Manager) jackFactory(device uint32, first bool, dir alsad.Direction) iodev.JackFactory {
	return func(cb iodev.JackCallback) (iodev.JackList, error) {
		cfg := jack.Config{
			Reader:    m.ctl,
			Controls:  m.mixer,
			Device:    device,
			First:     first,
			Direction: dir,
			Callback:  func(j *jack.Jack, plugged bool) { cb(j, plugged) },
		}
		if m.ucm != nil {
			cfg.Routes = m.ucm
		}

		list, err := jack.New(cfg)
		if err != nil {
			return nil, err
		}

		m.jackLists = append(m.jackLists, list)

		return jackList{list}, nil
	}
}
