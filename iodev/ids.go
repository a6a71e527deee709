package iodev

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/gen2brain/alsad"
)

// hash folds a seeded 64-bit xxhash of data into 32 bits.
func hash(data []byte, seed uint32) uint32 {
	d := xxhash.NewWithSeed(uint64(seed))
	_, _ = d.Write(data)
	sum := d.Sum64()

	return uint32(sum ^ sum>>32)
}

func hashString(s string, seed uint32) uint32 {
	return hash([]byte(s), seed)
}

func hashUint32(v uint32, seed uint32) uint32 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)

	return hash(b[:], seed)
}

// deviceIDs returns the stable id pair of a device. Internal cards are keyed by
// subdevice index; USB cards by vendor, product and, for the new id, serial.
func deviceIDs(card alsad.CardInfo, pcmName string, device uint32) (uint32, uint32) {
	id := hashString(card.Name, uint32(len(card.Name)))
	id = hashString(pcmName, id)

	if card.Type != alsad.CardTypeUSB {
		id = hashUint32(device, id)

		return id, id
	}

	id = hashUint32(card.VendorID, id)
	id = hashUint32(card.ProductID, id)

	return id, hashString(card.Serial, id)
}

// nodeIDs returns the stable id pair of a node named name on a device.
func nodeIDs(name string, devID, devIDNew uint32) (uint32, uint32) {
	return hashString(name, devID), hashString(name, devIDNew)
}
