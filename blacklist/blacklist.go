// Package blacklist keeps USB audio devices the daemon must not expose.
package blacklist

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Entry blocks one device index of one USB product. A zero Checksum matches any descriptor checksum.
type Entry struct {
	VendorID  uint32 `toml:"vendor_id"`
	ProductID uint32 `toml:"product_id"`
	Checksum  uint32 `toml:"checksum"`
	Device    uint32 `toml:"device"`
}

// Blacklist is a set of blocked USB devices.
type Blacklist struct {
	Entries []Entry `toml:"usb"`
}

// Load reads a blacklist file. A missing file yields an empty blacklist.
func Load(path string) (*Blacklist, error) {
	if path == "" {
		return &Blacklist{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Blacklist{}, nil
		}

		return nil, fmt.Errorf("failed to read blacklist %s: %w", path, err)
	}

	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse blacklist %s: %w", path, err)
	}

	return b, nil
}

// Parse decodes a TOML document with one [[usb]] table per entry.
func Parse(data []byte) (*Blacklist, error) {
	b := &Blacklist{}
	if err := toml.Unmarshal(data, b); err != nil {
		return nil, err
	}

	return b, nil
}

// IsBlocked reports whether device dev of the given USB product must be skipped.
func (b *Blacklist) IsBlocked(vendorID, productID, checksum, dev uint32) bool {
	if b == nil {
		return false
	}

	for _, e := range b.Entries {
		if e.VendorID != vendorID || e.ProductID != productID || e.Device != dev {
			continue
		}

		if e.Checksum == 0 || e.Checksum == checksum {
			return true
		}
	}

	return false
}
