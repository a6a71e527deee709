package hw

import (
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// ProcDir is the procfs root of the sound subsystem.
	ProcDir = "/proc/asound"

	// SysDir is the sysfs class directory of sound cards.
	SysDir = "/sys/class/sound"
)

// CardEntry is one line of /proc/asound/cards.
type CardEntry struct {
	Index       uint32
	ID          string
	Description string
}

// String returns a human-readable representation of the CardEntry.
func (c CardEntry) String() string {
	return fmt.Sprintf("Card %d: %s (%s)", c.Index, c.ID, c.Description)
}

// USBInfo holds the identity of a USB sound card.
type USBInfo struct {
	VendorID  uint32
	ProductID uint32
	Serial    string
	Checksum  uint32
}

var cardRegex = regexp.MustCompile(`^\s*(\d+)\s+\[\s*([^]]*?)\s*\]:\s*(.*)`)

// ListCards returns the cards currently registered with the kernel, ordered by index.
func ListCards() ([]CardEntry, error) {
	path := filepath.Join(ProcDir, "cards")

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}

	return parseCards(string(content)), nil
}

func parseCards(content string) []CardEntry {
	var cards []CardEntry

	for _, line := range strings.Split(content, "\n") {
		matches := cardRegex.FindStringSubmatch(line)
		if len(matches) != 4 {
			continue
		}

		id, err := strconv.ParseUint(matches[1], 10, 32)
		if err != nil {
			continue
		}

		cards = append(cards, CardEntry{
			Index:       uint32(id),
			ID:          strings.TrimSpace(matches[2]),
			Description: strings.TrimSpace(matches[3]),
		})
	}

	sort.Slice(cards, func(i, j int) bool { return cards[i].Index < cards[j].Index })

	return cards
}

// USBIdentity returns the USB identity of card, or false for cards not on USB.
func USBIdentity(card uint32) (USBInfo, bool) {
	content, err := os.ReadFile(filepath.Join(ProcDir, fmt.Sprintf("card%d", card), "usbid"))
	if err != nil {
		return USBInfo{}, false
	}

	vid, pid, ok := parseUSBID(string(content))
	if !ok {
		return USBInfo{}, false
	}

	info := USBInfo{VendorID: vid, ProductID: pid}

	// The card's device link points at the USB interface; identity lives on its parent.
	intf, err := filepath.EvalSymlinks(filepath.Join(SysDir, fmt.Sprintf("card%d", card), "device"))
	if err != nil {
		return info, true
	}
	usbDev := filepath.Dir(intf)

	if serial, err := os.ReadFile(filepath.Join(usbDev, "serial")); err == nil {
		info.Serial = strings.TrimSpace(string(serial))
	}

	if desc, err := os.ReadFile(filepath.Join(usbDev, "descriptors")); err == nil {
		info.Checksum = crc32.ChecksumIEEE(desc)
	}

	return info, true
}

func parseUSBID(s string) (uint32, uint32, bool) {
	vidStr, pidStr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, false
	}

	vid, err := strconv.ParseUint(vidStr, 16, 16)
	if err != nil {
		return 0, 0, false
	}

	pid, err := strconv.ParseUint(pidStr, 16, 16)
	if err != nil {
		return 0, 0, false
	}

	return uint32(vid), uint32(pid), true
}
