package hw_test

import (
	"fmt"
	"os"
	"strings"
	"testing"
)

var (
	// loopbackCard stores the dynamically found card number for the loopback device.
	loopbackCard = -1

	// dummyCard stores the dynamically found card number for the dummy device.
	dummyCard = -1
)

// findCard searches /proc/asound/cards for the passed device name and returns its card number. Returns -1 if not found.
func findCard(name string) int {
	content, err := os.ReadFile("/proc/asound/cards")
	if err != nil {
		return -1
	}

	for _, line := range strings.Split(string(content), "\n") {
		if strings.Contains(line, name) {
			var card int
			// The format is " 0 [Loopback       ]: Loopback - Loopback"
			if _, err := fmt.Sscanf(line, " %d", &card); err == nil {
				return card
			}
		}
	}

	return -1
}

func requireLoopback(t *testing.T) uint {
	t.Helper()
	if loopbackCard < 0 {
		t.Skip("ALSA loopback device not found; run: sudo modprobe snd-aloop")
	}

	return uint(loopbackCard)
}

func requireDummy(t *testing.T) uint {
	t.Helper()
	if dummyCard < 0 {
		t.Skip("ALSA dummy device not found; run: sudo modprobe snd-dummy")
	}

	return uint(dummyCard)
}

func TestMain(m *testing.M) {
	loopbackCard = findCard("Loopback")
	dummyCard = findCard("Dummy")

	os.Exit(m.Run())
}
