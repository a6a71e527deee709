package hw

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCards(t *testing.T) {
	content := ` 1 [Dummy          ]: Dummy - Dummy
                      Dummy 1
 0 [Loopback       ]: Loopback - Loopback
                      Loopback 1
`
	cards := parseCards(content)
	require.Len(t, cards, 2)

	assert.Equal(t, CardEntry{Index: 0, ID: "Loopback", Description: "Loopback - Loopback"}, cards[0])
	assert.Equal(t, uint32(1), cards[1].Index)
	assert.Equal(t, "Card 1: Dummy (Dummy - Dummy)", cards[1].String())
}

func TestParseUSBID(t *testing.T) {
	vid, pid, ok := parseUSBID("0d8c:0014\n")
	require.True(t, ok)
	assert.Equal(t, uint32(0x0d8c), vid)
	assert.Equal(t, uint32(0x0014), pid)

	_, _, ok = parseUSBID("garbage")
	assert.False(t, ok)

	_, _, ok = parseUSBID("zz:0014")
	assert.False(t, ok)
}

func TestUSBIdentity(t *testing.T) {
	proc, sys := t.TempDir(), t.TempDir()
	oldProc, oldSys := ProcDir, SysDir
	ProcDir, SysDir = proc, sys
	defer func() { ProcDir, SysDir = oldProc, oldSys }()

	require.NoError(t, os.MkdirAll(filepath.Join(proc, "card2"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(proc, "card2", "usbid"), []byte("046d:0a44\n"), 0o644))

	usbDev := filepath.Join(sys, "usb1")
	require.NoError(t, os.MkdirAll(filepath.Join(usbDev, "intf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(usbDev, "serial"), []byte("ABC123\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(usbDev, "descriptors"), []byte{0x12, 0x01, 0x00, 0x02}, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(sys, "card2"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(usbDev, "intf"), filepath.Join(sys, "card2", "device")))

	info, ok := USBIdentity(2)
	require.True(t, ok)
	assert.Equal(t, uint32(0x046d), info.VendorID)
	assert.Equal(t, uint32(0x0a44), info.ProductID)
	assert.Equal(t, "ABC123", info.Serial)
	assert.NotZero(t, info.Checksum)

	_, ok = USBIdentity(3)
	assert.False(t, ok)
}
