// Package hw talks to ALSA kernel devices directly through ioctls: the per-card control device and mmap'ed PCM streams.
package hw

// PcmState is the kernel-side state of a PCM stream (SNDRV_PCM_STATE_*).
type PcmState int32

const (
	SNDRV_PCM_STATE_OPEN         PcmState = 0
	SNDRV_PCM_STATE_SETUP        PcmState = 1
	SNDRV_PCM_STATE_PREPARED     PcmState = 2
	SNDRV_PCM_STATE_RUNNING      PcmState = 3
	SNDRV_PCM_STATE_XRUN         PcmState = 4
	SNDRV_PCM_STATE_DRAINING     PcmState = 5
	SNDRV_PCM_STATE_PAUSED       PcmState = 6
	SNDRV_PCM_STATE_SUSPENDED    PcmState = 7
	SNDRV_PCM_STATE_DISCONNECTED PcmState = 8
)

var pcmStateNames = []string{"OPEN", "SETUP", "PREPARED", "RUNNING", "XRUN", "DRAINING", "PAUSED", "SUSPENDED", "DISCONNECTED"}

// String returns the kernel state name.
func (s PcmState) String() string {
	if s >= 0 && int(s) < len(pcmStateNames) {
		return pcmStateNames[s]
	}

	return "UNKNOWN"
}

// Stream direction values used by PCM_INFO.
const (
	SNDRV_PCM_STREAM_PLAYBACK = 0
	SNDRV_PCM_STREAM_CAPTURE  = 1
)

// ElemType is the value type of a control element.
type ElemType int32

const (
	SNDRV_CTL_ELEM_TYPE_NONE       ElemType = 0
	SNDRV_CTL_ELEM_TYPE_BOOLEAN    ElemType = 1
	SNDRV_CTL_ELEM_TYPE_INTEGER    ElemType = 2
	SNDRV_CTL_ELEM_TYPE_ENUMERATED ElemType = 3
	SNDRV_CTL_ELEM_TYPE_BYTES      ElemType = 4
	SNDRV_CTL_ELEM_TYPE_IEC958     ElemType = 5
	SNDRV_CTL_ELEM_TYPE_INTEGER64  ElemType = 6
)

// ElemIface is the interface a control element belongs to.
type ElemIface int32

const (
	SNDRV_CTL_ELEM_IFACE_CARD  ElemIface = 0
	SNDRV_CTL_ELEM_IFACE_MIXER ElemIface = 2
	SNDRV_CTL_ELEM_IFACE_PCM   ElemIface = 3
)

// Access bits of a control element.
const (
	SNDRV_CTL_ELEM_ACCESS_READ     = 1 << 0
	SNDRV_CTL_ELEM_ACCESS_WRITE    = 1 << 1
	SNDRV_CTL_ELEM_ACCESS_TLV_READ = 1 << 4
)

// TLV types carrying dB information.
const (
	SNDRV_CTL_TLVT_CONTAINER = 0
	SNDRV_CTL_TLVT_DB_SCALE  = 1
	SNDRV_CTL_TLVT_DB_LINEAR = 2
	SNDRV_CTL_TLVT_DB_RANGE  = 3
	SNDRV_CTL_TLVT_DB_MINMAX = 4

	SNDRV_CTL_TLVT_DB_MINMAX_MUTE = 5
)

// Control event types and masks.
const (
	SNDRV_CTL_EVENT_ELEM = 0

	SNDRV_CTL_EVENT_MASK_VALUE  = 1 << 0
	SNDRV_CTL_EVENT_MASK_INFO   = 1 << 1
	SNDRV_CTL_EVENT_MASK_ADD    = 1 << 2
	SNDRV_CTL_EVENT_MASK_REMOVE = ^uint32(0)
)

// Hardware parameter indices (SNDRV_PCM_HW_PARAM_*).
type PcmParam int

const (
	SNDRV_PCM_HW_PARAM_ACCESS      PcmParam = 0
	SNDRV_PCM_HW_PARAM_FORMAT      PcmParam = 1
	SNDRV_PCM_HW_PARAM_SUBFORMAT   PcmParam = 2
	SNDRV_PCM_HW_PARAM_SAMPLE_BITS PcmParam = 8
	SNDRV_PCM_HW_PARAM_CHANNELS    PcmParam = 10
	SNDRV_PCM_HW_PARAM_RATE        PcmParam = 11
	SNDRV_PCM_HW_PARAM_PERIOD_SIZE PcmParam = 13
	SNDRV_PCM_HW_PARAM_PERIODS     PcmParam = 15
	SNDRV_PCM_HW_PARAM_BUFFER_SIZE PcmParam = 17
	SNDRV_PCM_HW_PARAM_TICK_TIME   PcmParam = 19
)

const (
	SNDRV_PCM_ACCESS_MMAP_INTERLEAVED = 0
	SNDRV_PCM_INTERVAL_INTEGER        = 1 << 2
	SNDRV_PCM_TSTAMP_ENABLE           = 1

	SNDRV_PCM_TSTAMP_TYPE_MONOTONIC_RAW = 2
)

// Offsets of the status and control pages for mmap.
const (
	SNDRV_PCM_MMAP_OFFSET_STATUS  = 0x80000000
	SNDRV_PCM_MMAP_OFFSET_CONTROL = 0x81000000
)

const (
	SNDRV_PCM_SYNC_PTR_HWSYNC    = 1 << 0
	SNDRV_PCM_SYNC_PTR_APPL      = 1 << 1
	SNDRV_PCM_SYNC_PTR_AVAIL_MIN = 1 << 2
)
