//go:build linux && (amd64 || arm64)

package hw

import "golang.org/x/sys/unix"

// uframes mirrors snd_pcm_uframes_t (unsigned long).
type uframes = uint64

// clong mirrors C long.
type clong = int64

// sndPcmHwParams mirrors struct snd_pcm_hw_params.
type sndPcmHwParams struct {
	Flags     uint32
	Masks     [3]sndMask
	Mres      [5]sndMask
	Intervals [12]sndInterval
	Ires      [9]sndInterval
	Rmask     uint32
	Cmask     uint32
	Info      uint32
	Msbits    uint32
	RateNum   uint32
	RateDen   uint32
	FifoSize  uframes
	Reserved  [64]byte
}

// sndPcmSwParams mirrors struct snd_pcm_sw_params; SleepMin is followed by padding on 64-bit.
type sndPcmSwParams struct {
	TstampMode       uint32
	PeriodStep       uint32
	SleepMin         uint32
	_                [4]byte
	AvailMin         uframes
	XferAlign        uframes
	StartThreshold   uframes
	StopThreshold    uframes
	SilenceThreshold uframes
	SilenceSize      uframes
	Boundary         uframes
	Reserved         [64]byte
}

// sndPcmMmapStatus mirrors the read-only status page.
type sndPcmMmapStatus struct {
	State          int32
	Pad1           int32
	HwPtr          uframes
	Tstamp         unix.Timespec
	SuspendedState int32
	_              [4]byte
	AudioTstamp    unix.Timespec
}

// sndPcmMmapControl mirrors the read-write control page.
type sndPcmMmapControl struct {
	ApplPtr  uframes
	AvailMin uframes
}

// sndPcmSyncPtr mirrors struct snd_pcm_sync_ptr; each union is 64 bytes.
type sndPcmSyncPtr struct {
	Flags uint32
	_     [4]byte
	S     struct {
		sndPcmMmapStatus
		_ [8]byte
	}
	C struct {
		sndPcmMmapControl
		_ [48]byte
	}
}

// sndCtlElemValue mirrors struct snd_ctl_elem_value; the value union is long[128].
type sndCtlElemValue struct {
	Id       sndCtlElemId
	_        [8]byte
	Value    [1024]byte
	Reserved [128]byte
}

// sndCtlElemList mirrors struct snd_ctl_elem_list.
type sndCtlElemList struct {
	Offset   uint32
	Space    uint32
	Used     uint32
	Count    uint32
	Pids     uintptr
	Reserved [50]byte
}
