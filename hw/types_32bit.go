//go:build linux && (386 || arm)

package hw

import "golang.org/x/sys/unix"

// uframes mirrors snd_pcm_uframes_t (unsigned long).
type uframes = uint32

// clong mirrors C long.
type clong = int32

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

// sndPcmSwParams mirrors struct snd_pcm_sw_params.
type sndPcmSwParams struct {
	TstampMode       uint32
	PeriodStep       uint32
	SleepMin         uint32
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
	S     struct {
		sndPcmMmapStatus
		_ [32]byte
	}
	C struct {
		sndPcmMmapControl
		_ [56]byte
	}
}

// sndCtlElemValue mirrors struct snd_ctl_elem_value; the value union is long[128].
type sndCtlElemValue struct {
	Id       sndCtlElemId
	_        [4]byte
	Value    [512]byte
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
