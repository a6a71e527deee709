package hw

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Config holds the stream parameters requested at open time.
type Config struct {
	Format      int32
	Channels    uint32
	Rate        uint32
	PeriodSize  uint32
	PeriodCount uint32
}

// PCM is an open mmap'ed PCM stream.
type PCM struct {
	file        *os.File
	capture     bool
	config      Config
	frameBytes  uint32
	bufferSize  uint32
	boundary    uframes
	buffer      []byte
	status      *sndPcmMmapStatus
	control     *sndPcmMmapControl
	syncPointer *sndPcmSyncPtr
	isMmapped   bool
}

// PcmOpen opens /dev/snd/pcmC<card>D<device>{p,c} for interleaved mmap access.
// Playback streams never stop on underrun; the hardware pointer keeps running.
func PcmOpen(card, device uint, capture bool, config Config) (*PCM, error) {
	dir := 'p'
	if capture {
		dir = 'c'
	}

	path := filepath.Join(DevDir, fmt.Sprintf("pcmC%dD%d%c", card, device, dir))

	file, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCM device %s: %w", path, err)
	}

	p := &PCM{file: file, capture: capture, config: config}

	if err := p.setHwParams(); err != nil {
		_ = p.Close()

		return nil, err
	}

	if err := p.setSwParams(); err != nil {
		_ = p.Close()

		return nil, err
	}

	if err := p.mapStatusAndControl(); err != nil {
		_ = p.Close()

		return nil, err
	}

	if err := p.Prepare(); err != nil {
		_ = p.Close()

		return nil, err
	}

	return p, nil
}

func (p *PCM) setHwParams() error {
	hw := &sndPcmHwParams{}
	paramInit(hw)

	paramSetMask(hw, SNDRV_PCM_HW_PARAM_ACCESS, SNDRV_PCM_ACCESS_MMAP_INTERLEAVED)
	paramSetMask(hw, SNDRV_PCM_HW_PARAM_FORMAT, uint32(p.config.Format))
	paramSetInt(hw, SNDRV_PCM_HW_PARAM_CHANNELS, p.config.Channels)
	paramSetInt(hw, SNDRV_PCM_HW_PARAM_RATE, p.config.Rate)
	if p.config.PeriodSize > 0 {
		paramSetMin(hw, SNDRV_PCM_HW_PARAM_PERIOD_SIZE, p.config.PeriodSize)
	}
	if p.config.PeriodCount > 0 {
		paramSetInt(hw, SNDRV_PCM_HW_PARAM_PERIODS, p.config.PeriodCount)
	}

	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_HW_PARAMS, uintptr(unsafe.Pointer(hw))); err != nil {
		return fmt.Errorf("ioctl HW_PARAMS failed: %w", err)
	}

	p.config.Channels = paramGetInt(hw, SNDRV_PCM_HW_PARAM_CHANNELS)
	p.config.Rate = paramGetInt(hw, SNDRV_PCM_HW_PARAM_RATE)
	p.config.PeriodSize = paramGetInt(hw, SNDRV_PCM_HW_PARAM_PERIOD_SIZE)
	p.config.PeriodCount = paramGetInt(hw, SNDRV_PCM_HW_PARAM_PERIODS)
	p.bufferSize = paramGetInt(hw, SNDRV_PCM_HW_PARAM_BUFFER_SIZE)
	if p.bufferSize == 0 {
		p.bufferSize = p.config.PeriodSize * p.config.PeriodCount
	}

	bits := paramGetInt(hw, SNDRV_PCM_HW_PARAM_SAMPLE_BITS)
	p.frameBytes = p.config.Channels * formatBytes(p.config.Format, bits)

	if p.config.Channels == 0 || p.config.Rate == 0 || p.bufferSize == 0 || p.frameBytes == 0 {
		return fmt.Errorf("driver finalized invalid configuration (channels=%d, rate=%d, buffer=%d)",
			p.config.Channels, p.config.Rate, p.bufferSize)
	}

	prot := unix.PROT_READ | unix.PROT_WRITE
	if p.capture {
		prot = unix.PROT_READ
	}

	buf, err := unix.Mmap(int(p.file.Fd()), 0, int(p.bufferSize*p.frameBytes), prot, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap data buffer failed: %w", err)
	}
	p.buffer = buf

	return nil
}

func (p *PCM) setSwParams() error {
	// Kernels without TTSTAMP keep wall-clock stamps.
	tstampType := int32(SNDRV_PCM_TSTAMP_TYPE_MONOTONIC_RAW)
	_ = ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_TTSTAMP, uintptr(unsafe.Pointer(&tstampType)))

	sw := &sndPcmSwParams{
		TstampMode: SNDRV_PCM_TSTAMP_ENABLE,
		PeriodStep: 1,
		AvailMin:   uframes(p.config.PeriodSize),
	}

	if p.capture {
		sw.StartThreshold = 1
		sw.StopThreshold = uframes(p.bufferSize)
	} else {
		// Ask the driver for the boundary first, then never stop on underrun.
		if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_SW_PARAMS, uintptr(unsafe.Pointer(sw))); err != nil {
			return fmt.Errorf("ioctl SW_PARAMS (boundary) failed: %w", err)
		}
		sw.StartThreshold = sw.Boundary
		sw.StopThreshold = sw.Boundary
	}

	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_SW_PARAMS, uintptr(unsafe.Pointer(sw))); err != nil {
		return fmt.Errorf("ioctl SW_PARAMS failed: %w", err)
	}

	p.boundary = sw.Boundary

	return nil
}

// Close unmaps all pages and closes the stream.
func (p *PCM) Close() error {
	if p == nil || p.file == nil {
		return nil
	}

	_ = ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_DROP, 0)
	p.unmapStatusAndControl()

	if p.buffer != nil {
		_ = unix.Munmap(p.buffer)
		p.buffer = nil
	}

	err := p.file.Close()
	p.file = nil

	return err
}

// Fd returns the pollable descriptor of the stream.
func (p *PCM) Fd() int {
	if p == nil || p.file == nil {
		return -1
	}

	return int(p.file.Fd())
}

// BufferSize returns the ring buffer size in frames.
func (p *PCM) BufferSize() uint32 { return p.bufferSize }

// Rate returns the negotiated sample rate.
func (p *PCM) Rate() uint32 { return p.config.Rate }

// Channels returns the negotiated channel count.
func (p *PCM) Channels() uint32 { return p.config.Channels }

// PeriodSize returns the negotiated period size in frames.
func (p *PCM) PeriodSize() uint32 { return p.config.PeriodSize }

// FrameBytes returns the size of one interleaved frame.
func (p *PCM) FrameBytes() uint32 { return p.frameBytes }

// Prepare moves the stream to PREPARED.
func (p *PCM) Prepare() error {
	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_PREPARE, 0); err != nil {
		return fmt.Errorf("ioctl PREPARE failed: %w", err)
	}

	return p.syncPtr(SNDRV_PCM_SYNC_PTR_APPL | SNDRV_PCM_SYNC_PTR_AVAIL_MIN)
}

// Start starts the stream unless it is already running.
func (p *PCM) Start() error {
	if p.State() == SNDRV_PCM_STATE_RUNNING {
		return nil
	}

	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_START, 0); err != nil {
		return fmt.Errorf("ioctl START failed: %w", err)
	}

	return nil
}

// State returns the current stream state.
func (p *PCM) State() PcmState {
	if err := p.syncPtr(SNDRV_PCM_SYNC_PTR_APPL | SNDRV_PCM_SYNC_PTR_AVAIL_MIN); err != nil {
		return SNDRV_PCM_STATE_DISCONNECTED
	}

	return PcmState(atomic.LoadInt32(&p.status.State))
}

// Avail returns the frames that can be written (playback) or read (capture).
// For playback a value above the buffer size means the hardware overtook the
// application pointer; the stream keeps running regardless.
func (p *PCM) Avail() (uint32, error) {
	if err := p.syncPtr(SNDRV_PCM_SYNC_PTR_HWSYNC); err != nil {
		return 0, fmt.Errorf("hwsync failed: %w", err)
	}

	return uint32(p.rawAvail()), nil
}

// Timestamp returns Avail together with the time the kernel last updated the
// hardware pointer, on the raw monotonic clock.
func (p *PCM) Timestamp() (uint32, time.Time, error) {
	avail, err := p.Avail()
	if err != nil {
		return 0, time.Time{}, err
	}

	ts := p.status.Tstamp

	return avail, time.Unix(ts.Unix()), nil
}

// Delay returns the frames between the application pointer and the sample being heard or captured now.
func (p *PCM) Delay() (int, error) {
	var delay clong
	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_DELAY, uintptr(unsafe.Pointer(&delay))); err != nil {
		return 0, fmt.Errorf("ioctl DELAY failed: %w", err)
	}

	return int(delay), nil
}

// Forward drops every captured frame not yet read and returns how many were dropped.
func (p *PCM) Forward() (uint32, error) {
	if !p.capture {
		return 0, fmt.Errorf("cannot forward a playback stream")
	}

	avail, err := p.Avail()
	if err != nil {
		return 0, err
	}

	if avail == 0 {
		return 0, nil
	}

	return avail, p.MmapCommit(avail)
}

func (p *PCM) rawAvail() int64 {
	appl := int64(loadUframes(&p.control.ApplPtr))
	hw := int64(loadUframes(&p.status.HwPtr))

	if p.capture {
		avail := hw - appl
		if avail < 0 {
			avail += int64(p.boundary)
		}

		return avail
	}

	avail := hw + int64(p.bufferSize) - appl
	if avail < 0 {
		avail += int64(p.boundary)
	} else if avail >= int64(p.boundary) {
		avail -= int64(p.boundary)
	}

	return avail
}

// MmapBegin returns the contiguous writable/readable region at the application pointer, up to frames long.
func (p *PCM) MmapBegin(frames uint32) ([]byte, uint32, error) {
	avail, err := p.Avail()
	if err != nil {
		return nil, 0, err
	}

	frames = min(frames, avail, p.bufferSize)

	offset := uint32(uint64(loadUframes(&p.control.ApplPtr)) % uint64(p.bufferSize))
	if contiguous := p.bufferSize - offset; frames > contiguous {
		frames = contiguous
	}

	start := offset * p.frameBytes

	return p.buffer[start : start+frames*p.frameBytes], frames, nil
}

// MmapCommit advances the application pointer by frames.
func (p *PCM) MmapCommit(frames uint32) error {
	appl := loadUframes(&p.control.ApplPtr) + uframes(frames)
	if p.boundary > 0 && appl >= p.boundary {
		appl -= p.boundary
	}
	storeUframes(&p.control.ApplPtr, appl)

	return p.syncPtr(0)
}

// FillWholeBufferZeros writes silence over the entire ring buffer.
func (p *PCM) FillWholeBufferZeros() error {
	if p.capture {
		return fmt.Errorf("cannot fill a capture buffer")
	}

	clear(p.buffer)

	return nil
}

// ResumeApplPtr places the application pointer ahead frames past the hardware pointer.
func (p *PCM) ResumeApplPtr(ahead uint32) error {
	if err := p.syncPtr(SNDRV_PCM_SYNC_PTR_HWSYNC); err != nil {
		return fmt.Errorf("hwsync failed: %w", err)
	}

	appl := loadUframes(&p.status.HwPtr) + uframes(ahead)
	if p.boundary > 0 && appl >= p.boundary {
		appl -= p.boundary
	}
	storeUframes(&p.control.ApplPtr, appl)

	return p.syncPtr(0)
}

// mapStatusAndControl maps the status and control pages, falling back to SYNC_PTR when the driver refuses.
func (p *PCM) mapStatusAndControl() error {
	pageSize := os.Getpagesize()
	p.syncPointer = &sndPcmSyncPtr{}

	statusBuf, err := unix.Mmap(int(p.file.Fd()), SNDRV_PCM_MMAP_OFFSET_STATUS, pageSize, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		var controlBuf []byte
		controlBuf, err = unix.Mmap(int(p.file.Fd()), SNDRV_PCM_MMAP_OFFSET_CONTROL, pageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			_ = unix.Munmap(statusBuf)
		} else {
			p.status = (*sndPcmMmapStatus)(unsafe.Pointer(&statusBuf[0]))
			p.control = (*sndPcmMmapControl)(unsafe.Pointer(&controlBuf[0]))
			p.isMmapped = true
		}
	}

	if !p.isMmapped {
		p.status = &p.syncPointer.S.sndPcmMmapStatus
		p.control = &p.syncPointer.C.sndPcmMmapControl
	}

	storeUframes(&p.control.AvailMin, uframes(p.config.PeriodSize))

	return nil
}

func (p *PCM) unmapStatusAndControl() {
	if p.isMmapped {
		pageSize := os.Getpagesize()
		_ = unix.Munmap(unsafe.Slice((*byte)(unsafe.Pointer(p.status)), pageSize))
		_ = unix.Munmap(unsafe.Slice((*byte)(unsafe.Pointer(p.control)), pageSize))
		p.isMmapped = false
	}

	p.status = nil
	p.control = nil
	p.syncPointer = nil
}

// syncPtr exchanges pointers with the kernel. With the pages mapped only HWSYNC needs an ioctl;
// without APPL in flags the application pointer is pushed to the kernel.
func (p *PCM) syncPtr(flags uint32) error {
	if p.syncPointer == nil {
		return fmt.Errorf("sync pointer not initialized")
	}

	if p.isMmapped {
		if flags&SNDRV_PCM_SYNC_PTR_HWSYNC != 0 {
			return ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_HWSYNC, 0)
		}

		return nil
	}

	p.syncPointer.Flags = flags

	return ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_SYNC_PTR, uintptr(unsafe.Pointer(p.syncPointer)))
}

func loadUframes(ptr *uframes) uframes {
	if unsafe.Sizeof(*ptr) == 8 {
		return uframes(atomic.LoadUint64((*uint64)(unsafe.Pointer(ptr))))
	}

	return uframes(atomic.LoadUint32((*uint32)(unsafe.Pointer(ptr))))
}

func storeUframes(ptr *uframes, v uframes) {
	if unsafe.Sizeof(*ptr) == 8 {
		atomic.StoreUint64((*uint64)(unsafe.Pointer(ptr)), uint64(v))
	} else {
		atomic.StoreUint32((*uint32)(unsafe.Pointer(ptr)), uint32(v))
	}
}

// formatBytes returns the container size of one sample.
func formatBytes(format int32, sampleBits uint32) uint32 {
	switch format {
	case 32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43:
		return 3
	}

	return sampleBits / 8
}
