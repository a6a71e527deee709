package hw

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

// PcmParams is the parameter space a PCM accepts.
type PcmParams struct {
	params *sndPcmHwParams
}

// PcmParamsGetRefined opens a PCM without configuring it and asks the kernel to
// restrict every parameter to what the hardware supports.
func PcmParamsGetRefined(card, device uint, capture bool) (*PcmParams, error) {
	dir := 'p'
	if capture {
		dir = 'c'
	}

	path := filepath.Join(DevDir, fmt.Sprintf("pcmC%dD%d%c", card, device, dir))

	file, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCM device %s for query: %w", path, err)
	}
	defer file.Close()

	hw := &sndPcmHwParams{}
	paramInit(hw)

	if err := ioctl(file.Fd(), SNDRV_PCM_IOCTL_HW_REFINE, uintptr(unsafe.Pointer(hw))); err != nil {
		return nil, fmt.Errorf("ioctl HW_REFINE failed: %w", err)
	}

	return &PcmParams{params: hw}, nil
}

// RangeMin returns the minimum value of an interval parameter.
func (pp *PcmParams) RangeMin(param PcmParam) (uint32, error) {
	if pp == nil || pp.params == nil {
		return 0, fmt.Errorf("params not initialized")
	}

	i := interval(pp.params, param)
	if i == nil {
		return 0, fmt.Errorf("parameter %d is not an interval type", param)
	}

	return i.MinVal, nil
}

// RangeMax returns the maximum value of an interval parameter.
func (pp *PcmParams) RangeMax(param PcmParam) (uint32, error) {
	if pp == nil || pp.params == nil {
		return 0, fmt.Errorf("params not initialized")
	}

	i := interval(pp.params, param)
	if i == nil {
		return 0, fmt.Errorf("parameter %d is not an interval type", param)
	}

	return i.MaxVal, nil
}

// FormatIsSupported reports whether the format mask holds the given SNDRV_PCM_FORMAT value.
func (pp *PcmParams) FormatIsSupported(format int32) bool {
	if pp == nil || pp.params == nil || format < 0 || format >= 256 {
		return false
	}

	mask := &pp.params.Masks[SNDRV_PCM_HW_PARAM_FORMAT-SNDRV_PCM_HW_PARAM_ACCESS]

	return mask.Bits[format>>5]&(1<<(uint32(format)&31)) != 0
}

func paramInit(p *sndPcmHwParams) {
	for n := range p.Masks {
		for i := range p.Masks[n].Bits {
			p.Masks[n].Bits[i] = ^uint32(0)
		}
	}

	for n := range p.Mres {
		for i := range p.Mres[n].Bits {
			p.Mres[n].Bits[i] = ^uint32(0)
		}
	}

	for n := range p.Intervals {
		p.Intervals[n] = sndInterval{MaxVal: ^uint32(0)}
	}

	for n := range p.Ires {
		p.Ires[n] = sndInterval{MaxVal: ^uint32(0)}
	}

	p.Rmask = ^uint32(0)
	p.Info = ^uint32(0)
}

func paramSetMask(p *sndPcmHwParams, param PcmParam, bit uint32) {
	if param > SNDRV_PCM_HW_PARAM_SUBFORMAT || bit >= 256 {
		return
	}

	mask := &p.Masks[param-SNDRV_PCM_HW_PARAM_ACCESS]
	mask.Bits = [8]uint32{}
	mask.Bits[bit>>5] |= 1 << (bit & 31)
}

func interval(p *sndPcmHwParams, param PcmParam) *sndInterval {
	if param < SNDRV_PCM_HW_PARAM_SAMPLE_BITS || param > SNDRV_PCM_HW_PARAM_TICK_TIME {
		return nil
	}

	return &p.Intervals[param-SNDRV_PCM_HW_PARAM_SAMPLE_BITS]
}

func paramSetInt(p *sndPcmHwParams, param PcmParam, val uint32) {
	if i := interval(p, param); i != nil {
		*i = sndInterval{MinVal: val, MaxVal: val, Flags: SNDRV_PCM_INTERVAL_INTEGER}
	}
}

func paramSetMin(p *sndPcmHwParams, param PcmParam, val uint32) {
	if i := interval(p, param); i != nil {
		i.MinVal = val
	}
}

func paramGetInt(p *sndPcmHwParams, param PcmParam) uint32 {
	if i := interval(p, param); i != nil {
		return i.MinVal
	}

	return 0
}
