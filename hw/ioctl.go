package hw

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl issues one ioctl on fd.
func ioctl(fd uintptr, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, arg)
	if errno != 0 {
		return errno
	}

	return nil
}

const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNrShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
)

// ioc builds a Linux ioctl request number.
func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNrShift | size<<iocSizeShift
}

var (
	SNDRV_PCM_IOCTL_INFO      = ioc(iocRead, 'A', 0x01, unsafe.Sizeof(sndPcmInfo{}))
	SNDRV_PCM_IOCTL_TTSTAMP   = ioc(iocWrite, 'A', 0x03, unsafe.Sizeof(int32(0)))
	SNDRV_PCM_IOCTL_HW_REFINE = ioc(iocRead|iocWrite, 'A', 0x10, unsafe.Sizeof(sndPcmHwParams{}))
	SNDRV_PCM_IOCTL_HW_PARAMS = ioc(iocRead|iocWrite, 'A', 0x11, unsafe.Sizeof(sndPcmHwParams{}))
	SNDRV_PCM_IOCTL_HW_FREE   = ioc(iocNone, 'A', 0x12, 0)
	SNDRV_PCM_IOCTL_SW_PARAMS = ioc(iocRead|iocWrite, 'A', 0x13, unsafe.Sizeof(sndPcmSwParams{}))
	SNDRV_PCM_IOCTL_DELAY     = ioc(iocRead, 'A', 0x21, unsafe.Sizeof(clong(0)))
	SNDRV_PCM_IOCTL_HWSYNC    = ioc(iocNone, 'A', 0x22, 0)
	SNDRV_PCM_IOCTL_SYNC_PTR  = ioc(iocRead|iocWrite, 'A', 0x23, unsafe.Sizeof(sndPcmSyncPtr{}))
	SNDRV_PCM_IOCTL_PREPARE   = ioc(iocNone, 'A', 0x40, 0)
	SNDRV_PCM_IOCTL_START     = ioc(iocNone, 'A', 0x42, 0)
	SNDRV_PCM_IOCTL_DROP      = ioc(iocNone, 'A', 0x43, 0)

	SNDRV_CTL_IOCTL_CARD_INFO        = ioc(iocRead, 'U', 0x01, unsafe.Sizeof(sndCtlCardInfo{}))
	SNDRV_CTL_IOCTL_ELEM_LIST        = ioc(iocRead|iocWrite, 'U', 0x10, unsafe.Sizeof(sndCtlElemList{}))
	SNDRV_CTL_IOCTL_ELEM_INFO        = ioc(iocRead|iocWrite, 'U', 0x11, unsafe.Sizeof(sndCtlElemInfo{}))
	SNDRV_CTL_IOCTL_ELEM_READ        = ioc(iocRead|iocWrite, 'U', 0x12, unsafe.Sizeof(sndCtlElemValue{}))
	SNDRV_CTL_IOCTL_ELEM_WRITE       = ioc(iocRead|iocWrite, 'U', 0x13, unsafe.Sizeof(sndCtlElemValue{}))
	SNDRV_CTL_IOCTL_SUBSCRIBE_EVENTS = ioc(iocRead|iocWrite, 'U', 0x16, unsafe.Sizeof(int32(0)))
	SNDRV_CTL_IOCTL_TLV_READ         = ioc(iocRead|iocWrite, 'U', 0x1a, unsafe.Sizeof(sndCtlTlv{}))
	SNDRV_CTL_IOCTL_PCM_NEXT_DEVICE  = ioc(iocRead, 'U', 0x30, unsafe.Sizeof(int32(0)))
	SNDRV_CTL_IOCTL_PCM_INFO         = ioc(iocRead|iocWrite, 'U', 0x31, unsafe.Sizeof(sndPcmInfo{}))
)
