package hw

// sndMask is a hw_params bitmask.
type sndMask struct {
	Bits [8]uint32
}

// sndInterval is a hw_params range.
type sndInterval struct {
	MinVal uint32
	MaxVal uint32
	Flags  uint32
}

// sndPcmInfo mirrors struct snd_pcm_info.
type sndPcmInfo struct {
	Device          uint32
	Subdevice       uint32
	Stream          int32
	Card            int32
	Id              [64]byte
	Name            [80]byte
	Subname         [32]byte
	DevClass        int32
	DevSubclass     int32
	SubdevicesCount uint32
	SubdevicesAvail uint32
	Sync            [16]byte
	Reserved        [64]byte
}

// sndCtlCardInfo mirrors struct snd_ctl_card_info.
type sndCtlCardInfo struct {
	Card       int32
	Pad        int32
	Id         [16]byte
	Driver     [16]byte
	Name       [32]byte
	Longname   [80]byte
	Reserved_  [16]byte
	Mixername  [80]byte
	Components [128]byte
}

// sndCtlElemId mirrors struct snd_ctl_elem_id.
type sndCtlElemId struct {
	Numid     uint32
	Iface     int32
	Device    uint32
	Subdevice uint32
	Name      [44]byte
	Index     uint32
}

// sndCtlElemInfo mirrors struct snd_ctl_elem_info; Value is the union sized to its largest member.
type sndCtlElemInfo struct {
	Id       sndCtlElemId
	Typ      int32
	Access   uint32
	Count    uint32
	Owner    int32
	Value    [128]byte
	Reserved [64]byte
}

// sndCtlEvent mirrors the element member of struct snd_ctl_event.
type sndCtlEvent struct {
	Typ  int32
	Mask uint32
	Id   sndCtlElemId
}

// sndCtlTlv is the header of a TLV transfer; the payload follows it.
type sndCtlTlv struct {
	Numid  uint32
	Length uint32
}

// sndCtlElemIntegerInfo overlays the integer member of the info union.
type sndCtlElemIntegerInfo struct {
	Min  clong
	Max  clong
	Step clong
}
