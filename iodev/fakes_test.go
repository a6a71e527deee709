package iodev

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/ucm"
	"github.com/gen2brain/alsad/volume"
)

type ctl string

func (c ctl) Name() string { return string(c) }

type fakeMixer struct {
	outputs      []alsad.Control
	inputs       []alsad.Control
	sections     map[string]alsad.Control
	mainVolume   bool
	volumes      map[alsad.Control]bool
	dbRange      int64
	outputRanges map[alsad.Control]int64
	minCapture   int64
	maxCapture   int64
	calls        []string
}

func newFakeMixer(outputs ...alsad.Control) *fakeMixer {
	m := &fakeMixer{
		outputs:      outputs,
		sections:     make(map[string]alsad.Control),
		mainVolume:   true,
		volumes:      make(map[alsad.Control]bool),
		outputRanges: make(map[alsad.Control]int64),
	}

	for _, c := range outputs {
		m.volumes[c] = true
	}

	return m
}

func ctlName(c alsad.Control) string {
	if c == nil {
		return "<nil>"
	}

	return c.Name()
}

func (m *fakeMixer) record(format string, args ...any) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *fakeMixer) reset() { m.calls = nil }

func (m *fakeMixer) ListOutputs(fn func(alsad.Control)) {
	for _, c := range m.outputs {
		fn(c)
	}
}

func (m *fakeMixer) ListInputs(fn func(alsad.Control)) {
	for _, c := range m.inputs {
		fn(c)
	}
}

func (m *fakeMixer) ControlForSection(sec ucm.Section) alsad.Control {
	if c, ok := m.sections[sec.Mixer]; ok {
		return c
	}

	return nil
}

func (m *fakeMixer) SetOutputDB(c alsad.Control, db int64) error {
	m.record("output_db %s %d", ctlName(c), db)

	return nil
}

func (m *fakeMixer) SetCaptureDB(c alsad.Control, db int64) error {
	m.record("capture_db %s %d", ctlName(c), db)

	return nil
}

func (m *fakeMixer) SetMute(c alsad.Control, muted bool) error {
	m.record("mute %s %t", ctlName(c), muted)

	return nil
}

func (m *fakeMixer) SetCaptureMute(c alsad.Control, muted bool) error {
	m.record("capture_mute %s %t", ctlName(c), muted)

	return nil
}

func (m *fakeMixer) DBRange() int64 { return m.dbRange }

func (m *fakeMixer) OutputDBRange(c alsad.Control) int64 { return m.outputRanges[c] }

func (m *fakeMixer) MinCaptureGain(alsad.Control) int64 { return m.minCapture }

func (m *fakeMixer) MaxCaptureGain(alsad.Control) int64 { return m.maxCapture }

func (m *fakeMixer) SetOutputActive(c alsad.Control, active bool) error {
	m.record("active %s %t", ctlName(c), active)

	return nil
}

func (m *fakeMixer) HasMainVolume() bool { return m.mainVolume }

func (m *fakeMixer) HasVolume(c alsad.Control) bool { return c != nil && m.volumes[c] }

type fakeJack struct {
	name    string
	dsp     string
	ucmDev  string
	out     alsad.Control
	in      alsad.Control
	monitor string
	hdmi    bool
	routes  []bool
}

func (j *fakeJack) Name() string               { return j.name }
func (j *fakeJack) DSPName() string            { return j.dsp }
func (j *fakeJack) UCMDevice() string          { return j.ucmDev }
func (j *fakeJack) MixerOutput() alsad.Control { return j.out }
func (j *fakeJack) MixerInput() alsad.Control  { return j.in }
func (j *fakeJack) MonitorName() string        { return j.monitor }

func (j *fakeJack) UpdateNodeType(t alsad.NodeType) alsad.NodeType {
	if j.hdmi {
		return alsad.NodeTypeHDMI
	}

	return t
}

func (j *fakeJack) SetRouteEnabled(enabled bool) error {
	j.routes = append(j.routes, enabled)

	return nil
}

type fakeJackList struct {
	cb        JackCallback
	jacks     []*fakeJack
	plugged   map[*fakeJack]bool
	sections  map[string]*fakeJack
	found     bool
	destroyed bool
}

func newFakeJackList(jacks ...*fakeJack) *fakeJackList {
	return &fakeJackList{
		jacks:    jacks,
		plugged:  make(map[*fakeJack]bool),
		sections: make(map[string]*fakeJack),
	}
}

func (l *fakeJackList) factory(cb JackCallback) (JackList, error) {
	l.cb = cb

	return l, nil
}

func (l *fakeJackList) FindByNameMatching() error {
	l.found = true

	return nil
}

func (l *fakeJackList) AddForSection(sec ucm.Section) (Jack, error) {
	if sec.Jack == "" {
		return nil, nil
	}

	j, ok := l.sections[sec.Jack]
	if !ok {
		return nil, fmt.Errorf("no jack %q", sec.Jack)
	}

	return j, nil
}

func (l *fakeJackList) Report() {
	for _, j := range l.jacks {
		l.cb(j, l.plugged[j])
	}
}

func (l *fakeJackList) HasPolledJacks() bool { return len(l.jacks) > 0 }

func (l *fakeJackList) Destroy() { l.destroyed = true }

// plug delivers a plug event the way the control event handler does.
func (l *fakeJackList) plug(j *fakeJack, plugged bool) {
	l.plugged[j] = plugged
	l.cb(j, plugged)
}

type fakeStream struct {
	fd         int
	bufferSize uint32
	periodSize uint32
	frameBytes uint32
	avail      uint32
	buf        []byte
	fills      int
	resumes    []uint32
	commits    []uint32
	starts     int
	closed     bool
	availErr   error
	tstamp     time.Time
	delay      int
	delayErr   error
	forwards   int
}

func newFakeStream(bufferSize, periodSize uint32) *fakeStream {
	s := &fakeStream{
		fd:         42,
		bufferSize: bufferSize,
		periodSize: periodSize,
		frameBytes: 4,
		avail:      bufferSize,
	}
	s.buf = make([]byte, bufferSize*s.frameBytes)

	return s
}

func (s *fakeStream) Fd() int             { return s.fd }
func (s *fakeStream) BufferSize() uint32  { return s.bufferSize }
func (s *fakeStream) PeriodSize() uint32  { return s.periodSize }
func (s *fakeStream) Delay() (int, error) { return s.delay, s.delayErr }

func (s *fakeStream) Timestamp() (uint32, time.Time, error) {
	return s.avail, s.tstamp, s.availErr
}

// Forward drops what capture has ready.
func (s *fakeStream) Forward() (uint32, error) {
	s.forwards++
	dropped := s.avail
	s.avail = 0

	return dropped, nil
}

// queue sets how many frames the hardware still has to play.
func (s *fakeStream) queue(frames uint32) { s.avail = s.bufferSize - frames }

func (s *fakeStream) MmapBegin(frames uint32) ([]byte, uint32, error) {
	frames = min(frames, s.avail)
	for i := range s.buf {
		s.buf[i] = 0xaa
	}

	return s.buf[:frames*s.frameBytes], frames, nil
}

func (s *fakeStream) MmapCommit(frames uint32) error {
	s.commits = append(s.commits, frames)
	s.avail -= frames

	return nil
}

func (s *fakeStream) FillWholeBufferZeros() error {
	s.fills++
	clear(s.buf)

	return nil
}

func (s *fakeStream) ResumeApplPtr(ahead uint32) error {
	s.resumes = append(s.resumes, ahead)
	s.avail = s.bufferSize - ahead

	return nil
}

func (s *fakeStream) Start() error {
	s.starts++

	return nil
}

func (s *fakeStream) Close() error {
	s.closed = true

	return nil
}

type openCall struct {
	card, device uint32
	dir          alsad.Direction
	format       alsad.Format
	period       uint32
}

type fakeOpener struct {
	stream  *fakeStream
	calls   []openCall
	err     error
	caps    Capabilities
	capsErr error
}

func (o *fakeOpener) Capabilities(uint32, uint32, alsad.Direction) (Capabilities, error) {
	return o.caps, o.capsErr
}

func (o *fakeOpener) Open(card, device uint32, dir alsad.Direction, format alsad.Format, period uint32) (Stream, error) {
	o.calls = append(o.calls, openCall{card, device, dir, format, period})
	if o.err != nil {
		return nil, o.err
	}

	return o.stream, nil
}

type fakeThread struct {
	callbacks map[int]func() error
	removed   []int
	synced    []int
}

func newFakeThread() *fakeThread {
	return &fakeThread{callbacks: make(map[int]func() error)}
}

func (t *fakeThread) AddCallback(fd int, cb func() error) error {
	t.callbacks[fd] = cb

	return nil
}

func (t *fakeThread) RemoveCallback(fd int) {
	delete(t.callbacks, fd)
	t.removed = append(t.removed, fd)
}

func (t *fakeThread) RemoveCallbackSync(fd int) {
	delete(t.callbacks, fd)
	t.synced = append(t.synced, fd)
}

type fakeSystem struct {
	volume      int64
	mute        bool
	captureGain int64
	captureMute bool
	volumeMin   int64
	volumeMax   int64
	gainMin     int64
	gainMax     int64
}

func (s *fakeSystem) Volume() int64      { return s.volume }
func (s *fakeSystem) Mute() bool         { return s.mute }
func (s *fakeSystem) CaptureGain() int64 { return s.captureGain }
func (s *fakeSystem) CaptureMute() bool  { return s.captureMute }

func (s *fakeSystem) SetVolumeLimits(minDB, maxDB int64) {
	s.volumeMin, s.volumeMax = minDB, maxDB
}

func (s *fakeSystem) SetCaptureGainLimits(minGain, maxGain int64) {
	s.gainMin, s.gainMax = minGain, maxGain
}

type recNotifier struct {
	events []string
}

func (r *recNotifier) NodePlugged(_ *Device, n *Node, plugged bool) {
	r.events = append(r.events, fmt.Sprintf("plugged %s %t", n.Name(), plugged))
}

func (r *recNotifier) ActiveNodeChanged(_ *Device, n *Node) {
	r.events = append(r.events, "active "+n.Name())
}

func (r *recNotifier) NodesChanged(*Device) {}

func (r *recNotifier) SevereUnderrun(d *Device) {
	r.events = append(r.events, "severe "+d.Name())
}

type curves map[string]volume.Curve

func (c curves) CurveForControl(name string) volume.Curve { return c[name] }

type recordingWriter struct {
	writes []string
}

func (w *recordingWriter) SetByName(name string, value int64) error {
	w.writes = append(w.writes, fmt.Sprintf("%s=%d", name, value))

	return nil
}

func parseUCM(t *testing.T, doc string) (*ucm.Config, *recordingWriter) {
	t.Helper()

	c, err := ucm.Parse([]byte(doc))
	require.NoError(t, err)

	w := &recordingWriter{}
	c.SetWriter(w)

	return c, w
}

var (
	internalCard = alsad.CardInfo{Index: 0, Type: alsad.CardTypeInternal, Name: "HDA Intel PCH"}
	usbCard      = alsad.CardInfo{Index: 2, Type: alsad.CardTypeUSB, Name: "USB Audio", VendorID: 0x0d8c, ProductID: 0x0008, Serial: "A1B2"}
	testTime     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testClock    = time.Unix(5000, 250)
	testFormat   = alsad.Format{Sample: alsad.FormatS16LE, Rate: 48000, Channels: 2}
)

// env bundles a device with its fakes.
type env struct {
	dev      *Device
	mixer    *fakeMixer
	jacks    *fakeJackList
	system   *fakeSystem
	stream   *fakeStream
	opener   *fakeOpener
	thread   *fakeThread
	notifier *recNotifier
}

type envOption func(*Params, *env)

func withCard(card alsad.CardInfo) envOption {
	return func(p *Params, _ *env) { p.Card = card }
}

func withDirection(dir alsad.Direction) envOption {
	return func(p *Params, _ *env) { p.Direction = dir }
}

func withFirst(first bool) envOption {
	return func(p *Params, _ *env) { p.First = first }
}

func withPCM(name, id string) envOption {
	return func(p *Params, _ *env) { p.PCMName, p.PCMID = name, id }
}

func withUCM(c *ucm.Config) envOption {
	return func(p *Params, _ *env) { p.UCM = c }
}

func withCurves(c curves) envOption {
	return func(p *Params, _ *env) { p.Config = c }
}

func withMixer(m *fakeMixer) envOption {
	return func(p *Params, e *env) {
		p.Mixer = m
		e.mixer = m
	}
}

func withoutMixer() envOption {
	return func(p *Params, e *env) {
		p.Mixer = nil
		e.mixer = nil
	}
}

func withJacks(l *fakeJackList) envOption {
	return func(p *Params, e *env) {
		p.Jacks = l.factory
		e.jacks = l
	}
}

func withDevice(index uint32) envOption {
	return func(p *Params, _ *env) { p.Device = index }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()

	e := &env{
		mixer:    newFakeMixer(),
		jacks:    newFakeJackList(),
		system:   &fakeSystem{volume: 100},
		stream:   newFakeStream(4096, 512),
		thread:   newFakeThread(),
		notifier: &recNotifier{},
	}
	e.opener = &fakeOpener{stream: e.stream}

	p := Params{
		Card:      internalCard,
		PCMName:   "ALC3246 Analog",
		PCMID:     "ALC3246 Analog",
		Direction: alsad.Output,
		First:     true,
		System:    e.system,
		Opener:    e.opener,
		Thread:    e.thread,
		Notifier:  e.notifier,
		Now:       func() time.Time { return testTime },
		Clock:     func() time.Time { return testClock },
	}
	p.Mixer = e.mixer
	p.Jacks = e.jacks.factory

	for _, opt := range opts {
		opt(&p, e)
	}

	d, err := New(p)
	require.NoError(t, err)
	e.dev = d

	return e
}

func nodeNames(d *Device) []string {
	var names []string
	for _, n := range d.Nodes() {
		names = append(names, n.Name())
	}

	return names
}
