package device

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"pressurebench/internal/protocol"
)

type fakePort struct {
	rd *io.PipeReader

	mu      sync.Mutex
	written bytes.Buffer
}

func (f *fakePort) Read(p []byte) (int, error) { return f.rd.Read(p) }

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.Write(p)
}

func (f *fakePort) Close() error { return f.rd.Close() }

func (f *fakePort) Written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.String()
}

func newTestManager(t *testing.T) (*Manager, func() (*fakePort, *io.PipeWriter)) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	m := NewManager(logrus.NewEntry(logger))
	m.settle = 0

	var mu sync.Mutex
	var current *fakePort
	var feeder *io.PipeWriter
	m.openPort = func(path string, baud int) (io.ReadWriteCloser, error) {
		mu.Lock()
		defer mu.Unlock()
		pr, pw := io.Pipe()
		current = &fakePort{rd: pr}
		feeder = pw
		return current, nil
	}

	t.Cleanup(func() { _ = m.Disconnect() })
	return m, func() (*fakePort, *io.PipeWriter) {
		mu.Lock()
		defer mu.Unlock()
		return current, feeder
	}
}

func nextUpdate(t *testing.T, m *Manager) Update {
	t.Helper()
	select {
	case u := <-m.Updates():
		return u
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for update")
		return Update{}
	}
}

func TestConnectStreamsInterpretedEventsInOrder(t *testing.T) {
	m, ports := newTestManager(t)
	if err := m.Connect("/dev/ttyACM0"); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if !m.IsConnected() {
		t.Fatalf("expected connected link")
	}

	u := nextUpdate(t, m)
	if u.Event != nil || !u.Connected {
		t.Fatalf("first update must be the connect status: %+v", u)
	}

	_, feeder := ports()
	go func() {
		_, _ = feeder.Write([]byte(">>> SNAPSHOT: 12.50 g, 3.200 g/mm\r\nhello world\nTare done.\n"))
	}()

	u = nextUpdate(t, m)
	rd, ok := u.Event.(protocol.ReadingEvent)
	if !ok {
		t.Fatalf("expected ReadingEvent, got %T", u.Event)
	}
	if rd.Grams != 12.5 || rd.Stress != 3.2 {
		t.Fatalf("reading mismatch: %+v", rd)
	}

	u = nextUpdate(t, m)
	if _, ok := u.Event.(protocol.RawLine); !ok {
		t.Fatalf("expected RawLine after reading, got %T", u.Event)
	}

	u = nextUpdate(t, m)
	raw, ok := u.Event.(protocol.RawLine)
	if !ok {
		t.Fatalf("expected RawLine, got %T", u.Event)
	}
	if raw.Text != "hello world" {
		t.Fatalf("line order not preserved: got=%q", raw.Text)
	}

	u = nextUpdate(t, m)
	ce, ok := u.Event.(protocol.CalibrationEvent)
	if !ok {
		t.Fatalf("expected CalibrationEvent, got %T", u.Event)
	}
	if ce.Status != protocol.StatusTared {
		t.Fatalf("status mismatch: got=%q", ce.Status)
	}
}

func TestSendAppendsNewline(t *testing.T) {
	m, ports := newTestManager(t)
	if err := m.Connect("/dev/ttyACM0"); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	nextUpdate(t, m) // connect status

	if err := m.Send("CAL"); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	fp, _ := ports()
	if got := fp.Written(); got != "CAL\n" {
		t.Fatalf("written mismatch: got=%q want=%q", got, "CAL\n")
	}
}

func TestSendWithoutLinkFails(t *testing.T) {
	m, _ := newTestManager(t)
	err := m.Send("CAL")
	var de *DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeviceError, got %v", err)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Connect("/dev/ttyACM0"); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	nextUpdate(t, m)

	if err := m.Disconnect(); err != nil {
		t.Fatalf("Disconnect error: %v", err)
	}
	if m.IsConnected() {
		t.Fatalf("link must be closed")
	}
	if err := m.Disconnect(); err != nil {
		t.Fatalf("second Disconnect error: %v", err)
	}
}

func TestReconnectReplacesLink(t *testing.T) {
	m, ports := newTestManager(t)
	if err := m.Connect("/dev/ttyACM0"); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	nextUpdate(t, m)
	firstPort, _ := ports()

	if err := m.Connect("/dev/ttyACM1"); err != nil {
		t.Fatalf("reconnect error: %v", err)
	}
	secondPort, feeder := ports()
	if firstPort == secondPort {
		t.Fatalf("reconnect must open a fresh port")
	}
	if got := m.Path(); got != "/dev/ttyACM1" {
		t.Fatalf("path mismatch: got=%q", got)
	}

	// Drain any status updates from the teardown, then verify the new
	// link is live.
	go func() {
		_, _ = feeder.Write([]byte("hello\n"))
	}()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case u := <-m.Updates():
			if raw, ok := u.Event.(protocol.RawLine); ok {
				if raw.Text != "hello" {
					t.Fatalf("unexpected line: %q", raw.Text)
				}
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for line on new link")
		}
	}
}

func TestReaderErrorReportsDisconnect(t *testing.T) {
	m, ports := newTestManager(t)
	if err := m.Connect("/dev/ttyACM0"); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	nextUpdate(t, m)

	_, feeder := ports()
	_ = feeder.CloseWithError(errors.New("unplugged"))

	u := nextUpdate(t, m)
	if u.Connected {
		t.Fatalf("expected disconnect update: %+v", u)
	}
	if u.Err == nil {
		t.Fatalf("expected read error on disconnect update")
	}
	if m.IsConnected() {
		t.Fatalf("link state must be cleared after reader error")
	}
}
