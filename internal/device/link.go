// Package device owns the serial link to the measurement device: one open
// port at a time, a single reader goroutine framing the byte stream into
// lines, and an ordered event stream interpreted from those lines.
package device

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"pressurebench/internal/protocol"
)

const (
	// DefaultBaud matches the firmware's fixed bit rate.
	DefaultBaud = 115200

	// settleDelay between closing an old link and opening a new one, to
	// avoid resource contention on the underlying port.
	settleDelay = 100 * time.Millisecond

	readBufSize  = 256
	pendingMax   = 4096
	updateBufCap = 256
)

// DeviceError reports a link open/write/close failure. Never fatal to the
// process; the caller surfaces it and continues.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return "device: " + e.Op
	}
	return fmt.Sprintf("device: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

func deviceErr(op string, err error) error {
	return &DeviceError{Op: op, Err: err}
}

// Update is one item on the link's ordered event stream: an interpreted
// protocol event, or a bare link state change when Event is nil.
type Update struct {
	Event     protocol.Event
	Connected bool
	Err       error
}

type resettablePort interface {
	ResetInputBuffer() error
}

// Manager is the single-link serial manager. All methods are safe for
// concurrent use; the event stream must be drained by one consumer.
type Manager struct {
	log  *logrus.Entry
	baud int

	// openPort is swapped out by tests to drive the reader loop with an
	// in-memory pipe.
	openPort func(path string, baud int) (io.ReadWriteCloser, error)
	settle   time.Duration

	updates chan Update

	mu      sync.Mutex
	port    io.ReadWriteCloser
	path    string
	closing chan struct{}
	done    chan struct{}
}

// NewManager returns a manager with no link open.
func NewManager(log *logrus.Entry) *Manager {
	return &Manager{
		log:      log,
		baud:     DefaultBaud,
		openPort: openSerialPort,
		settle:   settleDelay,
		updates:  make(chan Update, updateBufCap),
	}
}

func openSerialPort(path string, baud int) (io.ReadWriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(path, mode)
}

// Updates returns the link's event stream. Arrival order of device lines is
// preserved exactly.
func (m *Manager) Updates() <-chan Update {
	return m.updates
}

// SetBaud overrides the bit rate used by subsequent Connect calls.
func (m *Manager) SetBaud(baud int) {
	if baud > 0 {
		m.baud = baud
	}
}

// IsConnected reports whether a link is currently open.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.port != nil
}

// Path returns the open port path, empty when disconnected.
func (m *Manager) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// Connect opens the link on path, fully tearing down any previous link
// first. At most one link is open at a time.
func (m *Manager) Connect(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return deviceErr("connect: empty port path", nil)
	}

	m.teardown()
	time.Sleep(m.settle)

	port, err := m.openPort(path, m.baud)
	if err != nil {
		return deviceErr("open "+path, err)
	}
	if rp, ok := port.(resettablePort); ok {
		// Flush unread bytes buffered by the OS before the first frame.
		_ = rp.ResetInputBuffer()
	}

	m.mu.Lock()
	m.port = port
	m.path = path
	m.closing = make(chan struct{})
	m.done = make(chan struct{})
	m.mu.Unlock()

	m.log.WithField("port", path).Info("serial link opened")
	m.push(Update{Connected: true})
	go m.readLoop(port, m.closing, m.done)
	return nil
}

// Disconnect closes the link if open. Idempotent.
func (m *Manager) Disconnect() error {
	m.teardown()
	return nil
}

// Send writes one newline-terminated command verbatim, fire-and-forget.
func (m *Manager) Send(cmd string) error {
	m.mu.Lock()
	port := m.port
	m.mu.Unlock()
	if port == nil {
		return deviceErr("port not open", nil)
	}

	if !strings.HasSuffix(cmd, "\n") {
		cmd += "\n"
	}
	if _, err := io.WriteString(port, cmd); err != nil {
		return deviceErr("write", err)
	}
	return nil
}

// teardown closes the current link and waits for its reader to exit.
func (m *Manager) teardown() {
	m.mu.Lock()
	port := m.port
	closing := m.closing
	done := m.done
	m.port = nil
	m.path = ""
	m.closing = nil
	m.done = nil
	m.mu.Unlock()

	if port == nil {
		return
	}
	if closing != nil {
		close(closing)
	}
	_ = port.Close()
	if done != nil {
		<-done
	}
}

func (m *Manager) readLoop(port io.ReadWriteCloser, closing, done chan struct{}) {
	defer close(done)

	buf := make([]byte, readBufSize)
	pending := ""
	for {
		n, err := port.Read(buf)
		if n > 0 {
			pending = appendPending(pending, string(buf[:n]), pendingMax)
			for {
				frame, rest, ok := popLineFrame(pending)
				if !ok {
					break
				}
				pending = rest
				line := strings.TrimSpace(frame)
				for _, ev := range protocol.Interpret(line, time.Now()) {
					if !m.pushOrClosing(Update{Event: ev, Connected: true}, closing) {
						return
					}
				}
			}
		}
		if err != nil {
			m.finishRead(port, err, closing)
			return
		}
	}
}

// finishRead clears the link state after the reader stops, then reports the
// disconnect. A torn-down link (closing already signalled) reports quietly.
func (m *Manager) finishRead(port io.ReadWriteCloser, err error, closing chan struct{}) {
	m.mu.Lock()
	stillCurrent := m.port == port
	if stillCurrent {
		m.port = nil
		m.path = ""
		m.closing = nil
		m.done = nil
	}
	m.mu.Unlock()

	select {
	case <-closing:
		// Deliberate teardown; the disconnect was requested.
		m.push(Update{Connected: false})
	default:
		if err != io.EOF {
			m.log.WithField("error", err).Warn("serial read failed")
			m.push(Update{Connected: false, Err: deviceErr("read", err)})
			return
		}
		m.push(Update{Connected: false})
	}
}

// push delivers link status changes without ever blocking the caller; a
// full buffer drops the status update, never a protocol event.
func (m *Manager) push(u Update) {
	select {
	case m.updates <- u:
	default:
	}
}

func (m *Manager) pushOrClosing(u Update, closing chan struct{}) bool {
	select {
	case m.updates <- u:
		return true
	case <-closing:
		return false
	}
}
