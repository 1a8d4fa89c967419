package gpio

import (
	"sync"

	"github.com/cjeanneret/snapkeep/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Driver is the output-only GPIO surface needed to fire a camera's
// remote release lines. Implementations: RPiDriver on a Raspberry Pi,
// MockDriver everywhere else.
type Driver interface {
	SetupOutput(pin int) error
	WritePin(pin int, level Level) error
	Close() error
}

// Write is one recorded WritePin call.
type Write struct {
	Pin   int
	Level Level
}

// MockDriver logs pin activity and remembers the last level of every pin.
// Used for development on PC or testing.
type MockDriver struct {
	mu     sync.Mutex
	levels map[int]Level
	writes []Write
}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a real RPiDriver (for Raspberry Pi).
func NewDriver(mock bool) (Driver, error) {
	if mock {
		debug.Info("Using MOCK GPIO driver (development mode)")
		return NewMockDriver(), nil
	}
	return NewRPiDriver()
}

// NewMockDriver returns an empty MockDriver.
func NewMockDriver() *MockDriver {
	return &MockDriver{levels: make(map[int]Level)}
}

func (m *MockDriver) SetupOutput(pin int) error {
	debug.GPIO("SetupOutput", pin, nil)
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.levels == nil {
		m.levels = make(map[int]Level)
	}
	m.levels[pin] = level
	m.writes = append(m.writes, Write{Pin: pin, Level: level})
	return nil
}

// PinLevel returns the last level written to pin.
func (m *MockDriver) PinLevel(pin int) (Level, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.levels[pin]
	return l, ok
}

// Writes returns a copy of every WritePin call so far.
func (m *MockDriver) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	return nil
}
