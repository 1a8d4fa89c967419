package gpio

import (
	"fmt"

	"github.com/cjeanneret/snapkeep/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDriver is the real implementation for Raspberry Pi using go-rpio.
type RPiDriver struct {
	pins map[int]rpio.Pin
}

// NewRPiDriver memory-maps the GPIO registers.
// Requires running on a Raspberry Pi with access to /dev/gpiomem or as root.
func NewRPiDriver() (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}

	debug.Verbose("GPIO memory mapped successfully")

	return &RPiDriver{
		pins: make(map[int]rpio.Pin),
	}, nil
}

func (r *RPiDriver) SetupOutput(pin int) error {
	debug.GPIO("SetupOutput", pin, nil)
	if pin < 0 || pin > 27 {
		return fmt.Errorf("invalid BCM pin %d", pin)
	}

	p := rpio.Pin(pin)
	p.Output()
	r.pins[pin] = p
	return nil
}

func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)

	p, ok := r.pins[pin]
	if !ok {
		if err := r.SetupOutput(pin); err != nil {
			return err
		}
		p = r.pins[pin]
	}

	if level == High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (real driver)")

	// Release lines (HIGH = inactive on the remote connector), then input.
	for pin, p := range r.pins {
		debug.Verbose("Releasing pin %d", pin)
		p.High()
		p.Input()
	}

	return rpio.Close()
}
