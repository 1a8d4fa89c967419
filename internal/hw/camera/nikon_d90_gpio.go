package camera

import (
	"time"

	"github.com/cjeanneret/snapkeep/internal/debug"
	"github.com/cjeanneret/snapkeep/internal/hw/gpio"
)

// NikonD90GPIO is a Shutter for a Nikon D90
// controlled via the 3-pin remote connector:
// - GND: connected to Raspberry Pi ground
// - FOCUS: autofocus (activate by setting to LOW)
// - SHUTTER: trigger (activate by setting to LOW)
//
// Trigger sequence:
// 1. FOCUS to LOW (activates autofocus)
// 2. Wait for autofocus to complete
// 3. SHUTTER to LOW (triggers the shot)
// 4. Hold for a moment
// 5. Set SHUTTER and FOCUS back to HIGH
type NikonD90GPIO struct {
	gpio         gpio.Driver
	focusPin     int
	shutterPin   int
	focusDelay   time.Duration // time for autofocus
	shutterDelay time.Duration // shutter hold time
}

// NewNikonD90GPIO creates a GPIO-controlled Nikon D90 trigger.
func NewNikonD90GPIO(g gpio.Driver, focusPin, shutterPin int, focusDelay, shutterDelay time.Duration) *NikonD90GPIO {
	_ = g.SetupOutput(focusPin)
	_ = g.SetupOutput(shutterPin)

	// By default, lines are HIGH (inactive)
	_ = g.WritePin(focusPin, gpio.High)
	_ = g.WritePin(shutterPin, gpio.High)

	return &NikonD90GPIO{
		gpio:         g,
		focusPin:     focusPin,
		shutterPin:   shutterPin,
		focusDelay:   focusDelay,
		shutterDelay: shutterDelay,
	}
}

// Shoot triggers a photo on the D90.
// Sequence: FOCUS -> wait for AF -> SHUTTER -> hold -> release
func (n *NikonD90GPIO) Shoot() error {
	debug.Printf("Camera: triggering shot (focus=%d, shutter=%d)", n.focusPin, n.shutterPin)

	if err := n.gpio.WritePin(n.focusPin, gpio.Low); err != nil {
		return err
	}
	time.Sleep(n.focusDelay)

	if err := n.gpio.WritePin(n.shutterPin, gpio.Low); err != nil {
		// Release FOCUS on error
		_ = n.gpio.WritePin(n.focusPin, gpio.High)
		return err
	}
	time.Sleep(n.shutterDelay)

	if err := n.gpio.WritePin(n.shutterPin, gpio.High); err != nil {
		return err
	}
	if err := n.gpio.WritePin(n.focusPin, gpio.High); err != nil {
		return err
	}

	debug.Verbose("Camera: shutter released")
	return nil
}
