// Package periph implements board.GPIOPin on top of periph.io.
package periph

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"robobot.dev/raubase/components/board"
)

var (
	hostInitOnce sync.Once
	errHostInit  error
)

func initHost() error {
	hostInitOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			errHostInit = errors.Wrap(err, "failed to initialize periph host")
		}
	})
	return errHostInit
}

type periphGpioPin struct {
	mu      sync.Mutex
	pin     gpio.PinIO
	pinName string
}

// GPIOPinByName opens a GPIO pin through periph's registry, e.g. "GPIO16".
func GPIOPinByName(pinName string) (board.GPIOPin, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, errors.Errorf("no global pin found for %q", pinName)
	}
	return NewGPIOPin(pin), nil
}

// NewGPIOPin wraps an already opened periph pin.
func NewGPIOPin(pin gpio.PinIO) board.GPIOPin {
	return &periphGpioPin{pin: pin, pinName: pin.Name()}
}

func (gp *periphGpioPin) Set(ctx context.Context, high bool) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	l := gpio.Low
	if high {
		l = gpio.High
	}
	return errors.Wrapf(gp.pin.Out(l), "failed to set pin %s", gp.pinName)
}

func (gp *periphGpioPin) Get(ctx context.Context) (bool, error) {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	return gp.pin.Read() == gpio.High, nil
}
