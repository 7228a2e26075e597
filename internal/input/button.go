package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	DefaultPin      = "GPIO26"
	defaultDebounce = 50 * time.Millisecond
	edgePoll        = 200 * time.Millisecond
)

// GPIOButton reads a push button wired between the pin and ground, using
// the internal pull-up.
type GPIOButton struct {
	pin      gpio.PinIn
	debounce time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// OpenGPIO initialises the host drivers and claims the named pin.
func OpenGPIO(name string, logger *zap.Logger) (*GPIOButton, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init gpio host: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %s not found", name)
	}
	return NewGPIOButton(p, defaultDebounce, logger)
}

// NewGPIOButton configures p for falling-edge detection.
func NewGPIOButton(p gpio.PinIn, debounce time.Duration, logger *zap.Logger) (*GPIOButton, error) {
	if err := p.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("configure gpio pin: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GPIOButton{pin: p, debounce: debounce, logger: logger, now: time.Now}, nil
}

// Run waits for edges and notifies sig on each debounced press.
func (b *GPIOButton) Run(ctx context.Context, sig *Signal) error {
	var last time.Time
	for ctx.Err() == nil {
		if !b.pin.WaitForEdge(edgePoll) {
			continue
		}
		if b.pin.Read() != gpio.Low {
			continue
		}
		now := b.now()
		if !last.IsZero() && now.Sub(last) < b.debounce {
			continue
		}
		last = now
		b.logger.Debug("button_pressed")
		sig.Notify()
	}
	return nil
}

// LineButton treats every line read from r (typically stdin) as a press.
type LineButton struct {
	r io.Reader
}

func NewLineButton(r io.Reader) *LineButton { return &LineButton{r: r} }

func (b *LineButton) Run(ctx context.Context, sig *Signal) error {
	lines := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(b.r)
		for sc.Scan() {
			select {
			case lines <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-lines:
			sig.Notify()
		case err := <-errc:
			return err
		}
	}
}
