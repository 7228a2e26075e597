// Package boardbuilder wires the board controller from an AppConfig.
package boardbuilder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/park285/Cheese-Board/internal/boardstate"
	corechess "github.com/park285/Cheese-Board/internal/chess"
	"github.com/park285/Cheese-Board/internal/chess/openingbook"
	"github.com/park285/Cheese-Board/internal/config"
	"github.com/park285/Cheese-Board/internal/device"
	"github.com/park285/Cheese-Board/internal/events"
	"github.com/park285/Cheese-Board/internal/game"
	"github.com/park285/Cheese-Board/internal/input"
	"github.com/park285/Cheese-Board/internal/link"
	"github.com/park285/Cheese-Board/internal/mirror"
	"github.com/park285/Cheese-Board/internal/msgcat"
	"github.com/park285/Cheese-Board/internal/rules"
	"github.com/park285/Cheese-Board/internal/statusapi"
	"go.uber.org/zap"
)

type Deps struct {
	Port    io.Closer
	Device  *device.Client
	Rules   *rules.Oracle
	Engine  *corechess.Engine
	Signal  *input.Signal
	Button  input.Source
	Printer *msgcat.Printer
	Mirror  *mirror.Mirror
	Events  *events.Publisher
	Status  *statusapi.Server
	Game    *game.Orchestrator
}

// New opens the device, prepares it and builds the orchestrator with every
// configured observer. The returned Deps must be closed.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}
	ok := false
	defer func() {
		if !ok {
			_ = d.Close()
		}
	}()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Printer = msgcat.NewPrinter(cat, os.Stdout, logger.Named("notice"))

	// Device
	port, framer, err := link.Open(
		link.Target{Path: cfg.SerialPort, Baud: cfg.SerialBaud, ReadTimeout: cfg.ReadTimeout()},
		link.Policy{MaxIdleReads: cfg.LinkMaxIdleReads, MaxDiscards: cfg.LinkMaxDiscards},
		link.WithLogger(logger.Named("link")),
	)
	if err != nil {
		return nil, fmt.Errorf("open board link: %w", err)
	}
	d.Port = port
	d.Device, err = device.New(framer, device.Config{
		Mapping:       boardstate.DefaultMapping,
		MaxBrightness: uint8(cfg.LEDMaxBrightness),
		PollInterval:  cfg.PollInterval(),
		WaitTimeout:   cfg.BoardWaitTimeout(),
		MaxBadPolls:   cfg.DeviceMaxBadPolls,
	}, logger.Named("device"))
	if err != nil {
		return nil, err
	}
	if err := prepareDevice(ctx, d.Device, cfg, d.Printer); err != nil {
		return nil, err
	}

	// Engine
	book, err := openingbook.Open(cfg.ChessBookPath, uint16(cfg.ChessOpeningMinWeight))
	if err != nil {
		return nil, fmt.Errorf("open opening book: %w", err)
	}
	d.Engine, err = corechess.NewEngine(corechess.EngineConfig{
		BinaryPath: cfg.StockfishPath,
		PresetName: cfg.ChessPreset,
		PoolSize:   cfg.ChessPoolSize,
		Book:       book,
	}, logger.Named("engine"))
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}
	d.Rules = rules.New()

	// Button
	d.Signal = input.NewSignal()
	switch cfg.ButtonSource {
	case config.ButtonGPIO:
		d.Button, err = input.OpenGPIO(cfg.ButtonPin, logger.Named("button"))
		if err != nil {
			return nil, err
		}
	case config.ButtonStdin:
		d.Button = input.NewLineButton(os.Stdin)
	default:
		d.Button = input.None{}
	}

	// Observers (all optional)
	var observers []game.Observer
	if strings.TrimSpace(cfg.RedisURL) != "" {
		d.Mirror, err = mirror.Connect(ctx, cfg.RedisURL, cfg.RedisStateTTL())
		if err != nil {
			return nil, err
		}
		observers = append(observers, d.Mirror)
	}
	if strings.TrimSpace(cfg.NATSURL) != "" {
		d.Events, err = events.Connect(cfg.NATSURL, cfg.NATSSubject, logger.Named("events"))
		if err != nil {
			return nil, err
		}
		if _, err := d.Events.ForwardPresses(d.Signal); err != nil {
			return nil, err
		}
		observers = append(observers, d.Events)
	}
	if strings.TrimSpace(cfg.StatusAddr) != "" {
		d.Status = statusapi.New(d.Signal, logger.Named("status"))
		observers = append(observers, d.Status)
	}

	d.Game, err = game.New(game.Config{
		Board:     d.Device,
		Rules:     d.Rules,
		Moves:     d.Engine,
		Presses:   d.Signal,
		Observers: observers,
		Notifier:  d.Printer,
		Logger:    logger.Named("game"),
	})
	if err != nil {
		return nil, err
	}
	ok = true
	return d, nil
}

// prepareDevice waits for the controller to boot, optionally calibrates and
// applies the configured sensor parameters.
func prepareDevice(ctx context.Context, c *device.Client, cfg *config.AppConfig, p *msgcat.Printer) error {
	if err := c.Handshake(ctx); err != nil {
		return fmt.Errorf("device handshake: %w", err)
	}
	if cfg.DeviceCalibrate {
		if err := c.Calibrate(ctx); err != nil {
			return fmt.Errorf("device calibrate: %w", err)
		}
	}
	params, err := device.ParseParams(cfg.DeviceParams)
	if err != nil {
		return err
	}
	if err := c.ApplyParams(ctx, params); err != nil {
		return fmt.Errorf("device params: %w", err)
	}
	values, err := c.ReportParams(ctx, cfg.DeviceReportParams)
	if err != nil {
		return fmt.Errorf("device report: %w", err)
	}
	for _, name := range cfg.DeviceReportParams {
		p.Notify("device.param", map[string]any{"Name": name, "Value": values[name]})
	}
	return nil
}

func (d *Deps) Close() error {
	var errs []error
	if d.Events != nil {
		d.Events.Close()
	}
	if d.Mirror != nil {
		errs = append(errs, d.Mirror.Close())
	}
	if d.Engine != nil {
		errs = append(errs, d.Engine.Close())
	}
	if d.Port != nil {
		errs = append(errs, d.Port.Close())
	}
	return errors.Join(errs...)
}
