package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/Cheese-Board/internal/obslog"
	yaml "gopkg.in/yaml.v3"
)

// Button sources.
const (
	ButtonGPIO  = "gpio"
	ButtonStdin = "stdin"
	ButtonNone  = "none"
)

type AppConfig struct {
	SerialPort          string `yaml:"serial_port"`
	SerialBaud          int    `yaml:"serial_baud"`
	SerialReadTimeoutMS int    `yaml:"serial_read_timeout_ms"`
	LinkMaxIdleReads    int    `yaml:"link_max_idle_reads"`
	LinkMaxDiscards     int    `yaml:"link_max_discards"`

	DeviceCalibrate     bool     `yaml:"device_calibrate"`
	DeviceParams        string   `yaml:"device_params"`
	DeviceReportParams  []string `yaml:"device_report_params"`
	DeviceMaxBadPolls   int      `yaml:"device_max_bad_polls"`
	LEDMaxBrightness    int      `yaml:"led_max_brightness"`
	PollIntervalMS      int      `yaml:"poll_interval_ms"`
	BoardWaitTimeoutSec int      `yaml:"board_wait_timeout_sec"`

	ButtonSource string `yaml:"button_source"`
	ButtonPin    string `yaml:"button_pin"`

	StockfishPath         string `yaml:"stockfish_path"`
	ChessPreset           string `yaml:"chess_preset"`
	ChessPoolSize         int    `yaml:"chess_pool_size"`
	ChessBookPath         string `yaml:"chess_book_path"`
	ChessOpeningMinWeight int    `yaml:"chess_opening_min_weight"`

	RedisURL         string `yaml:"redis_url"`
	RedisStateTTLSec int    `yaml:"redis_state_ttl_sec"`
	NATSURL          string `yaml:"nats_url"`
	NATSSubject      string `yaml:"nats_subject"`
	StatusAddr       string `yaml:"status_addr"`
	MessagesDir      string `yaml:"messages_dir"`

	Log obslog.Config `yaml:"log"`
}

func defaults() *AppConfig {
	return &AppConfig{
		SerialPort:          "/dev/ttyUSB0",
		SerialBaud:          500000,
		SerialReadTimeoutMS: 1000,
		DeviceParams:        "north_thresh=10,south_thresh=25",
		DeviceReportParams:  []string{"average"},
		LEDMaxBrightness:    253,
		PollIntervalMS:      50,
		ButtonSource:        ButtonGPIO,
		ButtonPin:           "GPIO26",
		StockfishPath:       "/usr/games/stockfish",
		ChessPreset:         "stockfish",
		ChessPoolSize:       1,
		RedisStateTTLSec:    86400,
		NATSSubject:         "chessboard",
		Log:                 obslog.DefaultConfig(),
	}
}

// Load applies defaults, then the YAML file named by CHESSBOARD_CONFIG, then
// environment variables.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CHESSBOARD_CONFIG")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	envString("SERIAL_PORT", &cfg.SerialPort)
	envInt("SERIAL_BAUD", &cfg.SerialBaud)
	envInt("SERIAL_READ_TIMEOUT_MS", &cfg.SerialReadTimeoutMS)
	envInt("LINK_MAX_IDLE_READS", &cfg.LinkMaxIdleReads)
	envInt("LINK_MAX_DISCARDS", &cfg.LinkMaxDiscards)

	envBool("DEVICE_CALIBRATE", &cfg.DeviceCalibrate)
	if v, ok := os.LookupEnv("DEVICE_PARAMS"); ok {
		cfg.DeviceParams = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("DEVICE_REPORT_PARAMS"); ok {
		cfg.DeviceReportParams = splitList(v)
	}
	envInt("DEVICE_MAX_BAD_POLLS", &cfg.DeviceMaxBadPolls)
	envInt("LED_MAX_BRIGHTNESS", &cfg.LEDMaxBrightness)
	envInt("POLL_INTERVAL_MS", &cfg.PollIntervalMS)
	envInt("BOARD_WAIT_TIMEOUT_SEC", &cfg.BoardWaitTimeoutSec)

	envString("BUTTON_SOURCE", &cfg.ButtonSource)
	cfg.ButtonSource = strings.ToLower(cfg.ButtonSource)
	envString("BUTTON_PIN", &cfg.ButtonPin)

	// Chess specific
	envString("STOCKFISH_PATH", &cfg.StockfishPath)
	envString("CHESS_PRESET", &cfg.ChessPreset)
	envInt("CHESS_POOL_SIZE", &cfg.ChessPoolSize)
	envString("CHESS_POLYGLOT_BOOK_PATH", &cfg.ChessBookPath)
	envInt("CHESS_OPENING_MIN_WEIGHT", &cfg.ChessOpeningMinWeight)

	envString("REDIS_URL", &cfg.RedisURL)
	envInt("REDIS_STATE_TTL_SEC", &cfg.RedisStateTTLSec)
	envString("NATS_URL", &cfg.NATSURL)
	envString("NATS_SUBJECT", &cfg.NATSSubject)
	envString("STATUS_ADDR", &cfg.StatusAddr)
	envString("MESSAGES_DIR", &cfg.MessagesDir)

	cfg.Log = obslog.ApplyEnv(cfg.Log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) Validate() error {
	if c.SerialPort == "" {
		return errors.New("SERIAL_PORT is required")
	}
	if c.SerialBaud <= 0 {
		return fmt.Errorf("SERIAL_BAUD must be positive, got %d", c.SerialBaud)
	}
	if c.SerialReadTimeoutMS <= 0 {
		return fmt.Errorf("SERIAL_READ_TIMEOUT_MS must be positive, got %d", c.SerialReadTimeoutMS)
	}
	if c.LinkMaxIdleReads < 0 || c.LinkMaxDiscards < 0 || c.DeviceMaxBadPolls < 0 || c.BoardWaitTimeoutSec < 0 {
		return errors.New("retry bounds must not be negative")
	}
	if c.LEDMaxBrightness < 1 || c.LEDMaxBrightness > 255 {
		return fmt.Errorf("LED_MAX_BRIGHTNESS must be within 1..255, got %d", c.LEDMaxBrightness)
	}
	if c.PollIntervalMS <= 0 {
		return fmt.Errorf("POLL_INTERVAL_MS must be positive, got %d", c.PollIntervalMS)
	}
	switch c.ButtonSource {
	case ButtonGPIO, ButtonStdin, ButtonNone:
	default:
		return fmt.Errorf("BUTTON_SOURCE must be gpio, stdin or none, got %q", c.ButtonSource)
	}
	if c.ButtonSource == ButtonGPIO && c.ButtonPin == "" {
		return errors.New("BUTTON_PIN is required for the gpio button")
	}
	if c.StockfishPath == "" {
		return errors.New("STOCKFISH_PATH is required")
	}
	if c.ChessPoolSize <= 0 {
		c.ChessPoolSize = 1
	}
	return nil
}

func (c *AppConfig) ReadTimeout() time.Duration {
	return time.Duration(c.SerialReadTimeoutMS) * time.Millisecond
}

func (c *AppConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func (c *AppConfig) BoardWaitTimeout() time.Duration {
	return time.Duration(c.BoardWaitTimeoutSec) * time.Second
}

func (c *AppConfig) RedisStateTTL() time.Duration {
	return time.Duration(c.RedisStateTTLSec) * time.Second
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
