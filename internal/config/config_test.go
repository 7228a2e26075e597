package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHESSBOARD_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SerialPort != "/dev/ttyUSB0" || cfg.SerialBaud != 500000 {
		t.Fatalf("unexpected serial defaults %+v", cfg)
	}
	if cfg.LEDMaxBrightness != 253 || cfg.PollInterval() != 50*time.Millisecond {
		t.Fatalf("unexpected device defaults %+v", cfg)
	}
	if cfg.BoardWaitTimeout() != 0 || cfg.LinkMaxIdleReads != 0 {
		t.Fatalf("waits should block by default")
	}
	if len(cfg.DeviceReportParams) != 1 || cfg.DeviceReportParams[0] != "average" {
		t.Fatalf("unexpected report params %v", cfg.DeviceReportParams)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	body := "serial_port: tcp://127.0.0.1:9000\nserial_baud: 115200\nbutton_source: stdin\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CHESSBOARD_CONFIG", path)
	t.Setenv("SERIAL_BAUD", "9600")
	t.Setenv("DEVICE_REPORT_PARAMS", "average, bias")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SerialPort != "tcp://127.0.0.1:9000" {
		t.Fatalf("file value not applied: %s", cfg.SerialPort)
	}
	if cfg.SerialBaud != 9600 {
		t.Fatalf("env should override the file, got %d", cfg.SerialBaud)
	}
	if cfg.ButtonSource != ButtonStdin || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected %+v", cfg)
	}
	if len(cfg.DeviceReportParams) != 2 || cfg.DeviceReportParams[1] != "bias" {
		t.Fatalf("unexpected report params %v", cfg.DeviceReportParams)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("CHESSBOARD_CONFIG", "")
	t.Setenv("BUTTON_SOURCE", "keyboard")
	if _, err := Load(); err == nil {
		t.Fatalf("expected button source error")
	}
	t.Setenv("BUTTON_SOURCE", "none")
	t.Setenv("LED_MAX_BRIGHTNESS", "300")
	if _, err := Load(); err == nil {
		t.Fatalf("expected brightness error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CHESSBOARD_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected read error")
	}
}
