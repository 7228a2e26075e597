package link

import (
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/pkg/term"
)

// Port is the byte stream the framer runs over.
type Port interface {
	io.ReadWriteCloser
}

// Target describes where the board controller is attached.
type Target struct {
	// Path is a device node (/dev/ttyUSB0) or tcp://host:port for a
	// network serial bridge.
	Path        string
	Baud        int
	ReadTimeout time.Duration
	DialTimeout time.Duration
}

// IsTCP reports whether the target is a network bridge.
func (t Target) IsTCP() bool { return strings.HasPrefix(t.Path, "tcp://") }

// Open connects to the target and returns a framer configured for it.
func Open(t Target, policy Policy, opts ...Option) (Port, *Framer, error) {
	if strings.TrimSpace(t.Path) == "" {
		return nil, nil, fmt.Errorf("serial port path is required")
	}
	if t.IsTCP() {
		conn, err := Dial(strings.TrimPrefix(t.Path, "tcp://"), t.DialTimeout)
		if err != nil {
			return nil, nil, err
		}
		if policy.ReadTimeout <= 0 {
			policy.ReadTimeout = t.ReadTimeout
		}
		opts = append([]Option{WithPolicy(policy)}, opts...)
		return conn, NewFramer(conn, opts...), nil
	}

	port, err := OpenSerial(t.Path, t.Baud, t.ReadTimeout)
	if err != nil {
		return nil, nil, err
	}
	opts = append([]Option{WithPolicy(policy), WithEOFAsIdle()}, opts...)
	return port, NewFramer(port, opts...), nil
}

// OpenSerial opens a raw-mode serial port. Reads return io.EOF after
// readTimeout without data.
func OpenSerial(path string, baud int, readTimeout time.Duration) (*term.Term, error) {
	if baud <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", baud)
	}
	options := []func(*term.Term) error{term.Speed(baud), term.RawMode}
	if readTimeout > 0 {
		options = append(options, term.ReadTimeout(readTimeout))
	}
	t, err := term.Open(path, options...)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", path, err)
	}
	// 부팅 중 쌓인 잔여 바이트 제거
	if err := t.Flush(); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("flush serial %s: %w", path, err)
	}
	return t, nil
}

// Dial connects to a TCP serial bridge.
func Dial(addr string, timeout time.Duration) (net.Conn, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}
