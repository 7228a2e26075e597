// Package link implements the delimiter framing spoken by the board
// controller and the serial/TCP transports underneath it.
package link

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	StartMarker byte = '<'
	EndMarker   byte = '>'

	// 잡음만 계속 들어오는 경우 chunk가 무한히 커지지 않도록 제한
	maxChunk = 4096
)

var (
	// ErrDeviceUnresponsive is returned when a configured retry bound is exceeded.
	ErrDeviceUnresponsive = errors.New("device unresponsive")
	// ErrMarkerInPayload rejects text that would break the framing.
	ErrMarkerInPayload = errors.New("payload contains frame marker")
)

// Policy bounds the otherwise unbounded read loop. Zero values mean
// unbounded, which keeps the default "block until satisfied" behaviour.
type Policy struct {
	// MaxIdleReads is the number of consecutive empty reads tolerated per packet.
	MaxIdleReads int
	// MaxDiscards is the number of malformed chunks tolerated per packet.
	MaxDiscards int
	// ReadTimeout is armed before every read on streams with read deadlines.
	ReadTimeout time.Duration
}

type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Framer reads and writes <...> packets over a byte stream. Reads and
// writes are each serialised; callers needing request/response atomicity
// lock around both.
type Framer struct {
	rw        io.ReadWriter
	r         *bufio.Reader
	policy    Policy
	eofIsIdle bool
	logger    *zap.Logger

	readMu  sync.Mutex
	writeMu sync.Mutex
}

type Option func(*Framer)

func WithPolicy(p Policy) Option {
	return func(f *Framer) { f.policy = p }
}

// WithEOFAsIdle makes io.EOF count as an idle read. Serial ports with a
// VTIME read timeout report expiry that way.
func WithEOFAsIdle() Option {
	return func(f *Framer) { f.eofIsIdle = true }
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Framer) {
		if l != nil {
			f.logger = l
		}
	}
}

func NewFramer(rw io.ReadWriter, opts ...Option) *Framer {
	f := &Framer{
		rw:     rw,
		r:      bufio.NewReaderSize(rw, 512),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Policy returns the active retry policy.
func (f *Framer) Policy() Policy { return f.policy }

// ReadPacket blocks until a complete packet arrives and returns its payload.
// Bytes are accumulated up to an end marker; the last start marker in that
// chunk opens the packet. Chunks without a start marker, or cut short by an
// idle read, are dropped silently.
func (f *Framer) ReadPacket(ctx context.Context) (string, error) {
	f.readMu.Lock()
	defer f.readMu.Unlock()

	var (
		chunk    []byte
		idle     int
		discards int
	)
	discard := func(reason string) error {
		f.logger.Debug("link_discard", zap.String("reason", reason), zap.ByteString("chunk", chunk))
		chunk = chunk[:0]
		discards++
		if f.policy.MaxDiscards > 0 && discards > f.policy.MaxDiscards {
			return fmt.Errorf("%w: %d malformed chunks", ErrDeviceUnresponsive, discards)
		}
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		f.armDeadline()

		b, err := f.r.ReadByte()
		if err != nil {
			if !f.isIdle(err) {
				return "", fmt.Errorf("read packet: %w", err)
			}
			if len(chunk) > 0 {
				if derr := discard("partial"); derr != nil {
					return "", derr
				}
			}
			idle++
			if f.policy.MaxIdleReads > 0 && idle > f.policy.MaxIdleReads {
				return "", fmt.Errorf("%w: %d idle reads", ErrDeviceUnresponsive, idle)
			}
			continue
		}
		idle = 0

		chunk = append(chunk, b)
		if b != EndMarker {
			if len(chunk) >= maxChunk {
				if derr := discard("oversize"); derr != nil {
					return "", derr
				}
			}
			continue
		}

		start := bytes.LastIndexByte(chunk, StartMarker)
		if start < 0 {
			if derr := discard("no start marker"); derr != nil {
				return "", derr
			}
			continue
		}
		return string(chunk[start+1 : len(chunk)-1]), nil
	}
}

// SendPacket writes <text> in a single write.
func (f *Framer) SendPacket(text string) error {
	if strings.IndexByte(text, StartMarker) >= 0 || strings.IndexByte(text, EndMarker) >= 0 {
		return fmt.Errorf("%w: %q", ErrMarkerInPayload, text)
	}
	buf := make([]byte, 0, len(text)+2)
	buf = append(buf, StartMarker)
	buf = append(buf, text...)
	buf = append(buf, EndMarker)
	return f.WriteRaw(buf)
}

// WriteRaw writes b unframed in one call.
func (f *Framer) WriteRaw(b []byte) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	n, err := f.rw.Write(b)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if n != len(b) {
		return fmt.Errorf("write: %w", io.ErrShortWrite)
	}
	return nil
}

func (f *Framer) armDeadline() {
	if f.policy.ReadTimeout <= 0 {
		return
	}
	if d, ok := f.rw.(deadliner); ok {
		_ = d.SetReadDeadline(time.Now().Add(f.policy.ReadTimeout))
	}
}

func (f *Framer) isIdle(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return f.eofIsIdle && errors.Is(err, io.EOF)
}
