package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/allbin/go-serialport/internal/monitoring"
)

// Source is anything that reads with cancellation, such as serial.Port.
type Source interface {
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

// Stats summarises a recording.
type Stats struct {
	Session  string
	Bytes    int64
	Chunks   int
	Duration time.Duration
}

// Recorder copies data from a Source into a Sink until its context ends.
type Recorder struct {
	Session string
	Port    string
	Sink    Sink
	// Echo, when set, receives a copy of every chunk.
	Echo io.Writer
	// BufferSize is the read size, 4096 when zero.
	BufferSize int

	now func() time.Time
}

// NewRecorder returns a recorder with a fresh session id.
func NewRecorder(port string, sink Sink) *Recorder {
	return &Recorder{
		Session: uuid.New().String(),
		Port:    port,
		Sink:    sink,
		now:     time.Now,
	}
}

// Run reads until ctx is done or the source fails. Cancellation ends the
// recording without error.
func (r *Recorder) Run(ctx context.Context, src Source) (Stats, error) {
	now := r.now
	if now == nil {
		now = time.Now
	}
	size := r.BufferSize
	if size <= 0 {
		size = 4096
	}

	stats := Stats{Session: r.Session}
	start := now()

	monitoring.Logf("capture: session %s on %s", r.Session, r.Port)
	buf := make([]byte, size)
	for {
		n, err := src.ReadContext(ctx, buf)
		if n > 0 {
			chunk := Chunk{
				Session: r.Session,
				Port:    r.Port,
				Time:    now(),
				Data:    append([]byte(nil), buf[:n]...),
			}
			if err := r.Sink.Write(chunk); err != nil {
				stats.Duration = now().Sub(start)
				return stats, err
			}
			if r.Echo != nil {
				r.Echo.Write(chunk.Data)
			}
			stats.Bytes += int64(n)
			stats.Chunks++
		}
		if err != nil {
			stats.Duration = now().Sub(start)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return stats, nil
			}
			return stats, fmt.Errorf("read error: %w", err)
		}
		if ctx.Err() != nil {
			stats.Duration = now().Sub(start)
			return stats, nil
		}
	}
}
