package serial

import (
	"bytes"
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// DefaultMaxLineSize bounds ReadLine when maxSize is not positive.
	DefaultMaxLineSize = 65536
	// DefaultEOL terminates ReadLine when eol is empty.
	DefaultEOL = "\n"

	// ctxPollSlice bounds each poll when a cancellable context is in play.
	ctxPollSlice = 50 * time.Millisecond
)

// Read fills buf following the configured Timeout. It returns as soon as buf
// is full, the overall read budget for len(buf) bytes is spent, or the
// inter-byte gap is exceeded after the first byte. A short count is not an
// error.
func (p *port) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return 0, notOpened("read", p.name)
	}
	return p.read(context.Background(), "read", buf)
}

// ReadContext reads like Read but also stops when ctx is done. The context
// error is returned only when nothing was read.
func (p *port) ReadContext(ctx context.Context, buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return 0, notOpened("read", p.name)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return p.read(ctx, "read", buf)
}

// read is the timed read loop. The caller holds p.mu.
func (p *port) read(ctx context.Context, op string, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	t := p.config.Timeout
	deadline := time.Now().Add(t.ReadBudget(len(buf)))
	gap, gapEnabled := t.InterByteLimit()

	var (
		n    int
		last time.Time
	)
	// Whatever is already queued is returned even with a zero budget.
	m, err := unix.Read(p.fd, buf)
	switch {
	case err == nil && m == 0:
		// VMIN=0 and nothing queued.
	case err == nil:
		n = m
		last = time.Now()
	case err != unix.EAGAIN && err != unix.EINTR:
		return 0, ioError(op, p.name, err)
	}

	for n < len(buf) {
		now := time.Now()
		wait := deadline.Sub(now)
		if gapEnabled && n > 0 {
			if g := last.Add(gap).Sub(now); g < wait {
				wait = g
			}
		}
		if wait <= 0 {
			break
		}

		ready, err := waitFD(ctx, p.fd, unix.POLLIN, wait)
		if err != nil {
			if isContextErr(err) {
				if n > 0 {
					return n, nil
				}
				return 0, err
			}
			return n, ioError(op, p.name, err)
		}
		if !ready {
			continue
		}

		m, err := unix.Read(p.fd, buf[n:])
		if err == unix.EAGAIN || err == unix.EINTR {
			continue
		}
		if err != nil {
			return n, ioError(op, p.name, err)
		}
		if m == 0 {
			return n, serialError(op, p.name, ErrDisconnected)
		}
		n += m
		last = time.Now()
	}
	return n, nil
}

// ReadLine reads one byte at a time until the accumulated data ends with
// eol, maxSize bytes have been read, or a single-byte read times out. The
// result includes eol when it was found; bytes after it stay queued.
//
// The read timeout applies to each byte, not to the whole line: a device that
// keeps sending within ReadConstant+ReadMultiplier of the previous byte keeps
// the call going until eol or maxSize.
func (p *port) ReadLine(maxSize int, eol string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return "", notOpened("read line", p.name)
	}
	line, err := p.readLine(maxSize, eol)
	return string(line), err
}

// ReadLines reads lines until one ends without eol or maxSize bytes have
// been read in total.
func (p *port) ReadLines(maxSize int, eol string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return nil, notOpened("read lines", p.name)
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxLineSize
	}
	if eol == "" {
		eol = DefaultEOL
	}

	var (
		lines []string
		total int
	)
	for total < maxSize {
		line, err := p.readLine(maxSize-total, eol)
		if len(line) > 0 {
			lines = append(lines, string(line))
			total += len(line)
		}
		if err != nil {
			return lines, err
		}
		if !bytes.HasSuffix(line, []byte(eol)) {
			break
		}
	}
	return lines, nil
}

func (p *port) readLine(maxSize int, eol string) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxLineSize
	}
	if eol == "" {
		eol = DefaultEOL
	}
	suffix := []byte(eol)

	line := make([]byte, 0, min(maxSize, 256))
	b := make([]byte, 1)
	for len(line) < maxSize {
		n, err := p.read(context.Background(), "read line", b)
		if n > 0 {
			line = append(line, b[0])
		}
		if err != nil {
			return line, err
		}
		if n == 0 || bytes.HasSuffix(line, suffix) {
			break
		}
	}
	return line, nil
}

// Write sends data following the configured write Timeout. A short count
// on timeout is not an error.
func (p *port) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return 0, notOpened("write", p.name)
	}
	return p.write(context.Background(), data)
}

// WriteString writes s as bytes.
func (p *port) WriteString(s string) (int, error) {
	return p.Write([]byte(s))
}

// WriteContext writes like Write but also stops when ctx is done. The
// context error is returned only when nothing was written.
func (p *port) WriteContext(ctx context.Context, data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return 0, notOpened("write", p.name)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return p.write(ctx, data)
}

func (p *port) write(ctx context.Context, data []byte) (int, error) {
	deadline := time.Now().Add(p.config.Timeout.WriteBudget(len(data)))

	n := 0
	for n < len(data) {
		m, err := unix.Write(p.fd, data[n:])
		if err == nil && m > 0 {
			n += m
			continue
		}
		if err != nil && err != unix.EAGAIN && err != unix.EINTR {
			return n, ioError("write", p.name, err)
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			break
		}
		if _, err := waitFD(ctx, p.fd, unix.POLLOUT, wait); err != nil {
			if isContextErr(err) {
				if n > 0 {
					return n, nil
				}
				return 0, err
			}
			return n, ioError("write", p.name, err)
		}
	}
	return n, nil
}

// waitFD polls fd for events until it is ready, wait elapses or ctx is
// done. With a cancellable ctx the poll runs in ctxPollSlice steps.
func waitFD(ctx context.Context, fd int, events int16, wait time.Duration) (bool, error) {
	deadline := time.Now().Add(wait)
	cancellable := ctx.Done() != nil

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		if cancellable && remaining > ctxPollSlice {
			remaining = ctxPollSlice
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
		n, err := unix.Poll(fds, pollMillis(remaining))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		if n == 0 {
			continue
		}
		if fds[0].Revents&unix.POLLNVAL != 0 {
			return false, unix.EBADF
		}
		// POLLERR and POLLHUP are left for the following read or write to
		// report.
		return true, nil
	}
}

// pollMillis rounds d up to whole milliseconds so a poll never returns
// before the deadline it was computed from.
func pollMillis(d time.Duration) int {
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
