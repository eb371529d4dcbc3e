package serial

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// slack absorbs scheduler jitter in the timing assertions.
const slack = 150 * time.Millisecond

// ptyPair is a pseudo-terminal whose master end stands in for the remote
// device and whose slave path is opened as a Port.
type ptyPair struct {
	master int
	slave  string
	closed bool
}

func newPTY(t *testing.T) *ptyPair {
	t.Helper()

	fd, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		t.Skipf("pseudo-terminals not available: %v", err)
	}
	pair := &ptyPair{master: fd}
	t.Cleanup(pair.closeMaster)

	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		t.Skipf("unlock pty: %v", err)
	}
	n, err := unix.IoctlGetUint32(fd, unix.TIOCGPTN)
	if err != nil {
		t.Skipf("pty number: %v", err)
	}
	pair.slave = fmt.Sprintf("/dev/pts/%d", n)
	return pair
}

func (p *ptyPair) closeMaster() {
	if !p.closed {
		p.closed = true
		unix.Close(p.master)
	}
}

func (p *ptyPair) write(t *testing.T, data []byte) {
	t.Helper()
	for len(data) > 0 {
		n, err := unix.Write(p.master, data)
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		require.NoError(t, err)
		data = data[n:]
	}
}

// read collects exactly n bytes from the master end or fails after timeout.
func (p *ptyPair) read(t *testing.T, n int, timeout time.Duration) []byte {
	t.Helper()
	deadline := time.Now().Add(timeout)
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		remaining := time.Until(deadline)
		require.Positive(t, remaining, "timed out after %d of %d bytes", len(out), n)

		fds := []unix.PollFd{{Fd: int32(p.master), Events: unix.POLLIN}}
		if _, err := unix.Poll(fds, pollMillis(remaining)); err != nil && err != unix.EINTR {
			require.NoError(t, err)
		}
		if fds[0].Revents&unix.POLLIN == 0 {
			continue
		}
		m, err := unix.Read(p.master, buf[:n-len(out)])
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		require.NoError(t, err)
		out = append(out, buf[:m]...)
	}
	return out
}

func openPTYPort(t *testing.T, pair *ptyPair, opts ...Option) Port {
	t.Helper()
	p, err := Open(pair.slave, opts...)
	if errors.Is(err, ErrDeviceNotFound) {
		t.Skipf("pty slave not reachable: %v", err)
	}
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

// waitAvailable blocks until the port reports at least n queued bytes.
func waitAvailable(t *testing.T, p Port, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		got, err := p.Available()
		return err == nil && got >= n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestReadTimesOutWithNoData(t *testing.T) {
	pair := newPTY(t)
	const budget = 200 * time.Millisecond
	p := openPTYPort(t, pair, WithTimeout(Timeout{InterByte: TimeoutMax, ReadConstant: 200}))

	start := time.Now()
	n, err := p.Read(make([]byte, 16))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.GreaterOrEqual(t, elapsed, budget)
	assert.Less(t, elapsed, budget+slack)
}

func TestReadMultiplierExtendsBudget(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair, WithTimeout(Timeout{InterByte: TimeoutMax, ReadConstant: 50, ReadMultiplier: 10}))

	start := time.Now()
	n, err := p.Read(make([]byte, 10))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Less(t, elapsed, 150*time.Millisecond+slack)
}

func TestReadInterByteTimeoutEndsEarly(t *testing.T) {
	pair := newPTY(t)
	const gap = 50 * time.Millisecond
	p := openPTYPort(t, pair, WithTimeout(Timeout{InterByte: 50, ReadConstant: 5000}))

	pair.write(t, []byte("abc"))
	waitAvailable(t, p, 3)

	start := time.Now()
	buf := make([]byte, 10)
	n, err := p.Read(buf)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf[:n]))
	assert.GreaterOrEqual(t, elapsed, gap)
	assert.Less(t, elapsed, gap+slack, "read waited for the overall budget")
}

func TestReadInterByteNeedsFirstByte(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair, WithTimeout(Timeout{InterByte: 10, ReadConstant: 200}))

	start := time.Now()
	n, err := p.Read(make([]byte, 4))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond, "inter-byte limit applied before any byte arrived")
}

func TestZeroTimeoutReturnsQueuedBytes(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair)

	pair.write(t, []byte("xyz"))
	waitAvailable(t, p, 3)

	buf := make([]byte, 8)
	n, err := p.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(buf[:n]))

	n, err = p.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReadLineLeavesRemainder(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair, WithTimeout(SimpleTimeout(200)))

	for _, eol := range []string{"\n", "\r\n", "END"} {
		t.Run(fmt.Sprintf("%q", eol), func(t *testing.T) {
			pair.write(t, []byte("abc"+eol+"def"))

			line, err := p.ReadLine(0, eol)
			require.NoError(t, err)
			assert.Equal(t, "abc"+eol, line)

			buf := make([]byte, 3)
			n, err := p.Read(buf)
			require.NoError(t, err)
			assert.Equal(t, "def", string(buf[:n]))
		})
	}
}

func TestReadLineStopsAtMaxSize(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair, WithTimeout(SimpleTimeout(200)))

	pair.write(t, []byte("abcdef\n"))
	line, err := p.ReadLine(4, "\n")
	require.NoError(t, err)
	assert.Equal(t, "abcd", line)

	line, err = p.ReadLine(0, "")
	require.NoError(t, err)
	assert.Equal(t, "ef\n", line)
}

func TestReadLineTimesOutWithoutEOL(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair, WithTimeout(SimpleTimeout(100)))

	pair.write(t, []byte("partial"))
	line, err := p.ReadLine(0, "\n")
	require.NoError(t, err)
	assert.Equal(t, "partial", line)
}

func TestReadLines(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair, WithTimeout(SimpleTimeout(100)))

	pair.write(t, []byte("one\ntwo\nthree"))
	lines, err := p.ReadLines(0, "\n")
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"one\n", "two\n", "three"}, lines); diff != "" {
		t.Errorf("ReadLines mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair, WithTimeout(SimpleTimeout(2000)))

	data := make([]byte, 1024)
	rand.New(rand.NewSource(1)).Read(data)

	t.Run("port to peer", func(t *testing.T) {
		n, err := p.Write(data)
		require.NoError(t, err)
		require.Equal(t, len(data), n)
		assert.True(t, bytes.Equal(data, pair.read(t, len(data), 2*time.Second)))
	})

	t.Run("peer to port", func(t *testing.T) {
		pair.write(t, data)
		buf := make([]byte, len(data))
		n, err := p.Read(buf)
		require.NoError(t, err)
		require.Equal(t, len(data), n)
		assert.True(t, bytes.Equal(data, buf))
	})

	t.Run("write string", func(t *testing.T) {
		n, err := p.WriteString("hello")
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "hello", string(pair.read(t, 5, time.Second)))
	})
}

func TestReadContextCancelled(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair, WithTimeout(SimpleTimeout(5000)))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	n, err := p.ReadContext(ctx, make([]byte, 8))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 100*time.Millisecond+slack)
}

func TestReadContextReturnsPartialData(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair, WithTimeout(SimpleTimeout(5000)))

	pair.write(t, []byte("ab"))
	waitAvailable(t, p, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	buf := make([]byte, 8)
	n, err := p.ReadContext(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(buf[:n]))
}

func TestWriteContextAlreadyCancelled(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := p.WriteContext(ctx, []byte("x"))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteTimesOutWithShortCount(t *testing.T) {
	pair := newPTY(t)
	const budget = 200 * time.Millisecond
	p := openPTYPort(t, pair, WithTimeout(Timeout{InterByte: TimeoutMax, WriteConstant: 200}))

	// Nobody reads the master end, so the pty buffer fills long before 1 MiB.
	data := bytes.Repeat([]byte{'x'}, 1<<20)

	start := time.Now()
	n, err := p.Write(data)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Positive(t, n)
	assert.Less(t, n, len(data))
	assert.GreaterOrEqual(t, elapsed, budget-10*time.Millisecond)
	assert.Less(t, elapsed, budget+slack)
}

func TestCustomBaudRate(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair, WithBaudRate(250000))

	tios, err := unix.IoctlGetTermios(p.(*port).fd, unix.TCGETS2)
	require.NoError(t, err)
	assert.Equal(t, uint32(unix.BOTHER), tios.Cflag&unix.CBAUD)
	assert.Equal(t, uint32(250000), tios.Ospeed)

	for _, rate := range []int{31250, 100000, 115200} {
		require.NoError(t, p.SetBaudRate(rate), "rate %d", rate)
		assert.Equal(t, rate, p.GetBaudRate())
	}
	tios, err = unix.IoctlGetTermios(p.(*port).fd, unix.TCGETS)
	require.NoError(t, err)
	assert.Equal(t, uint32(unix.B115200), tios.Cflag&unix.CBAUD)
}

func TestAvailableAndFlush(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair)

	pair.write(t, []byte("12345"))
	waitAvailable(t, p, 5)

	n, err := p.Available()
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.NoError(t, p.FlushInput())
	n, err = p.Available()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	pair.write(t, []byte("678"))
	waitAvailable(t, p, 3)
	require.NoError(t, p.Flush())
	n, err = p.Read(make([]byte, 8))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.NoError(t, p.FlushOutput())
	assert.NoError(t, p.Drain())
}

func TestSendBreak(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair)

	assert.NoError(t, p.SendBreak(10*time.Millisecond))

	err := p.SendBreak(-time.Millisecond)
	assert.True(t, IsSerialError(err), "got %v", err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestReadAfterPeerHangup(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair, WithTimeout(SimpleTimeout(500)))

	pair.closeMaster()

	_, err := p.Read(make([]byte, 4))
	require.Error(t, err)
	assert.True(t, IsIOError(err), "got %v", err)
	assert.True(t, p.IsOpen(), "a transfer error must not close the port")
}

func TestOpenPortLifecycle(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair)
	require.True(t, p.IsOpen())

	t.Run("open again", func(t *testing.T) {
		err := p.Open()
		assert.True(t, IsSerialError(err), "got %v", err)
		assert.ErrorIs(t, err, ErrPortOpen)
		assert.True(t, p.IsOpen())
	})

	t.Run("set port while open", func(t *testing.T) {
		err := p.SetPort("/dev/ttyS0")
		assert.True(t, IsIOError(err), "got %v", err)
		assert.ErrorIs(t, err, ErrPortOpen)
		assert.Equal(t, pair.slave, p.GetPort())
		assert.True(t, p.IsOpen())
	})

	t.Run("reconfigure while open", func(t *testing.T) {
		require.NoError(t, p.SetBaudRate(115200))
		require.NoError(t, p.SetParity(ParityEven))
		require.NoError(t, p.SetByteSize(SevenBits))
		require.NoError(t, p.SetStopBits(StopBitsTwo))
		require.NoError(t, p.SetFlowControl(FlowControlSoftware))

		tios, err := unix.IoctlGetTermios(p.(*port).fd, unix.TCGETS)
		require.NoError(t, err)
		assert.Equal(t, uint32(unix.B115200), tios.Cflag&unix.CBAUD)
		assert.Equal(t, uint32(unix.CS7), tios.Cflag&unix.CSIZE)
		assert.NotZero(t, tios.Cflag&unix.PARENB)
		assert.NotZero(t, tios.Cflag&unix.CSTOPB)
		assert.NotZero(t, tios.Iflag&unix.IXON)
	})

	t.Run("invalid value while open", func(t *testing.T) {
		before := p.GetConfig()
		err := p.SetByteSize(9)
		assert.True(t, IsSerialError(err), "got %v", err)
		if diff := cmp.Diff(before, p.GetConfig()); diff != "" {
			t.Errorf("config changed (-before +after):\n%s", diff)
		}
	})

	t.Run("close and reopen on new name", func(t *testing.T) {
		require.NoError(t, p.Close())
		require.NoError(t, p.Close())
		assert.False(t, p.IsOpen())

		require.NoError(t, p.SetPort(pair.slave))
		require.NoError(t, p.Open())
		assert.True(t, p.IsOpen())
		assert.Equal(t, 115200, p.GetBaudRate())
	})
}

func TestClosedAfterOpenRejectsIO(t *testing.T) {
	pair := newPTY(t)
	p := openPTYPort(t, pair)
	require.NoError(t, p.Close())

	_, err := p.Read(make([]byte, 1))
	assert.True(t, IsPortNotOpened(err))
	_, err = p.Write([]byte("x"))
	assert.True(t, IsPortNotOpened(err))
	assert.True(t, IsPortNotOpened(p.WaitForChange()))
}
