//go:build linux

package serialport

import (
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

func openPTY(t *testing.T, timeout time.Duration) (*Source, func(string)) {
	t.Helper()
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	src, err := Open(Config{Device: slave.Name(), Baud: 9600, ReadTimeout: timeout})
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })

	write := func(s string) {
		_, err := master.Write([]byte(s))
		require.NoError(t, err)
	}
	return src, write
}

func TestPTY_ReadLine(t *testing.T) {
	src, write := openPTY(t, 500*time.Millisecond)

	write("startx=120\r\nstarty=45\n")

	require.Eventually(t, func() bool {
		ok, err := src.Available()
		return err == nil && ok
	}, time.Second, 10*time.Millisecond)

	line, err := src.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "startx=120", line)

	line, err = src.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "starty=45", line)
}

func TestPTY_AvailableFalseWhenIdle(t *testing.T) {
	src, _ := openPTY(t, 200*time.Millisecond)
	ok, err := src.Available()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPTY_ReadTimeoutReturnsPartial(t *testing.T) {
	src, write := openPTY(t, 200*time.Millisecond)

	write("status=")
	start := time.Now()
	line, err := src.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "status=", line)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestPTY_ReadTimeoutEmpty(t *testing.T) {
	src, _ := openPTY(t, 100*time.Millisecond)
	line, err := src.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "", line)
}

func TestPTY_CloseIdempotent(t *testing.T) {
	src, _ := openPTY(t, 100*time.Millisecond)
	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	_, err := src.ReadLine()
	require.ErrorIs(t, err, ErrClosed)
}

func TestBaudToUnix_Unsupported(t *testing.T) {
	_, err := baudToUnix(12345)
	require.EqualError(t, err, "unsupported baud 12345")
}

func TestVTime(t *testing.T) {
	require.Equal(t, uint8(1), vtime(10*time.Millisecond))
	require.Equal(t, uint8(10), vtime(time.Second))
	require.Equal(t, uint8(255), vtime(time.Minute))
}
