package serial

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	assert.Equal(t, "/dev/ttyACM0", cfg.Device)
	assert.Equal(t, 115200, cfg.Baud)
	assert.Equal(t, 4096, cfg.WriteBuffer)
}

func TestBufferPort(t *testing.T) {
	var p BufferPort
	var port Port = &p

	p.In.WriteString("status\n")
	buf := make([]byte, 16)
	n, err := port.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "status\n", string(buf[:n]))

	_, err = port.Write([]byte("ok\n"))
	require.NoError(t, err)
	require.NoError(t, port.Flush())
	assert.Equal(t, "ok\n", p.Out.String())
	assert.Equal(t, 1, p.Flushes)

	require.NoError(t, port.Close())
	_, err = port.Write([]byte("late"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	_, err = port.Read(buf)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}
