package core

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeTSCPrinter(t *testing.T, response string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			buf := make([]byte, len(statusCommand))
			_, _ = conn.Read(buf)
			_, _ = conn.Write([]byte(response))
			conn.Close()
		}
	}()
	return "tcp://" + ln.Addr().String()
}

func TestCheckStatus_Online(t *testing.T) {
	addr := fakeTSCPrinter(t, "@@@@")

	status := NewStatusProber(time.Second).CheckStatus(context.Background(), addr)
	assert.Equal(t, "online", status.Status)
	assert.True(t, status.IsOnline)
	assert.True(t, status.CanPrint)
	assert.Equal(t, "normal", status.PrinterState)
}

func TestCheckStatus_MediaError(t *testing.T) {
	addr := fakeTSCPrinter(t, "@@@A")

	status := NewStatusProber(time.Second).CheckStatus(context.Background(), addr)
	assert.Equal(t, "error", status.Status)
	assert.Equal(t, "paper_empty", status.MediaError)
}

func TestCheckStatus_ShortResponse(t *testing.T) {
	addr := fakeTSCPrinter(t, "@@")

	status := NewStatusProber(200 * time.Millisecond).CheckStatus(context.Background(), addr)
	assert.Equal(t, "error", status.Status)
	assert.False(t, status.IsOnline)
}

func TestCheckStatus_ShareIsUnknown(t *testing.T) {
	status := NewStatusProber(time.Second).CheckStatus(context.Background(), `\\kiosk\SILENTPRINTER`)
	assert.Equal(t, "unknown", status.Status)
	assert.Equal(t, `\\kiosk\SILENTPRINTER`, status.Address)
}

func TestCheckStatus_Offline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := "tcp://" + ln.Addr().String()
	ln.Close()

	status := NewStatusProber(200*time.Millisecond).CheckStatus(context.Background(), addr)
	assert.Equal(t, "offline", status.Status)
}
