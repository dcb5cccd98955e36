package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultHelper           = "print.bat"
	tcpScheme               = "tcp://"
	defaultTCPPort          = 9100
	defaultTransmitTimeout  = 60 * time.Second
	defaultReadWriteTimeout = 10 * time.Second
	// helperWaitDelay bounds how long a killed helper's children may hold
	// its output pipes open.
	helperWaitDelay = 2 * time.Second
)

var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrHelperFailed     = errors.New("print helper failed")
)

// Transmitter hands a spooled file to a printer address and blocks until the
// transfer has been accepted or rejected.
type Transmitter interface {
	Transmit(ctx context.Context, path, address string) error
}

// ScriptTransmitter runs the external print helper as
// `{command...} "{path}" "{address}"`.
type ScriptTransmitter struct {
	Command []string
	Timeout time.Duration
}

func NewScriptTransmitter(command []string, timeout time.Duration) *ScriptTransmitter {
	if len(command) == 0 {
		command = []string{defaultHelper}
	}
	if timeout <= 0 {
		timeout = defaultTransmitTimeout
	}
	command = append([]string{resolveHelper(command[0])}, command[1:]...)
	return &ScriptTransmitter{Command: command, Timeout: timeout}
}

// resolveHelper turns a bare helper name that exists in the working
// directory or next to the executable into an absolute path. exec only
// searches PATH for bare names.
func resolveHelper(name string) string {
	if name == "" || filepath.Base(name) != name {
		return name
	}

	candidates := []string{name}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), name))
	}
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err != nil || info.IsDir() {
			continue
		}
		if abs, err := filepath.Abs(c); err == nil {
			return abs
		}
	}
	return name
}

func (t *ScriptTransmitter) Transmit(ctx context.Context, path, address string) error {
	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	args := append(append([]string{}, t.Command[1:]...), path, address)
	cmd := exec.CommandContext(ctx, t.Command[0], args...)
	cmd.WaitDelay = helperWaitDelay

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: timed out after %s", ErrHelperFailed, t.Timeout)
		}
		msg := strings.TrimSpace(output.String())
		if msg == "" {
			return fmt.Errorf("%w: %v", ErrHelperFailed, err)
		}
		return fmt.Errorf("%w: %v: %s", ErrHelperFailed, err, msg)
	}
	return nil
}

// TCPTransmitter streams the file to a raw port 9100 listener.
type TCPTransmitter struct {
	Timeout time.Duration
}

func NewTCPTransmitter(timeout time.Duration) *TCPTransmitter {
	if timeout <= 0 {
		timeout = defaultReadWriteTimeout
	}
	return &TCPTransmitter{Timeout: timeout}
}

func (t *TCPTransmitter) Transmit(ctx context.Context, path, address string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read spool file: %w", err)
	}

	hostPort, err := tcpHostPort(address)
	if err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: t.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", hostPort)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(t.Timeout))

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

// RoutingTransmitter sends tcp:// addresses over the network and everything
// else through the helper script.
type RoutingTransmitter struct {
	Script Transmitter
	TCP    Transmitter
}

func (t *RoutingTransmitter) Transmit(ctx context.Context, path, address string) error {
	if IsNetworkAddress(address) {
		return t.TCP.Transmit(ctx, path, address)
	}
	return t.Script.Transmit(ctx, path, address)
}

func IsNetworkAddress(address string) bool {
	return strings.HasPrefix(strings.ToLower(address), tcpScheme)
}

func tcpHostPort(address string) (string, error) {
	hostPort := address
	if IsNetworkAddress(address) {
		hostPort = address[len(tcpScheme):]
	}
	if hostPort == "" {
		return "", fmt.Errorf("empty network address")
	}
	if _, _, err := net.SplitHostPort(hostPort); err != nil {
		hostPort = net.JoinHostPort(hostPort, fmt.Sprint(defaultTCPPort))
	}
	return hostPort, nil
}
