package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

var ErrInvalidStatus = errors.New("invalid status response")

const (
	statusCommand        = "\x1b!?"
	statusResponseLength = 4
)

var printerStateMap = map[byte]string{
	'@': "normal",
	'F': "feeding",
	'P': "paused",
	'E': "error",
	'H': "head_open",
	'S': "standby",
	'L': "label_waiting",
	'I': "idle",
}

var warningMap = map[byte]string{
	'@': "none",
	'A': "paper_low",
	'B': "ribbon_low",
	'C': "paper_and_ribbon_low",
}

var errorMap = map[byte]string{
	'@': "none",
	'A': "head_overheat",
	'B': "motor_overheat",
	'C': "head_and_motor_overheat",
	'D': "head_error",
	'E': "cutter_error",
	'F': "rtc_error",
}

var mediaErrorMap = map[byte]string{
	'@': "none",
	'A': "paper_empty",
	'B': "ribbon_empty",
	'C': "paper_and_ribbon_empty",
	'D': "takeup_reel_full",
	'`': "head_open",
}

type PrinterStatus struct {
	Address      string    `json:"address"`
	Status       string    `json:"status"`
	PrinterState string    `json:"printer_state,omitempty"`
	Warning      string    `json:"warning,omitempty"`
	Error        string    `json:"error,omitempty"`
	MediaError   string    `json:"media_error,omitempty"`
	IsOnline     bool      `json:"is_online"`
	CanPrint     bool      `json:"can_print"`
	LastChecked  time.Time `json:"last_checked"`
}

// StatusProber queries TSC-compatible network printers with the ESC !?
// status command. Share targets cannot be probed and report "unknown".
type StatusProber struct {
	Timeout time.Duration
}

func NewStatusProber(timeout time.Duration) *StatusProber {
	if timeout <= 0 {
		timeout = defaultReadWriteTimeout
	}
	return &StatusProber{Timeout: timeout}
}

func (p *StatusProber) CheckStatus(ctx context.Context, address string) *PrinterStatus {
	status := &PrinterStatus{Address: address, Status: "unknown", LastChecked: time.Now()}
	if !IsNetworkAddress(address) {
		return status
	}

	hostPort, err := tcpHostPort(address)
	if err != nil {
		status.Status = "offline"
		status.Error = err.Error()
		return status
	}

	response, err := p.query(ctx, hostPort)
	if err != nil {
		status.Status = "offline"
		if errors.Is(err, ErrInvalidStatus) {
			status.Status = "error"
		}
		status.Error = err.Error()
		return status
	}

	parseStatus(response, status)
	status.IsOnline = true
	status.CanPrint = status.PrinterState == "normal" || status.PrinterState == "standby" || status.PrinterState == "idle"
	status.Status = determineStatusString(status)
	return status
}

func (p *StatusProber) query(ctx context.Context, hostPort string) ([]byte, error) {
	dialer := net.Dialer{Timeout: p.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", hostPort)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(p.Timeout))

	if _, err := conn.Write([]byte(statusCommand)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	response := make([]byte, statusResponseLength)
	totalRead := 0
	for totalRead < statusResponseLength {
		n, err := conn.Read(response[totalRead:])
		totalRead += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				break
			}
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
	}

	if totalRead < statusResponseLength {
		return nil, ErrInvalidStatus
	}
	return response, nil
}

func parseStatus(response []byte, status *PrinterStatus) {
	status.PrinterState = lookupStatus(printerStateMap, response[0])
	status.Warning = lookupStatus(warningMap, response[1])
	status.Error = lookupStatus(errorMap, response[2])
	status.MediaError = lookupStatus(mediaErrorMap, response[3])
}

func lookupStatus(m map[byte]string, b byte) string {
	if s, ok := m[b]; ok {
		return s
	}
	return "unknown"
}

func determineStatusString(status *PrinterStatus) string {
	if !status.IsOnline {
		return "offline"
	}
	if status.PrinterState == "error" || status.Error != "none" {
		return "error"
	}
	if status.PrinterState == "paused" {
		return "paused"
	}
	if status.MediaError != "none" {
		return "error"
	}
	if status.PrinterState == "feeding" {
		return "busy"
	}
	return "online"
}
