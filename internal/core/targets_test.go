package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestResolver(t *testing.T, targets map[JobKind]TargetSet) *Resolver {
	t.Helper()
	return NewResolver(ResolverOptions{
		Targets:  targets,
		Hostname: func() (string, error) { return "kiosk", nil },
		Logger:   zaptest.NewLogger(t),
	})
}

func TestResolveTargets(t *testing.T) {
	r := newTestResolver(t, map[JobKind]TargetSet{
		JobKindLabel: {Shares: []string{"BARCODEPRINTER", " ", "BARCODEPRINTER2"}, Network: []string{"tcp://10.0.0.5"}},
	})

	targets := r.ResolveTargets(JobKindLabel)
	require.Len(t, targets, 3)
	assert.Equal(t, PrinterTarget{Host: "kiosk", Share: "BARCODEPRINTER", Address: `\\kiosk\BARCODEPRINTER`}, targets[0])
	assert.Equal(t, `\\kiosk\BARCODEPRINTER2`, targets[1].Address)
	assert.Equal(t, "tcp://10.0.0.5", targets[2].Address)

	assert.Empty(t, r.ResolveTargets(JobKindTicket))
}

func TestResolveTargets_HostnameReadEachTime(t *testing.T) {
	host := "first"
	r := NewResolver(ResolverOptions{
		Targets:  map[JobKind]TargetSet{JobKindTicket: {Shares: []string{"SILENTPRINTER"}}},
		Hostname: func() (string, error) { return host, nil },
	})

	assert.Equal(t, `\\first\SILENTPRINTER`, r.ResolveTargets(JobKindTicket)[0].Address)
	host = "second"
	assert.Equal(t, `\\second\SILENTPRINTER`, r.ResolveTargets(JobKindTicket)[0].Address)
}

func TestResolveTargets_HostnameError(t *testing.T) {
	r := NewResolver(ResolverOptions{
		Targets:  map[JobKind]TargetSet{JobKindTicket: {Shares: []string{"SILENTPRINTER"}}},
		Hostname: func() (string, error) { return "", errors.New("no hostname") },
	})

	assert.Equal(t, `\\localhost\SILENTPRINTER`, r.ResolveTargets(JobKindTicket)[0].Address)
}

type recordingObserver struct {
	nopObserver
	failedTargets []string
}

func (o *recordingObserver) TargetFailed(_ JobKind, address string) {
	o.failedTargets = append(o.failedTargets, address)
}

func TestRunWithFailover_SecondTargetAfterFirstAbandoned(t *testing.T) {
	primary, secondary := `\\kiosk\BARCODEPRINTER`, `\\kiosk\BARCODEPRINTER2`
	tx := newScriptedTransmitter(map[string]int{primary: 2})
	d, dir := newTestDispatcher(t, tx)

	obs := &recordingObserver{}
	r := NewResolver(ResolverOptions{
		Targets:          map[JobKind]TargetSet{JobKindLabel: {Shares: []string{"BARCODEPRINTER", "BARCODEPRINTER2"}}},
		Hostname:         func() (string, error) { return "kiosk", nil },
		SerializeTargets: true,
		Observer:         obs,
		Logger:           zaptest.NewLogger(t),
	})

	job := &RenderedJob{ID: "job", Kind: JobKindLabel, Data: []byte("x"), Copies: 3, Targets: r.ResolveTargets(JobKindLabel)}
	target, attempts, err := r.RunWithFailover(context.Background(), d, job)
	require.NoError(t, err)
	assert.Equal(t, secondary, target.Address)
	assert.Equal(t, 2, attempts)

	assert.Equal(t, []string{primary, primary, secondary, secondary, secondary}, tx.addresses())
	assert.Equal(t, []string{primary}, obs.failedTargets)
	assertDirEmpty(t, dir)
}

func TestRunWithFailover_AllTargetsExhausted(t *testing.T) {
	a, b := `\\kiosk\A`, `\\kiosk\B`
	tx := newScriptedTransmitter(map[string]int{a: 0, b: 0})
	d, _ := newTestDispatcher(t, tx)
	r := newTestResolver(t, map[JobKind]TargetSet{JobKindTicket: {Shares: []string{"A", "B"}}})

	job := &RenderedJob{ID: "job", Kind: JobKindTicket, Data: []byte("x"), Copies: 2, Targets: r.ResolveTargets(JobKindTicket)}
	_, attempts, err := r.RunWithFailover(context.Background(), d, job)
	require.Error(t, err)
	assert.Equal(t, 2, attempts)

	var exhausted *AllTargetsExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)

	var last *TransmitError
	require.ErrorAs(t, err, &last)
	assert.Equal(t, b, last.Target)
	assert.ErrorIs(t, err, ErrTransmitFailed)
	assert.Contains(t, err.Error(), "helper exited with status 1")

	assert.Equal(t, []string{a, b}, tx.addresses())
}

func TestRunWithFailover_NoTargets(t *testing.T) {
	r := newTestResolver(t, nil)
	d, _ := newTestDispatcher(t, newScriptedTransmitter(nil))

	_, attempts, err := r.RunWithFailover(context.Background(), d, &RenderedJob{ID: "job", Copies: 1})
	assert.ErrorIs(t, err, ErrNoTargets)
	assert.Equal(t, 0, attempts)
}

func TestLockFor_CaseInsensitive(t *testing.T) {
	r := newTestResolver(t, nil)
	assert.Same(t, r.lockFor(`\\KIOSK\Printer`), r.lockFor(`\\kiosk\PRINTER`))
	assert.NotSame(t, r.lockFor(`\\kiosk\A`), r.lockFor(`\\kiosk\B`))
}
