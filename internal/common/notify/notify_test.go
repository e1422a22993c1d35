package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obentoo/sbupdate/internal/common/output"
)

// fakeBus records the last method call
type fakeBus struct {
	method string
	args   []interface{}
	err    error
}

func (b *fakeBus) CallWithContext(_ context.Context, method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	b.method = method
	b.args = args
	return &dbus.Call{Err: b.err}
}

func newFakeDesktop(bus *fakeBus, closed *bool) *DesktopNotifier {
	return &DesktopNotifier{connect: func() (caller, func() error, error) {
		return bus, func() error { *closed = true; return nil }, nil
	}}
}

func TestDesktopNotifierCall(t *testing.T) {
	bus := &fakeBus{}
	closed := false

	err := newFakeDesktop(bus, &closed).Notify(context.Background(), "Updates Found", "qemu-9.1.0\nsteam-1.0.0.79")
	require.NoError(t, err)

	assert.Equal(t, "org.freedesktop.Notifications.Notify", bus.method)
	require.Len(t, bus.args, 8)
	assert.Equal(t, AppName, bus.args[0])
	assert.Equal(t, uint32(0), bus.args[1])
	assert.Equal(t, Icon, bus.args[2])
	assert.Equal(t, "Updates Found", bus.args[3])
	assert.Equal(t, "qemu-9.1.0\nsteam-1.0.0.79", bus.args[4])
	assert.Equal(t, int32(0), bus.args[7], "notification must not expire")
	assert.True(t, closed, "bus connection not closed")
}

func TestDesktopNotifierErrors(t *testing.T) {
	closed := false
	err := newFakeDesktop(&fakeBus{err: errors.New("no server")}, &closed).Notify(context.Background(), "t", "b")
	assert.ErrorContains(t, err, "no server")

	noBus := &DesktopNotifier{connect: func() (caller, func() error, error) {
		return nil, nil, errors.New("no session bus")
	}}
	assert.ErrorContains(t, noBus.Notify(context.Background(), "t", "b"), "no session bus")
}

func TestConsoleNotifier(t *testing.T) {
	output.NoColor()
	var buf bytes.Buffer

	require.NoError(t, (&ConsoleNotifier{Out: &buf}).Notify(context.Background(), "Updates Found", "qemu-9.1.0\nsteam-1.2"))

	out := buf.String()
	assert.Contains(t, out, "Updates Found")
	assert.Contains(t, out, "│  qemu-9.1.0\n")
	assert.Contains(t, out, "│  steam-1.2\n")
}

func TestFallback(t *testing.T) {
	var buf bytes.Buffer
	failing := &DesktopNotifier{connect: func() (caller, func() error, error) {
		return nil, nil, errors.New("no session bus")
	}}

	f := Fallback{Primary: failing, Secondary: &ConsoleNotifier{Out: &buf}}
	require.NoError(t, f.Notify(context.Background(), "Updates Found", "zenity-4.0.1"))
	assert.True(t, strings.Contains(buf.String(), "zenity-4.0.1"))

	both := Fallback{Primary: failing, Secondary: failing}
	assert.Error(t, both.Notify(context.Background(), "t", "b"))
}

func TestNopNotifier(t *testing.T) {
	assert.NoError(t, NopNotifier{}.Notify(context.Background(), "t", "b"))
}
