// Package notify delivers the run summary to the user.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/godbus/dbus/v5"

	"github.com/obentoo/sbupdate/internal/common/output"
)

const (
	// AppName identifies the sender to the notification server
	AppName = "slackware unsupported update check"
	// Icon is the freedesktop icon name shown with the notification
	Icon = "notification-message-im"

	notificationsDest   = "org.freedesktop.Notifications"
	notificationsPath   = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsMethod = "org.freedesktop.Notifications.Notify"

	// expireNever asks the server to keep the notification until dismissed
	expireNever int32 = 0
)

// Notifier delivers a titled message
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// caller is the part of dbus.BusObject the desktop notifier needs
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// DesktopNotifier sends freedesktop notifications over the session bus
type DesktopNotifier struct {
	// connect opens the bus object; replaced in tests
	connect func() (caller, func() error, error)
}

// NewDesktopNotifier creates a notifier that connects to the session bus per message
func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{connect: sessionBus}
}

func sessionBus() (caller, func() error, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return conn.Object(notificationsDest, notificationsPath), conn.Close, nil
}

// Notify shows a persistent desktop notification
func (n *DesktopNotifier) Notify(ctx context.Context, title, body string) error {
	obj, closeFn, err := n.connect()
	if err != nil {
		return err
	}
	defer closeFn()

	call := obj.CallWithContext(ctx, notificationsMethod, 0,
		AppName,
		uint32(0), // replaces_id
		Icon,
		title,
		body,
		[]string{},
		map[string]dbus.Variant{},
		expireNever,
	)
	if call.Err != nil {
		return fmt.Errorf("failed to send notification: %w", call.Err)
	}
	return nil
}

// ConsoleNotifier prints the message in a box
type ConsoleNotifier struct {
	Out io.Writer
}

// NewConsoleNotifier creates a notifier writing to stdout
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{Out: os.Stdout}
}

// Notify prints the message
func (n *ConsoleNotifier) Notify(_ context.Context, title, body string) error {
	output.FprintBox(n.Out, title, body)
	return nil
}

// NopNotifier discards every message
type NopNotifier struct{}

// Notify does nothing
func (NopNotifier) Notify(context.Context, string, string) error {
	return nil
}

// Fallback tries Primary and uses Secondary when it fails.
// Headless machines have no session bus, so the console still gets the summary.
type Fallback struct {
	Primary   Notifier
	Secondary Notifier
}

// Notify delivers through Primary, or Secondary on error.
// The Primary error is returned only if Secondary fails too.
func (f Fallback) Notify(ctx context.Context, title, body string) error {
	err := f.Primary.Notify(ctx, title, body)
	if err == nil {
		return nil
	}
	if serr := f.Secondary.Notify(ctx, title, body); serr != nil {
		return fmt.Errorf("%w (fallback: %v)", err, serr)
	}
	return nil
}
