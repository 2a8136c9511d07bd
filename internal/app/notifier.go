package app

import (
	"io"
	"log"
)

// ToastKind classifies a user-facing notification.
type ToastKind string

const (
	ToastInfo    ToastKind = "info"
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Notifier shows short user-facing messages.
type Notifier interface {
	Toast(kind ToastKind, message string)
}

// LogNotifier writes toasts to a logger.
type LogNotifier struct {
	Logger *log.Logger
}

// Toast logs the message with its kind.
func (n LogNotifier) Toast(kind ToastKind, message string) {
	if n.Logger == nil {
		return
	}
	n.Logger.Printf("toast %s: %s", kind, message)
}

// MultiNotifier fans a toast out to every notifier.
type MultiNotifier []Notifier

// Toast forwards to each notifier in order.
func (m MultiNotifier) Toast(kind ToastKind, message string) {
	for _, n := range m {
		n.Toast(kind, message)
	}
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
