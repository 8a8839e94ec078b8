package service

import "context"

// Notification is a message pushed to the user outside a command reply.
type Notification struct {
	ChatID int64 // zero means the owner chat
	TaskID uint
	Title  string
	Body   string
}

// Notifier delivers notifications (reminders, focus alerts, digests).
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
