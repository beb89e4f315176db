package model

// Notifier delivers rendered notifications (alert digests) to an external
// channel such as email.
type Notifier interface {
	Send(subject, body string) error
}
