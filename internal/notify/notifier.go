package notify

import "context"

type Kind string

const (
	KindRealtimeAlert Kind = "realtimeAlert"
	KindDailyReport   Kind = "dailyReport"
)

type RecipientsClass string

const (
	RecipientsTest RecipientsClass = "test"
	RecipientsProd RecipientsClass = "prod"
)

// Notification is a fully-formed message: the pipeline supplies subject and
// body, the notifier owns rendering details and transport.
type Notification struct {
	Kind       Kind
	Subject    string
	Body       string
	Recipients RecipientsClass
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
