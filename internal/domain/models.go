package domain

// InsertResult is the outcome of an idempotent insert.
type InsertResult string

const (
	InsertCreated   InsertResult = "created"
	InsertDuplicate InsertResult = "duplicate"
)

// Page size bounds for message listing.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Message is a single inbound webhook message as stored in the messages table.
type Message struct {
	MessageID  string  `json:"message_id" db:"message_id"`
	FromMSISDN string  `json:"from" db:"from_msisdn"`
	ToMSISDN   string  `json:"to" db:"to_msisdn"`
	TS         string  `json:"ts" db:"ts"`
	Text       *string `json:"text" db:"text"`
	CreatedAt  string  `json:"-" db:"created_at"`
}

// ListFilter holds the pagination window and the optional filters for a listing.
// Empty strings mean "no filter".
type ListFilter struct {
	Limit  int
	Offset int
	From   string
	Since  string
	Query  string
}

// Normalize clamps Limit to [1, MaxListLimit] and Offset to >= 0.
func (f ListFilter) Normalize() ListFilter {
	switch {
	case f.Limit < 1:
		f.Limit = 1
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

type MessagePage struct {
	Data   []*Message `json:"data"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

type Stats struct {
	TotalMessages     int     `json:"total_messages"`
	SendersCount      int     `json:"senders_count"`
	MessagesPerSender float64 `json:"messages_per_sender"`
	FirstMessageTS    *string `json:"first_message_ts"`
	LastMessageTS     *string `json:"last_message_ts"`
}
