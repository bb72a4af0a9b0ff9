package model

// Message is one raw mail item supplied by a source. Raw holds the full
// MIME-encoded message and is only referenced for one decode cycle.
type Message struct {
	UID  string
	Raw  []byte
	Size int64
}

// Envelope wraps a message alongside an optional error encountered while
// fetching it. An envelope with Err set marks a skipped message.
type Envelope struct {
	Message Message
	Err     error
}

// Record is one goods-receipt invoice extracted from a message body.
// Two records describe the same invoice iff all three fields are equal.
type Record struct {
	Invoice string
	RawDate string
	User    string
}

// Key returns the dedup key for the record.
func (r Record) Key() string {
	return r.Invoice + "\x00" + r.RawDate + "\x00" + r.User
}
