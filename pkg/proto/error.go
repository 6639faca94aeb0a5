package proto

// Error is a client-visible routing error. The host sends it to the
// client verbatim and aborts the current transaction.
type Error struct {
	Severity string
	Code     string
	Message  string
	Detail   string
}
