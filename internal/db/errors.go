package db

// Op constants map to search module command names for error context.
const (
	OpCreate  = "FT.CREATE"
	OpAdd     = "FT.ADD"
	OpDrop    = "FT.DROP"
	OpDel     = "FT.DEL"
	OpSearch  = "FT.SEARCH"
	OpExplain = "FT.EXPLAIN"
	OpInfo    = "FT.INFO"
	OpPing    = "PING"
)

// Error wraps an underlying transport error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// ServerError is an error reply sent by the server. Message is the reply text as received.
type ServerError struct {
	Op      string
	Message string
}

func (e *ServerError) Error() string { return e.Op + ": " + e.Message }
