package domain

// Message is one item of a session's timeline (user or assistant).
type Message struct {
	ID        MessageID
	SessionID SessionID
	Role      Role
	Content   string
	CreatedAt Timestamp
}

// Session represents an ongoing relationship between a user and the
// assistant. A session accumulates messages and owns exactly one live draft;
// it can produce many entries over its lifetime.
type Session struct {
	ID        SessionID
	UserID    UserID
	Title     string
	CreatedAt Timestamp
	UpdatedAt Timestamp
}
