package domain

import "time"

type SessionID string
type UserID string
type MessageID string
type EntryID string
type TaskID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Timestamp = time.Time
