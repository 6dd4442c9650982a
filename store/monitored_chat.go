package store

import "context"

// ChatType distinguishes how MonitoredChat.ChatHandle should be interpreted
// and which MTProto join operation applies (spec §4.1/§4.2).
type ChatType string

const (
	ChatTypeChannel ChatType = "channel"
	ChatTypeGroup   ChatType = "group"
	ChatTypeInvite  ChatType = "invite" // joined via an invite link/hash
)

// MonitoredChat is one chat a Project watches for keyword matches (spec §3).
// Uniqueness: (ProjectID, ChatHandle). Invariant: at most one live event
// subscription per ID across the session pool, enforced by the monitor (C3).
type MonitoredChat struct {
	ID         int64
	ProjectID  int64
	ChatHandle string // "@name" or a signed numeric id
	Title      string
	Type       ChatType
	Keywords   string // comma-separated; empty means "match everything"
	IsActive   bool
}

// CreateMonitoredChat adds a chat to a project.
type CreateMonitoredChat struct {
	ProjectID  int64
	ChatHandle string
	Title      string
	Type       ChatType
	Keywords   string
}

// UpdateMonitoredChat patches mutable chat fields; nil fields are left unchanged.
type UpdateMonitoredChat struct {
	ID       int64
	Title    *string
	Keywords *string
	IsActive *bool
}

// FindMonitoredChat filters ListMonitoredChats.
type FindMonitoredChat struct {
	ProjectID *int64
	IsActive  *bool
}

// MonitoredChatStore persists MonitoredChat rows.
type MonitoredChatStore interface {
	CreateMonitoredChat(ctx context.Context, create *CreateMonitoredChat) (*MonitoredChat, error)
	GetMonitoredChat(ctx context.Context, id int64) (*MonitoredChat, error)
	ListMonitoredChats(ctx context.Context, find *FindMonitoredChat) ([]*MonitoredChat, error)
	UpdateMonitoredChat(ctx context.Context, update *UpdateMonitoredChat) (*MonitoredChat, error)
	DeleteMonitoredChat(ctx context.Context, id int64) error
	// CountActiveChats is used to enforce TariffPlan.MaxChatsPerProject on creation.
	CountActiveChats(ctx context.Context, projectID int64) (int, error)
}
