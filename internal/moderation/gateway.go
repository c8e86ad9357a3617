package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ChatKind is the platform type of a chat.
type ChatKind string

const (
	ChatPrivate    ChatKind = "private"
	ChatGroup      ChatKind = "group"
	ChatSupergroup ChatKind = "supergroup"
	ChatChannel    ChatKind = "channel"
)

// Monitored reports whether messages in the chat are moderated.
func (k ChatKind) Monitored() bool {
	return k == ChatGroup || k == ChatSupergroup
}

// MemberStatus is the membership state of a user in a chat.
type MemberStatus string

const (
	StatusNone          MemberStatus = ""
	StatusCreator       MemberStatus = "creator"
	StatusAdministrator MemberStatus = "administrator"
	StatusMember        MemberStatus = "member"
	StatusRestricted    MemberStatus = "restricted"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
)

// Absent reports whether the user is outside the chat.
func (s MemberStatus) Absent() bool {
	return s == StatusNone || s == StatusLeft || s == StatusKicked
}

// Privileged reports whether the user administers the chat.
func (s MemberStatus) Privileged() bool {
	return s == StatusCreator || s == StatusAdministrator
}

// Button is a single inline keyboard button. Exactly one of CallbackData and
// URL is set.
type Button struct {
	Text         string
	CallbackData string
	URL          string
}

// OutgoingMessage is a message the bot sends.
type OutgoingMessage struct {
	ChatID int64
	Text   string
	HTML   bool
	Button *Button
}

// Gateway is the chat platform as seen by the moderation engine. Every call
// may fail with a *GatewayError.
type Gateway interface {
	SendMessage(ctx context.Context, msg OutgoingMessage) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	// BanMember bans until the given time; the zero time bans permanently.
	BanMember(ctx context.Context, chatID, userID int64, until time.Time) error
	// RestrictMember revokes sending permissions until the given time.
	RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error
	UnbanMember(ctx context.Context, chatID, userID int64) error
	GetMemberStatus(ctx context.Context, chatID, userID int64) (MemberStatus, error)
	GetAdministrators(ctx context.Context, chatID int64) ([]int64, error)
	GetChatKind(ctx context.Context, chatID int64) (ChatKind, error)
}

// GatewayError reports a failed platform call.
type GatewayError struct {
	Op     string
	ChatID int64
	Err    error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway: %s in chat %d: %v", e.Op, e.ChatID, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// ErrMessageNotFound is returned by gateways when the target message no
// longer exists.
var ErrMessageNotFound = errors.New("message to delete not found")

// IsMessageNotFound reports whether err means the message is already gone.
func IsMessageNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMessageNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "message to delete not found") ||
		strings.Contains(msg, "message can't be deleted for everyone")
}
