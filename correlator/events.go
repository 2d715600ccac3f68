// Package correlator decides, for every inbound chat event, whether it represents a
// raid-creation intent, an update to an existing raid, or a bench roster change, and
// drives the companion-thread side effects. Each physical event is acted on at most
// once (deduplicated within a TTL window), edits are honored only inside a bounded
// window, and the thread history scan is the only correlation mechanism back to a
// raid id — the backend remains the sole authority on raid state.
package correlator

import (
	"context"
	"time"

	"github.com/templeashkandi/raidwatch/templeapi"
)

// MessageCreated is a new message posted in the monitored channel.
type MessageCreated struct {
	ID        string
	ChannelID string
	AuthorID  string
	AuthorTag string
	Bot       bool
	Content   string
	// ThreadID is the companion thread the gateway payload carried, if any. An
	// empty value does not mean no thread exists; CompanionThread resolves the
	// rest lazily.
	ThreadID string
}

// MessageEdited is an edit of a previously posted channel message.
type MessageEdited struct {
	ID        string
	ChannelID string
	AuthorID  string
	AuthorTag string
	Bot       bool
	Content   string
	CreatedAt time.Time
	// EditedAt is zero for non-content updates (pins, embeds resolving).
	EditedAt time.Time
	// InThread is true when the edited message lives inside a thread rather than
	// the channel itself; such edits are ignored.
	InThread bool
	ThreadID string
}

// ThreadReply is a message posted inside a thread of the monitored channel.
type ThreadReply struct {
	ID              string
	ThreadID        string
	ParentChannelID string
	AuthorID        string
	AuthorTag       string
	Bot             bool
	Content         string
}

// PermissionChecker answers whether a Discord user has an account and raid-manager
// authority. Implemented by templeapi.Client.
type PermissionChecker interface {
	CheckPermissions(ctx context.Context, discordUserID string) templeapi.PermissionVerdict
}

// RaidBackend owns raid and roster records. Implemented by templeapi.Client.
type RaidBackend interface {
	CreateRaid(ctx context.Context, discordUserID, wclURL, discordMessageID string) (*templeapi.RaidResult, error)
	UpdateRaid(ctx context.Context, discordUserID, newWclURL, discordMessageID string) (*templeapi.UpdateResult, error)
	UpdateBench(ctx context.Context, discordUserID string, raidID int64, names []string) (*templeapi.BenchResult, error)
}

// ThreadService is the narrow chat-platform surface the correlator drives. Every
// method may fail without affecting the primary outcome already achieved against the
// backend; callers log and swallow.
type ThreadService interface {
	// Reply posts a reply to a channel message.
	Reply(ctx context.Context, channelID, messageID, content string) error
	// Send posts into an existing thread.
	Send(ctx context.Context, threadID, content string) error
	// CreateThread starts a thread on a message and returns the new thread id.
	// If the message already carries a thread, that thread's id is returned.
	CreateThread(ctx context.Context, channelID, messageID, name string) (string, error)
	// CompanionThread resolves the thread attached to a message, or "" when the
	// message has none. Called lazily, only once a thread is actually needed.
	CompanionThread(ctx context.Context, messageID string) (string, error)
	// Rename changes a thread's name.
	Rename(ctx context.Context, threadID, name string) error
	// ResolveRaidID scans recent thread history for a previously posted raid link
	// and returns the first raid id found. A structured backend lookup could
	// replace this without touching the correlator.
	ResolveRaidID(ctx context.Context, threadID string) (int64, bool, error)
}
