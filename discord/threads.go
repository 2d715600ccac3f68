package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/templeashkandi/raidwatch/wcl"
)

// threadAutoArchiveMinutes is Discord's 24h auto-archive setting for new
// companion threads; the cleanup job deletes them for real later.
const threadAutoArchiveMinutes = 1440

// Reply posts a reply referencing a channel or thread message.
func (b *Bot) Reply(ctx context.Context, channelID, messageID, content string) error {
	_, err := b.session.ChannelMessageSendReply(channelID, content, &discordgo.MessageReference{
		ChannelID: channelID,
		MessageID: messageID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("reply in %s: %w", channelID, err)
	}
	return nil
}

// Send posts a message into an existing thread.
func (b *Bot) Send(ctx context.Context, threadID, content string) error {
	_, err := b.session.ChannelMessageSend(threadID, content, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send to thread %s: %w", threadID, err)
	}
	return nil
}

// CreateThread starts a companion thread on the given message. If the message
// already carries a thread from an earlier run, that thread is reused: Discord
// rejects a second thread on the same message, and the existing one is found by the
// message-id lookup below.
func (b *Bot) CreateThread(ctx context.Context, channelID, messageID, name string) (string, error) {
	ch, err := b.session.MessageThreadStart(channelID, messageID, name, threadAutoArchiveMinutes, discordgo.WithContext(ctx))
	if err != nil {
		if existing, lerr := b.CompanionThread(ctx, messageID); lerr == nil && existing != "" {
			return existing, nil
		}
		return "", fmt.Errorf("start thread on %s: %w", messageID, err)
	}
	return ch.ID, nil
}

// CompanionThread resolves the thread attached to a channel message, or "" when the
// message has none. A message-started thread shares the message's snowflake, so a
// channel lookup by the message id finds it.
func (b *Bot) CompanionThread(ctx context.Context, messageID string) (string, error) {
	ch, err := b.session.Channel(messageID, discordgo.WithContext(ctx))
	if err != nil {
		// A 404 here just means no thread was ever started on the message.
		return "", fmt.Errorf("resolve thread for %s: %w", messageID, err)
	}
	if !ch.IsThread() {
		return "", nil
	}
	return ch.ID, nil
}

// Rename changes a thread's name.
func (b *Bot) Rename(ctx context.Context, threadID, name string) error {
	_, err := b.session.ChannelEdit(threadID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("rename thread %s: %w", threadID, err)
	}
	return nil
}

// ResolveRaidID scans the most recent messages of a thread for a previously posted
// raid link and returns the first raid id found. Best-effort correlation: the thread
// is the only local record tying a discussion back to its raid.
func (b *Bot) ResolveRaidID(ctx context.Context, threadID string) (int64, bool, error) {
	msgs, err := b.session.ChannelMessages(threadID, b.cfg.HistoryScanLimit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return 0, false, fmt.Errorf("fetch thread history %s: %w", threadID, err)
	}
	id, ok := scanRaidID(msgs)
	return id, ok, nil
}

// scanRaidID returns the raid id of the first message containing a raid link.
// ChannelMessages returns newest first, so the most recent link wins.
func scanRaidID(msgs []*discordgo.Message) (int64, bool) {
	for _, m := range msgs {
		if id, ok := wcl.ExtractRaidID(m.Content); ok {
			return id, true
		}
	}
	return 0, false
}
