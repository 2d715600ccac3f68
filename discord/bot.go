// Package discord adapts the Discord gateway to the correlator: it translates live
// gateway events into platform-neutral chat events, implements the thread side-effect
// surface over the Discord REST API, and runs the companion-thread cleanup job.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/templeashkandi/raidwatch/config"
	"github.com/templeashkandi/raidwatch/correlator"
	"github.com/templeashkandi/raidwatch/telemetry"
)

// Bot owns the Discord session and feeds the correlator.
type Bot struct {
	cfg     *config.Config
	session *discordgo.Session

	// chanInfo caches channel thread-ness and parent ids so routing a message
	// does not cost a REST call each time.
	mu       sync.Mutex
	chanInfo map[string]channelInfo

	connected bool
	connMu    sync.Mutex
}

type channelInfo struct {
	isThread bool
	parentID string
}

// NewBot creates the gateway session with the intents the bot needs. It does not
// connect; call Start.
func NewBot(cfg *config.Config) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent
	// Messages are fetched on demand; a large state cache buys nothing here.
	session.State.MaxMessageCount = 0

	return &Bot{
		cfg:      cfg,
		session:  session,
		chanInfo: make(map[string]channelInfo),
	}, nil
}

// Start registers gateway handlers and opens the connection. It blocks until ctx is
// canceled, then closes the session.
func (b *Bot) Start(ctx context.Context, corr *correlator.Correlator) error {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.setConnected(true)
		slog.Info("bot logged in", slog.String("user", r.User.String()))
		slog.Info("monitoring channel", slog.String("channel_id", b.cfg.RaidLogsChannelID))
	})
	b.session.AddHandler(func(s *discordgo.Session, d *discordgo.Disconnect) {
		b.setConnected(false)
		slog.Warn("gateway disconnected")
	})
	b.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.onMessageCreate(ctx, corr, m.Message)
	})
	b.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageUpdate) {
		b.onMessageUpdate(ctx, corr, m.Message)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}

	<-ctx.Done()
	b.setConnected(false)
	if err := b.session.Close(); err != nil {
		slog.Error("gateway close error", slog.Any("err", err))
	}
	return nil
}

// Connected reports whether the gateway session is up. Used by the readiness probe.
func (b *Bot) Connected() bool {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	return b.connected
}

func (b *Bot) setConnected(up bool) {
	b.connMu.Lock()
	b.connected = up
	b.connMu.Unlock()
	telemetry.SetGatewayUp(up)
}

func (b *Bot) onMessageCreate(ctx context.Context, corr *correlator.Correlator, m *discordgo.Message) {
	if m.Author == nil {
		return
	}
	if m.ChannelID == b.cfg.RaidLogsChannelID {
		corr.HandleCreate(ctx, correlator.MessageCreated{
			ID:        m.ID,
			ChannelID: m.ChannelID,
			AuthorID:  m.Author.ID,
			AuthorTag: m.Author.String(),
			Bot:       m.Author.Bot,
			Content:   m.Content,
			ThreadID:  messageThreadID(m),
		})
		return
	}
	info, err := b.channelInfo(m.ChannelID)
	if err != nil {
		slog.Debug("could not resolve channel, dropping event",
			slog.String("channel_id", m.ChannelID), slog.Any("err", err))
		return
	}
	if !info.isThread {
		return
	}
	corr.HandleThreadReply(ctx, correlator.ThreadReply{
		ID:              m.ID,
		ThreadID:        m.ChannelID,
		ParentChannelID: info.parentID,
		AuthorID:        m.Author.ID,
		AuthorTag:       m.Author.String(),
		Bot:             m.Author.Bot,
		Content:         m.Content,
	})
}

func (b *Bot) onMessageUpdate(ctx context.Context, corr *correlator.Correlator, m *discordgo.Message) {
	// Cheap gates first. Edits outside the monitored channel (including thread
	// messages, whose channel id is the thread's) and non-content updates such as
	// pins or embeds resolving must not cost a REST round-trip.
	if m.ChannelID != b.cfg.RaidLogsChannelID {
		return
	}
	if m.EditedTimestamp == nil {
		return
	}

	// Update payloads are frequently partial (no author, no creation timestamp);
	// fetch the full message before correlating.
	if m.Author == nil || m.Timestamp.IsZero() {
		full, err := b.session.ChannelMessage(m.ChannelID, m.ID, discordgo.WithContext(ctx))
		if err != nil {
			slog.Error("could not fetch updated message", slog.String("message_id", m.ID), slog.Any("err", err))
			return
		}
		full.EditedTimestamp = m.EditedTimestamp
		m = full
	}
	if m.Author == nil {
		return
	}

	corr.HandleEdit(ctx, correlator.MessageEdited{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		AuthorID:  m.Author.ID,
		AuthorTag: m.Author.String(),
		Bot:       m.Author.Bot,
		Content:   m.Content,
		CreatedAt: m.Timestamp,
		EditedAt:  *m.EditedTimestamp,
		ThreadID:  messageThreadID(m),
	})
}

// messageThreadID returns the thread the payload carried, if any. Absent here does
// not mean absent on Discord; the thread surface resolves it lazily when needed.
func messageThreadID(m *discordgo.Message) string {
	if m.Thread != nil {
		return m.Thread.ID
	}
	return ""
}

// channelInfo resolves and caches whether a channel is a thread and its parent.
func (b *Bot) channelInfo(channelID string) (channelInfo, error) {
	b.mu.Lock()
	if info, ok := b.chanInfo[channelID]; ok {
		b.mu.Unlock()
		return info, nil
	}
	b.mu.Unlock()

	ch, err := b.session.Channel(channelID)
	if err != nil {
		return channelInfo{}, err
	}
	info := channelInfo{isThread: ch.IsThread(), parentID: ch.ParentID}

	b.mu.Lock()
	b.chanInfo[channelID] = info
	b.mu.Unlock()
	return info, nil
}
