package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/templeashkandi/raidwatch/telemetry"
)

// StartThreadCleanupJob periodically deletes bot-created companion threads older
// than the configured age. The posted raid links are only a convenience record;
// the backend keeps the authoritative state, so old threads are safe to drop.
func (b *Bot) StartThreadCleanupJob(ctx context.Context) {
	if !b.cfg.ThreadCleanupEnabled {
		slog.Info("thread cleanup disabled")
		return
	}
	slog.Info("thread cleanup job starting",
		slog.Int("keep_days", b.cfg.ThreadCleanupDays),
		slog.Bool("dry_run", b.cfg.ThreadCleanupDryRun),
		slog.Duration("interval", b.cfg.ThreadCleanupInterval))

	ticker := time.NewTicker(b.cfg.ThreadCleanupInterval)
	defer ticker.Stop()

	// Run once on start, then on the interval.
	b.cleanupOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.cleanupOnce(ctx)
		}
	}
}

func (b *Bot) cleanupOnce(ctx context.Context) {
	slog.Info("starting thread cleanup pass")

	channel, err := b.session.Channel(b.cfg.RaidLogsChannelID, discordgo.WithContext(ctx))
	if err != nil {
		slog.Error("cleanup: could not fetch logs channel", slog.Any("err", err))
		return
	}

	var threads []*discordgo.Channel
	if active, err := b.session.GuildThreadsActive(channel.GuildID, discordgo.WithContext(ctx)); err != nil {
		slog.Error("cleanup: could not list active threads", slog.Any("err", err))
	} else {
		for _, th := range active.Threads {
			if th.ParentID == b.cfg.RaidLogsChannelID {
				threads = append(threads, th)
			}
		}
	}
	if archived, err := b.session.ThreadsArchived(b.cfg.RaidLogsChannelID, nil, 100, discordgo.WithContext(ctx)); err != nil {
		slog.Error("cleanup: could not list archived threads", slog.Any("err", err))
	} else {
		threads = append(threads, archived.Threads...)
	}

	botID := ""
	if b.session.State != nil && b.session.State.User != nil {
		botID = b.session.State.User.ID
	}
	cutoff := time.Now().AddDate(0, 0, -b.cfg.ThreadCleanupDays)
	old := selectExpiredThreads(threads, botID, cutoff)
	slog.Info("thread cleanup scan complete",
		slog.Int("total", len(threads)),
		slog.Int("expired", len(old)))

	deleted := 0
	for _, th := range old {
		if b.cfg.ThreadCleanupDryRun {
			slog.Info("cleanup dry-run: would delete thread", slog.String("thread_id", th.ID), slog.String("name", th.Name))
			continue
		}
		if _, err := b.session.ChannelDelete(th.ID, discordgo.WithContext(ctx)); err != nil {
			slog.Error("cleanup: failed to delete thread",
				slog.String("thread_id", th.ID), slog.String("name", th.Name), slog.Any("err", err))
			continue
		}
		deleted++
		telemetry.ThreadsDeleted.Inc()
		slog.Info("deleted thread", slog.String("thread_id", th.ID), slog.String("name", th.Name))
	}
	slog.Info("thread cleanup pass finished", slog.Int("deleted", deleted), slog.Int("eligible", len(old)))
}

// selectExpiredThreads returns the bot-owned threads created before cutoff. A thread
// started from a message shares that message's snowflake, so creation time comes
// from the id.
func selectExpiredThreads(threads []*discordgo.Channel, botID string, cutoff time.Time) []*discordgo.Channel {
	var out []*discordgo.Channel
	for _, th := range threads {
		if botID == "" || th.OwnerID != botID {
			continue
		}
		createdAt, err := discordgo.SnowflakeTimestamp(th.ID)
		if err != nil {
			continue
		}
		if createdAt.Before(cutoff) {
			out = append(out, th)
		}
	}
	return out
}
