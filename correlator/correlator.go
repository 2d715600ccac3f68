package correlator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/templeashkandi/raidwatch/bench"
	"github.com/templeashkandi/raidwatch/dedup"
	"github.com/templeashkandi/raidwatch/telemetry"
	"github.com/templeashkandi/raidwatch/templeapi"
	"github.com/templeashkandi/raidwatch/wcl"
)

// Config holds correlation policy.
type Config struct {
	// ChannelID is the monitored raid-logs channel.
	ChannelID string
	// EditWindow bounds how long after creation a message edit still updates the raid.
	EditWindow time.Duration
	// BaseURL of the Temple web app, used in user-facing guidance.
	BaseURL string
}

// Correlator consumes chat events and applies deduplication, extraction, the
// permission gate, and backend calls in sequence.
type Correlator struct {
	cfg     Config
	seen    *dedup.Deduplicator
	perms   PermissionChecker
	backend RaidBackend
	threads ThreadService
	now     func() time.Time
}

// Option customizes a Correlator.
type Option func(*Correlator)

// WithClock replaces the wall clock used for the edit window.
func WithClock(now func() time.Time) Option {
	return func(c *Correlator) { c.now = now }
}

// New builds a Correlator.
func New(cfg Config, seen *dedup.Deduplicator, perms PermissionChecker, backend RaidBackend, threads ThreadService, opts ...Option) *Correlator {
	c := &Correlator{
		cfg:     cfg,
		seen:    seen,
		perms:   perms,
		backend: backend,
		threads: threads,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleCreate processes a new message in the monitored channel: detect a report
// link, check authority, create-or-find the raid, and attach a companion thread.
func (c *Correlator) HandleCreate(ctx context.Context, ev MessageCreated) {
	if ev.Bot || ev.ChannelID != c.cfg.ChannelID {
		return
	}
	// Test-and-mark is one atomic step, taken before the first outbound call: of
	// any concurrent deliveries of this event, exactly one passes, and the key is
	// already held while we await the backend.
	if c.seen.Seen(ev.ID) {
		telemetry.EventsDeduplicated.Inc()
		slog.Debug("message already processed, skipping", slog.String("message_id", ev.ID))
		return
	}
	telemetry.EventsReceived.Inc()

	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	log := telemetry.LoggerWithCorr(ctx).With(
		slog.String("message_id", ev.ID),
		slog.String("author", ev.AuthorTag))

	urls := wcl.ExtractReportURLs(ev.Content)
	if len(urls) == 0 {
		return // most channel messages are not raid reports
	}
	// First link wins; later links in the same message are ignored.
	reportURL := urls[0]
	reportID := wcl.ExtractReportID(reportURL)
	if reportID == "" {
		return
	}

	verdict := c.perms.CheckPermissions(ctx, ev.AuthorID)
	if !verdict.Success {
		// Oracle outage, not a denial: never tell the user they lack permission
		// when the real cause is that we could not ask.
		telemetry.OracleOutages.Inc()
		log.Error("permission check unavailable, leaving event unprocessed", slog.Any("err", verdict.Err))
		return
	}
	if !verdict.HasAccount {
		c.reply(ctx, ev.ChannelID, ev.ID, c.loginRequired())
		return
	}
	if !verdict.IsRaidManager {
		telemetry.PermissionDenials.Inc()
		c.reply(ctx, ev.ChannelID, ev.ID, c.permissionRequired())
		return
	}

	res, err := c.backend.CreateRaid(ctx, ev.AuthorID, reportURL, ev.ID)
	if err != nil {
		c.logBackendErr(log, "create-raid", reportURL, err)
		return
	}
	if !res.Success {
		telemetry.BackendErrors.Inc()
		log.Error("failed to create raid", slog.String("wcl_url", reportURL), slog.String("api_error", res.Error))
		c.reply(ctx, ev.ChannelID, ev.ID, "❌ Failed to create raid: "+res.Error)
		return
	}

	telemetry.RaidsCreated.Inc()
	log.Info("raid ready", slog.Int64("raid_id", res.RaidID), slog.String("raid_name", res.RaidName), slog.Bool("is_new", res.IsNew))

	line := fmt.Sprintf("✅ Raid created: **%s** | [View Raid](%s)", res.RaidName, res.RaidURL)
	if !res.IsNew {
		line = fmt.Sprintf("ℹ️ Raid already tracked: **%s** | [View Raid](%s)", res.RaidName, res.RaidURL)
	}

	threadID := ev.ThreadID
	if threadID == "" {
		threadID, err = c.threads.CreateThread(ctx, ev.ChannelID, ev.ID, threadName(res.RaidName))
		if err != nil {
			telemetry.NotifyFailures.Inc()
			log.Error("could not create companion thread", slog.Any("err", err))
			return
		}
	}
	c.send(ctx, threadID, line)
}

// HandleEdit processes an edit of a channel message within the edit window,
// re-correlating its report link against the existing raid.
func (c *Correlator) HandleEdit(ctx context.Context, ev MessageEdited) {
	if ev.EditedAt.IsZero() {
		return // pin/embed update, not a content edit
	}
	if ev.InThread {
		return // edits only matter on the original channel message
	}
	if ev.Bot || ev.ChannelID != c.cfg.ChannelID {
		return
	}
	// A second edit of the same message is a new occurrence; a redelivery of the
	// same edit is not.
	key := fmt.Sprintf("%s-%d", ev.ID, ev.EditedAt.UnixMilli())
	if c.seen.Seen(key) {
		telemetry.EventsDeduplicated.Inc()
		slog.Debug("edit already processed, skipping", slog.String("key", key))
		return
	}
	telemetry.EventsReceived.Inc()

	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	log := telemetry.LoggerWithCorr(ctx).With(
		slog.String("message_id", ev.ID),
		slog.String("author", ev.AuthorTag))

	// The companion thread costs a REST lookup when the gateway payload didn't
	// carry it; resolve at most once, and only when a notice needs it.
	threadID := ev.ThreadID
	threadResolved := threadID != ""
	companion := func() string {
		if threadResolved {
			return threadID
		}
		threadResolved = true
		id, err := c.threads.CompanionThread(ctx, ev.ID)
		if err != nil {
			log.Debug("no companion thread found", slog.Any("err", err))
			return ""
		}
		threadID = id
		return threadID
	}

	if c.now().Sub(ev.CreatedAt) > c.cfg.EditWindow {
		log.Info("edit outside window, rejecting", slog.Time("created_at", ev.CreatedAt))
		if tid := companion(); tid != "" {
			c.send(ctx, tid, fmt.Sprintf("⏰ Raid edits are only allowed within %d minutes of the original message.", int(c.cfg.EditWindow.Minutes())))
		}
		return
	}

	urls := wcl.ExtractReportURLs(ev.Content)
	if len(urls) == 0 {
		// User removed the link: withdrawn intent, not an error.
		return
	}
	reportURL := urls[0]
	if wcl.ExtractReportID(reportURL) == "" {
		if tid := companion(); tid != "" {
			c.send(ctx, tid, "❌ Invalid WarcraftLogs URL. Please check the link and try again.")
		}
		return
	}

	verdict := c.perms.CheckPermissions(ctx, ev.AuthorID)
	if !verdict.Success {
		telemetry.OracleOutages.Inc()
		log.Error("permission check unavailable, leaving edit unprocessed", slog.Any("err", verdict.Err))
		return
	}
	if !verdict.HasAccount || !verdict.IsRaidManager {
		// Silent here: repeated edits must not spam permission replies.
		telemetry.PermissionDenials.Inc()
		log.Warn("edit author lacks raid-manager authority")
		return
	}

	log.Info("updating raid from edited message", slog.String("wcl_url", reportURL))
	res, err := c.backend.UpdateRaid(ctx, ev.AuthorID, reportURL, ev.ID)
	if err != nil {
		c.logBackendErr(log, "update-raid", reportURL, err)
		return
	}

	if res.Success && res.Message != "" {
		// Same report id as stored: nothing to do.
		log.Debug("raid unchanged", slog.String("message", res.Message))
		return
	}
	if !res.Success {
		telemetry.BackendErrors.Inc()
		log.Error("failed to update raid", slog.String("api_error", res.Error))
		if tid := companion(); tid != "" {
			notice := "❌ Failed to update raid: " + res.Error
			if strings.Contains(res.Error, "import") {
				notice = "❌ Failed to import WarcraftLogs data: " + res.Error
			}
			c.send(ctx, tid, notice)
		}
		return
	}

	telemetry.RaidsUpdated.Inc()
	log.Info("raid updated", slog.Int64("raid_id", res.RaidID), slog.String("raid_name", res.RaidName))
	if tid := companion(); tid != "" {
		notice := fmt.Sprintf("✅ Raid updated: **%s** | [View Raid](%s)", res.RaidName, res.RaidURL)
		if res.NameChanged {
			notice += "\n📝 Raid name changed from previous WCL report"
		}
		c.send(ctx, tid, notice)
		if res.NameChanged {
			if err := c.threads.Rename(ctx, tid, threadName(res.RaidName)); err != nil {
				telemetry.NotifyFailures.Inc()
				log.Warn("could not rename thread", slog.Any("err", err))
			}
		}
	}
}

// HandleThreadReply processes a reply inside a companion thread: a bench directive
// updates the raid's roster, correlating back to the raid via the thread's history.
func (c *Correlator) HandleThreadReply(ctx context.Context, ev ThreadReply) {
	if ev.Bot || ev.ParentChannelID != c.cfg.ChannelID {
		return
	}
	if c.seen.Seen(ev.ID) {
		telemetry.EventsDeduplicated.Inc()
		slog.Debug("thread message already processed, skipping", slog.String("message_id", ev.ID))
		return
	}

	if !bench.IsDirective(ev.Content) {
		return // threads are general discussion
	}
	telemetry.EventsReceived.Inc()

	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	log := telemetry.LoggerWithCorr(ctx).With(
		slog.String("message_id", ev.ID),
		slog.String("author", ev.AuthorTag),
		slog.String("thread_id", ev.ThreadID))
	log.Debug("bench directive detected", slog.String("content", ev.Content))

	verdict := c.perms.CheckPermissions(ctx, ev.AuthorID)
	if !verdict.Success {
		telemetry.OracleOutages.Inc()
		log.Error("permission check unavailable, leaving bench update unprocessed", slog.Any("err", verdict.Err))
		return
	}
	if !verdict.HasAccount || !verdict.IsRaidManager {
		telemetry.PermissionDenials.Inc()
		log.Warn("bench author lacks raid-manager authority")
		return
	}

	raidID, ok, err := c.threads.ResolveRaidID(ctx, ev.ThreadID)
	if err != nil {
		log.Error("could not scan thread for raid link", slog.Any("err", err))
		return
	}
	if !ok {
		log.Warn("no raid link found in thread")
		c.reply(ctx, ev.ThreadID, ev.ID, "❌ Could not find raid ID in this thread. Make sure a raid URL was posted.")
		return
	}

	names := bench.ParseNames(ev.Content)
	if len(names) == 0 {
		log.Warn("no character names in bench directive")
		c.reply(ctx, ev.ThreadID, ev.ID, "❌ No character names found in your message.")
		return
	}
	log.Debug("parsed character names", slog.Any("names", names))

	res, err := c.backend.UpdateBench(ctx, ev.AuthorID, raidID, names)
	if err != nil {
		c.logBackendErr(log, "update-bench", "", err)
		return
	}
	if !res.Success {
		telemetry.BackendErrors.Inc()
		log.Error("failed to update bench", slog.Int64("raid_id", raidID), slog.String("api_error", res.Error))
		c.reply(ctx, ev.ThreadID, ev.ID, "❌ Failed to update bench: "+res.Error)
		return
	}

	telemetry.BenchUpdates.Inc()
	log.Info("bench updated", slog.Int64("raid_id", res.RaidID), slog.Int("total_benched", res.TotalBenched))
	c.reply(ctx, ev.ThreadID, ev.ID, benchReply(res))
}

// reply posts a reply and swallows failures: a secondary notification error must
// never propagate past the already-achieved primary outcome.
func (c *Correlator) reply(ctx context.Context, channelID, messageID, content string) {
	if err := c.threads.Reply(ctx, channelID, messageID, content); err != nil {
		telemetry.NotifyFailures.Inc()
		telemetry.LoggerWithCorr(ctx).Warn("could not post reply",
			slog.String("channel_id", channelID), slog.Any("err", err))
	}
}

// send posts into a thread and swallows failures.
func (c *Correlator) send(ctx context.Context, threadID, content string) {
	if err := c.threads.Send(ctx, threadID, content); err != nil {
		telemetry.NotifyFailures.Inc()
		telemetry.LoggerWithCorr(ctx).Warn("could not post to thread",
			slog.String("thread_id", threadID), slog.Any("err", err))
	}
}

func (c *Correlator) logBackendErr(log *slog.Logger, endpoint, url string, err error) {
	if errors.Is(err, templeapi.ErrUnavailable) {
		// Endpoint not deployed on this backend yet; stay silent toward users.
		log.Warn("api endpoint not available yet", slog.String("endpoint", endpoint))
		return
	}
	telemetry.BackendErrors.Inc()
	log.Error("backend call failed", slog.String("endpoint", endpoint), slog.String("wcl_url", url), slog.Any("err", err))
}

func (c *Correlator) loginRequired() string {
	return fmt.Sprintf("🔑 You need an account to create raids. Log in at %s and link your Discord account.", c.cfg.BaseURL)
}

func (c *Correlator) permissionRequired() string {
	return fmt.Sprintf("🚫 You need raid-manager permission to create raids. Check your profile at %s/profile.", c.cfg.BaseURL)
}

func threadName(raidName string) string {
	return "Raid: " + raidName
}

// benchReply composes the roster confirmation: matched names with their class,
// unmatched names verbatim, and the total benched count.
func benchReply(res *templeapi.BenchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ **Bench updated for %s (#%d)**\n\n", res.RaidName, res.RaidID)
	if len(res.Matched) > 0 {
		b.WriteString("**Added to bench:**\n")
		for _, ch := range res.Matched {
			fmt.Fprintf(&b, "• %s (%s)\n", ch.Name, ch.Class)
		}
		b.WriteString("\n")
	}
	if len(res.UnmatchedNames) > 0 {
		b.WriteString("**Could not find:**\n")
		for _, name := range res.UnmatchedNames {
			fmt.Fprintf(&b, "• %s\n", name)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "**Total benched characters:** %d", res.TotalBenched)
	return b.String()
}
