package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dkotenko/channel-digest/internal/core/domain"
	"github.com/dkotenko/channel-digest/internal/platform/schedule"
	db "github.com/dkotenko/channel-digest/internal/storage"
)

// Subcommand names.
const (
	SubCmdAdd   = "add"
	SubCmdDel   = "del"
	SubCmdList  = "list"
	SubCmdSince = "since"
	SubCmdRegex = "regex"
)

// Schedule defaults.
const (
	defaultDailyHour  = 8
	defaultMonthlyDay = 1
)

const helpText = `<b>Channel digest bot</b>

/follow @channel - subscribe to a channel
/unfollow @channel - unsubscribe
/channels - list subscriptions

/digest &lt;period&gt; - build a digest now (hourly, daily, weekly, monthly)
/digest &lt;period&gt; since &lt;date&gt; - digest from a date until now

/schedule hourly [minute]
/schedule daily [HH:MM]
/schedule weekly [weekday] [HH:MM]
/schedule monthly [day] [HH:MM]
/unschedule [period] - remove one or all schedules
/schedules - list your schedules

/keyword add [regex] &lt;pattern&gt; - alert on matching messages
/keyword del &lt;id&gt;
/keyword list

/history - your recent digests`

func (b *Bot) handleHelp(_ context.Context, msg *tgbotapi.Message) {
	b.reply(msg, helpText)
}

func (b *Bot) handleDigest(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg, "Usage: <code>/digest &lt;hourly|daily|weekly|monthly&gt; [since &lt;date&gt;]</code>")

		return
	}

	period, err := domain.ParsePeriod(args[0])
	if err != nil {
		b.replyErr(msg, "parse period", err)

		return
	}

	if len(args) > 1 && args[1] == SubCmdSince {
		b.handleDigestSince(ctx, msg, period, strings.Join(args[2:], " "))

		return
	}

	b.reply(msg, "⏳ Building digest…")

	if err := b.scheduler.RunNow(ctx, msg.From.ID, period); err != nil {
		b.replyErr(msg, "build digest", err)
	}
}

func (b *Bot) handleDigestSince(ctx context.Context, msg *tgbotapi.Message, period domain.Period, when string) {
	if when == "" {
		b.reply(msg, "Usage: <code>/digest &lt;period&gt; since &lt;date&gt;</code>")

		return
	}

	from, err := dateparse.ParseAny(when)
	if err != nil {
		b.replyErr(msg, "parse date", err)

		return
	}

	b.reply(msg, "⏳ Building digest…")

	if err := b.scheduler.RunRange(ctx, msg.From.ID, period, from, time.Now()); err != nil {
		b.replyErr(msg, "build digest", err)
	}
}

func (b *Bot) handleSchedule(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg, "Usage: <code>/schedule &lt;hourly|daily|weekly|monthly&gt; [time]</code>")

		return
	}

	period, err := domain.ParsePeriod(args[0])
	if err != nil {
		b.replyErr(msg, "parse period", err)

		return
	}

	cronExpr, err := buildCronFromArgs(period, args[1:])
	if err != nil {
		b.replyErr(msg, "parse schedule", err)

		return
	}

	if err := b.scheduler.Register(ctx, msg.From.ID, period, cronExpr); err != nil {
		b.replyErr(msg, "register schedule", err)

		return
	}

	b.reply(msg, fmt.Sprintf("✅ %s digest scheduled (<code>%s</code>)", period, cronExpr))
}

// buildCronFromArgs converts user time arguments into a cron expression:
// a minute for hourly, HH:MM for daily, weekday and day-of-month prefixes
// for weekly and monthly.
func buildCronFromArgs(period domain.Period, args []string) (string, error) {
	minute := 0
	hour := defaultDailyHour
	weekday := time.Monday
	day := defaultMonthlyDay

	switch period {
	case domain.PeriodHourly:
		if len(args) > 0 {
			m, err := strconv.Atoi(args[0])
			if err != nil || m < 0 || m > 59 {
				return "", fmt.Errorf("invalid minute %q", args[0])
			}

			minute = m
		}
	case domain.PeriodDaily:
		if len(args) > 0 {
			h, m, err := parseTimeOfDay(args[0])
			if err != nil {
				return "", err
			}

			hour, minute = h, m
		}
	case domain.PeriodWeekly:
		if len(args) > 0 {
			wd, err := parseWeekday(args[0])
			if err != nil {
				return "", err
			}

			weekday = wd
		}

		if len(args) > 1 {
			h, m, err := parseTimeOfDay(args[1])
			if err != nil {
				return "", err
			}

			hour, minute = h, m
		}
	case domain.PeriodMonthly:
		if len(args) > 0 {
			d, err := strconv.Atoi(args[0])
			if err != nil || d < 1 || d > 28 {
				return "", fmt.Errorf("invalid day of month %q (use 1-28)", args[0])
			}

			day = d
		}

		if len(args) > 1 {
			h, m, err := parseTimeOfDay(args[1])
			if err != nil {
				return "", err
			}

			hour, minute = h, m
		}
	}

	return schedule.BuildCron(period, minute, hour, weekday, day), nil
}

func parseTimeOfDay(s string) (hour, minute int, err error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q (use HH:MM)", s)
	}

	return parsed.Hour(), parsed.Minute(), nil
}

func parseWeekday(s string) (time.Weekday, error) {
	names := map[string]time.Weekday{
		"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
		"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
		"sat": time.Saturday,
	}

	if len(s) >= 3 {
		if wd, ok := names[strings.ToLower(s)[:3]]; ok {
			return wd, nil
		}
	}

	return 0, fmt.Errorf("invalid weekday %q", s)
}

func (b *Bot) handleUnschedule(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())

	if len(args) == 0 {
		if err := b.scheduler.RemoveAll(ctx, msg.From.ID); err != nil {
			b.replyErr(msg, "remove schedules", err)

			return
		}

		b.reply(msg, "✅ All schedules removed")

		return
	}

	period, err := domain.ParsePeriod(args[0])
	if err != nil {
		b.replyErr(msg, "parse period", err)

		return
	}

	if err := b.scheduler.Remove(ctx, msg.From.ID, period); err != nil {
		b.replyErr(msg, "remove schedule", err)

		return
	}

	b.reply(msg, fmt.Sprintf("✅ %s schedule removed", period))
}

func (b *Bot) handleSchedules(ctx context.Context, msg *tgbotapi.Message) {
	schedules, err := b.database.GetUserSchedules(ctx, msg.From.ID)
	if err != nil {
		b.replyErr(msg, "fetch schedules", err)

		return
	}

	var sb strings.Builder

	sb.WriteString("<b>Your schedules</b>\n")

	active := 0

	for _, s := range schedules {
		if !s.Active {
			continue
		}

		active++

		fmt.Fprintf(&sb, " • %s: <code>%s</code>\n", s.Period, s.CronExpr)
	}

	if active == 0 {
		b.reply(msg, "No active schedules. Use /schedule to add one.")

		return
	}

	b.reply(msg, sb.String())
}

func (b *Bot) handleFollow(ctx context.Context, msg *tgbotapi.Message) {
	username := strings.TrimPrefix(strings.TrimSpace(msg.CommandArguments()), "@")
	if username == "" {
		b.reply(msg, "Usage: <code>/follow @channel</code>")

		return
	}

	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: "@" + username},
	})
	if err != nil {
		b.replyErr(msg, "resolve channel", err)

		return
	}

	ch := db.Channel{ID: chat.ID, Username: chat.UserName, Title: chat.Title}
	if err := b.database.UpsertChannel(ctx, ch); err != nil {
		b.replyErr(msg, "save channel", err)

		return
	}

	if err := b.database.Subscribe(ctx, msg.From.ID, ch.ID); err != nil {
		b.replyErr(msg, "subscribe", err)

		return
	}

	b.reply(msg, fmt.Sprintf("✅ Following <b>%s</b>", html.EscapeString(channelLabel(ch))))
}

func (b *Bot) handleUnfollow(ctx context.Context, msg *tgbotapi.Message) {
	username := strings.TrimPrefix(strings.TrimSpace(msg.CommandArguments()), "@")
	if username == "" {
		b.reply(msg, "Usage: <code>/unfollow @channel</code>")

		return
	}

	ch, err := b.database.GetChannelByUsername(ctx, username)
	if errors.Is(err, domain.ErrChannelNotFound) {
		b.reply(msg, fmt.Sprintf("Channel <code>%s</code> not found.", html.EscapeString(username)))

		return
	}

	if err != nil {
		b.replyErr(msg, "resolve channel", err)

		return
	}

	if err := b.database.Unsubscribe(ctx, msg.From.ID, ch.ID); err != nil {
		b.replyErr(msg, "unsubscribe", err)

		return
	}

	b.reply(msg, fmt.Sprintf("✅ Unfollowed <b>%s</b>", html.EscapeString(channelLabel(ch))))
}

func (b *Bot) handleChannels(ctx context.Context, msg *tgbotapi.Message) {
	channels, err := b.database.GetSubscriptions(ctx, msg.From.ID)
	if err != nil {
		b.replyErr(msg, "fetch subscriptions", err)

		return
	}

	if len(channels) == 0 {
		b.reply(msg, "No subscriptions. Use /follow to add a channel.")

		return
	}

	var sb strings.Builder

	sb.WriteString("<b>Your channels</b>\n")

	for _, ch := range channels {
		fmt.Fprintf(&sb, " • %s\n", html.EscapeString(channelLabel(ch)))
	}

	b.reply(msg, sb.String())
}

func channelLabel(ch db.Channel) string {
	if ch.Username != "" {
		return "@" + ch.Username
	}

	return ch.Title
}

func (b *Bot) handleKeyword(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg, "Usage: <code>/keyword add [regex] &lt;pattern&gt;</code> | <code>/keyword del &lt;id&gt;</code> | <code>/keyword list</code>")

		return
	}

	switch args[0] {
	case SubCmdAdd:
		b.handleKeywordAdd(ctx, msg, args[1:])
	case SubCmdDel:
		b.handleKeywordDel(ctx, msg, args[1:])
	case SubCmdList:
		b.handleKeywordList(ctx, msg)
	default:
		b.reply(msg, "Unknown subcommand. Use add, del, or list.")
	}
}

func (b *Bot) handleKeywordAdd(ctx context.Context, msg *tgbotapi.Message, args []string) {
	isRegex := false

	if len(args) > 0 && args[0] == SubCmdRegex {
		isRegex = true
		args = args[1:]
	}

	pattern := strings.Join(args, " ")
	if pattern == "" {
		b.reply(msg, "Usage: <code>/keyword add [regex] &lt;pattern&gt;</code>")

		return
	}

	rule := domain.KeywordRule{
		UserID:  msg.From.ID,
		Pattern: pattern,
		IsRegex: isRegex,
		Active:  true,
	}

	id, err := b.database.SaveKeywordRule(ctx, rule)
	if err != nil {
		b.replyErr(msg, "save keyword rule", err)

		return
	}

	b.reply(msg, fmt.Sprintf("✅ Keyword rule added (<code>%s</code>)", id))
}

func (b *Bot) handleKeywordDel(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if len(args) == 0 {
		b.reply(msg, "Usage: <code>/keyword del &lt;id&gt;</code>")

		return
	}

	if err := b.database.DeactivateKeywordRule(ctx, msg.From.ID, args[0]); err != nil {
		b.replyErr(msg, "deactivate keyword rule", err)

		return
	}

	b.reply(msg, "✅ Keyword rule removed")
}

func (b *Bot) handleKeywordList(ctx context.Context, msg *tgbotapi.Message) {
	rules, err := b.database.GetKeywordRules(ctx, msg.From.ID)
	if err != nil {
		b.replyErr(msg, "fetch keyword rules", err)

		return
	}

	if len(rules) == 0 {
		b.reply(msg, "No keyword rules. Use <code>/keyword add</code> to create one.")

		return
	}

	var sb strings.Builder

	sb.WriteString("<b>Your keyword rules</b>\n")

	for _, rule := range rules {
		kind := "text"
		if rule.IsRegex {
			kind = "regex"
		}

		fmt.Fprintf(&sb, " • <code>%s</code> (%s) id=<code>%s</code>\n",
			html.EscapeString(rule.Pattern), kind, rule.ID)
	}

	b.reply(msg, sb.String())
}

const historyLimit = 5

func (b *Bot) handleHistory(ctx context.Context, msg *tgbotapi.Message) {
	records, err := b.database.GetRecentDigests(ctx, msg.From.ID, historyLimit)
	if err != nil {
		b.replyErr(msg, "fetch digest history", err)

		return
	}

	if len(records) == 0 {
		b.reply(msg, "No digests yet. Use <code>/digest</code> or <code>/schedule</code> to get started.")

		return
	}

	var sb strings.Builder

	sb.WriteString("<b>Recent digests</b>\n")

	for _, rec := range records {
		fmt.Fprintf(&sb, " • %s at %s UTC\n", rec.Period, rec.CreatedAt.UTC().Format("02 Jan 15:04"))
	}

	b.reply(msg, sb.String())
}
