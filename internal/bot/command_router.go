package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Command names.
const (
	CmdStart      = "start"
	CmdHelp       = "help"
	CmdDigest     = "digest"
	CmdSchedule   = "schedule"
	CmdUnschedule = "unschedule"
	CmdSchedules  = "schedules"
	CmdFollow     = "follow"
	CmdUnfollow   = "unfollow"
	CmdChannels   = "channels"
	CmdKeyword    = "keyword"
	CmdHistory    = "history"
)

// commandHandler is a function that handles a specific bot command.
type commandHandler func(ctx context.Context, msg *tgbotapi.Message)

// commandRegistry holds the mapping of command names to their handlers.
type commandRegistry struct {
	handlers map[string]commandHandler
}

// newCommandRegistry creates a new command registry for the bot.
func (b *Bot) newCommandRegistry() *commandRegistry {
	r := &commandRegistry{handlers: make(map[string]commandHandler)}

	r.handlers[CmdStart] = b.handleHelp
	r.handlers[CmdHelp] = b.handleHelp
	r.handlers[CmdDigest] = b.handleDigest
	r.handlers[CmdSchedule] = b.handleSchedule
	r.handlers[CmdUnschedule] = b.handleUnschedule
	r.handlers[CmdSchedules] = b.handleSchedules
	r.handlers[CmdFollow] = b.handleFollow
	r.handlers[CmdUnfollow] = b.handleUnfollow
	r.handlers[CmdChannels] = b.handleChannels
	r.handlers[CmdKeyword] = b.handleKeyword
	r.handlers[CmdHistory] = b.handleHistory

	return r
}

// route handles the command routing for a message.
func (r *commandRegistry) route(ctx context.Context, msg *tgbotapi.Message) bool {
	handler, ok := r.handlers[msg.Command()]
	if !ok {
		return false
	}

	handler(ctx, msg)

	return true
}
