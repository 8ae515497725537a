package tgbot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/bigredeye/notmanyjudges/internal/config"
	"github.com/bigredeye/notmanyjudges/internal/leaderboard"
	"github.com/bigredeye/notmanyjudges/internal/live"
	lf "github.com/bigredeye/notmanyjudges/internal/logfield"
	"github.com/bigredeye/notmanyjudges/internal/models"
)

const (
	notificationQueue = 64
	standingsTop      = 10
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TeamFinder interface {
	FindTeam(ctx context.Context, teamID uint) (*models.Team, error)
}

type StandingsProvider interface {
	Standings(ctx context.Context, eventID uint) (*leaderboard.Standings, error)
}

type Bot struct {
	api    *tgbotapi.BotAPI
	send   sender
	chatID int64
	log    *zap.Logger

	teams     TeamFinder
	standings StandingsProvider

	notifications chan live.Event
}

func NewBot(conf *config.Config, log *zap.Logger, teams TeamFinder, standings StandingsProvider) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(conf.Telegram.BotToken)
	if err != nil {
		return nil, err
	}
	bot := newBot(api, conf.Telegram.ChatID, log, teams, standings)
	bot.api = api
	return bot, nil
}

func newBot(send sender, chatID int64, log *zap.Logger, teams TeamFinder, standings StandingsProvider) *Bot {
	return &Bot{
		send:          send,
		chatID:        chatID,
		log:           log.Named("tgbot"),
		teams:         teams,
		standings:     standings,
		notifications: make(chan live.Event, notificationQueue),
	}
}

// Attach forwards panel submissions to the organizers' chat. The hub callback
// never blocks: events are dropped when the queue is full.
func (b *Bot) Attach(hub *live.Hub) (detach func()) {
	return hub.Subscribe(func(e *live.Event) bool { return e.Kind == live.KindPanelSubmitted }, func(e live.Event) {
		select {
		case b.notifications <- e:
		default:
			b.log.Warn("Notification queue is full, dropping event", lf.TeamID(e.TeamID))
		}
	})
}

func (b *Bot) Run(ctx context.Context) {
	var updates tgbotapi.UpdatesChannel
	if b.api != nil {
		b.log.Info("Authorized on account", zap.String("username", b.api.Self.UserName))
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates = b.api.GetUpdatesChan(u)
		defer b.api.StopReceivingUpdates()
	}

	for {
		select {
		case update := <-updates:
			if err := b.handleUpdate(ctx, update); err != nil {
				b.log.Error("Failed to handle update", zap.Error(err), zap.Int("update_id", update.UpdateID))
			}
		case event := <-b.notifications:
			if err := b.notify(ctx, event); err != nil {
				b.log.Error("Failed to send notification", zap.Error(err), lf.TeamID(event.TeamID))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bot) notify(ctx context.Context, event live.Event) error {
	if b.chatID == 0 {
		return nil
	}
	team, err := b.teams.FindTeam(ctx, event.TeamID)
	if err != nil {
		return err
	}
	_, err = b.send.Send(tgbotapi.NewMessage(b.chatID, formatSubmission(team, event)))
	return err
}

func formatSubmission(team *models.Team, event live.Event) string {
	text := fmt.Sprintf("Team %s: panel %d scored", team.Name, event.Panel)
	if panel := event.Aggregate.Slot(event.Panel); panel != nil {
		text += fmt.Sprintf(" %d", panel.Total)
	}
	if event.Aggregate != nil && event.Aggregate.AvgScore != nil {
		text += fmt.Sprintf(", avg %.2f", *event.Aggregate.AvgScore)
	} else {
		text += ", avg pending"
	}
	return text
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.Message == nil || !update.Message.IsCommand() {
		return nil
	}
	b.log.Info("Got command",
		zap.String("user", update.Message.From.UserName),
		zap.String("command", update.Message.Command()),
	)

	var text string
	switch update.Message.Command() {
	case "standings":
		text = b.standingsReply(ctx, update.Message.CommandArguments())
	default:
		text = "Unknown command. Try /standings <event id>"
	}

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, text)
	msg.ReplyToMessageID = update.Message.MessageID
	_, err := b.send.Send(msg)
	return err
}

func (b *Bot) standingsReply(ctx context.Context, args string) string {
	eventID, err := strconv.ParseUint(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return "Usage: /standings <event id>"
	}
	standings, err := b.standings.Standings(ctx, uint(eventID))
	if err != nil {
		b.log.Warn("Failed to build standings", lf.EventID(uint(eventID)), zap.Error(err))
		return "Failed to load standings, check the event id"
	}
	return formatStandings(standings, standingsTop)
}

func formatStandings(standings *leaderboard.Standings, top int) string {
	var sb strings.Builder
	sb.WriteString(standings.Event.Name)
	sb.WriteString("\n")
	if len(standings.Entries) == 0 {
		sb.WriteString("No teams yet")
		return sb.String()
	}
	for i, entry := range standings.Entries {
		if i == top {
			fmt.Fprintf(&sb, "... and %d more", len(standings.Entries)-top)
			break
		}
		if entry.Ranked() {
			fmt.Fprintf(&sb, "%d. %s %.2f (%d/%d panels)\n", entry.Rank, entry.TeamName, *entry.AvgScore, entry.Scored, models.PanelCount)
		} else {
			fmt.Fprintf(&sb, "-. %s not scored yet\n", entry.TeamName)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
