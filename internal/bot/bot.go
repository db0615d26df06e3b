// Package bot connects the listing store and the creation drivers to Discord:
// prefix text commands and session replies over the gateway, and slash
// commands, modals and select menus over either the gateway or the signed
// HTTP interactions endpoint.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/esotraders/exchange-bot/internal/models"
	"github.com/esotraders/exchange-bot/internal/session"
	"github.com/esotraders/exchange-bot/internal/storage"
)

const (
	handlerTimeout    = 10 * time.Second
	backgroundTimeout = 30 * time.Second
	historyLimit      = 10
)

// ListingStore holds the active listings.
type ListingStore interface {
	Add(l models.Listing)
	RemoveByTrader(name string) int
	List() []models.Listing
}

// Announcer posts trade-board announcements.
type Announcer interface {
	Send(ctx context.Context, l models.Listing) (string, error)
	Removed(ctx context.Context, trader string, count int) error
}

// Archive keeps the history of listing changes.
type Archive interface {
	RecordAdded(ctx context.Context, userID string, l models.Listing) error
	RecordRemoved(ctx context.Context, userID, trader string, count int) error
	Recent(ctx context.Context, limit int) ([]storage.Event, error)
}

type Config struct {
	Token             string
	ApplicationID     string
	GuildID           string
	Prefix            string
	CommandsPerMinute int
}

// Deps are the collaborators a Bot drives. Notifier and Archive are optional.
type Deps struct {
	Store     ListingStore
	Machine   *session.Machine
	Forms     *session.FormDriver
	Validator session.Validator
	Notifier  Announcer
	Archive   Archive
}

type Bot struct {
	session  *discordgo.Session
	cfg      Config
	store    ListingStore
	machine  *session.Machine
	forms    *session.FormDriver
	validate session.Validator
	notifier Announcer
	archive  Archive
	limiter  *userLimiter
	// followups is the gateway session when one exists.
	followups followupSender

	background sync.WaitGroup
}

// New builds a Bot. The gateway session is only created when a token is set,
// so an HTTP-only deployment or a test can run without one.
func New(cfg Config, deps Deps) (*Bot, error) {
	if cfg.Prefix == "" {
		return nil, fmt.Errorf("command prefix must not be empty")
	}
	b := &Bot{
		cfg:      cfg,
		store:    deps.Store,
		machine:  deps.Machine,
		forms:    deps.Forms,
		validate: deps.Validator,
		notifier: deps.Notifier,
		archive:  deps.Archive,
		limiter:  newUserLimiter(cfg.CommandsPerMinute),
	}

	if cfg.Token == "" {
		return b, nil
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discordgo.New: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	s.AddHandler(b.onReady)
	s.AddHandler(b.onMessageCreate)
	s.AddHandler(b.onInteractionCreate)
	b.session = s
	b.followups = s
	return b, nil
}

// Run opens the gateway, registers slash commands and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if b.session == nil {
		return fmt.Errorf("bot has no gateway session")
	}
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	defer func() {
		if err := b.session.Close(); err != nil {
			slog.Warn("Error closing gateway session", "error", err)
		}
	}()

	if b.cfg.ApplicationID != "" {
		cmds, err := b.session.ApplicationCommandBulkOverwrite(b.cfg.ApplicationID, b.cfg.GuildID, applicationCommands())
		if err != nil {
			return fmt.Errorf("register slash commands: %w", err)
		}
		slog.Info("Registered slash commands", "count", len(cmds), "guild", b.cfg.GuildID)
	}

	<-ctx.Done()
	return nil
}

// Sweep drops abandoned sessions, parked forms and idle rate limiters.
func (b *Bot) Sweep() {
	sessions := b.machine.Sweep()
	forms := b.forms.Sweep()
	limiters := b.limiter.Prune()
	if sessions+forms > 0 {
		slog.Info("Expired abandoned listing flows", "sessions", sessions, "forms", forms, "limiters", limiters)
	}
}

// Wait blocks until background announcements and archive writes finish.
func (b *Bot) Wait() {
	b.background.Wait()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("Connected to Discord", "user", r.User.String(), "application", b.cfg.ApplicationID, "guilds", len(r.Guilds))
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	defer recoverHandler("message")

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	for _, r := range b.handleMessage(ctx, m.Author.ID, m.Content) {
		msg := &discordgo.MessageSend{Content: r.Content}
		if r.Embed != nil {
			msg.Embeds = []*discordgo.MessageEmbed{r.Embed}
		}
		if _, err := s.ChannelMessageSendComplex(m.ChannelID, msg); err != nil {
			slog.Warn("Failed to send reply", "channel", m.ChannelID, "error", err)
			return
		}
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer recoverHandler("interaction")

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	resp, followups := b.interactionResponse(ctx, i.Interaction)
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		slog.Warn("Failed to respond to interaction", "type", int(i.Type), "error", err)
		return
	}
	b.sendFollowups(i.Interaction, followups)
}

// publish stores l and hands the announcement and archive write to the background.
func (b *Bot) publish(userID string, l models.Listing) {
	b.store.Add(l)
	slog.Info("Listing added", "trader", l.Trader, "user", userID, "priority", l.Priority())

	b.inBackground(func(ctx context.Context) {
		if b.notifier != nil {
			if _, err := b.notifier.Send(ctx, l); err != nil {
				slog.Warn("Failed to announce listing", "trader", l.Trader, "error", err)
			}
		}
		if b.archive != nil {
			if err := b.archive.RecordAdded(ctx, userID, l); err != nil {
				slog.Warn("Failed to archive listing", "trader", l.Trader, "error", err)
			}
		}
	})
}

// remove drops the listings of trader and reports how many went.
func (b *Bot) remove(userID, trader string) int {
	removed := b.store.RemoveByTrader(trader)
	if removed == 0 {
		return 0
	}
	slog.Info("Listings removed", "trader", trader, "user", userID, "count", removed)

	b.inBackground(func(ctx context.Context) {
		if b.notifier != nil {
			if err := b.notifier.Removed(ctx, trader, removed); err != nil {
				slog.Warn("Failed to announce removal", "trader", trader, "error", err)
			}
		}
		if b.archive != nil {
			if err := b.archive.RecordRemoved(ctx, userID, trader, removed); err != nil {
				slog.Warn("Failed to archive removal", "trader", trader, "error", err)
			}
		}
	})
	return removed
}

// inBackground runs fn off the handler path; Discord expects an interaction
// answer within three seconds and webhook retries can take longer.
func (b *Bot) inBackground(fn func(ctx context.Context)) {
	b.background.Add(1)
	go func() {
		defer b.background.Done()
		defer recoverHandler("background")
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func recoverHandler(kind string) {
	if r := recover(); r != nil {
		slog.Error("Panic in handler", "kind", kind, "panic", r)
	}
}
