package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/bwmarrin/discordgo"
	"github.com/mattn/go-shellwords"

	"github.com/esotraders/exchange-bot/internal/models"
	"github.com/esotraders/exchange-bot/internal/session"
	"github.com/esotraders/exchange-bot/internal/util"
)

// Reply is one outbound chat message.
type Reply struct {
	Content string
	Embed   *discordgo.MessageEmbed
}

func text(format string, args ...interface{}) Reply {
	return Reply{Content: fmt.Sprintf(format, args...)}
}

// handleMessage routes a chat message: prefixed messages are commands, and
// anything else from a user with an open session is the next field value.
func (b *Bot) handleMessage(ctx context.Context, userID, content string) []Reply {
	content = strings.TrimSpace(content)
	if rest, ok := strings.CutPrefix(content, b.cfg.Prefix); ok {
		if !b.limiter.Allow(userID) {
			return []Reply{text("You're sending commands too quickly. Please wait a moment.")}
		}
		return b.handleCommand(ctx, userID, rest)
	}

	if !b.machine.Active(userID) {
		return nil
	}
	if !b.limiter.Allow(userID) {
		return []Reply{text("You're sending messages too quickly. Please wait a moment.")}
	}
	return b.advanceSession(userID, content)
}

// splitCommand separates the command name from its raw argument text.
func splitCommand(s string) (name, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return strings.ToLower(s), ""
	}
	return strings.ToLower(s[:i]), strings.TrimSpace(s[i:])
}

// parseArgs splits arguments shell-style so quoted values keep their spaces.
func parseArgs(raw string) ([]string, error) {
	p := shellwords.NewParser()
	args, err := p.Parse(raw)
	if err != nil {
		return nil, err
	}
	// Position marks where parsing stopped at an unquoted shell operator such as "|".
	if p.Position >= 0 {
		if r := []rune(raw); p.Position < len(r) {
			return nil, fmt.Errorf("unexpected %q, wrap values containing it in quotes", r[p.Position])
		}
		return nil, errors.New("unexpected special character, wrap values in quotes")
	}
	return args, nil
}

func (b *Bot) handleCommand(ctx context.Context, userID, raw string) []Reply {
	name, rest := splitCommand(raw)

	switch name {
	case "", "help":
		return []Reply{{Embed: helpEmbed(b.cfg.Prefix)}}
	case "usage":
		return []Reply{{Embed: usageEmbed(b.cfg.Prefix)}}
	case "listings":
		return b.listingsReplies()
	case "export":
		return b.exportReplies()
	case "newlisting":
		out := b.machine.Start(userID)
		return []Reply{text("Starting a new listing. Send `%scancel` to stop at any time.\n%s", b.cfg.Prefix, out.Prompt)}
	case "cancel":
		if b.machine.Cancel(userID) {
			return []Reply{text("Listing cancelled.")}
		}
		return []Reply{text("You have no listing in progress.")}
	case "import":
		return []Reply{b.importListing(userID, rest)}
	case "history":
		return []Reply{b.history(ctx)}
	}

	args, err := parseArgs(rest)
	if err != nil {
		return []Reply{text("Could not read that command: %v", err)}
	}

	switch name {
	case "addlisting":
		return []Reply{b.addListing(userID, args)}
	case "removelisting", "removelistings":
		if len(args) == 0 {
			return []Reply{text("**Usage:** `%sremovelisting [trader]`", b.cfg.Prefix)}
		}
		return []Reply{b.removeReply(userID, strings.Join(args, " "))}
	}
	return []Reply{text("Unknown command `%s`. Try `%shelp`.", name, b.cfg.Prefix)}
}

func (b *Bot) advanceSession(userID, content string) []Reply {
	out, err := b.machine.Advance(userID, content)
	if errors.Is(err, session.ErrNoSession) {
		return nil
	}
	if err != nil {
		slog.Warn("Listing session failed", "user", userID, "error", err)
		return []Reply{text("Sorry, that listing could not be created: %v", err)}
	}
	if out.Listing == nil {
		return []Reply{text("%s", out.Prompt)}
	}
	b.publish(userID, *out.Listing)
	return []Reply{text("Added listing: %s", out.Listing.String())}
}

// addListing handles `addlisting trader crowns gold time_info [days_left]`.
// An unquoted time window is accepted: every argument after gold belongs to
// it, except a trailing whole number which is the days left.
func (b *Bot) addListing(userID string, args []string) Reply {
	usage := text("**Usage:** `%saddlisting [trader] [crowns] [gold] [time_info] [days_left]`\n"+
		"**Example:** `%saddlisting Coizado 16000 16800000 \"12PM - 8PM EST\" 0`", b.cfg.Prefix, b.cfg.Prefix)
	if len(args) < 4 {
		return usage
	}

	crowns, err := util.ParsePositive(args[1])
	if err != nil {
		return text("Invalid crowns: %v", err)
	}
	gold, err := util.ParsePositive(args[2])
	if err != nil {
		return text("Invalid gold: %v", err)
	}

	timeParts := args[3:]
	daysLeft := 0
	if len(timeParts) > 1 {
		if n, err := util.ParseNonNegative(timeParts[len(timeParts)-1]); err == nil {
			daysLeft = n
			timeParts = timeParts[:len(timeParts)-1]
		}
	}

	l := models.Listing{
		Trader:   strings.TrimSpace(args[0]),
		Item:     models.DefaultItem,
		Quantity: crowns,
		Gold:     int64(gold),
		TimeInfo: strings.TrimSpace(strings.Join(timeParts, " ")),
		DaysLeft: daysLeft,
	}
	if err := b.validate.ValidateStruct(l); err != nil {
		return text("That listing is not valid: %v", err)
	}
	b.publish(userID, l)
	return text("Added listing: %s", l.String())
}

func (b *Bot) importListing(userID, line string) Reply {
	if line == "" {
		return text("**Usage:** `%simport [trader | item | quantity | rate | gold | days | time | timezone | days_left]`", b.cfg.Prefix)
	}
	l, err := models.ParseLine(stripCodeFence(line))
	if err != nil {
		return text("Could not import listing: %v", err)
	}
	if l.TimeZone != "" {
		if _, ok := models.LookupTimeZone(l.TimeZone); !ok {
			return text("Could not import listing: unknown timezone %q", l.TimeZone)
		}
	}
	if err := b.validate.ValidateStruct(l); err != nil {
		return text("Could not import listing: %v", err)
	}
	b.publish(userID, l)
	return text("Added listing: %s", l.String())
}

// stripCodeFence removes the code block export wraps lines in, or a pair of
// inline backticks. A canonical line ends in a digit, so backticks that are
// not a matched pair belong to a field.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 6 && strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") {
		return strings.TrimSpace(s[3 : len(s)-3])
	}
	if len(s) >= 2 && strings.HasPrefix(s, "`") && strings.HasSuffix(s, "`") {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func (b *Bot) removeReply(userID, trader string) Reply {
	if b.remove(userID, trader) > 0 {
		return text("Removed listing(s) for trader: %s", trader)
	}
	return text("No listings found for trader: %s", trader)
}

func (b *Bot) listingsReplies() []Reply {
	all := b.store.List()
	if len(all) == 0 {
		return []Reply{text("No current listings.")}
	}
	lines := make([]string, len(all))
	for i, l := range all {
		lines[i] = l.String()
	}
	return textReplies(chunkLines("Current Listings:", lines, "", "", maxMessageLength))
}

func (b *Bot) exportReplies() []Reply {
	all := b.store.List()
	if len(all) == 0 {
		return []Reply{text("No current listings.")}
	}
	lines := make([]string, len(all))
	for i, l := range all {
		lines[i] = l.Line()
	}
	return textReplies(chunkLines("", lines, "```\n", "\n```", maxMessageLength))
}

func (b *Bot) history(ctx context.Context) Reply {
	if b.archive == nil {
		return text("Listing history is not enabled.")
	}
	events, err := b.archive.Recent(ctx, historyLimit)
	if err != nil {
		slog.Warn("Failed to read listing history", "error", err)
		return text("Listing history is unavailable right now.")
	}
	if len(events) == 0 {
		return text("No listing history yet.")
	}
	lines := make([]string, len(events))
	for i, ev := range events {
		lines[i] = ev.Describe()
	}
	return text("%s", chunkLines("Recent activity:", lines, "", "", maxMessageLength)[0])
}

func textReplies(chunks []string) []Reply {
	replies := make([]Reply, len(chunks))
	for i, c := range chunks {
		replies[i] = Reply{Content: c}
	}
	return replies
}
