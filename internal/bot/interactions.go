package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/esotraders/exchange-bot/internal/models"
	"github.com/esotraders/exchange-bot/internal/session"
)

// Component and modal custom ids.
const (
	listingFormPrefix = "listing_form:"
	listingTZID       = "listing_tz"
	listingFixID      = "listing_fix"
)

func applicationCommands() []*discordgo.ApplicationCommand {
	zero := 0.0
	return []*discordgo.ApplicationCommand{
		{
			Name:        "listing",
			Description: "Create an exchange listing with a form",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        session.FieldItem,
					Description: "Item being exchanged (default Crowns)",
					MaxLength:   32,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        session.FieldDaysLeft,
					Description: "Days left for a time-sensitive item, 0 for a standard listing",
					MinValue:    &zero,
				},
			},
		},
		{
			Name:        "listings",
			Description: "Show all current exchange listings",
		},
		{
			Name:        "removelisting",
			Description: "Remove every listing for a trader",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "trader",
					Description: "Trader name (case-insensitive)",
					Required:    true,
				},
			},
		},
	}
}

// followupSender posts extra messages after an interaction has been answered.
type followupSender interface {
	FollowupMessageCreate(i *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// interactionResponse answers one interaction. The response is never nil;
// followups are messages to post once it has been sent.
func (b *Bot) interactionResponse(_ context.Context, i *discordgo.Interaction) (resp *discordgo.InteractionResponse, followups []string) {
	switch i.Type {
	case discordgo.InteractionPing:
		return &discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong}, nil
	case discordgo.InteractionApplicationCommand:
		return b.commandResponse(i)
	case discordgo.InteractionModalSubmit:
		return b.modalResponse(i), nil
	case discordgo.InteractionMessageComponent:
		return b.componentResponse(i), nil
	}
	slog.Warn("Unhandled interaction type", "type", int(i.Type))
	return ephemeral("That interaction is not supported."), nil
}

// sendFollowups posts followups in order and stops at the first failure.
func (b *Bot) sendFollowups(i *discordgo.Interaction, followups []string) {
	if len(followups) == 0 {
		return
	}
	if b.followups == nil {
		slog.Warn("Dropping interaction followups, no Discord session", "count", len(followups))
		return
	}
	for n, content := range followups {
		if _, err := b.followups.FollowupMessageCreate(i, true, &discordgo.WebhookParams{Content: content}); err != nil {
			slog.Warn("Failed to send interaction followup", "index", n, "error", err)
			return
		}
	}
}

func (b *Bot) commandResponse(i *discordgo.Interaction) (*discordgo.InteractionResponse, []string) {
	user := userID(i)
	if !b.limiter.Allow(user) {
		return ephemeral("You're sending commands too quickly. Please wait a moment."), nil
	}

	data := i.ApplicationCommandData()
	switch data.Name {
	case "listing":
		item := optionString(data.Options, session.FieldItem)
		if err := b.forms.CheckItem(item); err != nil {
			return ephemeral("Item names can be up to 32 characters without `|`. Run `/listing` again with a different item."), nil
		}
		days := optionInt(data.Options, session.FieldDaysLeft)
		return listingModal(formCustomID(days, item), nil, nil), nil
	case "listings":
		replies := b.listingsReplies()
		rest := make([]string, 0, len(replies)-1)
		for _, r := range replies[1:] {
			rest = append(rest, r.Content)
		}
		return message(replies[0].Content), rest
	case "removelisting":
		trader := strings.TrimSpace(optionString(data.Options, "trader"))
		if trader == "" {
			return ephemeral("Enter the trader whose listings should be removed."), nil
		}
		return message(b.removeReply(user, trader).Content), nil
	}
	return ephemeral(fmt.Sprintf("Unknown command `/%s`.", data.Name)), nil
}

func (b *Bot) modalResponse(i *discordgo.Interaction) *discordgo.InteractionResponse {
	data := i.ModalSubmitData()
	rest, ok := strings.CutPrefix(data.CustomID, listingFormPrefix)
	if !ok {
		return ephemeral("That form is not supported.")
	}
	daysLeft, item, _ := strings.Cut(rest, ":")
	values := modalValues(data.Components)
	sub := session.FormSubmission{
		Buyer:         values[session.FieldBuyer],
		Rate:          values[session.FieldRate],
		Quantity:      values[session.FieldQuantity],
		Item:          item,
		DaysLeft:      daysLeft,
		AvailableDays: values[session.FieldAvailableDays],
		AvailableTime: values[session.FieldAvailableTime],
	}

	user := userID(i)
	err := b.forms.Submit(user, sub)
	var fieldErrs session.FieldErrors
	switch {
	case err == nil:
		return timeZonePrompt()
	case errors.As(err, &fieldErrs):
		return fixPrompt(fieldErrs)
	default:
		slog.Error("Listing form submit failed", "user", user, "error", err)
		return ephemeral("Something went wrong, please try again.")
	}
}

func (b *Bot) componentResponse(i *discordgo.Interaction) *discordgo.InteractionResponse {
	data := i.MessageComponentData()
	user := userID(i)

	switch data.CustomID {
	case listingTZID:
		if len(data.Values) == 0 {
			return ephemeral("Pick a timezone to finish your listing.")
		}
		l, err := b.forms.Choose(user, data.Values[0])
		switch {
		case errors.Is(err, session.ErrNoPendingForm):
			return update("This listing form has expired. Run `/listing` again.")
		case errors.Is(err, session.ErrUnknownTimeZone):
			return ephemeral("Pick one of the listed timezones.")
		case err != nil:
			slog.Error("Listing form completion failed", "user", user, "error", err)
			return update("Sorry, that listing could not be created.")
		}
		b.publish(user, l)
		return update(fmt.Sprintf("Added listing: %s\n```\n%s\n```", l.String(), l.Line()))

	case listingFixID:
		sub, errs, ok := b.forms.Rejected(user)
		if !ok {
			return ephemeral("There is nothing to fix. Run `/listing` to start a new listing.")
		}
		days, _ := strconv.Atoi(strings.TrimSpace(sub.DaysLeft))
		return listingModal(formCustomID(int64(days), sub.Item), map[string]string{
			session.FieldBuyer:         sub.Buyer,
			session.FieldQuantity:      sub.Quantity,
			session.FieldRate:          sub.Rate,
			session.FieldAvailableDays: sub.AvailableDays,
			session.FieldAvailableTime: sub.AvailableTime,
		}, errs)
	}
	return ephemeral("That button is no longer supported.")
}

// formCustomID carries the slash options the modal has no room for.
func formCustomID(daysLeft int64, item string) string {
	return fmt.Sprintf("%s%d:%s", listingFormPrefix, daysLeft, item)
}

func listingModal(customID string, prefill map[string]string, errs session.FieldErrors) *discordgo.InteractionResponse {
	title := "New exchange listing"
	if len(errs) > 0 {
		title = "Fix exchange listing"
	}
	input := func(id, label, placeholder string, required bool, maxLen int) discordgo.MessageComponent {
		return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    id,
				Label:       label,
				Style:       discordgo.TextInputShort,
				Placeholder: placeholder,
				Value:       prefill[id],
				Required:    required,
				MaxLength:   maxLen,
			},
		}}
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: customID,
			Title:    title,
			Components: []discordgo.MessageComponent{
				input(session.FieldBuyer, "Buyer", "Your in-game name", true, 64),
				input(session.FieldQuantity, "Quantity", "16000", true, 12),
				input(session.FieldRate, "Gold per unit", "1050", true, 16),
				input(session.FieldAvailableDays, "Available days", "Mon-Fri", false, 64),
				input(session.FieldAvailableTime, "Available time", "12PM - 8PM", true, 100),
			},
		},
	}
}

func timeZonePrompt() *discordgo.InteractionResponse {
	options := make([]discordgo.SelectMenuOption, len(models.TimeZones))
	for i, tz := range models.TimeZones {
		options[i] = discordgo.SelectMenuOption{Label: tz.Label, Value: tz.Code}
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Almost done. Pick the timezone for your availability:",
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.SelectMenu{
						MenuType:    discordgo.StringSelectMenu,
						CustomID:    listingTZID,
						Placeholder: "Timezone",
						Options:     options,
					},
				}},
			},
		},
	}
}

func fixPrompt(errs session.FieldErrors) *discordgo.InteractionResponse {
	var sb strings.Builder
	sb.WriteString("Some fields need another look:")
	for _, line := range strings.Split(strings.TrimPrefix(errs.Error(), "invalid form fields: "), "; ") {
		sb.WriteString("\n- ")
		sb.WriteString(line)
	}
	// The item comes from the slash command, so reopening the form cannot fix it.
	if _, badItem := errs[session.FieldItem]; badItem {
		sb.WriteString("\nRun `/listing` again with a different item.")
		return ephemeral(sb.String())
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: sb.String(),
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{Label: "Fix listing", Style: discordgo.PrimaryButton, CustomID: listingFixID},
				}},
			},
		},
	}
}

func message(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	}
}

func ephemeral(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral},
	}
}

// update replaces the message the component is attached to and clears its components.
func update(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{Content: content, Components: []discordgo.MessageComponent{}},
	}
}

func userID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func optionString(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, o := range opts {
		if o.Name == name {
			if s, ok := o.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

// optionInt reads an integer option; decoded JSON numbers arrive as float64.
func optionInt(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) int64 {
	for _, o := range opts {
		if o.Name != name {
			continue
		}
		switch v := o.Value.(type) {
		case float64:
			return int64(v)
		case int:
			return int64(v)
		case int64:
			return v
		}
	}
	return 0
}

// modalValues collects text input values by custom id. Decoded submissions
// hold pointers; locally built ones hold values.
func modalValues(components []discordgo.MessageComponent) map[string]string {
	values := make(map[string]string)
	var walk func([]discordgo.MessageComponent)
	walk = func(cs []discordgo.MessageComponent) {
		for _, c := range cs {
			switch v := c.(type) {
			case *discordgo.ActionsRow:
				walk(v.Components)
			case discordgo.ActionsRow:
				walk(v.Components)
			case *discordgo.TextInput:
				values[v.CustomID] = v.Value
			case discordgo.TextInput:
				values[v.CustomID] = v.Value
			}
		}
	}
	walk(components)
	return values
}
