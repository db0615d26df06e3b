package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	colorBlue   = 3447003 // #3498DB
	footerText  = "ESO Exchange Bot - Helping traders connect!"
	helpTitle   = "ESO Exchange Bot Commands"
	usageTitle  = "ESO Exchange Bot Usage"
	helpSummary = "Manage ESO Crown and Gold Exchange Listings"
)

func helpEmbed(prefix string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       helpTitle,
		Description: helpSummary,
		Color:       colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: prefix + "addlisting",
				Value: "Add a new exchange listing\n" +
					fmt.Sprintf("**Usage:** `%saddlisting [trader] [crowns] [gold] [time_info] [days_left]`\n", prefix) +
					fmt.Sprintf("**Example:** `%saddlisting Coizado 16000 16800000 \"12PM - 8PM EST\" 0`", prefix),
			},
			{
				Name: prefix + "newlisting",
				Value: "Create a listing step by step; the bot asks for each field in turn\n" +
					fmt.Sprintf("**Usage:** `%snewlisting`, then `%scancel` to stop", prefix, prefix),
			},
			{
				Name:  prefix + "listings",
				Value: "Show all current exchange listings\n" + fmt.Sprintf("**Usage:** `%slistings`", prefix),
			},
			{
				Name: prefix + "removelisting",
				Value: "Remove every listing for a trader (case-insensitive)\n" +
					fmt.Sprintf("**Usage:** `%sremovelisting [trader]`\n", prefix) +
					fmt.Sprintf("**Example:** `%sremovelisting Coizado`", prefix),
			},
			{
				Name: prefix + "export / " + prefix + "import",
				Value: "Copy listings as lines and paste one back in\n" +
					fmt.Sprintf("**Usage:** `%simport Coizado | Crowns | 16000 | 1050 | 16800000 | Mon-Fri | 12PM - 8PM | EST | 0`", prefix),
			},
			{
				Name:  "/listing",
				Value: "Fill in a form, then pick your timezone",
			},
			{
				Name:  "Days Left Explanation",
				Value: "0: Normal store item\nNumber > 0: Time-sensitive item with priority",
			},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: footerText},
	}
}

func usageEmbed(prefix string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       usageTitle,
		Description: "How to use the ESO Exchange Bot",
		Color:       colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Getting Started",
				Value: "1. Invite the bot to your server\n" +
					fmt.Sprintf("2. Use `%saddlisting`, `%snewlisting` or `/listing` to add a new exchange listing\n", prefix, prefix) +
					fmt.Sprintf("3. Use `%slistings` to view all current exchange listings\n", prefix) +
					fmt.Sprintf("4. Use `%sremovelisting` to remove a listing by trader name", prefix),
			},
			{
				Name: "Tips and Tricks",
				Value: "Wrap values with spaces in quotes, like `\"12PM - 8PM EST\"`\n" +
					fmt.Sprintf("Use `%sexport` to copy listings and `%simport` to post one again\n", prefix, prefix) +
					fmt.Sprintf("`%sremovelisting` removes every listing for that trader at once", prefix),
			},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: footerText},
	}
}
