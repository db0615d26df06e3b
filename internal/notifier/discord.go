package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/esotraders/exchange-bot/internal/models"
	"github.com/esotraders/exchange-bot/internal/util"
)

const (
	colorStandardListing = 3447003  // #3498DB
	colorPriorityListing = 16753920 // #FFA500
	colorRemoval         = 9807270  // #95A5A6

	maxSendRetries = 3
)

// Client posts trade-board announcements to a Discord webhook.
type Client struct {
	webhookURL  string
	client      *http.Client
	rateLimiter *rate.Limiter
	retryBase   time.Duration
}

func New(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		// Discord allows roughly 30 webhook messages a minute per channel.
		rateLimiter: rate.NewLimiter(rate.Every(2*time.Second), 5),
		retryBase:   time.Second,
	}
}

// Send announces a new listing and returns the webhook message ID.
func (c *Client) Send(ctx context.Context, l models.Listing) (string, error) {
	if c.webhookURL == "" {
		return "", nil
	}
	return c.sendAndGetMessageID(ctx, formatListingToEmbed(l))
}

// Removed announces that the listings of trader were taken down.
func (c *Client) Removed(ctx context.Context, trader string, count int) error {
	if c.webhookURL == "" || count == 0 {
		return nil
	}
	embed := discordEmbed{
		Title:       "Listings removed",
		Description: fmt.Sprintf("%d listing(s) for **%s** are no longer available.", count, trader),
		Color:       colorRemoval,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	_, err := c.sendAndGetMessageID(ctx, embed)
	return err
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
}

type discordMessageResponse struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

// statusError is a non-2xx webhook response.
type statusError struct {
	status     string
	body       string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("discord status: %s, body: %s", e.status, e.body)
}

func (e *statusError) RetryAfter() time.Duration { return e.retryAfter }

func formatListingToEmbed(l models.Listing) discordEmbed {
	color := colorStandardListing
	title := fmt.Sprintf("%s is trading %d %s", l.Trader, l.Quantity, l.Item)
	if l.Priority() {
		color = colorPriorityListing
		title += fmt.Sprintf(" (%d days left)", l.DaysLeft)
	}

	gold := strconv.FormatInt(l.Gold, 10)
	if l.Rate > 0 {
		gold += fmt.Sprintf(" (%s per %s)", strconv.FormatFloat(l.Rate, 'f', -1, 64), l.Item)
	}

	return discordEmbed{
		Title:       title,
		Description: l.String(),
		Color:       color,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Fields: []discordEmbedField{
			{Name: "Gold", Value: gold, Inline: true},
			{Name: "Available", Value: l.Availability(), Inline: true},
			{Name: "Copy", Value: "`" + l.Line() + "`"},
		},
		Footer: &discordEmbedFooter{Text: "ESO Exchange Bot - Helping traders connect!"},
	}
}

func (c *Client) sendAndGetMessageID(ctx context.Context, embed discordEmbed) (string, error) {
	payloadBytes, err := json.Marshal(discordWebhookPayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		return "", err
	}

	parsedURL, err := url.Parse(c.webhookURL)
	if err != nil {
		return "", err
	}
	q := parsedURL.Query()
	q.Set("wait", "true")
	parsedURL.RawQuery = q.Encode()

	var messageID string
	err = util.RetryWithBackoff(ctx, maxSendRetries, c.retryBase, func(attempt int) error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		id, err := c.post(ctx, parsedURL.String(), payloadBytes)
		if err != nil {
			return err
		}
		messageID = id
		return nil
	})
	return messageID, err
}

func (c *Client) post(ctx context.Context, target string, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return "", util.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var msgResponse discordMessageResponse
		if err := json.Unmarshal(bodyBytes, &msgResponse); err != nil {
			return "", util.Permanent(err)
		}
		return msgResponse.ID, nil
	}

	serr := &statusError{status: resp.Status, body: string(bodyBytes)}
	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil {
			serr.retryAfter = time.Duration(secs * float64(time.Second))
		}
		return "", serr
	}
	if resp.StatusCode >= 500 {
		return "", serr
	}
	return "", util.Permanent(serr)
}
