package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/esotraders/exchange-bot/internal/models"
)

const firestoreCollection = "listing_events"

// ErrEventExists is returned when an event with the same id was already recorded.
var ErrEventExists = errors.New("listing event already exists")

// Event kinds.
const (
	KindAdded   = "added"
	KindRemoved = "removed"
)

// Event is one archived change to the trade board. The archive is history
// only; it is never used to rebuild the in-memory listings.
type Event struct {
	ID         string          `firestore:"-"`
	Kind       string          `firestore:"kind"`
	UserID     string          `firestore:"userID"`
	Trader     string          `firestore:"trader"`
	Listing    *models.Listing `firestore:"listing,omitempty"`
	Removed    int             `firestore:"removed,omitempty"`
	OccurredAt time.Time       `firestore:"occurredAt"`
}

type Client struct {
	client *firestore.Client
	now    func() time.Time
}

func New(ctx context.Context, projectID string) (*Client, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &Client{client: client, now: time.Now}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// eventID derives a stable document id so a retried write cannot archive the same event twice.
func eventID(kind, userID, trader string, at time.Time) string {
	hash := sha256.Sum256([]byte(kind + "\x00" + userID + "\x00" + trader + "\x00" + at.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(hash[:])
}

// RecordAdded archives a newly stored listing.
func (c *Client) RecordAdded(ctx context.Context, userID string, l models.Listing) error {
	if c == nil || c.client == nil {
		return nil
	}
	at := c.now()
	return c.create(ctx, Event{
		ID:         eventID(KindAdded, userID, l.Trader, at),
		Kind:       KindAdded,
		UserID:     userID,
		Trader:     l.Trader,
		Listing:    &l,
		OccurredAt: at,
	})
}

// RecordRemoved archives the removal of count listings for trader.
func (c *Client) RecordRemoved(ctx context.Context, userID, trader string, count int) error {
	if c == nil || c.client == nil {
		return nil
	}
	at := c.now()
	return c.create(ctx, Event{
		ID:         eventID(KindRemoved, userID, trader, at),
		Kind:       KindRemoved,
		UserID:     userID,
		Trader:     trader,
		Removed:    count,
		OccurredAt: at,
	})
}

func (c *Client) create(ctx context.Context, ev Event) error {
	docRef := c.client.Collection(firestoreCollection).Doc(ev.ID)
	// Create fails if the document already exists.
	_, err := docRef.Create(ctx, ev)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrEventExists
		}
		return fmt.Errorf("failed to archive %s event for %s: %w", ev.Kind, ev.Trader, err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (c *Client) Recent(ctx context.Context, limit int) ([]Event, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	iter := c.client.Collection(firestoreCollection).
		OrderBy("occurredAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var events []Event
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate listing events: %w", err)
		}
		var ev Event
		if err := doc.DataTo(&ev); err != nil {
			slog.Warn("Skipping unreadable listing event", "id", doc.Ref.ID, "error", err)
			continue
		}
		ev.ID = doc.Ref.ID
		events = append(events, ev)
	}
	return events, nil
}

// Describe renders an event as one line of history.
func (ev Event) Describe() string {
	when := ev.OccurredAt.UTC().Format("2006-01-02 15:04 MST")
	switch ev.Kind {
	case KindAdded:
		if ev.Listing != nil {
			return fmt.Sprintf("%s added: %s", when, ev.Listing.String())
		}
		return fmt.Sprintf("%s added a listing for %s", when, ev.Trader)
	case KindRemoved:
		return fmt.Sprintf("%s removed %d listing(s) for %s", when, ev.Removed, ev.Trader)
	}
	return fmt.Sprintf("%s %s %s", when, ev.Kind, ev.Trader)
}
