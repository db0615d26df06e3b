package bot

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// InteractionsHandler serves Discord's outgoing interactions webhook. Requests
// must carry a valid Ed25519 signature for key.
func (b *Bot) InteractionsHandler(key ed25519.PublicKey) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer recoverHandler("http interaction")

		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		if !discordgo.VerifyInteraction(r, key) {
			slog.Warn("Rejected interaction with bad signature", "remote", r.RemoteAddr)
			http.Error(w, "invalid request signature", http.StatusUnauthorized)
			return
		}

		var i discordgo.Interaction
		if err := json.NewDecoder(r.Body).Decode(&i); err != nil {
			slog.Warn("Failed to decode interaction", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		resp, followups := b.interactionResponse(r.Context(), &i)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("Failed to write interaction response", "error", err)
			return
		}
		if len(followups) == 0 {
			return
		}
		// Followups are only accepted once Discord has the initial response.
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		b.inBackground(func(context.Context) {
			b.sendFollowups(&i, followups)
		})
	}
}
