package api

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/http-gpio/internal/auth"
)

const (
	// ticketTTL is how long a WebSocket ticket is valid.
	ticketTTL = 60 * time.Second

	ticketBytes = 32
)

// ticketStore holds single-use WebSocket tickets. Browsers cannot set an
// Authorization header on a WebSocket handshake, so a token holder trades
// the token for a short-lived ticket passed in the query string.
type ticketStore struct {
	mu      sync.Mutex
	tickets map[string]ticketEntry
}

type ticketEntry struct {
	subject   string
	role      auth.Role
	expiresAt time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry)}
}

func (ts *ticketStore) issue(subject string, role auth.Role, now time.Time) string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	ticket := hex.EncodeToString(b)

	ts.mu.Lock()
	ts.tickets[ticket] = ticketEntry{subject: subject, role: role, expiresAt: now.Add(ticketTTL)}
	ts.mu.Unlock()
	return ticket
}

// redeem consumes a ticket. It reports false for unknown or expired tickets.
func (ts *ticketStore) redeem(ticket string, now time.Time) (ticketEntry, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	entry, ok := ts.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}
	delete(ts.tickets, ticket)
	return entry, now.Before(entry.expiresAt)
}

func (ts *ticketStore) clean(now time.Time) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for ticket, entry := range ts.tickets {
		if now.After(entry.expiresAt) {
			delete(ts.tickets, ticket)
		}
	}
}

// handleWSTicket issues a ticket for the caller's token.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	var subject string
	role := auth.RoleViewer
	if claims := claimsFromContext(r.Context()); claims != nil {
		subject, role = claims.Subject, claims.Role
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     s.tickets.issue(subject, role, time.Now()),
		"expires_in": int(ticketTTL.Seconds()),
	})
}
