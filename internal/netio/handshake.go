package netio

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// randCode returns a 32-character hex code (spec.md §4.6 "a
// 32-character code and a 32-character handshake").
func randCode() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing means the OS entropy source is broken;
		// there is nothing sensible to serve after that.
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

type pendingHandshake struct {
	sessionID uint64
	accountID uint64
	deadline  time.Time
}

type disconnectedEntry struct {
	entityKey    uint64
	reconnectCode string
	deadline     time.Time
}

// Handshakes tracks the "pending handshakes" table and the
// "disconnected" set of spec.md §4.6, both keyed by a random code and
// each carrying its own expiry timer.
type Handshakes struct {
	mu       sync.Mutex
	pending  map[string]pendingHandshake
	disconn  map[string]disconnectedEntry
	joinTTL  time.Duration
	graceTTL time.Duration
}

func NewHandshakes(joinTTL, graceTTL time.Duration) *Handshakes {
	return &Handshakes{
		pending:  make(map[string]pendingHandshake),
		disconn:  make(map[string]disconnectedEntry),
		joinTTL:  joinTTL,
		graceTTL: graceTTL,
	}
}

// Register arms a 60-second (configurable) join timer for a freshly
// registered or logged-in account and returns the handshake string the
// client must echo back (spec.md §4.6 "Handshake").
func (h *Handshakes) Register(sessionID, accountID uint64) string {
	code := randCode()
	h.mu.Lock()
	h.pending[code] = pendingHandshake{sessionID: sessionID, accountID: accountID, deadline: time.Now().Add(h.joinTTL)}
	h.mu.Unlock()
	return code
}

// Confirm matches the client's HandShake{handshake} reply against the
// pending table, consuming the entry on success.
func (h *Handshakes) Confirm(code string, sessionID uint64) (accountID uint64, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, exists := h.pending[code]
	if !exists || p.sessionID != sessionID || time.Now().After(p.deadline) {
		return 0, false
	}
	delete(h.pending, code)
	return p.accountID, true
}

// ReapExpiredJoins drops pending handshakes whose join timer fired
// without a matching HandShake reply; the caller is responsible for
// unloading whatever pending player state those sessions staged.
func (h *Handshakes) ReapExpiredJoins(now time.Time) []uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	var expired []uint64
	for code, p := range h.pending {
		if now.After(p.deadline) {
			expired = append(expired, p.sessionID)
			delete(h.pending, code)
		}
	}
	return expired
}

// MarkDisconnected places an in-combat player's key into the
// disconnected set with a reconnect grace window (spec.md §4.6
// "Reconnect"), returning the reconnect code the client must present.
func (h *Handshakes) MarkDisconnected(entityKey uint64) string {
	code := randCode()
	h.mu.Lock()
	h.disconn[code] = disconnectedEntry{entityKey: entityKey, reconnectCode: code, deadline: time.Now().Add(h.graceTTL)}
	h.mu.Unlock()
	return code
}

// Reconnect rebinds a new socket to the entity behind a still-valid
// reconnect code, consuming the entry.
func (h *Handshakes) Reconnect(code string) (entityKey uint64, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, exists := h.disconn[code]
	if !exists || time.Now().After(e.deadline) {
		return 0, false
	}
	delete(h.disconn, code)
	return e.entityKey, true
}

// ReapExpiredGrace drops disconnected entries whose reconnect grace
// expired; the caller must then unload the entity and release its key.
func (h *Handshakes) ReapExpiredGrace(now time.Time) []uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	var expired []uint64
	for code, e := range h.disconn {
		if now.After(e.deadline) {
			expired = append(expired, e.entityKey)
			delete(h.disconn, code)
		}
	}
	return expired
}
