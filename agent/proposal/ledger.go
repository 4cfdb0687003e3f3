package proposal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	contractx "github.com/natthapon/schedpilot/agent/contract"
)

const (
	defaultTTL = time.Hour
	idLength   = 12
)

// MemoryLedger is the process-lifetime store of pending change proposals.
// Entries expire after the configured TTL; expired entries behave exactly
// like unknown ids. Access is serialized with a mutex since concurrent
// turns may share one ledger.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]ledgerEntry
	ttl     time.Duration
	now     func() time.Time
}

type ledgerEntry struct {
	proposal  *contractx.Proposal
	expiresAt time.Time
}

var _ contractx.Ledger = (*MemoryLedger)(nil)

type LedgerOption func(*MemoryLedger)

func WithTTL(ttl time.Duration) LedgerOption {
	return func(l *MemoryLedger) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) LedgerOption {
	return func(l *MemoryLedger) {
		if now != nil {
			l.now = now
		}
	}
}

func NewMemoryLedger(opts ...LedgerOption) *MemoryLedger {
	l := &MemoryLedger{
		entries: make(map[string]ledgerEntry, 8),
		ttl:     defaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *MemoryLedger) Put(p *contractx.Proposal) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: proposal id is empty", contractx.ErrValidation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.purgeLocked()

	if _, exists := l.entries[p.ID]; exists {
		return fmt.Errorf("%w: proposal id collision: %s", contractx.ErrValidation, p.ID)
	}
	l.entries[p.ID] = ledgerEntry{
		proposal:  p,
		expiresAt: l.now().Add(l.ttl),
	}
	return nil
}

func (l *MemoryLedger) Get(id string) (*contractx.Proposal, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purgeLocked()

	entry, ok := l.entries[id]
	if !ok {
		return nil, false
	}
	return entry.proposal, true
}

func (l *MemoryLedger) Remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, id)
}

func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purgeLocked()
	return len(l.entries)
}

func (l *MemoryLedger) purgeLocked() {
	now := l.now()
	for id, entry := range l.entries {
		if now.After(entry.expiresAt) {
			delete(l.entries, id)
		}
	}
}

// NewID derives a proposal id from the target activity, creation time, and
// change set. Collision-resistant enough that the model cannot guess an id
// it was never handed; not a signed token — see the ledger lookup for the
// actual replay control.
func NewID(activityID int64, createdAt time.Time, changes map[string]any) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%d|", activityID, createdAt.UnixNano())

	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		encoded, _ := json.Marshal(changes[k])
		fmt.Fprintf(h, "%s=%s|", k, encoded)
	}

	return hex.EncodeToString(h.Sum(nil))[:idLength]
}
