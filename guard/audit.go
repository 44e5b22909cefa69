package guard

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/quailyquaily/fetchguard/internal/strutil"
)

// FetchDecision is the per-hop outcome recorded in the audit trail.
type FetchDecision string

const (
	// DecisionDeny: validation rejected the hop's URL.
	DecisionDeny FetchDecision = "deny"
	// DecisionRedirect: hop passed and answered 3xx; the chain continues.
	DecisionRedirect FetchDecision = "redirect"
	// DecisionFinal: hop passed and produced the terminal response.
	DecisionFinal FetchDecision = "final"
)

// FetchAuditEvent is one audit record. Events of one guarded fetch
// share a FetchID.
type FetchAuditEvent struct {
	EventID   string        `json:"event_id"`
	FetchID   string        `json:"fetch_id"`
	Timestamp time.Time     `json:"ts"`
	Hop       int           `json:"hop"`
	URL       string        `json:"url"`
	Decision  FetchDecision `json:"decision"`
	Reason    string        `json:"reason,omitempty"`
	Status    int           `json:"status,omitempty"`
}

type AuditSink interface {
	Emit(ctx context.Context, e FetchAuditEvent) error
	Close() error
}

const auditURLMaxBytes = 512

func newAuditEvent(fetchID string, hop int, rawURL string, d FetchDecision) FetchAuditEvent {
	now := time.Now().UTC()
	return FetchAuditEvent{
		EventID:   newEventID(fetchID, hop, now),
		FetchID:   fetchID,
		Timestamp: now,
		Hop:       hop,
		URL:       strutil.TruncateUTF8(rawURL, auditURLMaxBytes),
		Decision:  d,
	}
}

func newEventID(fetchID string, hop int, ts time.Time) string {
	seed := fmt.Sprintf("%s|%d|%s", fetchID, hop, ts.Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(seed))
	return "evt_" + hex.EncodeToString(sum[:8])
}

func newFetchID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "ftc_" + hex.EncodeToString(b)
}
