// Package journal defines the transition log of the order ledger.
//
// Every change applied to an order (creation, item changes, status
// transitions, catalog driven recalculation) is appended as one immutable
// Entry. The flat ledger file stays the system of record; the journal is an
// audit trail that can be joined with distributed traces through TraceID.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names the kind of change recorded by an Entry.
type Action string

const (
	ActionCreated       Action = "ORDER_CREATED"
	ActionItemAdded     Action = "ITEM_ADDED"
	ActionItemRemoved   Action = "ITEM_REMOVED"
	ActionStatusChanged Action = "STATUS_CHANGED"
	ActionRecalculated  Action = "RECALCULATED"
)

// Entry is a single row of the journal.
type Entry struct {
	// ID is a random identifier of the row itself.
	ID string

	OrderID int
	Action  Action

	// FromStatus and ToStatus are both set on every entry. They are equal
	// unless Action is ActionStatusChanged.
	FromStatus string
	ToStatus   string

	// ProductKey and Quantity are set for item changes.
	ProductKey string
	Quantity   int

	// Total is the order total after the change, formatted with two decimals.
	Total string

	TraceID string
	SpanID  string

	RecordedAt time.Time
}

// Repository is the port the ledger writes through. Implementations must be
// safe for concurrent use.
type Repository interface {
	// Append persists one entry. The log is append-only.
	Append(ctx context.Context, entry *Entry) error

	// History returns the entries of one order, oldest first.
	History(ctx context.Context, orderID int) ([]Entry, error)
}

// NewEntry builds an Entry stamped with a fresh id, the current time and the
// trace info carried by ctx.
func NewEntry(ctx context.Context, orderID int, action Action) *Entry {
	ti := ExtractTraceInfo(ctx)
	return &Entry{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		Action:     action,
		TraceID:    ti.TraceID,
		SpanID:     ti.SpanID,
		RecordedAt: time.Now().UTC(),
	}
}

// Noop discards every entry. It is the ledger default.
type Noop struct{}

func (Noop) Append(context.Context, *Entry) error { return nil }

func (Noop) History(context.Context, int) ([]Entry, error) { return nil, nil }
