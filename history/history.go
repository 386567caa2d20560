package history

import (
	"context"
	"strings"
	"time"

	"github.com/climalink/climalink/txflow"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Record is the outcome of one orchestrator run.
type Record struct {
	ID           uuid.UUID `json:"id"`
	Account      string    `json:"account"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	TxHash       string    `json:"tx_hash,omitempty"`
	ApprovalHash string    `json:"approval_hash,omitempty"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// FromState builds a record from a terminal state.
func FromState(account common.Address, st txflow.State) Record {
	r := Record{
		ID:           st.ID,
		Account:      strings.ToLower(account.Hex()),
		Title:        st.Title,
		Status:       string(st.Status),
		TxHash:       st.TxHash,
		ApprovalHash: st.ApprovalHash,
		Error:        st.Error,
		StartedAt:    st.StartedAt.UTC(),
	}
	if st.FinishedAt != nil {
		r.FinishedAt = st.FinishedAt.UTC()
	} else {
		r.FinishedAt = time.Now().UTC()
	}
	return r
}

// Store persists records.
type Store interface {
	Insert(ctx context.Context, records []Record) error
	// List returns the newest records of account first. An empty account
	// lists every account.
	List(ctx context.Context, account string, limit int) ([]Record, error)
	Close() error
}

// Open picks the store from dsn: postgres:// and postgresql:// URLs use
// Postgres, anything else is a SQLite file path.
func Open(ctx context.Context, dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgresStore(ctx, dsn)
	}
	return NewSQLiteStore(ctx, dsn)
}
