// Package repository defines the transactional document store backing the
// arena: policies, eval sessions, round results, ELO history and datasets.
package repository

import (
	"context"

	"github.com/arenalab/policy-arena/internal/domain/model"
)

// Store provides transactional access to the arena collections.
//
// Update runs fn inside one read-write transaction; if fn returns an error
// the whole transaction rolls back and nothing is observable. View runs fn
// on a read-only snapshot. The mutation paths (submit, extend, delete)
// depend on this atomicity: a failed ingestion must leave every collection
// exactly as it was.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Tx exposes the collection operations available inside a transaction.
type Tx interface {
	// Policies.
	GetPolicy(id string) (model.Policy, error)
	// FindPolicyByModelID resolves a policy by its de-duplication key.
	FindPolicyByModelID(modelID string) (model.Policy, bool, error)
	PutPolicy(p model.Policy) error
	ListPolicies() ([]model.Policy, error)

	// Eval sessions. ListSessions returns sessions in chronological
	// submission order (CreatedAt, then ID) — the replay order.
	GetSession(id string) (model.EvalSession, error)
	PutSession(s model.EvalSession) error
	DeleteSession(id string) error
	ListSessions() ([]model.EvalSession, error)

	// Round results. AppendRoundResults preserves insertion order;
	// ListRoundResults returns a session's rows in that order, which is
	// the canonical pairing order within each round.
	AppendRoundResults(sessionID string, results []model.RoundResult) error
	ListRoundResults(sessionID string) ([]model.RoundResult, error)
	ListRoundResultsByPolicy(policyID string) ([]model.RoundResult, error)
	// DeleteRoundResults removes all of a session's rows and reports how
	// many were deleted.
	DeleteRoundResults(sessionID string) (int, error)

	// ELO history. PutHistoryEntry upserts on (policy, session).
	PutHistoryEntry(e model.EloHistoryEntry) error
	ListHistoryByPolicy(policyID string) ([]model.EloHistoryEntry, error)
	// DeleteAllHistory clears the collection system-wide and reports the
	// number of entries removed.
	DeleteAllHistory() (int, error)

	// Datasets.
	GetDataset(repoID string) (model.Dataset, error)
	PutDataset(d model.Dataset) error
	ListDatasets() ([]model.Dataset, error)
}
