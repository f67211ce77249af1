package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/arenalab/policy-arena/internal/domain/model"
	"github.com/arenalab/policy-arena/pkg/metrics"
)

// Badger-backed Store implementation. Documents are JSON values under
// prefixed keys:
//
//	policy/<id>                  Policy
//	policy_model/<modelID>       policy id (de-duplication index)
//	session/<id>                 EvalSession
//	round/<sessionID>/<seq>      RoundResult, seq zero-padded so key order
//	                             is insertion order
//	roundseq/<sessionID>         next round-result sequence number
//	elo/<policyID>/<sessionID>   EloHistoryEntry
//	dataset/<repoID>             Dataset
//
// Badger transactions give the mutation path its atomicity: everything a
// submit/extend/delete does happens in one Update closure or not at all.
const (
	policyPrefix      = "policy/"
	policyModelPrefix = "policy_model/"
	sessionPrefix     = "session/"
	roundPrefix       = "round/"
	roundSeqPrefix    = "roundseq/"
	historyPrefix     = "elo/"
	datasetPrefix     = "dataset/"

	roundSeqDigits = 8
)

// BadgerStore implements Store on an embedded Badger database.
type BadgerStore struct {
	db *badger.DB

	path       string
	inMemory   bool
	syncWrites bool
}

// NewBadgerStore opens the store with configuration options.
func NewBadgerStore(opts ...Option) (*BadgerStore, error) {
	s := &BadgerStore{
		syncWrites: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	var badgerOpts badger.Options
	if s.inMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if s.path == "" {
			return nil, errors.New("store path is required for a persistent database")
		}
		if err := os.MkdirAll(s.path, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", s.path, err)
		}
		badgerOpts = badger.DefaultOptions(s.path)
	}
	badgerOpts = badgerOpts.
		WithSyncWrites(s.syncWrites).
		WithLogger(nil) // badger's own logging is noisy; the service logs around transactions

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	s.db = db
	return s, nil
}

// Update runs fn in one read-write transaction.
func (s *BadgerStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("store update: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
}

// View runs fn on a read-only snapshot.
func (s *BadgerStore) View(ctx context.Context, fn func(tx Tx) error) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("store view: %w", err)
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger store: %w", err)
	}
	return nil
}

// badgerTx adapts a badger transaction to the Tx interface.
type badgerTx struct {
	txn *badger.Txn
}

func (t *badgerTx) getJSON(key string, out any, notFound error) error {
	item, err := t.txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	}); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (t *badgerTx) putJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := t.txn.Set([]byte(key), raw); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// scan visits every key under prefix in key order.
func (t *badgerTx) scan(prefix string, fn func(key string, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		key := string(item.Key())
		if err := item.Value(func(val []byte) error {
			return fn(key, val)
		}); err != nil {
			return fmt.Errorf("scan %s: %w", prefix, err)
		}
	}
	return nil
}

// keysUnder collects the keys below prefix without loading values.
func (t *badgerTx) keysUnder(prefix string) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	defer it.Close()

	var keys []string
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, string(it.Item().KeyCopy(nil)))
	}
	return keys, nil
}

// Policies.

func (t *badgerTx) GetPolicy(id string) (model.Policy, error) {
	var p model.Policy
	if err := t.getJSON(policyPrefix+id, &p, ErrPolicyNotFound); err != nil {
		return model.Policy{}, err
	}
	return p, nil
}

func (t *badgerTx) FindPolicyByModelID(modelID string) (model.Policy, bool, error) {
	item, err := t.txn.Get([]byte(policyModelPrefix + modelID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Policy{}, false, nil
	}
	if err != nil {
		return model.Policy{}, false, fmt.Errorf("get model index %s: %w", modelID, err)
	}
	var id string
	if err := item.Value(func(val []byte) error {
		id = string(val)
		return nil
	}); err != nil {
		return model.Policy{}, false, fmt.Errorf("read model index %s: %w", modelID, err)
	}
	p, err := t.GetPolicy(id)
	if err != nil {
		return model.Policy{}, false, err
	}
	return p, true, nil
}

func (t *badgerTx) PutPolicy(p model.Policy) error {
	if err := t.putJSON(policyPrefix+p.ID, p); err != nil {
		return err
	}
	if err := t.txn.Set([]byte(policyModelPrefix+p.ModelID), []byte(p.ID)); err != nil {
		return fmt.Errorf("set model index %s: %w", p.ModelID, err)
	}
	return nil
}

func (t *badgerTx) ListPolicies() ([]model.Policy, error) {
	var out []model.Policy
	err := t.scan(policyPrefix, func(_ string, val []byte) error {
		var p model.Policy
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

// Sessions.

func (t *badgerTx) GetSession(id string) (model.EvalSession, error) {
	var s model.EvalSession
	if err := t.getJSON(sessionPrefix+id, &s, ErrSessionNotFound); err != nil {
		return model.EvalSession{}, err
	}
	return s, nil
}

func (t *badgerTx) PutSession(s model.EvalSession) error {
	return t.putJSON(sessionPrefix+s.ID, s)
}

func (t *badgerTx) DeleteSession(id string) error {
	if _, err := t.GetSession(id); err != nil {
		return err
	}
	if err := t.txn.Delete([]byte(sessionPrefix + id)); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (t *badgerTx) ListSessions() ([]model.EvalSession, error) {
	var out []model.EvalSession
	err := t.scan(sessionPrefix, func(_ string, val []byte) error {
		var s model.EvalSession
		if err := json.Unmarshal(val, &s); err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Chronological replay order: ELO is path-dependent.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Round results.

func (t *badgerTx) AppendRoundResults(sessionID string, results []model.RoundResult) error {
	seq, err := t.nextRoundSeq(sessionID)
	if err != nil {
		return err
	}
	for _, r := range results {
		key := fmt.Sprintf("%s%s/%0*d", roundPrefix, sessionID, roundSeqDigits, seq)
		if err := t.putJSON(key, r); err != nil {
			return err
		}
		seq++
	}
	if err := t.txn.Set([]byte(roundSeqPrefix+sessionID), []byte(strconv.Itoa(seq))); err != nil {
		return fmt.Errorf("set round sequence %s: %w", sessionID, err)
	}
	return nil
}

func (t *badgerTx) nextRoundSeq(sessionID string) (int, error) {
	item, err := t.txn.Get([]byte(roundSeqPrefix + sessionID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get round sequence %s: %w", sessionID, err)
	}
	var seq int
	if err := item.Value(func(val []byte) error {
		seq, err = strconv.Atoi(string(val))
		return err
	}); err != nil {
		return 0, fmt.Errorf("read round sequence %s: %w", sessionID, err)
	}
	return seq, nil
}

func (t *badgerTx) ListRoundResults(sessionID string) ([]model.RoundResult, error) {
	var out []model.RoundResult
	err := t.scan(roundPrefix+sessionID+"/", func(_ string, val []byte) error {
		var r model.RoundResult
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

func (t *badgerTx) ListRoundResultsByPolicy(policyID string) ([]model.RoundResult, error) {
	var out []model.RoundResult
	err := t.scan(roundPrefix, func(_ string, val []byte) error {
		var r model.RoundResult
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		if r.PolicyID == policyID {
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

func (t *badgerTx) DeleteRoundResults(sessionID string) (int, error) {
	keys, err := t.keysUnder(roundPrefix + sessionID + "/")
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if err := t.txn.Delete([]byte(key)); err != nil {
			return 0, fmt.Errorf("delete %s: %w", key, err)
		}
	}
	if err := t.txn.Delete([]byte(roundSeqPrefix + sessionID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return 0, fmt.Errorf("delete round sequence %s: %w", sessionID, err)
	}
	return len(keys), nil
}

// ELO history.

func (t *badgerTx) PutHistoryEntry(e model.EloHistoryEntry) error {
	return t.putJSON(historyPrefix+e.PolicyID+"/"+e.SessionID, e)
}

func (t *badgerTx) ListHistoryByPolicy(policyID string) ([]model.EloHistoryEntry, error) {
	var out []model.EloHistoryEntry
	err := t.scan(historyPrefix+policyID+"/", func(_ string, val []byte) error {
		var e model.EloHistoryEntry
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SessionAt.Equal(out[j].SessionAt) {
			return out[i].SessionAt.Before(out[j].SessionAt)
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out, nil
}

func (t *badgerTx) DeleteAllHistory() (int, error) {
	keys, err := t.keysUnder(historyPrefix)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if err := t.txn.Delete([]byte(key)); err != nil {
			return 0, fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return len(keys), nil
}

// Datasets.

func (t *badgerTx) GetDataset(repoID string) (model.Dataset, error) {
	var d model.Dataset
	if err := t.getJSON(datasetPrefix+datasetKey(repoID), &d, ErrDatasetNotFound); err != nil {
		return model.Dataset{}, err
	}
	return d, nil
}

func (t *badgerTx) PutDataset(d model.Dataset) error {
	return t.putJSON(datasetPrefix+datasetKey(d.RepoID), d)
}

func (t *badgerTx) ListDatasets() ([]model.Dataset, error) {
	var out []model.Dataset
	err := t.scan(datasetPrefix, func(_ string, val []byte) error {
		var d model.Dataset
		if err := json.Unmarshal(val, &d); err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// datasetKey flattens repo identifiers like "org/name" into a single key
// segment.
func datasetKey(repoID string) string {
	return strings.ReplaceAll(repoID, "/", "\x00")
}
