package checkpoint

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Checkpoint is a durable, immutable snapshot of a task's in-progress
// state. Checkpoints are append-only: once written they are never mutated,
// only pruned by explicit cleanup.
type Checkpoint struct {
	ID        string          `json:"checkpoint_id"`
	TaskID    string          `json:"task_id"`
	Sequence  int             `json:"sequence"`
	State     json.RawMessage `json:"captured_state"`
	Timestamp time.Time       `json:"timestamp"`
}

// FormatID derives a checkpoint ID from its components. The shape
// <taskID>@<seq>-<unixNano> is deterministic and parseable, so a crashed
// process can enumerate a task's checkpoints without an external index.
// Task IDs must not contain '@' (enforced at plan normalization).
func FormatID(taskID string, seq int, ts time.Time) string {
	return fmt.Sprintf("%s@%06d-%d", taskID, seq, ts.UnixNano())
}

// ParseID splits a checkpoint ID back into its task ID, sequence number and
// timestamp.
func ParseID(id string) (taskID string, seq int, ts time.Time, err error) {
	at := strings.LastIndex(id, "@")
	if at < 1 {
		return "", 0, time.Time{}, fmt.Errorf("checkpoint id %q: missing task separator", id)
	}
	taskID = id[:at]

	rest := id[at+1:]
	dash := strings.IndexByte(rest, '-')
	if dash < 1 {
		return "", 0, time.Time{}, fmt.Errorf("checkpoint id %q: missing sequence separator", id)
	}

	seq, err = strconv.Atoi(rest[:dash])
	if err != nil {
		return "", 0, time.Time{}, fmt.Errorf("checkpoint id %q: bad sequence: %w", id, err)
	}

	nanos, err := strconv.ParseInt(rest[dash+1:], 10, 64)
	if err != nil {
		return "", 0, time.Time{}, fmt.Errorf("checkpoint id %q: bad timestamp: %w", id, err)
	}

	return taskID, seq, time.Unix(0, nanos), nil
}

// Store persists checkpoints through a Backend. Sequence numbers are
// monotonic per task within a store instance and re-derived from the
// backend when a task is first seen, so resume after a crash continues the
// sequence instead of restarting it.
type Store struct {
	mu      sync.Mutex
	backend Backend
	seqs    map[string]int
	now     func() time.Time
}

// NewStore creates a Store over the given backend.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		seqs:    make(map[string]int),
		now:     time.Now,
	}
}

// Save captures the state for a task and returns the new checkpoint ID.
// State may be any JSON-marshalable value.
func (s *Store) Save(taskID string, state any) (string, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("marshal checkpoint state for %s: %w", taskID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.nextSeq(taskID)
	if err != nil {
		return "", err
	}

	cp := Checkpoint{
		ID:        FormatID(taskID, seq, s.now()),
		TaskID:    taskID,
		Sequence:  seq,
		State:     raw,
		Timestamp: s.now(),
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return "", fmt.Errorf("marshal checkpoint %s: %w", cp.ID, err)
	}
	if err := s.backend.Put(cp.ID, data); err != nil {
		return "", fmt.Errorf("persist checkpoint %s: %w", cp.ID, err)
	}

	s.seqs[taskID] = seq + 1
	return cp.ID, nil
}

// LoadLatest returns the most recent checkpoint for a task, or false when
// the task has none.
func (s *Store) LoadLatest(taskID string) (*Checkpoint, bool, error) {
	ids, err := s.List(taskID)
	if err != nil {
		return nil, false, err
	}
	if len(ids) == 0 {
		return nil, false, nil
	}

	data, err := s.backend.Get(ids[len(ids)-1])
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint %s: %w", ids[len(ids)-1], err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, false, fmt.Errorf("decode checkpoint %s: %w", ids[len(ids)-1], err)
	}
	return &cp, true, nil
}

// LoadLatestInto unmarshals the latest checkpoint's captured state into v.
// Returns false when the task has no checkpoints.
func (s *Store) LoadLatestInto(taskID string, v any) (bool, error) {
	cp, ok, err := s.LoadLatest(taskID)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(cp.State, v); err != nil {
		return false, fmt.Errorf("decode checkpoint state %s: %w", cp.ID, err)
	}
	return true, nil
}

// List returns the checkpoint IDs for a task ordered by sequence.
func (s *Store) List(taskID string) ([]string, error) {
	ids, err := s.backend.List(taskID + "@")
	if err != nil {
		return nil, fmt.Errorf("list checkpoints for %s: %w", taskID, err)
	}

	// Sequence order, not lexical key order; the zero-padded sequence makes
	// these agree for sane counts, but parse to be exact.
	sort.Slice(ids, func(i, j int) bool {
		_, si, _, erri := ParseID(ids[i])
		_, sj, _, errj := ParseID(ids[j])
		if erri != nil || errj != nil {
			return ids[i] < ids[j]
		}
		return si < sj
	})
	return ids, nil
}

// Prune removes all checkpoints for a task. Only supported when the backend
// can delete; backends without deletion return an error.
func (s *Store) Prune(taskID string) error {
	deleter, ok := s.backend.(interface{ Delete(key string) error })
	if !ok {
		return fmt.Errorf("backend does not support pruning")
	}

	ids, err := s.List(taskID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := deleter.Delete(id); err != nil {
			return err
		}
	}

	s.mu.Lock()
	delete(s.seqs, taskID)
	s.mu.Unlock()
	return nil
}

// nextSeq returns the next sequence number for a task, consulting the
// backend the first time a task is seen. Callers must hold s.mu.
func (s *Store) nextSeq(taskID string) (int, error) {
	if seq, ok := s.seqs[taskID]; ok {
		return seq, nil
	}

	ids, err := s.backend.List(taskID + "@")
	if err != nil {
		return 0, fmt.Errorf("list checkpoints for %s: %w", taskID, err)
	}

	next := 0
	for _, id := range ids {
		if _, seq, _, err := ParseID(id); err == nil && seq >= next {
			next = seq + 1
		}
	}
	return next, nil
}
