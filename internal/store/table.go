package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"lendingScope/internal/model"
)

// ErrUnknownEntity is returned when an event refers to an entity that was
// never created.
var ErrUnknownEntity = errors.New("unknown entity")

// Entity is any record keyed by a stable id.
type Entity interface {
	Key() string
}

// Origin tells a caller of LoadOrCreate where the returned value came from.
type Origin int

const (
	// OriginLoaded means the entity already existed.
	OriginLoaded Origin = iota
	// OriginCreated means the entity was built from defaults and saved.
	OriginCreated
	// OriginFallback means the entity was created but at least one field
	// could not be read from chain and carries a sentinel.
	OriginFallback
)

func (o Origin) String() string {
	switch o {
	case OriginLoaded:
		return "loaded"
	case OriginCreated:
		return "created"
	case OriginFallback:
		return "fallback"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

// Created reports whether the call materialized a new entity.
func (o Origin) Created() bool {
	return o == OriginCreated || o == OriginFallback
}

// Table holds one entity kind. Values are stored by copy: a loaded value is
// private to the caller until it is saved back.
type Table[T Entity] struct {
	kind  model.Kind
	rows  *xsync.MapOf[string, T]
	dirty map[string]struct{}
}

func newTable[T Entity](kind model.Kind) *Table[T] {
	return &Table[T]{
		kind:  kind,
		rows:  xsync.NewMapOf[string, T](),
		dirty: make(map[string]struct{}),
	}
}

// Kind returns the entity kind stored in the table.
func (t *Table[T]) Kind() model.Kind {
	return t.kind
}

// Load returns the entity with id, if present.
func (t *Table[T]) Load(id string) (T, bool) {
	return t.rows.Load(id)
}

// Get returns the entity with id or an ErrUnknownEntity error.
func (t *Table[T]) Get(id string) (T, error) {
	v, ok := t.rows.Load(id)
	if !ok {
		return v, fmt.Errorf("%s %s: %w", t.kind, id, ErrUnknownEntity)
	}
	return v, nil
}

// Exists reports whether id is present.
func (t *Table[T]) Exists(id string) bool {
	_, ok := t.rows.Load(id)
	return ok
}

// Save stores v and marks it for the next flush.
func (t *Table[T]) Save(v T) {
	id := v.Key()
	t.rows.Store(id, v)
	t.dirty[id] = struct{}{}
}

// LoadOrCreate returns the entity with id, or builds it with create and saves
// it immediately. A create error leaves the table untouched.
func (t *Table[T]) LoadOrCreate(id string, create func() (T, Origin, error)) (T, Origin, error) {
	if v, ok := t.rows.Load(id); ok {
		return v, OriginLoaded, nil
	}
	v, origin, err := create()
	if err != nil {
		var zero T
		return zero, origin, err
	}
	if v.Key() != id {
		var zero T
		return zero, origin, fmt.Errorf("%s create returned id %q, want %q", t.kind, v.Key(), id)
	}
	if origin == OriginLoaded {
		origin = OriginCreated
	}
	t.Save(v)
	return v, origin, nil
}

// Len returns the number of stored entities.
func (t *Table[T]) Len() int {
	return t.rows.Size()
}

// Range calls fn for each entity until fn returns false.
func (t *Table[T]) Range(fn func(T) bool) {
	t.rows.Range(func(_ string, v T) bool {
		return fn(v)
	})
}

func (t *Table[T]) dirtyRows() ([]Row, error) {
	if len(t.dirty) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(t.dirty))
	for id := range t.dirty {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]Row, 0, len(ids))
	for _, id := range ids {
		v, ok := t.rows.Load(id)
		if !ok {
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s: %w", t.kind, id, err)
		}
		rows = append(rows, Row{Kind: t.kind, ID: id, Data: data})
	}
	return rows, nil
}

func (t *Table[T]) clearDirty() {
	clear(t.dirty)
}

func (t *Table[T]) restore(data []byte) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", t.kind, err)
	}
	t.rows.Store(v.Key(), v)
	return nil
}
