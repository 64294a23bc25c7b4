// Package gateway is the thin adapter between the entity stores and the
// document backend. It owns no domain logic: it translates queries and
// writes, normalizes timestamps on the way in and out, and signals changes
// so live queries can refresh.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("record was modified concurrently")
	ErrInvalidQuery = errors.New("invalid query")
)

// Op is a query predicate operator.
type Op string

const (
	OpEq            Op = "=="
	OpGt            Op = ">"
	OpGte           Op = ">="
	OpLt            Op = "<"
	OpLte           Op = "<="
	OpArrayContains Op = "array-contains"
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where builds a single predicate.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Query describes a list read against one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	After      *Cursor
	Limit      int
}

// Document is implemented by every stored record.
type Document interface {
	DocID() string
	OrderValue(field string) time.Time
}

// Gateway is the set of primitives the stores call.
type Gateway interface {
	// Find runs q and decodes the matching records into dest, a pointer to a slice.
	Find(ctx context.Context, q Query, dest any) error
	// Get reads one record by primary key into dest. Returns ErrNotFound when absent.
	Get(ctx context.Context, collection, id string, dest any) error
	Create(ctx context.Context, collection string, doc Document) error
	// Update applies a partial update. Returns ErrNotFound when no record matched.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// UpdateIf applies fields only if the stored version equals version, and bumps
	// the version. Returns ErrConflict when the version moved.
	UpdateIf(ctx context.Context, collection, id string, version int64, fields map[string]any) error
	// Increment atomically adds delta to field and applies fields in the same write.
	Increment(ctx context.Context, collection, id, field string, delta int, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	// Changes returns the feed write notifications are published on.
	Changes() Feed
	Close() error
}

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func validateField(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("%w: field %q", ErrInvalidQuery, name)
	}
	return nil
}

// Validate checks collection, field names and operators before a query reaches a backend.
func (q Query) Validate() error {
	if err := validateField(q.Collection); err != nil {
		return err
	}
	if q.OrderBy != "" {
		if err := validateField(q.OrderBy); err != nil {
			return err
		}
	}
	if q.After != nil && q.OrderBy == "" {
		return fmt.Errorf("%w: cursor without ordering", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	for _, f := range q.Filters {
		if err := validateField(f.Field); err != nil {
			return err
		}
		switch f.Op {
		case OpEq, OpGt, OpGte, OpLt, OpLte, OpArrayContains:
		default:
			return fmt.Errorf("%w: operator %q", ErrInvalidQuery, f.Op)
		}
	}
	return nil
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Page is one slice of a list query plus the cursor to continue after it.
type Page[T Document] struct {
	Items []T
	Next  *Cursor
}

// List runs q and returns the typed page. Next references the last record and is
// nil when the page is empty.
func List[T Document](ctx context.Context, gw Gateway, q Query) (Page[T], error) {
	var items []T
	if err := gw.Find(ctx, q, &items); err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{Items: items}
	if n := len(items); n > 0 && q.OrderBy != "" {
		last := items[n-1]
		page.Next = &Cursor{Value: last.OrderValue(q.OrderBy), ID: last.DocID()}
	}
	return page, nil
}

// Fetch reads one typed record by primary key.
func Fetch[T Document](ctx context.Context, gw Gateway, collection, id string) (T, error) {
	var doc T
	if err := gw.Get(ctx, collection, id, &doc); err != nil {
		return doc, err
	}
	return doc, nil
}
