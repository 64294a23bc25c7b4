package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chamsedd0/neighbor/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgreSQL stores timestamps with microsecond precision.
const gormPrecision = time.Microsecond

const idColumn = "id"

// GormGateway serves collections as tables through GORM. Array fields are JSON
// columns; array-contains uses jsonb containment on PostgreSQL and a quoted
// LIKE match elsewhere.
type GormGateway struct {
	db   *gorm.DB
	feed Feed
}

func NewGorm(db *gorm.DB, feed Feed) *GormGateway {
	if feed == nil {
		feed = NewLocalFeed()
	}
	return &GormGateway{db: db, feed: feed}
}

func (g *GormGateway) Changes() Feed { return g.feed }

// DB exposes the handle for migrations and health checks.
func (g *GormGateway) DB() *gorm.DB { return g.db }

func (g *GormGateway) Find(ctx context.Context, q Query, dest any) error {
	if err := q.Validate(); err != nil {
		return err
	}

	tx := g.db.WithContext(ctx).Table(q.Collection)
	for _, f := range q.Filters {
		var err error
		if tx, err = g.where(tx, f); err != nil {
			return err
		}
	}

	if q.OrderBy != "" {
		col := clause.Column{Name: q.OrderBy}
		id := clause.Column{Name: idColumn}
		if q.After != nil {
			after := normalizeTime(q.After.Value, gormPrecision)
			if q.Descending {
				tx = tx.Where("(? < ? OR (? = ? AND ? < ?))", col, after, col, after, id, q.After.ID)
			} else {
				tx = tx.Where("(? > ? OR (? = ? AND ? > ?))", col, after, col, after, id, q.After.ID)
			}
		}
		tx = tx.Clauses(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: col, Desc: q.Descending},
			{Column: id, Desc: q.Descending},
		}})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	if err := tx.Find(dest).Error; err != nil {
		return fmt.Errorf("query %s: %w", q.Collection, err)
	}
	normalizeTimes(dest, gormPrecision)
	return nil
}

func (g *GormGateway) where(tx *gorm.DB, f Filter) (*gorm.DB, error) {
	col := clause.Column{Name: f.Field}
	value := f.Value
	if t, ok := value.(time.Time); ok {
		value = normalizeTime(t, gormPrecision)
	}

	switch f.Op {
	case OpEq:
		return tx.Where(clause.Eq{Column: col, Value: value}), nil
	case OpGt:
		return tx.Where(clause.Gt{Column: col, Value: value}), nil
	case OpGte:
		return tx.Where(clause.Gte{Column: col, Value: value}), nil
	case OpLt:
		return tx.Where(clause.Lt{Column: col, Value: value}), nil
	case OpLte:
		return tx.Where(clause.Lte{Column: col, Value: value}), nil
	case OpArrayContains:
		element, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		if g.db.Dialector.Name() == "postgres" {
			return tx.Where("? @> ?::jsonb", col, "["+string(element)+"]"), nil
		}
		pattern := "%" + utils.EscapeSQLWildcards(string(element)) + "%"
		return tx.Where("? LIKE ? ESCAPE '\\'", col, pattern), nil
	}
	return nil, fmt.Errorf("%w: operator %q", ErrInvalidQuery, f.Op)
}

func (g *GormGateway) Get(ctx context.Context, collection, id string, dest any) error {
	if err := validateField(collection); err != nil {
		return err
	}
	err := g.db.WithContext(ctx).
		Table(collection).
		Where(clause.Eq{Column: clause.Column{Name: idColumn}, Value: id}).
		Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	normalizeTimes(dest, gormPrecision)
	return nil
}

// Create inserts doc, which must be a pointer to a model.
func (g *GormGateway) Create(ctx context.Context, collection string, doc Document) error {
	if err := validateField(collection); err != nil {
		return err
	}
	normalizeTimes(doc, gormPrecision)
	if err := g.db.WithContext(ctx).Table(collection).Create(doc).Error; err != nil {
		return fmt.Errorf("create %s: %w", collection, err)
	}
	g.feed.Publish(ctx, collection)
	return nil
}

func (g *GormGateway) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return g.update(ctx, collection, id, nil, fields)
}

func (g *GormGateway) UpdateIf(ctx context.Context, collection, id string, version int64, fields map[string]any) error {
	return g.update(ctx, collection, id, &version, fields)
}

func (g *GormGateway) Increment(ctx context.Context, collection, id, field string, delta int, fields map[string]any) error {
	if err := validateField(field); err != nil {
		return err
	}
	all := copyFields(fields)
	all[field] = gorm.Expr("? + ?", clause.Column{Name: field}, delta)
	return g.update(ctx, collection, id, nil, all)
}

func (g *GormGateway) update(ctx context.Context, collection, id string, version *int64, fields map[string]any) error {
	if err := validateField(collection); err != nil {
		return err
	}
	fields = copyFields(fields)
	for k := range fields {
		if err := validateField(k); err != nil {
			return err
		}
	}
	normalizeFields(fields, gormPrecision)

	tx := g.db.WithContext(ctx).
		Table(collection).
		Where(clause.Eq{Column: clause.Column{Name: idColumn}, Value: id})
	if version != nil {
		fields["version"] = *version + 1
		tx = tx.Where(clause.Eq{Column: clause.Column{Name: "version"}, Value: *version})
	}

	res := tx.Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, res.Error)
	}
	if res.RowsAffected == 0 {
		if version == nil {
			return ErrNotFound
		}
		var n int64
		if err := g.db.WithContext(ctx).Table(collection).
			Where(clause.Eq{Column: clause.Column{Name: idColumn}, Value: id}).
			Count(&n).Error; err != nil {
			return fmt.Errorf("update %s/%s: %w", collection, id, err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}

	g.feed.Publish(ctx, collection)
	return nil
}

func (g *GormGateway) Delete(ctx context.Context, collection, id string) error {
	if err := validateField(collection); err != nil {
		return err
	}
	res := g.db.WithContext(ctx).Exec("DELETE FROM ? WHERE ? = ?",
		clause.Table{Name: collection}, clause.Column{Name: idColumn}, id)
	if res.Error != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	g.feed.Publish(ctx, collection)
	return nil
}

func (g *GormGateway) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
