package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	pgdriver "github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

type Config struct {
	DSN   string
	Debug bool
}

type Database struct {
	bun *bun.DB
}

func NewDatabase(cfg Config) (*Database, error) {
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))
	sqldb := sql.OpenDB(connector)
	db := bun.NewDB(sqldb, pgdialect.New())

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	return &Database{bun: db}, nil
}

func (d *Database) Bun() *bun.DB {
	return d.bun
}

func (d *Database) Close() error {
	return d.bun.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	return d.bun.PingContext(ctx)
}

// Bootstrap creates the backing table when it does not exist yet.
func (d *Database) Bootstrap(ctx context.Context) error {
	_, err := d.bun.NewCreateTable().Model((*documentRow)(nil)).IfNotExists().Exec(ctx)
	return err
}

// documentRow is one stored document. All collections share a single table
// keyed by (collection, key).
type documentRow struct {
	bun.BaseModel `bun:"table:documents"`

	Collection string          `bun:"collection,pk"`
	Key        string          `bun:"key,pk"`
	Data       json.RawMessage `bun:"data,type:jsonb"`
	UpdatedAt  time.Time       `bun:"updated_at,nullzero,default:now()"`
}

type bunCollection struct {
	db   *bun.DB
	name string
}

// NewBunStore returns a Store backed by the given database.
func NewBunStore(database *Database) *Store {
	db := database.Bun()
	return &Store{
		PullRequests: &bunCollection{db: db, name: "pullRequests"},
		Repositories: &bunCollection{db: db, name: "repositories"},
		Admin:        &bunCollection{db: db, name: "admin"},
	}
}

func (c *bunCollection) Get(ctx context.Context, key string) (Document, error) {
	r := new(documentRow)
	err := c.db.NewSelect().Model(r).
		Where("collection = ?", c.name).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return DecodeDocument(r.Data)
}

func (c *bunCollection) MergeSet(ctx context.Context, key string, doc Document) error {
	// Read-modify-write; concurrent merges of the same key settle at
	// field-level last-writer-wins.
	current, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	merged := doc
	if current != nil {
		merged = Merge(current, doc)
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	r := &documentRow{Collection: c.name, Key: key, Data: raw, UpdatedAt: time.Now()}
	_, err = c.db.NewInsert().Model(r).
		On("CONFLICT (collection, key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (c *bunCollection) Query(ctx context.Context, filter Filter) ([]Keyed, error) {
	var rows []documentRow
	q := c.db.NewSelect().Model(&rows).
		Where("collection = ?", c.name).
		Order("key")
	for path, value := range filter {
		q = q.Where("data #>> ? = ?", pgdialect.Array(strings.Split(path, ".")), value)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	results := make([]Keyed, 0, len(rows))
	for _, r := range rows {
		doc, err := DecodeDocument(r.Data)
		if err != nil {
			return nil, err
		}
		results = append(results, Keyed{Key: r.Key, Doc: doc})
	}
	return results, nil
}

// DecodeDocument unmarshals with json.Number so large ids survive the
// round trip without float truncation.
func DecodeDocument(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
