package database

import (
	"context"
	"database/sql"
	"sync"
)

// to cache prepared sql statement, which maps query string to stmt.
// Queries are rebound to the dialect before they reach the cache.
type StmtCache struct {
	db *sql.DB
	m  sync.Map
}

func NewStmtCache(db *sql.DB) *StmtCache {
	return &StmtCache{db: db}
}

func (sc *StmtCache) Prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	cached, _ := sc.m.Load(query)
	if cached == nil {
		stmt, err := sc.db.PrepareContext(ctx, query)
		if err != nil {
			return nil, err
		}
		if prev, loaded := sc.m.LoadOrStore(query, stmt); loaded {
			_ = stmt.Close()
			return prev.(*sql.Stmt), nil
		}
		cached = stmt
	}
	return cached.(*sql.Stmt), nil
}

func (sc *StmtCache) Clear() {
	sc.m.Range(func(k, v interface{}) bool {
		_ = v.(*sql.Stmt).Close()
		sc.m.Delete(k)
		return true
	})
}
