// Package postgres implements the store.Storage contract on PostgreSQL.
package postgres

import (
	"context"
	"sync"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
	CopyFrom(ctx context.Context, tableName pgxv5.Identifier, columnNames []string, rowSrc pgxv5.CopyFromSource) (int64, error)
}

// Store is the PostgreSQL-backed storage. Gene registry lookups are cached
// in memory because the same gene ids recur across a run's documents.
type Store struct {
	conn pgxConn

	mu      sync.Mutex
	taxIDs  map[string]int
	geneIDs map[string]int64
}

// New creates a Store over an existing connection or pool.
func New(conn pgxConn) *Store {
	return &Store{
		conn:    conn,
		taxIDs:  make(map[string]int),
		geneIDs: make(map[string]int64),
	}
}

// oryzaSativaSpecies and oryzaSativaJaponica: species mentions of O. sativa
// carry tax id 4530, while its genes are registered under the Japonica group
// id. The species id is rewritten so the two sides meet.
const (
	oryzaSativaSpecies  = 4530
	oryzaSativaJaponica = 39947
)

func patchSpeciesID(id int) int {
	if id == oryzaSativaSpecies {
		return oryzaSativaJaponica
	}
	return id
}
