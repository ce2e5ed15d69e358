package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/plantmine/triplextract/pkg/mining"
)

type execCall struct {
	sql  string
	args []any
}

// fakeConn satisfies pgxConn without a database. Queries answer from
// queryIDs, transactions are delegated to the shared fakeTx.
type fakeConn struct {
	tx       *fakeTx
	queryIDs []int64
	execs    []execCall
	queries  []execCall
}

func (c *fakeConn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.execs = append(c.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (c *fakeConn) Query(_ context.Context, sql string, args ...any) (pgxv5.Rows, error) {
	c.queries = append(c.queries, execCall{sql: sql, args: args})
	return &fakeRows{ids: c.queryIDs}, nil
}

func (c *fakeConn) QueryRow(context.Context, string, ...any) pgxv5.Row {
	return errRow{err: errors.New("unexpected QueryRow")}
}

func (c *fakeConn) Begin(context.Context) (pgxv5.Tx, error) {
	c.tx.open = true
	return c.tx, nil
}

func (c *fakeConn) CopyFrom(context.Context, pgxv5.Identifier, []string, pgxv5.CopyFromSource) (int64, error) {
	return 0, errors.New("unexpected CopyFrom")
}

// fakeTx backs the association get-or-create. insertFailures makes that
// many INSERTs fail the way a lost unique-constraint race does.
type fakeTx struct {
	associations   map[string]int64
	nextID         int64
	insertFailures int
	rollbacks      int
	commits        int
	open           bool
}

func (t *fakeTx) QueryRow(_ context.Context, sql string, args ...any) pgxv5.Row {
	key := fmt.Sprintf("%v|%v|%v", args[0], args[1], args[2])
	if strings.HasPrefix(sql, "SELECT") {
		if id, ok := t.associations[key]; ok {
			return idRow{id: id}
		}
		return errRow{err: pgxv5.ErrNoRows}
	}
	if t.insertFailures > 0 {
		t.insertFailures--
		return errRow{err: errors.New("duplicate key value violates unique constraint")}
	}
	t.nextID++
	t.associations[key] = t.nextID
	return idRow{id: t.nextID}
}

func (t *fakeTx) Commit(context.Context) error {
	if !t.open {
		return pgxv5.ErrTxClosed
	}
	t.open = false
	t.commits++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.open {
		return pgxv5.ErrTxClosed
	}
	t.open = false
	t.rollbacks++
	return nil
}

func (t *fakeTx) Begin(context.Context) (pgxv5.Tx, error) {
	return nil, errors.New("unexpected nested Begin")
}

func (t *fakeTx) CopyFrom(context.Context, pgxv5.Identifier, []string, pgxv5.CopyFromSource) (int64, error) {
	return 0, errors.New("unexpected CopyFrom")
}

func (t *fakeTx) SendBatch(context.Context, *pgxv5.Batch) pgxv5.BatchResults { return nil }

func (t *fakeTx) LargeObjects() pgxv5.LargeObjects { return pgxv5.LargeObjects{} }

func (t *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("unexpected Prepare")
}

func (t *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected Exec")
}

func (t *fakeTx) Query(context.Context, string, ...any) (pgxv5.Rows, error) {
	return nil, errors.New("unexpected Query")
}

func (t *fakeTx) Conn() *pgxv5.Conn { return nil }

type idRow struct{ id int64 }

func (r idRow) Scan(dest ...any) error {
	*(dest[0].(*int64)) = r.id
	return nil
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type fakeRows struct {
	ids []int64
	idx int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool {
	if r.idx >= len(r.ids) {
		return false
	}
	r.idx++
	return true
}
func (r *fakeRows) Scan(dest ...any) error {
	*(dest[0].(*int64)) = r.ids[r.idx-1]
	return nil
}
func (r *fakeRows) Values() ([]any, error) { return nil, errors.New("unexpected Values") }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgxv5.Conn      { return nil }

func newFakeStore() (*Store, *fakeConn) {
	conn := &fakeConn{tx: &fakeTx{associations: make(map[string]int64)}}
	return New(conn), conn
}

func testEvidence() mining.Evidence {
	speciesMention := int64(11)
	return mining.Evidence{
		DocumentID:       1,
		ParagraphID:      2,
		SpeciesID:        4530,
		SpeciesMentionID: &speciesMention,
		GeneID:           7,
		GeneMentionID:    12,
		TraitID:          "TO:0000276",
		TraitMentionID:   13,
		TraitSurface:     "drought tolerance",
		Case:             mining.Case1A,
		Score:            2,
	}
}

func TestAddAssociationEvidenceRetriesRace(t *testing.T) {
	store, conn := newFakeStore()
	conn.tx.insertFailures = 2

	if err := store.AddAssociationEvidence(context.Background(), testEvidence()); err != nil {
		t.Fatalf("AddAssociationEvidence: %v", err)
	}
	if conn.tx.rollbacks != 2 {
		t.Errorf("rollbacks: got %d, want 2", conn.tx.rollbacks)
	}
	if conn.tx.commits != 1 {
		t.Errorf("commits: got %d, want 1", conn.tx.commits)
	}
	if len(conn.tx.associations) != 1 {
		t.Fatalf("associations: got %d, want 1", len(conn.tx.associations))
	}
	// The O. sativa species id is rewritten before the association is keyed.
	if _, ok := conn.tx.associations["39947|7|TO:0000276"]; !ok {
		t.Errorf("association keys: got %v", conn.tx.associations)
	}
	if len(conn.execs) != 1 {
		t.Errorf("evidence inserts: got %d, want 1", len(conn.execs))
	}
}

func TestAddAssociationEvidenceIdempotent(t *testing.T) {
	store, conn := newFakeStore()
	evidence := testEvidence()

	if err := store.AddAssociationEvidence(context.Background(), evidence); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := store.AddAssociationEvidence(context.Background(), evidence); err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(conn.tx.associations) != 1 {
		t.Errorf("associations: got %d, want 1", len(conn.tx.associations))
	}
	if len(conn.execs) != 2 {
		t.Fatalf("evidence inserts: got %d, want 2", len(conn.execs))
	}
	if conn.execs[0].args[0] != conn.execs[1].args[0] {
		t.Errorf("evidence rows point at different associations: %v, %v",
			conn.execs[0].args[0], conn.execs[1].args[0])
	}
}

func TestAddAssociationEvidenceGivesUp(t *testing.T) {
	store, conn := newFakeStore()
	conn.tx.insertFailures = associationRetries

	err := store.AddAssociationEvidence(context.Background(), testEvidence())
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if conn.tx.rollbacks != associationRetries {
		t.Errorf("rollbacks: got %d, want %d", conn.tx.rollbacks, associationRetries)
	}
	if conn.tx.commits != 0 {
		t.Errorf("commits: got %d, want 0", conn.tx.commits)
	}
	if len(conn.execs) != 0 {
		t.Errorf("evidence inserts: got %d, want 0", len(conn.execs))
	}
}

func TestParagraphIDUsesSanitizedText(t *testing.T) {
	store, conn := newFakeStore()
	conn.queryIDs = []int64{42}

	id, err := store.ParagraphID(context.Background(), 1, "title with a \x00 byte")
	if err != nil {
		t.Fatalf("ParagraphID: %v", err)
	}
	if id != 42 {
		t.Errorf("id: got %d, want 42", id)
	}
	if len(conn.queries) != 1 {
		t.Fatalf("queries: got %d, want 1", len(conn.queries))
	}
	if got := conn.queries[0].args[1]; got != "title with a  byte" {
		t.Errorf("lookup text: got %q, want the sanitized form", got)
	}
}
