// Package postgres implements the store interface for PostgreSQL.
package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" //nolint:gci // load the postgres driver that is used by the system

	"github.com/tarancss/balcheck/lib/store"
)

const schema = `CREATE TABLE IF NOT EXISTS decisions (
	id       TEXT PRIMARY KEY,
	chain_id BIGINT NOT NULL,
	contract TEXT NOT NULL DEFAULT '',
	minimum  TEXT NOT NULL,
	decimals INTEGER NOT NULL,
	wallets  INTEGER NOT NULL,
	valid    BOOLEAN NOT NULL,
	reason   TEXT NOT NULL,
	ts       TIMESTAMPTZ NOT NULL
)`

type Postgres struct {
	db *sql.DB
}

// New returns a postgres client connection to the specified database in 'connection' and creates the decisions
// table if missing.
func New(connection string) (*Postgres, error) {
	db, err := sql.Open("postgres", connection)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to DB in %s: %w", connection, err)
	}

	if _, err = db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("cannot create decisions table: %w", err)
	}

	return &Postgres{db: db}, nil
}

// ClosePostgres will close any database connection. Must be called at termination time.
func (p *Postgres) ClosePostgres() error {
	return p.db.Close()
}

// SaveDecision inserts a decision, or replaces the one with the same id.
func (p *Postgres) SaveDecision(d store.Decision) error {
	if d.ID == "" {
		return store.ErrNoID
	}

	_, err := p.db.Exec(`INSERT INTO decisions (id, chain_id, contract, minimum, decimals, wallets, valid, reason, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET chain_id = $2, contract = $3, minimum = $4, decimals = $5, wallets = $6,
		valid = $7, reason = $8, ts = $9`,
		d.ID, d.ChainID, d.Contract, d.Minimum, d.Decimals, d.Wallets, d.Valid, d.Reason, d.TS)
	if err != nil {
		return fmt.Errorf("could not save decision in db: %w", err)
	}

	return nil
}

// GetDecisions returns the latest decisions for chainID, or all chains if chainID is 0.
func (p *Postgres) GetDecisions(chainID int64, limit int) ([]store.Decision, error) {
	q := `SELECT id, chain_id, contract, minimum, decimals, wallets, valid, reason, ts FROM decisions
		WHERE ($1 = 0 OR chain_id = $1) ORDER BY ts DESC`

	args := []interface{}{chainID}
	if limit > 0 {
		q += " LIMIT $2"

		args = append(args, limit)
	}

	rows, err := p.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying decisions: %w", err)
	}
	defer rows.Close()

	ds := []store.Decision{}

	for rows.Next() {
		var d store.Decision
		if err = rows.Scan(&d.ID, &d.ChainID, &d.Contract, &d.Minimum, &d.Decimals, &d.Wallets, &d.Valid, &d.Reason,
			&d.TS); err != nil {
			return nil, fmt.Errorf("error reading decision: %w", err)
		}

		ds = append(ds, d)
	}

	return ds, rows.Err()
}

// DeleteDecisions deletes the decisions of chainID.
func (p *Postgres) DeleteDecisions(chainID int64) (err error) {
	_, err = p.db.Exec(`DELETE FROM decisions WHERE chain_id = $1`, chainID)

	return
}
