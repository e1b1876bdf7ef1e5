// Package archive mirrors accepted samples into PostgreSQL for later
// analysis. It is strictly best-effort: the CSV file is the log of
// record, so archive failures are surfaced to the caller for counting
// but never abort the run.
package archive

import (
	"database/sql"
	"fmt"

	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"
)

type PostgresArchive struct {
	db    *sql.DB
	table string
}

func NewPostgresArchive(db *sql.DB, table string) *PostgresArchive {
	return &PostgresArchive{db: db, table: table}
}

func (a *PostgresArchive) Name() string { return "postgres" }

// Insert mirrors one accepted sample. The insert is idempotent on the
// timestamp so a replay after a partial failure cannot duplicate rows.
func (a *PostgresArchive) Insert(s domain.Sample) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (ts, internal_resistance_ohm, open_circuit_voltage_v) VALUES ($1,$2,$3) ON CONFLICT (ts) DO NOTHING",
		a.table,
	)
	_, err := a.db.Exec(q, s.Timestamp, s.InternalResistance, s.OpenCircuitVoltage)
	return err
}

func (a *PostgresArchive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
