package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/callreport-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS institutions (
	id          INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	fdic_cert   TEXT,
	occ_charter TEXT,
	aba_routing TEXT,
	address     TEXT,
	city        TEXT,
	state       TEXT,
	zip         TEXT,
	website     TEXT,
	filing_type TEXT,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS statements (
	entity_id           INTEGER NOT NULL REFERENCES institutions(id),
	period              TEXT NOT NULL,
	document            TEXT NOT NULL,
	peer_analysis       TEXT,
	total_assets        REAL NOT NULL,
	total_loans         REAL NOT NULL,
	total_deposits      REAL NOT NULL,
	total_equity        REAL NOT NULL,
	net_income          REAL NOT NULL,
	net_interest_income REAL NOT NULL,
	noninterest_income  REAL NOT NULL,
	noninterest_expense REAL NOT NULL,
	roa                 REAL,
	roe                 REAL,
	nim                 REAL,
	efficiency_ratio    REAL,
	leverage_ratio      REAL,
	is_valid            INTEGER NOT NULL,
	updated_at          DATETIME NOT NULL,
	PRIMARY KEY (entity_id, period)
);

CREATE TABLE IF NOT EXISTS import_runs (
	id           TEXT PRIMARY KEY,
	period       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	counts       TEXT,
	error        TEXT,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_statements_period_assets ON statements(period, total_assets);
CREATE INDEX IF NOT EXISTS idx_import_runs_period ON import_runs(period);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertInstitutions(ctx context.Context, insts []model.Institution) (int, error) {
	if len(insts) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin institutions tx")
	}
	defer tx.Rollback() //nolint:errcheck

	created := 0
	now := time.Now().UTC()
	for _, inst := range insts {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM institutions WHERE id = ?)`, inst.ID,
		).Scan(&exists); err != nil {
			return 0, eris.Wrapf(err, "sqlite: check institution %d", inst.ID)
		}
		if !exists {
			created++
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO institutions (id, name, fdic_cert, occ_charter, aba_routing, address, city, state, zip, website, filing_type, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				fdic_cert = excluded.fdic_cert,
				occ_charter = excluded.occ_charter,
				aba_routing = excluded.aba_routing,
				address = excluded.address,
				city = excluded.city,
				state = excluded.state,
				zip = excluded.zip,
				website = excluded.website,
				filing_type = excluded.filing_type,
				updated_at = excluded.updated_at`,
			inst.ID, inst.Name, inst.FDICCert, inst.OCCCharter, inst.ABARouting,
			inst.Address, inst.City, inst.State, inst.ZIP, inst.Website, inst.FilingType, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert institution %d", inst.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit institutions")
	}
	return created, nil
}

func (s *SQLiteStore) GetInstitution(ctx context.Context, id int64) (*model.Institution, error) {
	var inst model.Institution
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, fdic_cert, occ_charter, aba_routing, address, city, state, zip, website, filing_type, updated_at
		 FROM institutions WHERE id = ?`, id,
	).Scan(&inst.ID, &inst.Name, &inst.FDICCert, &inst.OCCCharter, &inst.ABARouting,
		&inst.Address, &inst.City, &inst.State, &inst.ZIP, &inst.Website, &inst.FilingType, &inst.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get institution %d", id)
	}
	return &inst, nil
}

func (s *SQLiteStore) UpsertStatement(ctx context.Context, st *model.Statement) (bool, error) {
	doc, err := json.Marshal(st)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal statement")
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM statements WHERE entity_id = ? AND period = ?)`,
		st.EntityID, string(st.Period),
	).Scan(&exists); err != nil {
		return false, eris.Wrapf(err, "sqlite: check statement %d/%s", st.EntityID, st.Period)
	}

	metrics := metricColumnValues(st)
	args := append([]any{st.EntityID, string(st.Period), string(doc)}, metrics...)
	args = append(args, st.Validation.IsValid, time.Now().UTC())

	// Re-imports overwrite the statement and invalidate any previously
	// attached peer analysis.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO statements (entity_id, period, document,
			total_assets, total_loans, total_deposits, total_equity,
			net_income, net_interest_income, noninterest_income, noninterest_expense,
			roa, roe, nim, efficiency_ratio, leverage_ratio,
			is_valid, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(entity_id, period) DO UPDATE SET
			document = excluded.document,
			peer_analysis = NULL,
			total_assets = excluded.total_assets,
			total_loans = excluded.total_loans,
			total_deposits = excluded.total_deposits,
			total_equity = excluded.total_equity,
			net_income = excluded.net_income,
			net_interest_income = excluded.net_interest_income,
			noninterest_income = excluded.noninterest_income,
			noninterest_expense = excluded.noninterest_expense,
			roa = excluded.roa,
			roe = excluded.roe,
			nim = excluded.nim,
			efficiency_ratio = excluded.efficiency_ratio,
			leverage_ratio = excluded.leverage_ratio,
			is_valid = excluded.is_valid,
			updated_at = excluded.updated_at`,
		args...,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: upsert statement %d/%s", st.EntityID, st.Period)
	}
	return !exists, nil
}

func (s *SQLiteStore) GetStatement(ctx context.Context, entityID int64, period model.Period) (*model.Statement, error) {
	var doc string
	var paJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT document, peer_analysis FROM statements WHERE entity_id = ? AND period = ?`,
		entityID, string(period),
	).Scan(&doc, &paJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get statement %d/%s", entityID, period)
	}

	var st model.Statement
	if err := json.Unmarshal([]byte(doc), &st); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal statement")
	}
	if paJSON.Valid {
		st.PeerAnalysis = &model.PeerAnalysis{}
		if err := json.Unmarshal([]byte(paJSON.String), st.PeerAnalysis); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal peer analysis")
		}
	}
	return &st, nil
}

func (s *SQLiteStore) UpdatePeerAnalysis(ctx context.Context, entityID int64, period model.Period, pa *model.PeerAnalysis) error {
	paJSON, err := json.Marshal(pa)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal peer analysis")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE statements SET peer_analysis = ?, updated_at = ? WHERE entity_id = ? AND period = ?`,
		string(paJSON), time.Now().UTC(), entityID, string(period),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update peer analysis %d/%s", entityID, period)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: statement not found: %d/%s", entityID, period)
	}
	return nil
}

func (s *SQLiteStore) ListPeriods(ctx context.Context) ([]model.Period, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT period FROM statements ORDER BY period`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list periods")
	}
	defer rows.Close() //nolint:errcheck

	var periods []model.Period
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan period")
		}
		periods = append(periods, model.Period(p))
	}
	return periods, eris.Wrap(rows.Err(), "sqlite: iterate periods")
}

func (s *SQLiteStore) StatementRefs(ctx context.Context, period model.Period, topN int) ([]StatementRef, error) {
	query := `SELECT entity_id, total_assets FROM statements WHERE period = ? ORDER BY total_assets DESC, entity_id ASC`
	args := []any{string(period)}
	if topN > 0 {
		query += ` LIMIT ?`
		args = append(args, topN)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: statement refs %s", period)
	}
	defer rows.Close() //nolint:errcheck

	var refs []StatementRef
	for rows.Next() {
		var r StatementRef
		if err := rows.Scan(&r.EntityID, &r.TotalAssets); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan statement ref")
		}
		refs = append(refs, r)
	}
	return refs, eris.Wrap(rows.Err(), "sqlite: iterate statement refs")
}

func (s *SQLiteStore) AssetNeighbors(ctx context.Context, period model.Period, entityID int64, totalAssets float64, n int) ([]int64, []int64, error) {
	larger, err := s.neighborIDs(ctx,
		`SELECT entity_id FROM statements
		 WHERE period = ? AND entity_id <> ? AND total_assets > ?
		 ORDER BY total_assets ASC, entity_id ASC LIMIT ?`,
		string(period), entityID, totalAssets, n)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "sqlite: larger peers for %d/%s", entityID, period)
	}

	smaller, err := s.neighborIDs(ctx,
		`SELECT entity_id FROM statements
		 WHERE period = ? AND entity_id <> ? AND total_assets < ?
		 ORDER BY total_assets DESC, entity_id ASC LIMIT ?`,
		string(period), entityID, totalAssets, n)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "sqlite: smaller peers for %d/%s", entityID, period)
	}

	return larger, smaller, nil
}

func (s *SQLiteStore) neighborIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) MetricValues(ctx context.Context, period model.Period, metric model.Metric, onlyIDs []int64) ([]MetricValue, error) {
	col, ok := MetricColumn(metric)
	if !ok {
		return nil, eris.Errorf("sqlite: unknown metric %q", metric)
	}

	query := fmt.Sprintf(
		`SELECT entity_id, %s FROM statements WHERE period = ? AND %s IS NOT NULL`, col, col)
	args := []any{string(period)}

	if len(onlyIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(onlyIDs)), ",")
		query += ` AND entity_id IN (` + placeholders + `)`
		for _, id := range onlyIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY entity_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: metric values %s/%s", metric, period)
	}
	defer rows.Close() //nolint:errcheck

	var vals []MetricValue
	for rows.Next() {
		var v MetricValue
		if err := rows.Scan(&v.EntityID, &v.Value); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan metric value")
		}
		vals = append(vals, v)
	}
	return vals, eris.Wrap(rows.Err(), "sqlite: iterate metric values")
}

func (s *SQLiteStore) StartImportRun(ctx context.Context, period model.Period) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_runs (id, period, status, started_at) VALUES (?, ?, 'running', ?)`,
		id, string(period), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: start import run for %s", period)
	}
	return id, nil
}

func (s *SQLiteStore) CompleteImportRun(ctx context.Context, runID string, counts ImportCounts) error {
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal import counts")
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE import_runs SET status = 'complete', counts = ?, completed_at = ? WHERE id = ?`,
		string(countsJSON), time.Now().UTC(), runID,
	)
	return eris.Wrapf(err, "sqlite: complete import run %s", runID)
}

func (s *SQLiteStore) FailImportRun(ctx context.Context, runID string, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE import_runs SET status = 'failed', error = ?, completed_at = ? WHERE id = ?`,
		errMsg, time.Now().UTC(), runID,
	)
	return eris.Wrapf(err, "sqlite: fail import run %s", runID)
}
