package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/callreport-cli/internal/db"
	"github.com/sells-group/callreport-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a tuned connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS institutions (
	id          BIGINT PRIMARY KEY,
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
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS statements (
	entity_id           BIGINT NOT NULL REFERENCES institutions(id),
	period              DATE NOT NULL,
	document            JSONB NOT NULL,
	peer_analysis       JSONB,
	total_assets        DOUBLE PRECISION NOT NULL,
	total_loans         DOUBLE PRECISION NOT NULL,
	total_deposits      DOUBLE PRECISION NOT NULL,
	total_equity        DOUBLE PRECISION NOT NULL,
	net_income          DOUBLE PRECISION NOT NULL,
	net_interest_income DOUBLE PRECISION NOT NULL,
	noninterest_income  DOUBLE PRECISION NOT NULL,
	noninterest_expense DOUBLE PRECISION NOT NULL,
	roa                 DOUBLE PRECISION,
	roe                 DOUBLE PRECISION,
	nim                 DOUBLE PRECISION,
	efficiency_ratio    DOUBLE PRECISION,
	leverage_ratio      DOUBLE PRECISION,
	is_valid            BOOLEAN NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (entity_id, period)
);

CREATE TABLE IF NOT EXISTS import_runs (
	id           UUID PRIMARY KEY,
	period       DATE NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	counts       JSONB,
	error        TEXT,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_statements_period_assets ON statements(period, total_assets);
CREATE INDEX IF NOT EXISTS idx_import_runs_period ON import_runs(period);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

var institutionColumns = []string{
	"id", "name", "fdic_cert", "occ_charter", "aba_routing",
	"address", "city", "state", "zip", "website", "filing_type", "updated_at",
}

func (s *PostgresStore) UpsertInstitutions(ctx context.Context, insts []model.Institution) (int, error) {
	if len(insts) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(insts))
	for i, inst := range insts {
		ids[i] = inst.ID
	}

	// Count pre-existing rows so the bulk upsert can report creations.
	var existing int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM institutions WHERE id = ANY($1)`, ids,
	).Scan(&existing)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count existing institutions")
	}

	now := time.Now().UTC()
	rows := make([][]any, len(insts))
	for i, inst := range insts {
		rows[i] = []any{
			inst.ID, inst.Name, inst.FDICCert, inst.OCCCharter, inst.ABARouting,
			inst.Address, inst.City, inst.State, inst.ZIP, inst.Website, inst.FilingType, now,
		}
	}

	_, err = db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "institutions",
		Columns:      institutionColumns,
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, err
	}

	return len(insts) - existing, nil
}

func (s *PostgresStore) GetInstitution(ctx context.Context, id int64) (*model.Institution, error) {
	var inst model.Institution
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, fdic_cert, occ_charter, aba_routing, address, city, state, zip, website, filing_type, updated_at
		 FROM institutions WHERE id = $1`, id,
	).Scan(&inst.ID, &inst.Name, &inst.FDICCert, &inst.OCCCharter, &inst.ABARouting,
		&inst.Address, &inst.City, &inst.State, &inst.ZIP, &inst.Website, &inst.FilingType, &inst.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get institution %d", id)
	}
	return &inst, nil
}

func (s *PostgresStore) UpsertStatement(ctx context.Context, st *model.Statement) (bool, error) {
	doc, err := json.Marshal(st)
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal statement")
	}

	metrics := metricColumnValues(st)
	args := append([]any{st.EntityID, string(st.Period), doc}, metrics...)
	args = append(args, st.Validation.IsValid, time.Now().UTC())

	// xmax = 0 distinguishes a fresh insert from a conflict update.
	// Re-imports overwrite the statement and invalidate any previously
	// attached peer analysis.
	var inserted bool
	err = s.pool.QueryRow(ctx,
		`INSERT INTO statements (entity_id, period, document,
			total_assets, total_loans, total_deposits, total_equity,
			net_income, net_interest_income, noninterest_income, noninterest_expense,
			roa, roe, nim, efficiency_ratio, leverage_ratio,
			is_valid, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 ON CONFLICT (entity_id, period) DO UPDATE SET
			document = EXCLUDED.document,
			peer_analysis = NULL,
			total_assets = EXCLUDED.total_assets,
			total_loans = EXCLUDED.total_loans,
			total_deposits = EXCLUDED.total_deposits,
			total_equity = EXCLUDED.total_equity,
			net_income = EXCLUDED.net_income,
			net_interest_income = EXCLUDED.net_interest_income,
			noninterest_income = EXCLUDED.noninterest_income,
			noninterest_expense = EXCLUDED.noninterest_expense,
			roa = EXCLUDED.roa,
			roe = EXCLUDED.roe,
			nim = EXCLUDED.nim,
			efficiency_ratio = EXCLUDED.efficiency_ratio,
			leverage_ratio = EXCLUDED.leverage_ratio,
			is_valid = EXCLUDED.is_valid,
			updated_at = EXCLUDED.updated_at
		 RETURNING (xmax = 0)`,
		args...,
	).Scan(&inserted)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: upsert statement %d/%s", st.EntityID, st.Period)
	}
	return inserted, nil
}

func (s *PostgresStore) GetStatement(ctx context.Context, entityID int64, period model.Period) (*model.Statement, error) {
	var doc []byte
	var paJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document, peer_analysis FROM statements WHERE entity_id = $1 AND period = $2`,
		entityID, string(period),
	).Scan(&doc, &paJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get statement %d/%s", entityID, period)
	}

	var st model.Statement
	if err := json.Unmarshal(doc, &st); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal statement")
	}
	if paJSON != nil {
		st.PeerAnalysis = &model.PeerAnalysis{}
		if err := json.Unmarshal(paJSON, st.PeerAnalysis); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal peer analysis")
		}
	}
	return &st, nil
}

func (s *PostgresStore) UpdatePeerAnalysis(ctx context.Context, entityID int64, period model.Period, pa *model.PeerAnalysis) error {
	paJSON, err := json.Marshal(pa)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal peer analysis")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE statements SET peer_analysis = $1, updated_at = $2 WHERE entity_id = $3 AND period = $4`,
		paJSON, time.Now().UTC(), entityID, string(period),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update peer analysis %d/%s", entityID, period)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: statement not found: %d/%s", entityID, period)
	}
	return nil
}

func (s *PostgresStore) ListPeriods(ctx context.Context) ([]model.Period, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT period::text FROM statements ORDER BY 1`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list periods")
	}
	defer rows.Close()

	var periods []model.Period
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "postgres: scan period")
		}
		periods = append(periods, model.Period(p))
	}
	return periods, eris.Wrap(rows.Err(), "postgres: iterate periods")
}

func (s *PostgresStore) StatementRefs(ctx context.Context, period model.Period, topN int) ([]StatementRef, error) {
	query := `SELECT entity_id, total_assets FROM statements WHERE period = $1 ORDER BY total_assets DESC, entity_id ASC`
	args := []any{string(period)}
	if topN > 0 {
		query += ` LIMIT $2`
		args = append(args, topN)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: statement refs %s", period)
	}
	defer rows.Close()

	var refs []StatementRef
	for rows.Next() {
		var r StatementRef
		if err := rows.Scan(&r.EntityID, &r.TotalAssets); err != nil {
			return nil, eris.Wrap(err, "postgres: scan statement ref")
		}
		refs = append(refs, r)
	}
	return refs, eris.Wrap(rows.Err(), "postgres: iterate statement refs")
}

func (s *PostgresStore) AssetNeighbors(ctx context.Context, period model.Period, entityID int64, totalAssets float64, n int) ([]int64, []int64, error) {
	larger, err := s.neighborIDs(ctx,
		`SELECT entity_id FROM statements
		 WHERE period = $1 AND entity_id <> $2 AND total_assets > $3
		 ORDER BY total_assets ASC, entity_id ASC LIMIT $4`,
		string(period), entityID, totalAssets, n)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: larger peers for %d/%s", entityID, period)
	}

	smaller, err := s.neighborIDs(ctx,
		`SELECT entity_id FROM statements
		 WHERE period = $1 AND entity_id <> $2 AND total_assets < $3
		 ORDER BY total_assets DESC, entity_id ASC LIMIT $4`,
		string(period), entityID, totalAssets, n)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: smaller peers for %d/%s", entityID, period)
	}

	return larger, smaller, nil
}

func (s *PostgresStore) neighborIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

func (s *PostgresStore) MetricValues(ctx context.Context, period model.Period, metric model.Metric, onlyIDs []int64) ([]MetricValue, error) {
	col, ok := MetricColumn(metric)
	if !ok {
		return nil, eris.Errorf("postgres: unknown metric %q", metric)
	}

	query := fmt.Sprintf(
		`SELECT entity_id, %s FROM statements WHERE period = $1 AND %s IS NOT NULL`,
		pgx.Identifier{col}.Sanitize(), pgx.Identifier{col}.Sanitize())
	args := []any{string(period)}

	if len(onlyIDs) > 0 {
		query += ` AND entity_id = ANY($2)`
		args = append(args, onlyIDs)
	}
	query += ` ORDER BY entity_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: metric values %s/%s", metric, period)
	}
	defer rows.Close()

	var vals []MetricValue
	for rows.Next() {
		var v MetricValue
		if err := rows.Scan(&v.EntityID, &v.Value); err != nil {
			return nil, eris.Wrap(err, "postgres: scan metric value")
		}
		vals = append(vals, v)
	}
	return vals, eris.Wrap(rows.Err(), "postgres: iterate metric values")
}

func (s *PostgresStore) StartImportRun(ctx context.Context, period model.Period) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO import_runs (id, period, status, started_at) VALUES ($1, $2, 'running', $3)`,
		id, string(period), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: start import run for %s", period)
	}
	return id, nil
}

func (s *PostgresStore) CompleteImportRun(ctx context.Context, runID string, counts ImportCounts) error {
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal import counts")
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE import_runs SET status = 'complete', counts = $1, completed_at = $2 WHERE id = $3`,
		countsJSON, time.Now().UTC(), runID,
	)
	return eris.Wrapf(err, "postgres: complete import run %s", runID)
}

func (s *PostgresStore) FailImportRun(ctx context.Context, runID string, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE import_runs SET status = 'failed', error = $1, completed_at = $2 WHERE id = $3`,
		errMsg, time.Now().UTC(), runID,
	)
	return eris.Wrapf(err, "postgres: fail import run %s", runID)
}
