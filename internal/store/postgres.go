package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-intel/internal/db"
	"github.com/sells-group/market-intel/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
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
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sectors (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS subcategories (
	id          TEXT PRIMARY KEY,
	sector_id   TEXT NOT NULL REFERENCES sectors(id),
	name        TEXT NOT NULL,
	description TEXT,
	UNIQUE(sector_id, name)
);

CREATE TABLE IF NOT EXISTS dimensions (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	unit        TEXT,
	description TEXT
);

CREATE TABLE IF NOT EXISTS sources (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	url               TEXT,
	source_type       TEXT NOT NULL DEFAULT 'news',
	reliability_score DOUBLE PRECISION NOT NULL DEFAULT 0.5,
	last_accessed     TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS data_points (
	id                TEXT PRIMARY KEY,
	sector_id         TEXT REFERENCES sectors(id),
	subcategory_id    TEXT REFERENCES subcategories(id),
	dimension_id      TEXT NOT NULL REFERENCES dimensions(id),
	value_numeric     DOUBLE PRECISION,
	value_text        TEXT,
	value_structured  JSONB,
	year              INTEGER,
	quarter           INTEGER,
	month             INTEGER,
	source_id         TEXT REFERENCES sources(id),
	confidence        TEXT NOT NULL DEFAULT 'medium',
	validation_status TEXT NOT NULL DEFAULT 'pending',
	validated_by      TEXT,
	validated_at      TIMESTAMPTZ,
	notes             TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS changes_log (
	id            TEXT PRIMARY KEY,
	table_name    TEXT NOT NULL,
	record_id     TEXT NOT NULL,
	change_type   TEXT NOT NULL,
	old_value     JSONB,
	new_value     JSONB,
	changed_by    TEXT NOT NULL,
	change_reason TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS detected_changes (
	id             TEXT PRIMARY KEY,
	data_point_id  TEXT,
	sector         TEXT NOT NULL,
	dimension      TEXT NOT NULL,
	old_value      DOUBLE PRECISION,
	new_value      DOUBLE PRECISION,
	percent_change DOUBLE PRECISION,
	change_type    TEXT NOT NULL,
	significance   TEXT NOT NULL,
	period         TEXT NOT NULL,
	detected_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_data_points_sector ON data_points(sector_id);
CREATE INDEX IF NOT EXISTS idx_data_points_dimension ON data_points(dimension_id);
CREATE INDEX IF NOT EXISTS idx_data_points_year ON data_points(year);
CREATE INDEX IF NOT EXISTS idx_data_points_validation ON data_points(validation_status);
CREATE INDEX IF NOT EXISTS idx_changes_log_table ON changes_log(table_name, record_id);
CREATE INDEX IF NOT EXISTS idx_detected_changes_period ON detected_changes(period);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// ==================== taxonomy ====================

func (s *PostgresStore) SeedTaxonomy(ctx context.Context, tax Taxonomy) (*SeedResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin seed")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var result SeedResult
	for _, sec := range tax.Sectors {
		tag, err := tx.Exec(ctx,
			`INSERT INTO sectors (id, name, description) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
			uuid.New().String(), sec.Name, sec.Description,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: seed sector %s", sec.Name)
		}
		if tag.RowsAffected() > 0 {
			result.SectorsCreated++
		}

		var sectorID string
		if err := tx.QueryRow(ctx, `SELECT id FROM sectors WHERE name = $1`, sec.Name).Scan(&sectorID); err != nil {
			return nil, eris.Wrapf(err, "postgres: resolve seeded sector %s", sec.Name)
		}

		for _, sub := range sec.Subcategories {
			tag, err := tx.Exec(ctx,
				`INSERT INTO subcategories (id, sector_id, name) VALUES ($1, $2, $3) ON CONFLICT (sector_id, name) DO NOTHING`,
				uuid.New().String(), sectorID, sub,
			)
			if err != nil {
				return nil, eris.Wrapf(err, "postgres: seed subcategory %s", sub)
			}
			if tag.RowsAffected() > 0 {
				result.SubcategoriesCreated++
			}
		}
	}

	for _, dim := range tax.Dimensions {
		tag, err := tx.Exec(ctx,
			`INSERT INTO dimensions (id, name, unit, description) VALUES ($1, $2, $3, $4) ON CONFLICT (name) DO NOTHING`,
			uuid.New().String(), dim.Name, dim.Unit, dim.Description,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: seed dimension %s", dim.Name)
		}
		if tag.RowsAffected() > 0 {
			result.DimensionsCreated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit seed")
	}
	return &result, nil
}

func (s *PostgresStore) ListSectors(ctx context.Context) ([]model.Sector, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at, updated_at FROM sectors ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sectors")
	}
	defer rows.Close()

	var sectors []model.Sector
	for rows.Next() {
		var sec model.Sector
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.Description, &sec.CreatedAt, &sec.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sector")
		}
		sectors = append(sectors, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list sectors iterate")
	}

	for i := range sectors {
		subs, err := s.listSubcategories(ctx, sectors[i].ID)
		if err != nil {
			return nil, err
		}
		sectors[i].Subcategories = subs
	}
	return sectors, nil
}

func (s *PostgresStore) listSubcategories(ctx context.Context, sectorID string) ([]model.Subcategory, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, sector_id, name, COALESCE(description, '') FROM subcategories WHERE sector_id = $1 ORDER BY name`,
		sectorID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list subcategories")
	}
	defer rows.Close()

	var subs []model.Subcategory
	for rows.Next() {
		var sub model.Subcategory
		if err := rows.Scan(&sub.ID, &sub.SectorID, &sub.Name, &sub.Description); err != nil {
			return nil, eris.Wrap(err, "postgres: scan subcategory")
		}
		subs = append(subs, sub)
	}
	return subs, eris.Wrap(rows.Err(), "postgres: list subcategories iterate")
}

func (s *PostgresStore) GetSectorByName(ctx context.Context, name string) (*model.Sector, error) {
	var sec model.Sector
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at, updated_at FROM sectors WHERE name = $1`,
		name,
	).Scan(&sec.ID, &sec.Name, &sec.Description, &sec.CreatedAt, &sec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get sector %s", name)
	}
	subs, err := s.listSubcategories(ctx, sec.ID)
	if err != nil {
		return nil, err
	}
	sec.Subcategories = subs
	return &sec, nil
}

func (s *PostgresStore) ListDimensions(ctx context.Context) ([]model.Dimension, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, COALESCE(unit, ''), COALESCE(description, '') FROM dimensions ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list dimensions")
	}
	defer rows.Close()

	var dims []model.Dimension
	for rows.Next() {
		var dim model.Dimension
		if err := rows.Scan(&dim.ID, &dim.Name, &dim.Unit, &dim.Description); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dimension")
		}
		dims = append(dims, dim)
	}
	return dims, eris.Wrap(rows.Err(), "postgres: list dimensions iterate")
}

func (s *PostgresStore) GetDimensionByName(ctx context.Context, name string) (*model.Dimension, error) {
	var dim model.Dimension
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(unit, ''), COALESCE(description, '') FROM dimensions WHERE name = $1`,
		name,
	).Scan(&dim.ID, &dim.Name, &dim.Unit, &dim.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get dimension %s", name)
	}
	return &dim, nil
}

// ==================== sources ====================

func (s *PostgresStore) AddSource(ctx context.Context, src model.Source) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	srcType := src.Type
	if srcType == "" {
		srcType = model.SourceNews
	}
	score := src.ReliabilityScore
	if score < 0 || score > 1 {
		return "", eris.Errorf("postgres: reliability score %v out of [0,1]", score)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sources (id, name, url, source_type, reliability_score, last_accessed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, src.Name, nullString(src.URL), string(srcType), score, now, now,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: insert source %s", src.Name)
	}
	return id, nil
}

func (s *PostgresStore) GetOrCreateSource(ctx context.Context, src model.Source) (string, error) {
	if src.URL != "" {
		var id string
		err := s.pool.QueryRow(ctx, `SELECT id FROM sources WHERE url = $1`, src.URL).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", eris.Wrapf(err, "postgres: lookup source by url %s", src.URL)
		}
	}
	return s.AddSource(ctx, src)
}

// ==================== data points ====================

func (s *PostgresStore) AddDataPoint(ctx context.Context, in AddDataPointInput) (string, error) {
	if in.Dimension == "" {
		return "", eris.New("postgres: dimension name required")
	}
	if err := in.Value.Validate(); err != nil {
		return "", err
	}
	if in.Quarter < 0 || in.Quarter > 4 {
		return "", eris.Errorf("postgres: quarter %d out of range", in.Quarter)
	}
	if in.Month < 0 || in.Month > 12 {
		return "", eris.Errorf("postgres: month %d out of range", in.Month)
	}
	confidence := in.Confidence
	if confidence == "" {
		confidence = model.ConfidenceMedium
	}
	if !confidence.Valid() {
		return "", eris.Errorf("postgres: unknown confidence %q", confidence)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", eris.Wrap(err, "postgres: begin add data point")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var dimensionID string
	err = tx.QueryRow(ctx, `SELECT id FROM dimensions WHERE name = $1`, in.Dimension).Scan(&dimensionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", eris.Errorf("unknown dimension: %s", in.Dimension)
	}
	if err != nil {
		return "", eris.Wrapf(err, "postgres: resolve dimension %s", in.Dimension)
	}

	var sectorID, subcategoryID *string
	if in.Sector != "" {
		var id string
		err = tx.QueryRow(ctx, `SELECT id FROM sectors WHERE name = $1`, in.Sector).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return "", eris.Errorf("unknown sector: %s", in.Sector)
		}
		if err != nil {
			return "", eris.Wrapf(err, "postgres: resolve sector %s", in.Sector)
		}
		sectorID = &id

		if in.Subcategory != "" {
			var subID string
			err = tx.QueryRow(ctx,
				`SELECT id FROM subcategories WHERE sector_id = $1 AND name = $2`,
				id, in.Subcategory,
			).Scan(&subID)
			if errors.Is(err, pgx.ErrNoRows) {
				return "", eris.Errorf("unknown subcategory: %s/%s", in.Sector, in.Subcategory)
			}
			if err != nil {
				return "", eris.Wrapf(err, "postgres: resolve subcategory %s", in.Subcategory)
			}
			subcategoryID = &subID
		}
	} else if in.Subcategory != "" {
		return "", eris.Errorf("subcategory %s given without a sector", in.Subcategory)
	}

	var valueNumeric *float64
	var valueText, valueStructured *string
	switch in.Value.Kind {
	case model.ValueNumber:
		n := in.Value.Number
		valueNumeric = &n
	case model.ValueStructured:
		blob, err := in.Value.MarshalStructured()
		if err != nil {
			return "", err
		}
		valueStructured = &blob
	case model.ValueText:
		t := in.Value.Text
		valueText = &t
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	_, err = tx.Exec(ctx,
		`INSERT INTO data_points
		 (id, sector_id, subcategory_id, dimension_id, value_numeric, value_text, value_structured,
		  year, quarter, month, source_id, confidence, validation_status, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		id, sectorID, subcategoryID, dimensionID, valueNumeric, valueText, valueStructured,
		intPtr(in.Year), intPtr(in.Quarter), intPtr(in.Month), strPtr(in.SourceID),
		string(confidence), string(model.StatusPending), strPtr(in.Notes), now, now,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert data point")
	}

	snapshot, err := json.Marshal(map[string]any{
		"id":                id,
		"dimension":         in.Dimension,
		"sector":            in.Sector,
		"subcategory":       in.Subcategory,
		"value":             in.Value,
		"year":              in.Year,
		"quarter":           in.Quarter,
		"month":             in.Month,
		"confidence":        confidence,
		"validation_status": model.StatusPending,
	})
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal insert snapshot")
	}
	if err := s.logChangeTx(ctx, tx, model.ChangeLogEntry{
		TableName:  "data_points",
		RecordID:   id,
		ChangeType: model.ChangeInsert,
		NewValue:   snapshot,
		ChangedBy:  actorOrSystem(in.Actor),
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", eris.Wrap(err, "postgres: commit add data point")
	}
	return id, nil
}

const pgDataPointSelect = `
	SELECT dp.id,
	       COALESCE(dp.sector_id, ''), COALESCE(s.name, ''),
	       COALESCE(dp.subcategory_id, ''), COALESCE(sc.name, ''),
	       dp.dimension_id, COALESCE(d.name, ''), COALESCE(d.unit, ''),
	       dp.value_numeric, dp.value_text, dp.value_structured::text,
	       COALESCE(dp.year, 0), COALESCE(dp.quarter, 0), COALESCE(dp.month, 0),
	       COALESCE(dp.source_id, ''), COALESCE(src.name, ''), COALESCE(src.url, ''),
	       dp.confidence, dp.validation_status,
	       COALESCE(dp.validated_by, ''), dp.validated_at, COALESCE(dp.notes, ''),
	       dp.created_at, dp.updated_at
	FROM data_points dp
	LEFT JOIN sectors s ON dp.sector_id = s.id
	LEFT JOIN subcategories sc ON dp.subcategory_id = sc.id
	LEFT JOIN dimensions d ON dp.dimension_id = d.id
	LEFT JOIN sources src ON dp.source_id = src.id
`

func (s *PostgresStore) GetDataPoints(ctx context.Context, filter DataPointFilter) ([]model.DataPoint, error) {
	query := pgDataPointSelect + ` WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.Sector != "" {
		query += ` AND s.name = ` + arg(filter.Sector)
	}
	if filter.Dimension != "" {
		query += ` AND d.name = ` + arg(filter.Dimension)
	}
	if filter.Year != 0 {
		query += ` AND dp.year = ` + arg(filter.Year)
	}
	if filter.Status != "" {
		query += ` AND dp.validation_status = ` + arg(string(filter.Status))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` ORDER BY dp.created_at DESC, dp.id DESC LIMIT ` + arg(limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get data points")
	}
	defer rows.Close()

	var points []model.DataPoint
	for rows.Next() {
		dp, err := scanPgDataPoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, *dp)
	}
	return points, eris.Wrap(rows.Err(), "postgres: get data points iterate")
}

func (s *PostgresStore) GetDataPoint(ctx context.Context, id string) (*model.DataPoint, error) {
	row := s.pool.QueryRow(ctx, pgDataPointSelect+` WHERE dp.id = $1`, id)
	dp, err := scanPgDataPoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return dp, err
}

func (s *PostgresStore) UpdateValidation(ctx context.Context, in UpdateValidationInput) (bool, error) {
	if !in.Status.Valid() {
		return false, eris.Errorf("postgres: unknown validation status %q", in.Status)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, eris.Wrap(err, "postgres: begin update validation")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var oldStatus string
	err = tx.QueryRow(ctx,
		`SELECT validation_status FROM data_points WHERE id = $1`, in.ID,
	).Scan(&oldStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: read data point %s", in.ID)
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`UPDATE data_points
		 SET validation_status = $1, validated_by = $2, validated_at = $3,
		     notes = COALESCE(NULLIF($4, ''), notes), updated_at = $5
		 WHERE id = $6`,
		string(in.Status), in.ValidatedBy, now, in.Notes, now, in.ID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: update validation %s", in.ID)
	}

	oldSnap, _ := json.Marshal(map[string]any{"validation_status": oldStatus})
	newSnap, _ := json.Marshal(map[string]any{
		"validation_status": in.Status,
		"validated_by":      in.ValidatedBy,
	})
	if err := s.logChangeTx(ctx, tx, model.ChangeLogEntry{
		TableName:    "data_points",
		RecordID:     in.ID,
		ChangeType:   model.ChangeUpdate,
		OldValue:     oldSnap,
		NewValue:     newSnap,
		ChangedBy:    actorOrSystem(in.ValidatedBy),
		ChangeReason: in.Reason,
	}); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, eris.Wrap(err, "postgres: commit update validation")
	}
	return true, nil
}

// ==================== audit log ====================

func (s *PostgresStore) logChangeTx(ctx context.Context, tx pgx.Tx, entry model.ChangeLogEntry) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO changes_log (id, table_name, record_id, change_type, old_value, new_value, changed_by, change_reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New().String(), entry.TableName, entry.RecordID, string(entry.ChangeType),
		rawPtr(entry.OldValue), rawPtr(entry.NewValue),
		actorOrSystem(entry.ChangedBy), strPtr(entry.ChangeReason), time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: insert change log entry")
}

func (s *PostgresStore) RecordChange(ctx context.Context, entry model.ChangeLogEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO changes_log (id, table_name, record_id, change_type, old_value, new_value, changed_by, change_reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New().String(), entry.TableName, entry.RecordID, string(entry.ChangeType),
		rawPtr(entry.OldValue), rawPtr(entry.NewValue),
		actorOrSystem(entry.ChangedBy), strPtr(entry.ChangeReason), time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: insert change log entry")
}

func (s *PostgresStore) GetChanges(ctx context.Context, filter ChangeFilter) ([]model.ChangeLogEntry, error) {
	query := `SELECT id, table_name, record_id, change_type, old_value::text, new_value::text, changed_by, COALESCE(change_reason, ''), created_at
	          FROM changes_log WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.Table != "" {
		query += ` AND table_name = ` + arg(filter.Table)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ` + arg(filter.Since.UTC())
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ` + arg(limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get changes")
	}
	defer rows.Close()

	var entries []model.ChangeLogEntry
	for rows.Next() {
		var e model.ChangeLogEntry
		var oldVal, newVal *string
		if err := rows.Scan(&e.ID, &e.TableName, &e.RecordID, &e.ChangeType,
			&oldVal, &newVal, &e.ChangedBy, &e.ChangeReason, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan change log entry")
		}
		if oldVal != nil {
			e.OldValue = json.RawMessage(*oldVal)
		}
		if newVal != nil {
			e.NewValue = json.RawMessage(*newVal)
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: get changes iterate")
}

// ==================== detected changes ====================

func (s *PostgresStore) SaveDetectedChanges(ctx context.Context, changes []model.Change) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save detected changes")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, c := range changes {
		_, err := tx.Exec(ctx,
			`INSERT INTO detected_changes
			 (id, data_point_id, sector, dimension, old_value, new_value, percent_change, change_type, significance, period, detected_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			uuid.New().String(), strPtr(c.DataPointID), c.Sector, c.Dimension,
			c.OldValue, c.NewValue, c.PercentChange,
			string(c.Kind), string(c.Significance), c.Period, c.DetectedAt.UTC(),
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert detected change")
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit save detected changes")
}

func (s *PostgresStore) ListDetectedChanges(ctx context.Context, limit int) ([]model.Change, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT COALESCE(data_point_id, ''), sector, dimension, old_value, new_value, percent_change, change_type, significance, period, detected_at
		 FROM detected_changes ORDER BY detected_at DESC, id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list detected changes")
	}
	defer rows.Close()

	var changes []model.Change
	for rows.Next() {
		var c model.Change
		if err := rows.Scan(&c.DataPointID, &c.Sector, &c.Dimension,
			&c.OldValue, &c.NewValue, &c.PercentChange,
			&c.Kind, &c.Significance, &c.Period, &c.DetectedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan detected change")
		}
		changes = append(changes, c)
	}
	return changes, eris.Wrap(rows.Err(), "postgres: list detected changes iterate")
}

// ==================== stats ====================

func (s *PostgresStore) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{
		TableCounts:    map[string]int{},
		ByStatus:       map[model.ValidationStatus]int{},
		BySector:       map[string]int{},
		RecentActivity: map[string]int{},
	}

	counts := map[string]string{
		"sectors":          `SELECT COUNT(*) FROM sectors`,
		"subcategories":    `SELECT COUNT(*) FROM subcategories`,
		"dimensions":       `SELECT COUNT(*) FROM dimensions`,
		"sources":          `SELECT COUNT(*) FROM sources`,
		"data_points":      `SELECT COUNT(*) FROM data_points`,
		"changes_log":      `SELECT COUNT(*) FROM changes_log`,
		"detected_changes": `SELECT COUNT(*) FROM detected_changes`,
	}
	for table, q := range counts {
		var n int
		if err := s.pool.QueryRow(ctx, q).Scan(&n); err != nil {
			return nil, eris.Wrapf(err, "postgres: count %s", table)
		}
		stats.TableCounts[table] = n
	}

	rows, err := s.pool.Query(ctx,
		`SELECT validation_status, COUNT(*) FROM data_points GROUP BY validation_status`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: validation breakdown")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan validation breakdown")
		}
		stats.ByStatus[model.ValidationStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: validation breakdown iterate")
	}

	sectorRows, err := s.pool.Query(ctx,
		`SELECT s.name, COUNT(dp.id)
		 FROM sectors s LEFT JOIN data_points dp ON s.id = dp.sector_id
		 GROUP BY s.id, s.name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: sector breakdown")
	}
	defer sectorRows.Close()
	for sectorRows.Next() {
		var name string
		var n int
		if err := sectorRows.Scan(&name, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sector breakdown")
		}
		stats.BySector[name] = n
	}
	if err := sectorRows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: sector breakdown iterate")
	}

	activityRows, err := s.pool.Query(ctx,
		`SELECT to_char(created_at, 'YYYY-MM-DD'), COUNT(*)
		 FROM data_points
		 WHERE created_at >= now() - interval '30 days'
		 GROUP BY to_char(created_at, 'YYYY-MM-DD')
		 ORDER BY to_char(created_at, 'YYYY-MM-DD') DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent activity")
	}
	defer activityRows.Close()
	for activityRows.Next() {
		var day string
		var n int
		if err := activityRows.Scan(&day, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan recent activity")
		}
		stats.RecentActivity[day] = n
	}
	return stats, eris.Wrap(activityRows.Err(), "postgres: recent activity iterate")
}

// ==================== helpers ====================

func scanPgDataPoint(row scannable) (*model.DataPoint, error) {
	var dp model.DataPoint
	var valueNumeric *float64
	var valueText, valueStructured *string
	var validatedAt *time.Time

	err := row.Scan(&dp.ID,
		&dp.SectorID, &dp.SectorName,
		&dp.SubcategoryID, &dp.SubcategoryName,
		&dp.DimensionID, &dp.DimensionName, &dp.DimensionUnit,
		&valueNumeric, &valueText, &valueStructured,
		&dp.Year, &dp.Quarter, &dp.Month,
		&dp.SourceID, &dp.SourceName, &dp.SourceURL,
		&dp.Confidence, &dp.Status,
		&dp.ValidatedBy, &validatedAt, &dp.Notes,
		&dp.CreatedAt, &dp.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan data point")
	}

	switch {
	case valueNumeric != nil:
		dp.Value = model.NumberValue(*valueNumeric)
	case valueStructured != nil:
		var m map[string]any
		if err := json.Unmarshal([]byte(*valueStructured), &m); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal structured value")
		}
		dp.Value = model.StructuredValue(m)
	case valueText != nil:
		dp.Value = model.TextValue(*valueText)
	}
	dp.ValidatedAt = validatedAt
	return &dp, nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func intPtr(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func rawPtr(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}
