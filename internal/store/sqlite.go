package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/market-intel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	// Timestamps must be written in a layout SQLite's date functions can
	// read, or DATE(created_at) comes back NULL.
	if !strings.Contains(dsn, "_time_format") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_time_format=sqlite"
	}
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
CREATE TABLE IF NOT EXISTS sectors (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
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
	reliability_score REAL NOT NULL DEFAULT 0.5,
	last_accessed     DATETIME,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS data_points (
	id                TEXT PRIMARY KEY,
	sector_id         TEXT REFERENCES sectors(id),
	subcategory_id    TEXT REFERENCES subcategories(id),
	dimension_id      TEXT NOT NULL REFERENCES dimensions(id),
	value_numeric     REAL,
	value_text        TEXT,
	value_structured  TEXT,
	year              INTEGER,
	quarter           INTEGER,
	month             INTEGER,
	source_id         TEXT REFERENCES sources(id),
	confidence        TEXT NOT NULL DEFAULT 'medium',
	validation_status TEXT NOT NULL DEFAULT 'pending',
	validated_by      TEXT,
	validated_at      DATETIME,
	notes             TEXT,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS changes_log (
	id            TEXT PRIMARY KEY,
	table_name    TEXT NOT NULL,
	record_id     TEXT NOT NULL,
	change_type   TEXT NOT NULL,
	old_value     TEXT,
	new_value     TEXT,
	changed_by    TEXT NOT NULL,
	change_reason TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS detected_changes (
	id             TEXT PRIMARY KEY,
	data_point_id  TEXT,
	sector         TEXT NOT NULL,
	dimension      TEXT NOT NULL,
	old_value      REAL,
	new_value      REAL,
	percent_change REAL,
	change_type    TEXT NOT NULL,
	significance   TEXT NOT NULL,
	period         TEXT NOT NULL,
	detected_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_data_points_sector ON data_points(sector_id);
CREATE INDEX IF NOT EXISTS idx_data_points_dimension ON data_points(dimension_id);
CREATE INDEX IF NOT EXISTS idx_data_points_year ON data_points(year);
CREATE INDEX IF NOT EXISTS idx_data_points_validation ON data_points(validation_status);
CREATE INDEX IF NOT EXISTS idx_changes_log_table ON changes_log(table_name, record_id);
CREATE INDEX IF NOT EXISTS idx_detected_changes_period ON detected_changes(period);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==================== taxonomy ====================

func (s *SQLiteStore) SeedTaxonomy(ctx context.Context, tax Taxonomy) (*SeedResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin seed")
	}
	defer tx.Rollback() //nolint:errcheck

	var result SeedResult
	for _, sec := range tax.Sectors {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO sectors (id, name, description) VALUES (?, ?, ?)`,
			uuid.New().String(), sec.Name, sec.Description,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: seed sector %s", sec.Name)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			result.SectorsCreated++
		}

		var sectorID string
		if err := tx.QueryRowContext(ctx, `SELECT id FROM sectors WHERE name = ?`, sec.Name).Scan(&sectorID); err != nil {
			return nil, eris.Wrapf(err, "sqlite: resolve seeded sector %s", sec.Name)
		}

		for _, sub := range sec.Subcategories {
			res, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO subcategories (id, sector_id, name) VALUES (?, ?, ?)`,
				uuid.New().String(), sectorID, sub,
			)
			if err != nil {
				return nil, eris.Wrapf(err, "sqlite: seed subcategory %s", sub)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				result.SubcategoriesCreated++
			}
		}
	}

	for _, dim := range tax.Dimensions {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO dimensions (id, name, unit, description) VALUES (?, ?, ?, ?)`,
			uuid.New().String(), dim.Name, dim.Unit, dim.Description,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: seed dimension %s", dim.Name)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			result.DimensionsCreated++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit seed")
	}
	return &result, nil
}

func (s *SQLiteStore) ListSectors(ctx context.Context) ([]model.Sector, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at, updated_at FROM sectors ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sectors")
	}
	defer rows.Close()

	var sectors []model.Sector
	for rows.Next() {
		var sec model.Sector
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.Description, &sec.CreatedAt, &sec.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sector")
		}
		sectors = append(sectors, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list sectors iterate")
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

func (s *SQLiteStore) listSubcategories(ctx context.Context, sectorID string) ([]model.Subcategory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sector_id, name, COALESCE(description, '') FROM subcategories WHERE sector_id = ? ORDER BY name`,
		sectorID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list subcategories")
	}
	defer rows.Close()

	var subs []model.Subcategory
	for rows.Next() {
		var sub model.Subcategory
		if err := rows.Scan(&sub.ID, &sub.SectorID, &sub.Name, &sub.Description); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan subcategory")
		}
		subs = append(subs, sub)
	}
	return subs, eris.Wrap(rows.Err(), "sqlite: list subcategories iterate")
}

func (s *SQLiteStore) GetSectorByName(ctx context.Context, name string) (*model.Sector, error) {
	var sec model.Sector
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at, updated_at FROM sectors WHERE name = ?`,
		name,
	).Scan(&sec.ID, &sec.Name, &sec.Description, &sec.CreatedAt, &sec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get sector %s", name)
	}
	subs, err := s.listSubcategories(ctx, sec.ID)
	if err != nil {
		return nil, err
	}
	sec.Subcategories = subs
	return &sec, nil
}

func (s *SQLiteStore) ListDimensions(ctx context.Context) ([]model.Dimension, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(unit, ''), COALESCE(description, '') FROM dimensions ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dimensions")
	}
	defer rows.Close()

	var dims []model.Dimension
	for rows.Next() {
		var dim model.Dimension
		if err := rows.Scan(&dim.ID, &dim.Name, &dim.Unit, &dim.Description); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dimension")
		}
		dims = append(dims, dim)
	}
	return dims, eris.Wrap(rows.Err(), "sqlite: list dimensions iterate")
}

func (s *SQLiteStore) GetDimensionByName(ctx context.Context, name string) (*model.Dimension, error) {
	var dim model.Dimension
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(unit, ''), COALESCE(description, '') FROM dimensions WHERE name = ?`,
		name,
	).Scan(&dim.ID, &dim.Name, &dim.Unit, &dim.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get dimension %s", name)
	}
	return &dim, nil
}

// ==================== sources ====================

func (s *SQLiteStore) AddSource(ctx context.Context, src model.Source) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	srcType := src.Type
	if srcType == "" {
		srcType = model.SourceNews
	}
	score := src.ReliabilityScore
	if score < 0 || score > 1 {
		return "", eris.Errorf("sqlite: reliability score %v out of [0,1]", score)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (id, name, url, source_type, reliability_score, last_accessed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, src.Name, nullString(src.URL), string(srcType), score, now, now,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: insert source %s", src.Name)
	}
	return id, nil
}

func (s *SQLiteStore) GetOrCreateSource(ctx context.Context, src model.Source) (string, error) {
	if src.URL != "" {
		var id string
		err := s.db.QueryRowContext(ctx, `SELECT id FROM sources WHERE url = ?`, src.URL).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return "", eris.Wrapf(err, "sqlite: lookup source by url %s", src.URL)
		}
	}
	return s.AddSource(ctx, src)
}

// ==================== data points ====================

func (s *SQLiteStore) AddDataPoint(ctx context.Context, in AddDataPointInput) (string, error) {
	if in.Dimension == "" {
		return "", eris.New("sqlite: dimension name required")
	}
	if err := in.Value.Validate(); err != nil {
		return "", err
	}
	if in.Quarter < 0 || in.Quarter > 4 {
		return "", eris.Errorf("sqlite: quarter %d out of range", in.Quarter)
	}
	if in.Month < 0 || in.Month > 12 {
		return "", eris.Errorf("sqlite: month %d out of range", in.Month)
	}
	confidence := in.Confidence
	if confidence == "" {
		confidence = model.ConfidenceMedium
	}
	if !confidence.Valid() {
		return "", eris.Errorf("sqlite: unknown confidence %q", confidence)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin add data point")
	}
	defer tx.Rollback() //nolint:errcheck

	var dimensionID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM dimensions WHERE name = ?`, in.Dimension).Scan(&dimensionID)
	if err == sql.ErrNoRows {
		return "", eris.Errorf("unknown dimension: %s", in.Dimension)
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: resolve dimension %s", in.Dimension)
	}

	var sectorID, subcategoryID sql.NullString
	if in.Sector != "" {
		err = tx.QueryRowContext(ctx, `SELECT id FROM sectors WHERE name = ?`, in.Sector).Scan(&sectorID.String)
		if err == sql.ErrNoRows {
			return "", eris.Errorf("unknown sector: %s", in.Sector)
		}
		if err != nil {
			return "", eris.Wrapf(err, "sqlite: resolve sector %s", in.Sector)
		}
		sectorID.Valid = true

		if in.Subcategory != "" {
			err = tx.QueryRowContext(ctx,
				`SELECT id FROM subcategories WHERE sector_id = ? AND name = ?`,
				sectorID.String, in.Subcategory,
			).Scan(&subcategoryID.String)
			if err == sql.ErrNoRows {
				return "", eris.Errorf("unknown subcategory: %s/%s", in.Sector, in.Subcategory)
			}
			if err != nil {
				return "", eris.Wrapf(err, "sqlite: resolve subcategory %s", in.Subcategory)
			}
			subcategoryID.Valid = true
		}
	} else if in.Subcategory != "" {
		return "", eris.Errorf("subcategory %s given without a sector", in.Subcategory)
	}

	var valueNumeric sql.NullFloat64
	var valueText, valueStructured sql.NullString
	switch in.Value.Kind {
	case model.ValueNumber:
		valueNumeric = sql.NullFloat64{Float64: in.Value.Number, Valid: true}
	case model.ValueStructured:
		blob, err := in.Value.MarshalStructured()
		if err != nil {
			return "", err
		}
		valueStructured = sql.NullString{String: blob, Valid: true}
	case model.ValueText:
		valueText = sql.NullString{String: in.Value.Text, Valid: true}
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO data_points
		 (id, sector_id, subcategory_id, dimension_id, value_numeric, value_text, value_structured,
		  year, quarter, month, source_id, confidence, validation_status, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sectorID, subcategoryID, dimensionID, valueNumeric, valueText, valueStructured,
		nullInt(in.Year), nullInt(in.Quarter), nullInt(in.Month), nullString(in.SourceID),
		string(confidence), string(model.StatusPending), nullString(in.Notes), now, now,
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert data point")
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
		return "", eris.Wrap(err, "sqlite: marshal insert snapshot")
	}
	if err := logChangeTx(ctx, tx, model.ChangeLogEntry{
		TableName:  "data_points",
		RecordID:   id,
		ChangeType: model.ChangeInsert,
		NewValue:   snapshot,
		ChangedBy:  actorOrSystem(in.Actor),
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: commit add data point")
	}
	return id, nil
}

const dataPointSelect = `
	SELECT dp.id,
	       COALESCE(dp.sector_id, ''), COALESCE(s.name, ''),
	       COALESCE(dp.subcategory_id, ''), COALESCE(sc.name, ''),
	       dp.dimension_id, COALESCE(d.name, ''), COALESCE(d.unit, ''),
	       dp.value_numeric, dp.value_text, dp.value_structured,
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

func (s *SQLiteStore) GetDataPoints(ctx context.Context, filter DataPointFilter) ([]model.DataPoint, error) {
	query := dataPointSelect + ` WHERE 1=1`
	var args []any

	if filter.Sector != "" {
		query += ` AND s.name = ?`
		args = append(args, filter.Sector)
	}
	if filter.Dimension != "" {
		query += ` AND d.name = ?`
		args = append(args, filter.Dimension)
	}
	if filter.Year != 0 {
		query += ` AND dp.year = ?`
		args = append(args, filter.Year)
	}
	if filter.Status != "" {
		query += ` AND dp.validation_status = ?`
		args = append(args, string(filter.Status))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` ORDER BY dp.created_at DESC, dp.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get data points")
	}
	defer rows.Close()

	var points []model.DataPoint
	for rows.Next() {
		dp, err := scanDataPoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, *dp)
	}
	return points, eris.Wrap(rows.Err(), "sqlite: get data points iterate")
}

func (s *SQLiteStore) GetDataPoint(ctx context.Context, id string) (*model.DataPoint, error) {
	row := s.db.QueryRowContext(ctx, dataPointSelect+` WHERE dp.id = ?`, id)
	dp, err := scanDataPoint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return dp, err
}

func (s *SQLiteStore) UpdateValidation(ctx context.Context, in UpdateValidationInput) (bool, error) {
	if !in.Status.Valid() {
		return false, eris.Errorf("sqlite: unknown validation status %q", in.Status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: begin update validation")
	}
	defer tx.Rollback() //nolint:errcheck

	var oldStatus string
	err = tx.QueryRowContext(ctx,
		`SELECT validation_status FROM data_points WHERE id = ?`, in.ID,
	).Scan(&oldStatus)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: read data point %s", in.ID)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE data_points
		 SET validation_status = ?, validated_by = ?, validated_at = ?,
		     notes = COALESCE(NULLIF(?, ''), notes), updated_at = ?
		 WHERE id = ?`,
		string(in.Status), in.ValidatedBy, now, in.Notes, now, in.ID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: update validation %s", in.ID)
	}

	oldSnap, _ := json.Marshal(map[string]any{"validation_status": oldStatus})
	newSnap, _ := json.Marshal(map[string]any{
		"validation_status": in.Status,
		"validated_by":      in.ValidatedBy,
	})
	if err := logChangeTx(ctx, tx, model.ChangeLogEntry{
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

	if err := tx.Commit(); err != nil {
		return false, eris.Wrap(err, "sqlite: commit update validation")
	}
	return true, nil
}

// ==================== audit log ====================

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func logChangeTx(ctx context.Context, ex sqlExecer, entry model.ChangeLogEntry) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO changes_log (id, table_name, record_id, change_type, old_value, new_value, changed_by, change_reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), entry.TableName, entry.RecordID, string(entry.ChangeType),
		nullRaw(entry.OldValue), nullRaw(entry.NewValue),
		actorOrSystem(entry.ChangedBy), nullString(entry.ChangeReason), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: insert change log entry")
}

func (s *SQLiteStore) RecordChange(ctx context.Context, entry model.ChangeLogEntry) error {
	return logChangeTx(ctx, s.db, entry)
}

func (s *SQLiteStore) GetChanges(ctx context.Context, filter ChangeFilter) ([]model.ChangeLogEntry, error) {
	query := `SELECT id, table_name, record_id, change_type, old_value, new_value, changed_by, COALESCE(change_reason, ''), created_at
	          FROM changes_log WHERE 1=1`
	var args []any

	if filter.Table != "" {
		query += ` AND table_name = ?`
		args = append(args, filter.Table)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get changes")
	}
	defer rows.Close()

	var entries []model.ChangeLogEntry
	for rows.Next() {
		var e model.ChangeLogEntry
		var oldVal, newVal sql.NullString
		if err := rows.Scan(&e.ID, &e.TableName, &e.RecordID, &e.ChangeType,
			&oldVal, &newVal, &e.ChangedBy, &e.ChangeReason, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan change log entry")
		}
		if oldVal.Valid {
			e.OldValue = json.RawMessage(oldVal.String)
		}
		if newVal.Valid {
			e.NewValue = json.RawMessage(newVal.String)
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: get changes iterate")
}

// ==================== detected changes ====================

func (s *SQLiteStore) SaveDetectedChanges(ctx context.Context, changes []model.Change) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save detected changes")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, c := range changes {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO detected_changes
			 (id, data_point_id, sector, dimension, old_value, new_value, percent_change, change_type, significance, period, detected_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), nullString(c.DataPointID), c.Sector, c.Dimension,
			nullFloat(c.OldValue), nullFloat(c.NewValue), nullFloat(c.PercentChange),
			string(c.Kind), string(c.Significance), c.Period, c.DetectedAt.UTC(),
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert detected change")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save detected changes")
}

func (s *SQLiteStore) ListDetectedChanges(ctx context.Context, limit int) ([]model.Change, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(data_point_id, ''), sector, dimension, old_value, new_value, percent_change, change_type, significance, period, detected_at
		 FROM detected_changes ORDER BY detected_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list detected changes")
	}
	defer rows.Close()

	var changes []model.Change
	for rows.Next() {
		var c model.Change
		var oldVal, newVal, pct sql.NullFloat64
		if err := rows.Scan(&c.DataPointID, &c.Sector, &c.Dimension,
			&oldVal, &newVal, &pct, &c.Kind, &c.Significance, &c.Period, &c.DetectedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan detected change")
		}
		c.OldValue = floatPtr(oldVal)
		c.NewValue = floatPtr(newVal)
		c.PercentChange = floatPtr(pct)
		changes = append(changes, c)
	}
	return changes, eris.Wrap(rows.Err(), "sqlite: list detected changes iterate")
}

// ==================== stats ====================

func (s *SQLiteStore) Stats(ctx context.Context) (*model.Stats, error) {
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
		if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
			return nil, eris.Wrapf(err, "sqlite: count %s", table)
		}
		stats.TableCounts[table] = n
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT validation_status, COUNT(*) FROM data_points GROUP BY validation_status`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: validation breakdown")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan validation breakdown")
		}
		stats.ByStatus[model.ValidationStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: validation breakdown iterate")
	}

	sectorRows, err := s.db.QueryContext(ctx,
		`SELECT s.name, COUNT(dp.id)
		 FROM sectors s LEFT JOIN data_points dp ON s.id = dp.sector_id
		 GROUP BY s.id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: sector breakdown")
	}
	defer sectorRows.Close()
	for sectorRows.Next() {
		var name string
		var n int
		if err := sectorRows.Scan(&name, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sector breakdown")
		}
		stats.BySector[name] = n
	}
	if err := sectorRows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: sector breakdown iterate")
	}

	activityRows, err := s.db.QueryContext(ctx,
		`SELECT DATE(created_at), COUNT(*)
		 FROM data_points
		 WHERE created_at >= DATE('now', '-30 days')
		 GROUP BY DATE(created_at)
		 ORDER BY DATE(created_at) DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent activity")
	}
	defer activityRows.Close()
	for activityRows.Next() {
		var day sql.NullString
		var n int
		if err := activityRows.Scan(&day, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan recent activity")
		}
		if day.Valid {
			stats.RecentActivity[day.String] = n
		}
	}
	return stats, eris.Wrap(activityRows.Err(), "sqlite: recent activity iterate")
}

// ==================== helpers ====================

type scannable interface {
	Scan(dest ...any) error
}

func scanDataPoint(row scannable) (*model.DataPoint, error) {
	var dp model.DataPoint
	var valueNumeric sql.NullFloat64
	var valueText, valueStructured sql.NullString
	var validatedAt sql.NullTime

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
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan data point")
	}

	switch {
	case valueNumeric.Valid:
		dp.Value = model.NumberValue(valueNumeric.Float64)
	case valueStructured.Valid:
		var m map[string]any
		if err := json.Unmarshal([]byte(valueStructured.String), &m); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal structured value")
		}
		dp.Value = model.StructuredValue(m)
	case valueText.Valid:
		dp.Value = model.TextValue(valueText.String)
	}
	if validatedAt.Valid {
		t := validatedAt.Time
		dp.ValidatedAt = &t
	}
	return &dp, nil
}

func actorOrSystem(actor string) string {
	if actor == "" {
		return "system"
	}
	return actor
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullRaw(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
