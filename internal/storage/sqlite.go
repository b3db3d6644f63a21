package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cjeanneret/svlabel/internal/debug"
	"github.com/cjeanneret/svlabel/internal/logic/geolocate"
	"github.com/cjeanneret/svlabel/internal/logic/label"
)

// SQLiteDB implements LabelRepository with a local SQLite database.
type SQLiteDB struct {
	db       *sql.DB
	path     string
	readOnly bool
}

var _ LabelRepository = (*SQLiteDB)(nil)

const labelColumns = `id, temporary_id, label_type, pano_id, severity, description, tag_ids,
	canvas_x, canvas_y, canvas_width, canvas_height, heading, pitch, zoom,
	pano_lat, pano_lng, sv_image_y,
	lat, lng, method, heading_deg, distance_km, created_at, deleted`

// NewSQLiteDB opens (and creates if needed) the label database at path.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteDB{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	debug.Info("Label database ready: %s", path)
	return s, nil
}

// OpenReadOnly opens an existing label database without allowing writes.
func OpenReadOnly(path string) (*SQLiteDB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &SQLiteDB{db: db, path: path, readOnly: true}, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS labels (
			id TEXT PRIMARY KEY,
			temporary_id TEXT NOT NULL DEFAULT '',
			label_type TEXT NOT NULL,
			pano_id TEXT NOT NULL,
			severity INTEGER,
			description TEXT NOT NULL DEFAULT '',
			tag_ids TEXT NOT NULL DEFAULT '[]',
			canvas_x REAL NOT NULL,
			canvas_y REAL NOT NULL,
			canvas_width REAL NOT NULL,
			canvas_height REAL NOT NULL,
			heading REAL NOT NULL,
			pitch REAL NOT NULL,
			zoom INTEGER NOT NULL,
			pano_lat REAL NOT NULL,
			pano_lng REAL NOT NULL,
			sv_image_y REAL NOT NULL,
			lat REAL NOT NULL,
			lng REAL NOT NULL,
			method TEXT NOT NULL,
			heading_deg REAL NOT NULL DEFAULT 0,
			distance_km REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			deleted INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_labels_pano_id ON labels(pano_id);
		CREATE INDEX IF NOT EXISTS idx_labels_created_at ON labels(created_at);
	`
	debug.SQL("migrate labels schema")
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteDB) Path() string {
	return s.path
}

// IsReadOnly reports whether writes are refused.
func (s *SQLiteDB) IsReadOnly() bool {
	return s.readOnly
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// CreateLabel stores a label together with its position estimate,
// computing the estimate if the label has none yet.
func (s *SQLiteDB) CreateLabel(ctx context.Context, l *label.Label) error {
	if s.readOnly {
		return ErrReadOnly
	}
	est, err := l.StoredEstimate()
	if err != nil {
		return fmt.Errorf("estimate label position: %w", err)
	}
	tags, err := json.Marshal(l.TagIDs())
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	var severity sql.NullInt64
	if sev := l.Severity(); sev != nil {
		severity = sql.NullInt64{Int64: int64(*sev), Valid: true}
	}
	var tempID string
	if l.TemporaryID() != uuid.Nil {
		tempID = l.TemporaryID().String()
	}
	snap := l.Snapshot()

	const stmt = `INSERT INTO labels (` + labelColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	debug.SQL("insert label", l.ID())
	_, err = s.db.ExecContext(ctx, stmt,
		l.ID().String(), tempID, string(l.Type()), l.PanoID(), severity, l.Description(), string(tags),
		snap.CanvasPoint.X, snap.CanvasPoint.Y, snap.Canvas.Width, snap.Canvas.Height,
		snap.Pose.Heading, snap.Pose.Pitch, snap.Pose.Zoom,
		snap.PanoramaLat, snap.PanoramaLng, snap.SvImageY,
		est.Lat, est.Lng, string(est.Method), est.HeadingDeg, est.DistanceKm,
		l.CreatedAt().UTC(), l.IsDeleted(),
	)
	if err != nil {
		return fmt.Errorf("insert label: %w", err)
	}
	return nil
}

// GetLabel retrieves a label by ID, deleted labels included.
func (s *SQLiteDB) GetLabel(ctx context.Context, id uuid.UUID) (*label.Label, error) {
	debug.SQL("select label", id)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+labelColumns+` FROM labels WHERE id = ?`, id.String())
	l, err := scanLabel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

// ListLabels returns all non-deleted labels, oldest first.
func (s *SQLiteDB) ListLabels(ctx context.Context) ([]*label.Label, error) {
	debug.SQL("list labels")
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+labelColumns+` FROM labels WHERE deleted = 0 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanLabels(rows)
}

// ListLabelsByPano returns the non-deleted labels placed on a panorama, oldest first.
func (s *SQLiteDB) ListLabelsByPano(ctx context.Context, panoID string) ([]*label.Label, error) {
	debug.SQL("list labels by pano", panoID)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+labelColumns+` FROM labels WHERE deleted = 0 AND pano_id = ? ORDER BY created_at, id`,
		panoID)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanLabels(rows)
}

// DeleteLabel marks a label deleted. The row is kept.
func (s *SQLiteDB) DeleteLabel(ctx context.Context, id uuid.UUID) error {
	if s.readOnly {
		return ErrReadOnly
	}
	debug.SQL("delete label", id)
	res, err := s.db.ExecContext(ctx,
		"UPDATE labels SET deleted = 1 WHERE id = ? AND deleted = 0", id.String())
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLabel(row scanner) (*label.Label, error) {
	var (
		idStr, tempIDStr, typeStr, panoID, description, tagsJSON, method string
		severity                                                       sql.NullInt64
		snap                                                           geolocate.Snapshot
		est                                                            geolocate.Estimate
		createdAt                                                      time.Time
		deleted                                                        bool
	)
	err := row.Scan(
		&idStr, &tempIDStr, &typeStr, &panoID, &severity, &description, &tagsJSON,
		&snap.CanvasPoint.X, &snap.CanvasPoint.Y, &snap.Canvas.Width, &snap.Canvas.Height,
		&snap.Pose.Heading, &snap.Pose.Pitch, &snap.Pose.Zoom,
		&snap.PanoramaLat, &snap.PanoramaLng, &snap.SvImageY,
		&est.Lat, &est.Lng, &method, &est.HeadingDeg, &est.DistanceKm,
		&createdAt, &deleted,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan label: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("label id %q: %w", idStr, err)
	}
	var tempID uuid.UUID
	if tempIDStr != "" {
		if tempID, err = uuid.Parse(tempIDStr); err != nil {
			return nil, fmt.Errorf("label %s temporary id: %w", id, err)
		}
	}
	var tags []int
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
		return nil, fmt.Errorf("label %s tags: %w", id, err)
	}
	var sev *int
	if severity.Valid {
		v := int(severity.Int64)
		sev = &v
	}
	est.Method = geolocate.Method(method)

	l, err := label.New(label.Params{
		ID:          id,
		TemporaryID: tempID,
		Type:        label.Type(typeStr),
		PanoID:      panoID,
		Snapshot:    snap,
		Severity:    sev,
		Description: description,
		TagIDs:      tags,
		CreatedAt:   createdAt,
		Estimate:    &est,
	})
	if err != nil {
		return nil, fmt.Errorf("restore label %s: %w", id, err)
	}
	if deleted {
		l.Remove()
	}
	return l, nil
}

func scanLabels(rows *sql.Rows) ([]*label.Label, error) {
	var labels []*label.Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

