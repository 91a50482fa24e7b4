// Package bake_store persists baked animation clips in SQLite so a bake can be reused across runs.
package bake_store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

var (
	ErrNotFound         = errors.New("bake_store: clip not found")
	ErrCorrupt          = errors.New("bake_store: corrupt frame data")
	ErrTopologyMismatch = errors.New("bake_store: stored skeleton does not match bind pose")
	ErrInvalidClip      = errors.New("bake_store: invalid clip")
	ErrStale            = errors.New("bake_store: stored clip was baked from different keyframes")
)

// ClipInfo describes a stored clip without its frames.
type ClipInfo struct {
	Name string
	// Source is the Signature of the keyframes the clip was baked from.
	Source     string
	Quantum    float64
	FrameCount int
	JointCount int
	UpdatedAt  time.Time
}

// storeImpl is the implementation of the Store interface.
type storeImpl struct {
	db     *sql.DB
	tracer trace.Tracer
	now    func() time.Time
}

// Store is a persistent cache of baked clips keyed by clip name.
//
// Frames are stored as local joint transforms in pre-order along with the joint names of the
// skeleton they were baked on and the Signature of the keyframes they were baked from. Loading rebuilds each frame on a clone of the caller's bind pose and
// resolves it, so the result is equivalent to the frames that were saved.
type Store interface {
	// Save stores frames under clip, replacing any previous bake of the same name.
	//
	// Parameters:
	//   - ctx: the request context
	//   - clip: the clip name
	//   - source: the Signature of the keyframes the frames were baked from
	//   - quantum: the sampling interval in seconds
	//   - frames: the baked frames, all on one skeleton
	//
	// Returns:
	//   - error: ErrInvalidClip or a storage error
	Save(ctx context.Context, clip, source string, quantum float64, frames []animation.Frame) error

	// Load reads a stored clip and rebuilds its frames on bind.
	//
	// Parameters:
	//   - ctx: the request context
	//   - clip: the clip name
	//   - source: the Signature of the keyframes the caller would bake from
	//   - bind: the bind pose the clip was baked on
	//
	// Returns:
	//   - []animation.Frame: the resolved frames
	//   - float64: the sampling interval in seconds
	//   - error: ErrNotFound, ErrTopologyMismatch, ErrStale, ErrCorrupt or a storage error
	Load(ctx context.Context, clip, source string, bind *joint.Pose) ([]animation.Frame, float64, error)

	// Clips lists the stored clips ordered by name.
	Clips(ctx context.Context) ([]ClipInfo, error)

	// Delete removes a stored clip.
	//
	// Returns:
	//   - error: ErrNotFound if no clip has that name
	Delete(ctx context.Context, clip string) error

	// Close closes the database handle.
	Close() error
}

var _ Store = &storeImpl{}

// Open opens or creates the SQLite database at path and ensures the schema exists.
//
// Parameters:
//   - ctx: the request context
//   - path: the database file path
//   - options: variadic list of StoreBuilderOption functions to configure the Store
//
// Returns:
//   - Store: the opened store
//   - error: an error if the database could not be opened or migrated
func Open(ctx context.Context, path string, options ...StoreBuilderOption) (Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("bake_store: path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := migrateSource(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	s := &storeImpl{
		db:     db,
		tracer: otel.Tracer("github.com/Carmen-Shannon/oxy-anim/engine/bake_store"),
		now:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *storeImpl) Save(ctx context.Context, clip, source string, quantum float64, frames []animation.Frame) (err error) {
	ctx, span := s.tracer.Start(ctx, "bake_store.Save", trace.WithAttributes(
		attribute.String("clip", clip),
		attribute.Int("frames", len(frames)),
	))
	defer func() { endSpan(span, err) }()

	if err := validateFrames(clip, quantum, frames); err != nil {
		return err
	}
	names := jointNames(frames[0].Pose)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM baked_frames WHERE clip = ?`, clip); err != nil {
		return fmt.Errorf("clear frames: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO baked_clips (name, quantum, frame_count, joint_names, source, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   quantum = excluded.quantum,
		   frame_count = excluded.frame_count,
		   joint_names = excluded.joint_names,
		   source = excluded.source,
		   updated_at = excluded.updated_at`,
		clip, quantum, len(frames), strings.Join(names, "\n"), source, s.now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("save clip: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO baked_frames (clip, idx, time, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare frame insert: %w", err)
	}
	defer stmt.Close()
	for i, f := range frames {
		if _, err = stmt.ExecContext(ctx, clip, i, f.Time, encodePose(f.Pose)); err != nil {
			return fmt.Errorf("save frame %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *storeImpl) Load(ctx context.Context, clip, source string, bind *joint.Pose) (frames []animation.Frame, quantum float64, err error) {
	ctx, span := s.tracer.Start(ctx, "bake_store.Load", trace.WithAttributes(attribute.String("clip", clip)))
	defer func() { endSpan(span, err) }()

	if bind == nil {
		return nil, 0, fmt.Errorf("%w: bind pose is required", ErrInvalidClip)
	}

	var frameCount int
	var joined, stored string
	err = s.db.QueryRowContext(ctx,
		`SELECT quantum, frame_count, joint_names, source FROM baked_clips WHERE name = ?`, clip,
	).Scan(&quantum, &frameCount, &joined, &stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("load clip: %w", err)
	}
	if !slices.Equal(strings.Split(joined, "\n"), jointNames(bind)) {
		return nil, 0, fmt.Errorf("%w: clip %q", ErrTopologyMismatch, clip)
	}
	if stored != source {
		return nil, 0, fmt.Errorf("%w: clip %q", ErrStale, clip)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT time, data FROM baked_frames WHERE clip = ? ORDER BY idx ASC`, clip)
	if err != nil {
		return nil, 0, fmt.Errorf("load frames: %w", err)
	}
	defer rows.Close()

	frames = make([]animation.Frame, 0, frameCount)
	for rows.Next() {
		var t float64
		var data []byte
		if err = rows.Scan(&t, &data); err != nil {
			return nil, 0, fmt.Errorf("scan frame: %w", err)
		}
		p := bind.Clone()
		if err = decodePose(p, data); err != nil {
			return nil, 0, fmt.Errorf("frame %d of %q: %w", len(frames), clip, err)
		}
		p.Resolve()
		frames = append(frames, animation.Frame{Time: t, Pose: p})
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate frames: %w", err)
	}
	if len(frames) != frameCount {
		return nil, 0, fmt.Errorf("%w: clip %q has %d of %d frames", ErrCorrupt, clip, len(frames), frameCount)
	}
	span.SetAttributes(attribute.Int("frames", len(frames)))
	return frames, quantum, nil
}

func (s *storeImpl) Clips(ctx context.Context) ([]ClipInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, source, quantum, frame_count, joint_names, updated_at FROM baked_clips ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	var out []ClipInfo
	for rows.Next() {
		var info ClipInfo
		var joined string
		var updated int64
		if err := rows.Scan(&info.Name, &info.Source, &info.Quantum, &info.FrameCount, &joined, &updated); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		info.JointCount = strings.Count(joined, "\n") + 1
		info.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clips: %w", err)
	}
	return out, nil
}

func (s *storeImpl) Delete(ctx context.Context, clip string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM baked_clips WHERE name = ?`, clip)
	if err != nil {
		return fmt.Errorf("delete clip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete clip: %w", err)
	}
	if n == 0 {
		err = ErrNotFound
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM baked_frames WHERE clip = ?`, clip); err != nil {
		return fmt.Errorf("delete frames: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (s *storeImpl) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// migrateSource adds the source column to databases created before it existed. Their clips keep an
// empty source, which never matches a Signature, so they are rebaked on first use.
func migrateSource(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_table_info('baked_clips')`)
	if err != nil {
		return err
	}
	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return err
		}
		cols = append(cols, name)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if slices.Contains(cols, "source") {
		return nil
	}
	_, err = db.ExecContext(ctx, `ALTER TABLE baked_clips ADD COLUMN source TEXT NOT NULL DEFAULT ''`)
	return err
}

func validateFrames(clip string, quantum float64, frames []animation.Frame) error {
	switch {
	case strings.TrimSpace(clip) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidClip)
	case quantum <= 0:
		return fmt.Errorf("%w: quantum %v", ErrInvalidClip, quantum)
	case len(frames) == 0:
		return fmt.Errorf("%w: no frames", ErrInvalidClip)
	}
	for i, f := range frames {
		if f.Pose == nil {
			return fmt.Errorf("%w: frame %d has no pose", ErrInvalidClip, i)
		}
		if f.Pose.Len() != frames[0].Pose.Len() {
			return fmt.Errorf("%w: frame %d has %d joints, want %d", ErrInvalidClip, i, f.Pose.Len(), frames[0].Pose.Len())
		}
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
