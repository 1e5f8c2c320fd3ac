package resume

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrNotFound is returned when a document or section does not exist.
var ErrNotFound = errors.New("resume not found")

//nolint:gochecknoglobals // Compiled once, read-only
var sectionPattern = regexp.MustCompile(`^(?:summary|experience|education|skills)$|^experience\.(\d+)\.workSummary$`)

// Store persists résumé documents and accepts section-level updates from the
// editor.
type Store interface {
	Fetch(ctx context.Context, id uuid.UUID) (doc Document, err error)
	Save(ctx context.Context, doc Document) (err error)
	PersistSection(ctx context.Context, id uuid.UUID, section string, value any) (err error)
	Close()
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PGStore)(nil)
)

// SectionPath splits a section name such as "summary" or
// "experience.2.workSummary" into its path elements.
func SectionPath(section string) (path []string, err error) {
	if !sectionPattern.MatchString(section) {
		err = errors.Errorf("unsupported section %q", section)
		return path, err
	}

	path = strings.Split(section, ".")
	return path, err
}

// MemoryStore keeps documents as JSON bodies in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	bodies map[uuid.UUID]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() (store *MemoryStore) {
	store = &MemoryStore{bodies: make(map[uuid.UUID]string)}
	return store
}

// Fetch returns the stored document.
func (s *MemoryStore) Fetch(_ context.Context, id uuid.UUID) (doc Document, err error) {
	s.mu.RLock()
	body, ok := s.bodies[id]
	s.mu.RUnlock()

	if !ok {
		err = errors.Wrapf(ErrNotFound, "resume %s", id)
		return doc, err
	}

	err = json.Unmarshal([]byte(body), &doc)
	if err != nil {
		err = errors.Wrapf(err, "failed to decode resume %s", id)
		return doc, err
	}

	return doc, err
}

// Save stores or replaces a document.
func (s *MemoryStore) Save(_ context.Context, doc Document) (err error) {
	if doc.ID == uuid.Nil {
		err = errors.New("resume has no id")
		return err
	}

	var body []byte
	body, err = json.Marshal(doc)
	if err != nil {
		err = errors.Wrap(err, "failed to encode resume")
		return err
	}

	s.mu.Lock()
	s.bodies[doc.ID] = string(body)
	s.mu.Unlock()

	return err
}

// PersistSection replaces one section of a stored document.
func (s *MemoryStore) PersistSection(_ context.Context, id uuid.UUID, section string, value any) (err error) {
	var path []string
	path, err = SectionPath(section)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	body, ok := s.bodies[id]
	if !ok {
		err = errors.Wrapf(ErrNotFound, "resume %s", id)
		return err
	}

	if len(path) > 1 && !gjson.Get(body, strings.Join(path[:len(path)-1], ".")).IsObject() {
		err = errors.Wrapf(ErrNotFound, "resume %s has no %s", id, strings.Join(path[:len(path)-1], "."))
		return err
	}

	body, err = sjson.Set(body, section, value)
	if err != nil {
		err = errors.Wrapf(err, "failed to set %s", section)
		return err
	}

	s.bodies[id] = body
	return err
}

// Close is a no-op for MemoryStore.
func (s *MemoryStore) Close() {}

const createResumesTable = `CREATE TABLE IF NOT EXISTS resumes (
	id uuid PRIMARY KEY,
	body jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

// PGStore keeps documents as jsonb rows in PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects to the database at dsn and verifies the connection.
func NewPGStore(ctx context.Context, dsn string) (store *PGStore, err error) {
	var pool *pgxpool.Pool
	pool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		err = errors.Wrap(err, "failed to create connection pool")
		return store, err
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		err = errors.Wrap(err, "failed to reach database")
		return store, err
	}

	store = &PGStore{pool: pool}
	return store, err
}

// Migrate creates the resumes table if it does not exist.
func (s *PGStore) Migrate(ctx context.Context) (err error) {
	_, err = s.pool.Exec(ctx, createResumesTable)
	if err != nil {
		err = errors.Wrap(err, "failed to create resumes table")
	}
	return err
}

// Fetch returns the stored document.
func (s *PGStore) Fetch(ctx context.Context, id uuid.UUID) (doc Document, err error) {
	var body []byte
	err = s.pool.QueryRow(ctx, `SELECT body FROM resumes WHERE id = $1::uuid`, id.String()).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		err = errors.Wrapf(ErrNotFound, "resume %s", id)
		return doc, err
	}
	if err != nil {
		err = errors.Wrapf(err, "failed to query resume %s", id)
		return doc, err
	}

	err = json.Unmarshal(body, &doc)
	if err != nil {
		err = errors.Wrapf(err, "failed to decode resume %s", id)
		return doc, err
	}

	return doc, err
}

// Save inserts or replaces a document.
func (s *PGStore) Save(ctx context.Context, doc Document) (err error) {
	if doc.ID == uuid.Nil {
		err = errors.New("resume has no id")
		return err
	}

	var body []byte
	body, err = json.Marshal(doc)
	if err != nil {
		err = errors.Wrap(err, "failed to encode resume")
		return err
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO resumes (id, body, updated_at) VALUES ($1::uuid, $2::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		doc.ID.String(), string(body))
	if err != nil {
		err = errors.Wrapf(err, "failed to save resume %s", doc.ID)
	}

	return err
}

// PersistSection replaces one section of a stored document in place.
func (s *PGStore) PersistSection(ctx context.Context, id uuid.UUID, section string, value any) (err error) {
	var path []string
	path, err = SectionPath(section)
	if err != nil {
		return err
	}

	var encoded []byte
	encoded, err = json.Marshal(value)
	if err != nil {
		err = errors.Wrapf(err, "failed to encode %s", section)
		return err
	}

	parent := path[:len(path)-1]

	tag, execErr := s.pool.Exec(ctx, `UPDATE resumes
		SET body = jsonb_set(body, $2::text[], $3::jsonb, true), updated_at = now()
		WHERE id = $1::uuid AND body #> $4::text[] IS NOT NULL`,
		id.String(), path, string(encoded), parent)
	if execErr != nil {
		err = errors.Wrapf(execErr, "failed to update %s of resume %s", section, id)
		return err
	}

	if tag.RowsAffected() == 0 {
		err = errors.Wrapf(ErrNotFound, "resume %s section %s", id, section)
	}

	return err
}

// Close releases the connection pool.
func (s *PGStore) Close() {
	s.pool.Close()
}
