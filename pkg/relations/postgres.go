package relations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

var (
	schemaQueries = []string{
		`CREATE TABLE IF NOT EXISTS actors (
	id BIGINT PRIMARY KEY,
	description VARCHAR(80) NOT NULL UNIQUE
)`,
		`CREATE TABLE IF NOT EXISTS actions (
	id BIGINT PRIMARY KEY,
	description VARCHAR(80) NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS actions_description_key ON actions (description)`,
		`CREATE TABLE IF NOT EXISTS stories (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT ''
)`,
		`CREATE TABLE IF NOT EXISTS relations (
	id BIGINT PRIMARY KEY,
	story_id BIGINT NOT NULL,
	event_id BIGINT NOT NULL DEFAULT 0,
	sequence_id BIGINT NOT NULL DEFAULT 0,
	triplet_id BIGINT NOT NULL DEFAULT 0,
	subject_id BIGINT REFERENCES actors (id),
	action_id BIGINT REFERENCES actions (id),
	object_id BIGINT REFERENCES actors (id)
)`,
		`ALTER TABLE relations ADD COLUMN IF NOT EXISTS event_id BIGINT NOT NULL DEFAULT 0`,
		`ALTER TABLE relations ADD COLUMN IF NOT EXISTS sequence_id BIGINT NOT NULL DEFAULT 0`,
		`ALTER TABLE relations ADD COLUMN IF NOT EXISTS triplet_id BIGINT NOT NULL DEFAULT 0`,
		`CREATE INDEX IF NOT EXISTS relations_triplet_id ON relations (triplet_id)`,
	}

	truncateQuery = "TRUNCATE relations, stories, actions, actors"

	importLockQuery     = "LOCK TABLE actors, actions, relations IN SHARE ROW EXCLUSIVE MODE"
	wipeRelationsQuery  = "DELETE FROM relations"
	lastRelationIDQuery = "SELECT COALESCE(MAX(id), 0) FROM relations"

	// The insert and the lookup see the same snapshot, so exactly one
	// branch of the union yields the id.
	upsertActorQuery = `
WITH ins AS (
	INSERT INTO actors (id, description)
	SELECT COALESCE(MAX(id), 0) + 1, $1::TEXT FROM actors
	ON CONFLICT (description) DO NOTHING
	RETURNING id
)
SELECT id FROM ins UNION ALL SELECT id FROM actors WHERE description = $1::TEXT
`
	upsertActionQuery = `
WITH ins AS (
	INSERT INTO actions (id, description)
	SELECT COALESCE(MAX(id), 0) + 1, $1::TEXT FROM actions
	ON CONFLICT (description) DO NOTHING
	RETURNING id
)
SELECT id FROM ins UNION ALL SELECT id FROM actions WHERE description = $1::TEXT
`

	actorsQuery  = "SELECT id, description FROM actors ORDER BY id"
	actionsQuery = "SELECT id, description FROM actions ORDER BY id"
	storyQuery   = "SELECT name, url FROM stories WHERE id=$1"

	relationsQuery = `
SELECT id, story_id, event_id, sequence_id, triplet_id, subject_id, action_id, object_id FROM relations
WHERE subject_id IS NOT NULL AND action_id IS NOT NULL AND object_id IS NOT NULL
  AND ($1::BIGINT = 0 OR action_id = $1)
  AND ($2::BIGINT = 0 OR subject_id = $2 OR object_id = $2)
ORDER BY id
`

	// Compile-time checks for ensuring PostgresStore implements Store,
	// Loader and Importer.
	_ Store    = (*PostgresStore)(nil)
	_ Loader   = (*PostgresStore)(nil)
	_ Importer = (*PostgresStore)(nil)
)

// PostgresStore reads relationship data from a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a store that connects to the database
// specified by dsn.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// Close terminates the connection to the database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, q := range schemaQueries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Load replaces all rows with the contents of seed in one transaction.
func (s *PostgresStore) Load(ctx context.Context, seed *Seed) error {
	if err := seed.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, truncateQuery); err != nil {
		return fmt.Errorf("load: truncate: %w", err)
	}

	actors := make([][]interface{}, 0, len(seed.Actors))
	for _, a := range seed.Actors {
		actors = append(actors, []interface{}{a.ID, a.Description})
	}
	if err := copyRows(ctx, tx, "actors", []string{"id", "description"}, actors); err != nil {
		return err
	}

	actions := make([][]interface{}, 0, len(seed.Actions))
	for _, a := range seed.Actions {
		actions = append(actions, []interface{}{a.ID, a.Description})
	}
	if err := copyRows(ctx, tx, "actions", []string{"id", "description"}, actions); err != nil {
		return err
	}

	stories := make([][]interface{}, 0, len(seed.Stories))
	for _, st := range seed.Stories {
		stories = append(stories, []interface{}{st.ID, st.Name, st.URL})
	}
	if err := copyRows(ctx, tx, "stories", []string{"id", "name", "url"}, stories); err != nil {
		return err
	}

	rels := make([][]interface{}, 0, len(seed.Relations))
	for _, r := range seed.Relations {
		rels = append(rels, relationRow(r))
	}
	if err := copyRows(ctx, tx, "relations", relationColumns, rels); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("load: commit: %w", err)
	}
	return nil
}

var relationColumns = []string{
	"id", "story_id", "event_id", "sequence_id", "triplet_id",
	"subject_id", "action_id", "object_id",
}

func relationRow(r Relation) []interface{} {
	return []interface{}{
		r.ID, r.StoryID, r.EventID, r.SequenceID, r.TripletID,
		nullID(r.SubjectID), nullID(r.ActionID), nullID(r.ObjectID),
	}
}

// Import appends rows in one transaction, creating actors and actions by
// description.
func (s *PostgresStore) Import(ctx context.Context, rows []ImportRow, wipe bool) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, importLockQuery); err != nil {
		return 0, fmt.Errorf("import: lock: %w", err)
	}
	if wipe {
		if _, err := tx.ExecContext(ctx, wipeRelationsQuery); err != nil {
			return 0, fmt.Errorf("import: wipe: %w", err)
		}
	}

	var lastID int64
	if err := tx.QueryRowContext(ctx, lastRelationIDQuery).Scan(&lastID); err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}

	actors := newDescriptionIDs(tx, upsertActorQuery)
	actions := newDescriptionIDs(tx, upsertActionQuery)
	rels := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		lastID++
		r := Relation{
			ID:         lastID,
			StoryID:    row.StoryID,
			EventID:    row.EventID,
			SequenceID: row.SequenceID,
			TripletID:  row.TripletID,
		}
		if r.SubjectID, err = actors.get(ctx, row.Subject); err != nil {
			return 0, fmt.Errorf("import: actor %q: %w", row.Subject, err)
		}
		if r.ActionID, err = actions.get(ctx, row.Action); err != nil {
			return 0, fmt.Errorf("import: action %q: %w", row.Action, err)
		}
		if r.ObjectID, err = actors.get(ctx, row.Object); err != nil {
			return 0, fmt.Errorf("import: actor %q: %w", row.Object, err)
		}
		rels = append(rels, relationRow(r))
	}
	if err := copyRows(ctx, tx, "relations", relationColumns, rels); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("import: commit: %w", err)
	}
	return len(rows), nil
}

// descriptionIDs resolves descriptions to ids with get-or-create, caching
// the answers for the rest of the transaction.
type descriptionIDs struct {
	tx    *sql.Tx
	query string
	ids   map[string]int64
}

func newDescriptionIDs(tx *sql.Tx, query string) *descriptionIDs {
	return &descriptionIDs{tx: tx, query: query, ids: map[string]int64{}}
}

func (d *descriptionIDs) get(ctx context.Context, desc string) (int64, error) {
	if desc == "" {
		return 0, nil
	}
	if id, ok := d.ids[desc]; ok {
		return id, nil
	}
	var id int64
	if err := d.tx.QueryRowContext(ctx, d.query, desc).Scan(&id); err != nil {
		return 0, err
	}
	d.ids[desc] = id
	return id, nil
}

func copyRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]interface{}) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("load %s: %w", table, err)
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("load %s: %w", table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("load %s: %w", table, err)
	}
	return stmt.Close()
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// Actors returns every actor ordered by id.
func (s *PostgresStore) Actors(ctx context.Context) ([]Actor, error) {
	rows, err := s.db.QueryContext(ctx, actorsQuery)
	if err != nil {
		return nil, fmt.Errorf("actors: %w", err)
	}
	defer rows.Close()

	var out []Actor
	for rows.Next() {
		var a Actor
		if err := rows.Scan(&a.ID, &a.Description); err != nil {
			return nil, fmt.Errorf("actors: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("actors: %w", err)
	}
	return out, nil
}

// Actions returns every action ordered by id.
func (s *PostgresStore) Actions(ctx context.Context) ([]Action, error) {
	rows, err := s.db.QueryContext(ctx, actionsQuery)
	if err != nil {
		return nil, fmt.Errorf("actions: %w", err)
	}
	defer rows.Close()

	var out []Action
	for rows.Next() {
		var a Action
		if err := rows.Scan(&a.ID, &a.Description); err != nil {
			return nil, fmt.Errorf("actions: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("actions: %w", err)
	}
	return out, nil
}

// Relations returns the complete relations matching f.
func (s *PostgresStore) Relations(ctx context.Context, f Filter) ([]Relation, error) {
	rows, err := s.db.QueryContext(ctx, relationsQuery, f.ActionID, f.Participant)
	if err != nil {
		return nil, fmt.Errorf("relations: %w", err)
	}
	defer rows.Close()

	var out []Relation
	for rows.Next() {
		var r Relation
		if err := rows.Scan(&r.ID, &r.StoryID, &r.EventID, &r.SequenceID, &r.TripletID, &r.SubjectID, &r.ActionID, &r.ObjectID); err != nil {
			return nil, fmt.Errorf("relations: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("relations: %w", err)
	}
	return out, nil
}

// Story looks up a story by its id.
func (s *PostgresStore) Story(ctx context.Context, id int64) (Story, error) {
	st := Story{ID: id}
	row := s.db.QueryRowContext(ctx, storyQuery, id)
	if err := row.Scan(&st.Name, &st.URL); err != nil {
		if err == sql.ErrNoRows {
			return Story{}, fmt.Errorf("story %d: %w", id, ErrNotFound)
		}
		return Story{}, fmt.Errorf("story %d: %w", id, err)
	}
	return st, nil
}
