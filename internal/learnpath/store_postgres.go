package learnpath

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation. Topic lists
// are stored as JSONB per path: the structure never changes after creation,
// only completed flags flip, so a document column fits better than a
// normalized topic table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed store, bootstrapping the
// schema and inserting the seed roster when the students table is empty.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, seedStudents []Student, seedPaths []LearningPath) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.seedIfEmpty(ctx, seedStudents, seedPaths); err != nil {
		return nil, fmt.Errorf("seed store: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS learning_paths (
			id TEXT PRIMARY KEY,
			company TEXT NOT NULL,
			job_description TEXT NOT NULL,
			topics JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS students (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			assigned_path_id TEXT REFERENCES learning_paths(id),
			position INT NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) seedIfEmpty(ctx context.Context, students []Student, paths []LearningPath) error {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM students`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, p := range paths {
		if err := s.insertPath(ctx, p); err != nil {
			return err
		}
	}
	for i, st := range students {
		var assigned *string
		if st.Assigned() {
			assigned = st.AssignedLearningPathID
		}
		_, err := s.pool.Exec(ctx,
			`INSERT INTO students (id, name, email, assigned_path_id, position)
			 VALUES ($1, $2, $3, $4, $5)`,
			st.ID, st.Name, st.Email, assigned, i,
		)
		if err != nil {
			return fmt.Errorf("insert student %s: %w", st.ID, err)
		}
	}
	return nil
}

func (s *PostgresStore) insertPath(ctx context.Context, p LearningPath) error {
	topics, err := json.Marshal(p.Topics)
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO learning_paths (id, company, job_description, topics)
		 VALUES ($1, $2, $3, $4::jsonb)`,
		p.ID, p.Company, p.JobDescription, string(topics),
	)
	if err != nil {
		return fmt.Errorf("insert path %s: %w", p.ID, err)
	}
	return nil
}

func (s *PostgresStore) Students() []Student {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, assigned_path_id FROM students ORDER BY position, id`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.Name, &st.Email, &st.AssignedLearningPathID); err != nil {
			return out
		}
		out = append(out, st)
	}
	return out
}

func (s *PostgresStore) LearningPaths() []LearningPath {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, company, job_description, topics FROM learning_paths ORDER BY created_at, id`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []LearningPath
	for rows.Next() {
		p, err := scanPath(rows)
		if err != nil {
			return out
		}
		out = append(out, p)
	}
	return out
}

func (s *PostgresStore) StudentByID(id string) (Student, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	var st Student
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, assigned_path_id FROM students WHERE id = $1`,
		id,
	).Scan(&st.ID, &st.Name, &st.Email, &st.AssignedLearningPathID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Student{}, fmt.Errorf("%w: %s", ErrStudentNotFound, id)
	}
	if err != nil {
		return Student{}, fmt.Errorf("query student: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) LearningPathByID(id string) (LearningPath, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT id, company, job_description, topics FROM learning_paths WHERE id = $1`, id)
	p, err := scanPath(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LearningPath{}, fmt.Errorf("%w: %s", ErrPathNotFound, id)
	}
	if err != nil {
		return LearningPath{}, fmt.Errorf("query path: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) AddLearningPath(path LearningPath) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM learning_paths WHERE id = $1)`, path.ID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check path: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, path.ID)
	}
	return s.insertPath(ctx, path)
}

func (s *PostgresStore) AssignPath(pathID string, studentIDs []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin assign: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM learning_paths WHERE id = $1)`, pathID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check path: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrPathNotFound, pathID)
	}

	for _, id := range studentIDs {
		cmd, err := tx.Exec(ctx,
			`UPDATE students SET assigned_path_id = $1 WHERE id = $2`,
			pathID, id,
		)
		if err != nil {
			return fmt.Errorf("assign student %s: %w", id, err)
		}
		if cmd.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrStudentNotFound, id)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ToggleTopic(studentID, pathID, category, topicID string) (LearningPath, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return LearningPath{}, fmt.Errorf("begin toggle: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row lock so concurrent toggles on the same path serialize.
	row := tx.QueryRow(ctx,
		`SELECT id, company, job_description, topics FROM learning_paths WHERE id = $1 FOR UPDATE`,
		pathID)
	path, err := scanPath(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LearningPath{}, fmt.Errorf("%w: %s", ErrPathNotFound, pathID)
	}
	if err != nil {
		return LearningPath{}, fmt.Errorf("query path: %w", err)
	}

	topics, ok := path.Topics[category]
	if !ok {
		return LearningPath{}, fmt.Errorf("%w: category %q", ErrTopicNotFound, category)
	}
	found := false
	for i, t := range topics {
		if t.ID == topicID {
			topics[i].Completed = !topics[i].Completed
			found = true
			break
		}
	}
	if !found {
		return LearningPath{}, fmt.Errorf("%w: %s in category %q", ErrTopicNotFound, topicID, category)
	}

	data, err := json.Marshal(path.Topics)
	if err != nil {
		return LearningPath{}, fmt.Errorf("marshal topics: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE learning_paths SET topics = $1::jsonb WHERE id = $2`,
		string(data), pathID,
	); err != nil {
		return LearningPath{}, fmt.Errorf("update topics: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return LearningPath{}, fmt.Errorf("commit toggle: %w", err)
	}
	return path, nil
}

func scanPath(row pgx.Row) (LearningPath, error) {
	var p LearningPath
	var topics []byte
	if err := row.Scan(&p.ID, &p.Company, &p.JobDescription, &topics); err != nil {
		return LearningPath{}, err
	}
	if err := json.Unmarshal(topics, &p.Topics); err != nil {
		return LearningPath{}, fmt.Errorf("unmarshal topics: %w", err)
	}
	return p, nil
}
