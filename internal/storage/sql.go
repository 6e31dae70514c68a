package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"

	"content-review-orchestrator/internal/domain"
	"content-review-orchestrator/internal/review"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

type dialect string

const (
	dialectPostgres dialect = "postgres"
	dialectSQLite   dialect = "sqlite"
)

var (
	_ review.TaskStore           = (*SQLStore)(nil)
	_ review.JobStore            = (*SQLStore)(nil)
	_ review.StateChangeListener = (*SQLStore)(nil)
)

var (
	jobColumns  = []string{"id", "content_id", "content_type", "status", "review_mark", "create_time", "update_time", "version"}
	taskColumns = []string{"id", "review_job_id", "status", "reviewer_id", "feedback", "create_time", "update_time", "version"}
)

// SQLStore is the durable Task and Job store. Both dialects share the query
// code; only placeholders, insertion order and constraint errors differ.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	sb      sq.StatementBuilderType
	now     func() time.Time
}

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	var placeholder sq.PlaceholderFormat = sq.Question
	if d == dialectPostgres {
		placeholder = sq.Dollar
	}
	return &SQLStore{
		db:      db,
		dialect: d,
		sb:      sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
	}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded migrations for the store's dialect in
// filename order. Applied files are tracked in schema_migrations.
func (s *SQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	dir := "migrations/" + string(s.dialect)
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		query, args, err := s.sb.Select("COUNT(*)").From("schema_migrations").Where(sq.Eq{"filename": name}).ToSql()
		if err != nil {
			return err
		}
		var count int
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile(dir + "/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := s.applyMigration(ctx, name, string(data)); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) applyMigration(ctx context.Context, name, body string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return fmt.Errorf("apply migration %s: %w", name, err)
	}
	query, args, err := s.sb.Insert("schema_migrations").Columns("filename").Values(name).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	return tx.Commit()
}

func (s *SQLStore) SaveJob(ctx context.Context, job domain.ReviewJob) (domain.ReviewJob, error) {
	rec := jobRecordFrom(job)

	if rec.Version == 0 {
		rec.Version = 1
		query, args, err := s.sb.Insert("review_jobs").Columns(jobColumns...).
			Values(rec.ID, rec.ContentID, rec.ContentType, rec.Status, rec.Mark, rec.CreateTime, rec.UpdateTime, rec.Version).
			ToSql()
		if err != nil {
			return domain.ReviewJob{}, err
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return domain.ReviewJob{}, s.jobWriteError(err, rec)
		}
		return rec.toJob(), nil
	}

	query, args, err := s.sb.Update("review_jobs").
		Set("status", rec.Status).
		Set("review_mark", rec.Mark).
		Set("update_time", rec.UpdateTime).
		Set("version", rec.Version+1).
		Where(sq.Eq{"id": rec.ID, "version": rec.Version}).
		ToSql()
	if err != nil {
		return domain.ReviewJob{}, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.ReviewJob{}, s.jobWriteError(err, rec)
	}
	if err := s.checkVersionedUpdate(ctx, res, "review_jobs", rec.ID, domain.JobNotFound); err != nil {
		return domain.ReviewJob{}, err
	}
	rec.Version++
	return rec.toJob(), nil
}

func (s *SQLStore) FindJob(ctx context.Context, id string) (domain.ReviewJob, error) {
	query, args, err := s.sb.Select(jobColumns...).From("review_jobs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.ReviewJob{}, err
	}
	rec, err := scanJob(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReviewJob{}, domain.JobNotFound(id)
	}
	if err != nil {
		return domain.ReviewJob{}, fmt.Errorf("find job %s: %w", id, err)
	}
	return rec.toJob(), nil
}

func (s *SQLStore) FindJobsByContent(ctx context.Context, content domain.ContentRef) ([]domain.ReviewJob, error) {
	query, args, err := s.sb.Select(jobColumns...).From("review_jobs").
		Where(sq.Eq{"content_id": content.ID, "content_type": content.Type}).
		OrderBy("create_time", s.insertionOrder()).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find jobs for %s: %w", content, err)
	}
	defer rows.Close()

	var jobs []domain.ReviewJob
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, rec.toJob())
	}
	return jobs, rows.Err()
}

func (s *SQLStore) SaveTask(ctx context.Context, task domain.ReviewTask) (domain.ReviewTask, error) {
	rec, err := taskRecordFrom(task)
	if err != nil {
		return domain.ReviewTask{}, err
	}

	if rec.Version == 0 {
		rec.Version = 1
		query, args, err := s.sb.Insert("review_tasks").Columns(taskColumns...).
			Values(rec.ID, rec.ReviewJobID, rec.Status, rec.ReviewerID, rec.Feedback, rec.CreateTime, rec.UpdateTime, rec.Version).
			ToSql()
		if err != nil {
			return domain.ReviewTask{}, err
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return domain.ReviewTask{}, fmt.Errorf("insert task %s: %w", rec.ID, err)
		}
		return rec.toTask()
	}

	query, args, err := s.sb.Update("review_tasks").
		Set("status", rec.Status).
		Set("reviewer_id", rec.ReviewerID).
		Set("feedback", rec.Feedback).
		Set("update_time", rec.UpdateTime).
		Set("version", rec.Version+1).
		Where(sq.Eq{"id": rec.ID, "version": rec.Version}).
		ToSql()
	if err != nil {
		return domain.ReviewTask{}, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.ReviewTask{}, fmt.Errorf("update task %s: %w", rec.ID, err)
	}
	if err := s.checkVersionedUpdate(ctx, res, "review_tasks", rec.ID, domain.TaskNotFound); err != nil {
		return domain.ReviewTask{}, err
	}
	rec.Version++
	return rec.toTask()
}

func (s *SQLStore) FindTask(ctx context.Context, id string) (domain.ReviewTask, error) {
	query, args, err := s.sb.Select(taskColumns...).From("review_tasks").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.ReviewTask{}, err
	}
	rec, err := scanTask(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReviewTask{}, domain.TaskNotFound(id)
	}
	if err != nil {
		return domain.ReviewTask{}, fmt.Errorf("find task %s: %w", id, err)
	}
	return rec.toTask()
}

func (s *SQLStore) FindTasksByJob(ctx context.Context, jobID string) ([]domain.ReviewTask, error) {
	return s.findTasks(ctx, sq.Eq{"review_job_id": jobID})
}

func (s *SQLStore) FindTasksByReviewer(ctx context.Context, reviewerID string) ([]domain.ReviewTask, error) {
	return s.findTasks(ctx, sq.Eq{"reviewer_id": reviewerID})
}

func (s *SQLStore) findTasks(ctx context.Context, where sq.Eq) ([]domain.ReviewTask, error) {
	query, args, err := s.sb.Select(taskColumns...).From("review_tasks").
		Where(where).
		OrderBy("create_time", s.insertionOrder()).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ReviewTask
	for rows.Next() {
		rec, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		task, err := rec.toTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// OnJobStateChange appends the change to review_audit_log.
func (s *SQLStore) OnJobStateChange(ctx context.Context, change domain.JobStateChange) error {
	query, args, err := s.sb.Insert("review_audit_log").
		Columns("job_id", "content_id", "content_type", "previous_status", "next_status", "at").
		Values(change.Job.ID, change.Job.Content.ID, change.Job.Content.Type, string(change.Previous), string(change.Next), storedTime(s.now())).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append audit for job %s: %w", change.Job.ID, err)
	}
	return nil
}

func (s *SQLStore) AuditTrail(ctx context.Context, jobID string) ([]AuditEntry, error) {
	query, args, err := s.sb.Select("job_id", "content_id", "content_type", "previous_status", "next_status", "at").
		From("review_audit_log").
		Where(sq.Eq{"job_id": jobID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit trail for job %s: %w", jobID, err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var previous, next string
		if err := rows.Scan(&e.JobID, &e.Content.ID, &e.Content.Type, &previous, &next, &e.At); err != nil {
			return nil, err
		}
		e.Previous = domain.JobStatus(previous)
		e.Next = domain.JobStatus(next)
		e.At = e.At.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) insertionOrder() string {
	if s.dialect == dialectPostgres {
		return "seq"
	}
	return "rowid"
}

// checkVersionedUpdate tells a missing row apart from a version mismatch
// when an update touched nothing.
func (s *SQLStore) checkVersionedUpdate(ctx context.Context, res sql.Result, table, id string, notFound func(string) error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	query, args, err := s.sb.Select("COUNT(*)").From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return fmt.Errorf("check %s %s: %w", table, id, err)
	}
	if count == 0 {
		return notFound(id)
	}
	return fmt.Errorf("%s %s: %w", table, id, domain.ErrStaleWrite)
}

func (s *SQLStore) jobWriteError(err error, rec jobRecord) error {
	var pending bool
	if s.dialect == dialectPostgres {
		pending = isPostgresUniqueViolation(err, pendingJobIndex)
	} else {
		pending = isSQLiteUniqueViolation(err, "review_jobs.content_id")
	}
	if pending {
		return fmt.Errorf("%w: %s/%s", domain.ErrJobAlreadyPending, rec.ContentType, rec.ContentID)
	}
	return fmt.Errorf("save job %s: %w", rec.ID, err)
}

const pendingJobIndex = "review_jobs_one_pending"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (jobRecord, error) {
	var rec jobRecord
	err := row.Scan(&rec.ID, &rec.ContentID, &rec.ContentType, &rec.Status, &rec.Mark, &rec.CreateTime, &rec.UpdateTime, &rec.Version)
	return rec, err
}

func scanTask(row rowScanner) (taskRecord, error) {
	var rec taskRecord
	err := row.Scan(&rec.ID, &rec.ReviewJobID, &rec.Status, &rec.ReviewerID, &rec.Feedback, &rec.CreateTime, &rec.UpdateTime, &rec.Version)
	return rec, err
}
