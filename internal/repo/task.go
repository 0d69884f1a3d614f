package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/taskboard/internal/model"
)

const taskColumns = `id, title, description, due_date, completed, created_at, updated_at`

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{
		pool: pool,
	}
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, due_date)
		VALUES ($1, $2, $3)
		RETURNING `+taskColumns,
		t.Title, t.Description, dueArg(t.DueDate))
	created, err := scanTask(row)
	return created, r.mapError(err)
}

func (r *TaskRepo) Get(ctx context.Context, id model.TaskID) (model.Task, error) {
	n, err := id.Int64()
	if err != nil {
		return model.Task{}, ErrorNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, n)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) List(ctx context.Context) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update меняет только переданные поля
func (r *TaskRepo) Update(ctx context.Context, id model.TaskID, p model.Patch) (model.Task, error) {
	n, err := id.Int64()
	if err != nil {
		return model.Task{}, ErrorNotFound
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title       = COALESCE($2::text, title),
		    description = COALESCE($3::text, description),
		    due_date    = COALESCE($4::date, due_date),
		    completed   = COALESCE($5::boolean, completed),
		    updated_at  = now()
		WHERE id = $1
		RETURNING `+taskColumns,
		n, p.Title, p.Description, dueArg(p.DueDate), p.Completed)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, r.mapError(err)
}

func (r *TaskRepo) Delete(ctx context.Context, id model.TaskID) error {
	n, err := id.Int64()
	if err != nil {
		return ErrorNotFound
	}
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", n)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, key string, id model.TaskID) error {
	n, err := id.Int64()
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, resource_id) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, key, n)
	return err
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, key string) (model.TaskID, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT resource_id FROM idempotency_keys WHERE key = $1
	`, key).Scan(&n)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrorNotFound
	}
	if err != nil {
		return "", err
	}
	return model.FormatID(n), nil
}

// mapError переводит нарушения ограничений в ошибки репозитория
func (r *TaskRepo) mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrorConflict
		case "23514":
			return ErrorInvalid
		}
	}
	return err
}

func scanTask(row pgx.Row) (model.Task, error) {
	var (
		t   model.Task
		id  int64
		due *time.Time
	)
	err := row.Scan(&id, &t.Title, &t.Description, &due, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Task{}, err
	}
	t.ID = model.FormatID(id)
	if due != nil {
		d := model.NewDate(due.Year(), due.Month(), due.Day())
		t.DueDate = &d
	}
	return t, nil
}

func dueArg(d *model.Date) *time.Time {
	if d == nil {
		return nil
	}
	return &d.Time
}
