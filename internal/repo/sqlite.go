package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/BuzzLyutic/taskboard/internal/model"
)

// taskRecord is the row layout of the SQLite backend.
type taskRecord struct {
	ID          int64      `gorm:"primarykey;autoIncrement"`
	Title       string     `gorm:"not null"`
	Description string     `gorm:"not null;default:''"`
	DueDate     *time.Time `gorm:"type:date"`
	Completed   bool       `gorm:"not null;default:false"`
	CreatedAt   time.Time  `gorm:"not null"`
	ModifiedAt  *time.Time `gorm:"column:updated_at"`
}

func (taskRecord) TableName() string {
	return "tasks"
}

type idempotencyRecord struct {
	Key        string `gorm:"primarykey"`
	ResourceID int64  `gorm:"not null;index"`
	CreatedAt  time.Time
}

func (idempotencyRecord) TableName() string {
	return "idempotency_keys"
}

func (rec taskRecord) toModel() model.Task {
	t := model.Task{
		ID:          model.FormatID(rec.ID),
		Title:       rec.Title,
		Description: rec.Description,
		Completed:   rec.Completed,
		CreatedAt:   rec.CreatedAt.UTC(),
	}
	if rec.DueDate != nil {
		d := model.NewDate(rec.DueDate.Year(), rec.DueDate.Month(), rec.DueDate.Day())
		t.DueDate = &d
	}
	if rec.ModifiedAt != nil {
		u := rec.ModifiedAt.UTC()
		t.UpdatedAt = &u
	}
	return t
}

// SQLiteRepo хранит задачи в файле SQLite через gorm
type SQLiteRepo struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) the database at path and migrates the schema.
// ":memory:" gives a throwaway database.
func OpenSQLite(path string) (*SQLiteRepo, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// у каждого соединения своя база в памяти
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewSQLiteRepo(db)
}

func NewSQLiteRepo(db *gorm.DB) (*SQLiteRepo, error) {
	if err := db.AutoMigrate(&taskRecord{}, &idempotencyRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}
	return &SQLiteRepo{db: db}, nil
}

func (r *SQLiteRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *SQLiteRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	if model.Blank(t.Title) {
		return model.Task{}, ErrorInvalid
	}
	rec := taskRecord{
		Title:       t.Title,
		Description: t.Description,
		DueDate:     dueArg(t.DueDate),
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return model.Task{}, fmt.Errorf("failed to create task: %w", mapGormError(err))
	}
	return rec.toModel(), nil
}

func (r *SQLiteRepo) Get(ctx context.Context, id model.TaskID) (model.Task, error) {
	rec, err := r.find(r.db.WithContext(ctx), id)
	if err != nil {
		return model.Task{}, err
	}
	return rec.toModel(), nil
}

func (r *SQLiteRepo) List(ctx context.Context) ([]model.Task, error) {
	var recs []taskRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	tasks := make([]model.Task, 0, len(recs))
	for _, rec := range recs {
		tasks = append(tasks, rec.toModel())
	}
	return tasks, nil
}

func (r *SQLiteRepo) Update(ctx context.Context, id model.TaskID, p model.Patch) (model.Task, error) {
	if p.Title != nil && model.Blank(*p.Title) {
		return model.Task{}, ErrorInvalid
	}

	var out model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := r.find(tx, id)
		if err != nil {
			return err
		}

		updates := map[string]any{"updated_at": time.Now().UTC()}
		if p.Title != nil {
			updates["title"] = *p.Title
		}
		if p.Description != nil {
			updates["description"] = *p.Description
		}
		if p.DueDate != nil {
			updates["due_date"] = p.DueDate.Time
		}
		if p.Completed != nil {
			updates["completed"] = *p.Completed
		}
		if err := tx.Model(&rec).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		rec, err = r.find(tx, id)
		if err != nil {
			return err
		}
		out = rec.toModel()
		return nil
	})
	return out, err
}

func (r *SQLiteRepo) Delete(ctx context.Context, id model.TaskID) error {
	n, err := id.Int64()
	if err != nil {
		return ErrorNotFound
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&taskRecord{}, n)
		if err := result.Error; err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		if result.RowsAffected == 0 {
			return ErrorNotFound
		}
		return tx.Where("resource_id = ?", n).Delete(&idempotencyRecord{}).Error
	})
}

func (r *SQLiteRepo) SaveIdempotencyKey(ctx context.Context, key string, id model.TaskID) error {
	n, err := id.Int64()
	if err != nil {
		return err
	}
	rec := idempotencyRecord{Key: key, ResourceID: n, CreatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

func (r *SQLiteRepo) GetIdempotencyKey(ctx context.Context, key string) (model.TaskID, error) {
	var rec idempotencyRecord
	if err := r.db.WithContext(ctx).First(&rec, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrorNotFound
		}
		return "", err
	}
	return model.FormatID(rec.ResourceID), nil
}

func (r *SQLiteRepo) find(db *gorm.DB, id model.TaskID) (taskRecord, error) {
	var rec taskRecord
	n, err := id.Int64()
	if err != nil {
		return rec, ErrorNotFound
	}
	if err := db.First(&rec, n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rec, ErrorNotFound
		}
		return rec, fmt.Errorf("failed to find task: %w", err)
	}
	return rec, nil
}

func mapGormError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrorConflict
	}
	return err
}
