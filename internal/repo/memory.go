package repo

import (
	"context"
	"sync"
	"time"

	"github.com/BuzzLyutic/taskboard/internal/model"
)

// MemoryRepo хранит задачи в памяти процесса, данные теряются при остановке
type MemoryRepo struct {
	mu     sync.RWMutex
	tasks  map[int64]model.Task
	keys   map[string]int64
	nextID int64
	now    func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		tasks:  make(map[int64]model.Task),
		keys:   make(map[string]int64),
		nextID: 1,
		now:    time.Now,
	}
}

func (r *MemoryRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	if model.Blank(t.Title) {
		return model.Task{}, ErrorInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	t.ID = model.FormatID(id)
	t.Completed = false
	t.CreatedAt = r.now().UTC()
	t.UpdatedAt = nil
	r.tasks[id] = t
	return t, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id model.TaskID) (model.Task, error) {
	n, err := id.Int64()
	if err != nil {
		return model.Task{}, ErrorNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[n]
	if !ok {
		return model.Task{}, ErrorNotFound
	}
	return t, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]model.Task, 0, len(r.tasks))
	for id := int64(1); id < r.nextID; id++ {
		if t, ok := r.tasks[id]; ok {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id model.TaskID, p model.Patch) (model.Task, error) {
	n, err := id.Int64()
	if err != nil {
		return model.Task{}, ErrorNotFound
	}
	if p.Title != nil && model.Blank(*p.Title) {
		return model.Task{}, ErrorInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[n]
	if !ok {
		return model.Task{}, ErrorNotFound
	}
	t = t.Apply(p)
	now := r.now().UTC()
	t.UpdatedAt = &now
	r.tasks[n] = t
	return t, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id model.TaskID) error {
	n, err := id.Int64()
	if err != nil {
		return ErrorNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[n]; !ok {
		return ErrorNotFound
	}
	delete(r.tasks, n)
	for key, ref := range r.keys {
		if ref == n {
			delete(r.keys, key)
		}
	}
	return nil
}

func (r *MemoryRepo) SaveIdempotencyKey(ctx context.Context, key string, id model.TaskID) error {
	n, err := id.Int64()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keys[key]; !ok {
		r.keys[key] = n
	}
	return nil
}

func (r *MemoryRepo) GetIdempotencyKey(ctx context.Context, key string) (model.TaskID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.keys[key]
	if !ok {
		return "", ErrorNotFound
	}
	return model.FormatID(n), nil
}
