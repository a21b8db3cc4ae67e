package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

const defaultSettingGroup = "general"

// SettingsRepository - in-memory key/value хранилище настроек.
type SettingsRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Setting
}

// NewSettingsRepository создаёт in-memory реализацию SettingsRepository.
func NewSettingsRepository(initial ...domain.Setting) *SettingsRepository {
	r := &SettingsRepository{items: make(map[string]domain.Setting, len(initial))}
	for _, s := range initial {
		_ = r.Upsert(context.Background(), s)
	}
	return r
}

func (r *SettingsRepository) All(_ context.Context) ([]domain.Setting, error) {
	return r.filter(func(domain.Setting) bool { return true }), nil
}

func (r *SettingsRepository) ListGroup(_ context.Context, group string) ([]domain.Setting, error) {
	return r.filter(func(s domain.Setting) bool { return s.Group == group }), nil
}

func (r *SettingsRepository) filter(keep func(domain.Setting) bool) []domain.Setting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Setting, 0, len(r.items))
	for _, s := range r.items {
		if keep(s) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

func (r *SettingsRepository) Get(_ context.Context, key string) (*domain.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[key]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *SettingsRepository) Upsert(_ context.Context, setting domain.Setting) error {
	if setting.Key == "" {
		return domain.ErrSettingKeyRequired
	}
	if setting.Group == "" {
		setting.Group = defaultSettingGroup
	}
	setting.UpdatedAt = time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[setting.Key] = setting
	return nil
}

func (r *SettingsRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, key)
	return nil
}

var _ domain.SettingsRepository = (*SettingsRepository)(nil)
