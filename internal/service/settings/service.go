// Package settings отдаёт настройки магазина через процессный кэш.
//
// Кэш прогревается целиком при первом обращении (или явным Warm). Set и Delete
// инвалидируют только свою запись; промах по ключу дочитывает его из хранилища.
// TTL и глобального обновления нет.
package settings

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/metrics"
)

const component = "settings"

// Service - доступ к настройкам с кэшированием.
type Service struct {
	repo    domain.SettingsRepository
	cache   Cache
	metrics *metrics.StoreMetrics
	logger  *log.Entry

	warmMu sync.Mutex
	warmed bool

	// fillMu: запись в хранилище с инвалидацией (Lock) не чередуется
	// с чтением из хранилища и заполнением кэша (RLock).
	fillMu sync.RWMutex
}

// NewService создаёт сервис настроек. Если cache nil, используется MemoryCache.
func NewService(repo domain.SettingsRepository, cache Cache, m *metrics.StoreMetrics, logger *log.Entry) *Service {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = log.New().WithField("component", "settings-service")
	}
	return &Service{repo: repo, cache: cache, metrics: m, logger: logger}
}

// Warm загружает все настройки в кэш. Повторный вызов перечитывает хранилище.
func (s *Service) Warm(ctx context.Context) (err error) {
	defer s.observe("warm", time.Now(), &err)

	s.warmMu.Lock()
	defer s.warmMu.Unlock()
	_, err = s.warmLocked(ctx)
	return err
}

func (s *Service) warmLocked(ctx context.Context) ([]domain.Setting, error) {
	s.fillMu.RLock()
	defer s.fillMu.RUnlock()

	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Flush()
	for _, setting := range all {
		s.cache.Set(setting)
	}
	s.warmed = true
	s.logger.WithField("count", len(all)).Debug("settings cache warmed")
	return all, nil
}

func (s *Service) ensureWarm(ctx context.Context) error {
	s.warmMu.Lock()
	defer s.warmMu.Unlock()
	if s.warmed {
		return nil
	}
	_, err := s.warmLocked(ctx)
	return err
}

// Get возвращает настройку по ключу или nil, если её нет.
func (s *Service) Get(ctx context.Context, key string) (_ *domain.Setting, err error) {
	defer s.observe("get", time.Now(), &err)

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.ErrSettingKeyRequired
	}
	if err := s.ensureWarm(ctx); err != nil {
		return nil, err
	}

	if cached, ok := s.cache.Get(key); ok {
		s.metrics.RecordSettingsLookup(true)
		return &cached, nil
	}
	s.metrics.RecordSettingsLookup(false)
	return s.fill(ctx, key)
}

// fill дочитывает ключ из хранилища и кладёт его в кэш.
func (s *Service) fill(ctx context.Context, key string) (*domain.Setting, error) {
	s.fillMu.RLock()
	defer s.fillMu.RUnlock()

	if cached, ok := s.cache.Get(key); ok {
		return &cached, nil
	}
	setting, err := s.repo.Get(ctx, key)
	if err != nil || setting == nil {
		return nil, err
	}
	s.cache.Set(*setting)
	return setting, nil
}

// Value возвращает значение настройки или fallback, если ключа нет.
func (s *Service) Value(ctx context.Context, key, fallback string) (string, error) {
	setting, err := s.Get(ctx, key)
	if err != nil {
		return fallback, err
	}
	if setting == nil {
		return fallback, nil
	}
	return setting.Value, nil
}

// All возвращает все настройки из хранилища и обновляет ими кэш.
func (s *Service) All(ctx context.Context) (_ []domain.Setting, err error) {
	defer s.observe("all", time.Now(), &err)

	s.warmMu.Lock()
	defer s.warmMu.Unlock()
	return s.warmLocked(ctx)
}

// Group возвращает настройки группы, минуя кэш.
func (s *Service) Group(ctx context.Context, group string) (_ []domain.Setting, err error) {
	defer s.observe("group", time.Now(), &err)
	return s.repo.ListGroup(ctx, group)
}

// Set сохраняет настройку и инвалидирует её запись в кэше.
func (s *Service) Set(ctx context.Context, setting domain.Setting) (err error) {
	defer s.observe("set", time.Now(), &err)

	setting.Key = strings.TrimSpace(setting.Key)
	if setting.Key == "" {
		return domain.ErrSettingKeyRequired
	}
	s.fillMu.Lock()
	err = s.repo.Upsert(ctx, setting)
	s.cache.Delete(setting.Key)
	s.fillMu.Unlock()
	if err != nil {
		return err
	}
	s.logger.WithField("key", setting.Key).Info("setting updated")
	return nil
}

// Delete удаляет настройку и её запись в кэше.
func (s *Service) Delete(ctx context.Context, key string) (err error) {
	defer s.observe("delete", time.Now(), &err)

	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrSettingKeyRequired
	}
	s.fillMu.Lock()
	err = s.repo.Delete(ctx, key)
	s.cache.Delete(key)
	s.fillMu.Unlock()
	if err != nil {
		return err
	}
	s.logger.WithField("key", key).Info("setting deleted")
	return nil
}

func (s *Service) observe(op string, started time.Time, errp *error) {
	err := *errp
	s.metrics.ObserveOperation(component, op, started, err)
	if domain.IsStoreError(err) {
		s.logger.WithError(err).WithField("operation", op).Error("settings store operation failed")
	}
}
