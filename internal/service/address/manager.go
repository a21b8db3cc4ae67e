// Package address - адресная книга пользователя поверх domain.AddressRepository:
// валидация полей, логирование и метрики. Инвариант адреса по умолчанию держит репозиторий.
package address

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/metrics"
	"github.com/vladislavdragonenkov/printshop/internal/validation"
)

const component = "address"

// Manager управляет адресами пользователей.
type Manager struct {
	repo    domain.AddressRepository
	metrics *metrics.StoreMetrics
	logger  *log.Entry
}

// NewManager конструирует менеджер. metrics и logger опциональны.
func NewManager(repo domain.AddressRepository, m *metrics.StoreMetrics, logger *log.Entry) *Manager {
	if logger == nil {
		logger = log.New().WithField("component", "address-manager")
	}
	return &Manager{repo: repo, metrics: m, logger: logger}
}

// ListForUser возвращает адреса пользователя, адрес по умолчанию первым.
func (m *Manager) ListForUser(ctx context.Context, userID int64) (_ []domain.Address, err error) {
	defer m.observe("list", time.Now(), &err)
	return m.repo.ListForUser(ctx, userID)
}

// GetDefault возвращает адрес по умолчанию или nil.
func (m *Manager) GetDefault(ctx context.Context, userID int64) (_ *domain.Address, err error) {
	defer m.observe("get_default", time.Now(), &err)
	return m.repo.GetDefault(ctx, userID)
}

// Get возвращает адрес по id или nil.
func (m *Manager) Get(ctx context.Context, addressID int64) (_ *domain.Address, err error) {
	defer m.observe("get", time.Now(), &err)
	return m.repo.Get(ctx, addressID)
}

// Add валидирует и сохраняет адрес. Первый адрес пользователя становится адресом по умолчанию.
func (m *Manager) Add(ctx context.Context, userID int64, fields domain.AddressFields) (_ int64, err error) {
	defer m.observe("add", time.Now(), &err)

	if userID <= 0 {
		return 0, domain.ErrUserRequired
	}
	fields = normalizeFields(fields)
	if err := validation.Struct(fields); err != nil {
		return 0, err
	}

	id, err := m.repo.Add(ctx, userID, fields)
	if err != nil {
		return 0, err
	}
	if fields.IsDefault {
		m.metrics.RecordDefaultSwitch()
	}
	m.logger.WithFields(log.Fields{"user_id": userID, "address_id": id}).Debug("address added")
	return id, nil
}

// SetDefault атомарно переносит флаг по умолчанию на адрес пользователя.
func (m *Manager) SetDefault(ctx context.Context, addressID, userID int64) (err error) {
	defer m.observe("set_default", time.Now(), &err)

	if err := m.repo.SetDefault(ctx, addressID, userID); err != nil {
		return err
	}
	m.metrics.RecordDefaultSwitch()
	m.logger.WithFields(log.Fields{"user_id": userID, "address_id": addressID}).Info("default address switched")
	return nil
}

// Update применяет частичное обновление адреса.
func (m *Manager) Update(ctx context.Context, addressID int64, update domain.AddressUpdate) (err error) {
	defer m.observe("update", time.Now(), &err)

	update = normalizeUpdate(update)
	if err := validation.Struct(update); err != nil {
		return err
	}
	if err := m.repo.Update(ctx, addressID, update); err != nil {
		return err
	}
	if update.PromoteToDefault() {
		m.metrics.RecordDefaultSwitch()
	}
	return nil
}

// Delete удаляет адрес пользователя.
func (m *Manager) Delete(ctx context.Context, addressID, userID int64) (err error) {
	defer m.observe("delete", time.Now(), &err)
	return m.repo.Delete(ctx, addressID, userID)
}

// DeleteAllForUser удаляет все адреса пользователя.
func (m *Manager) DeleteAllForUser(ctx context.Context, userID int64) (err error) {
	defer m.observe("delete_all", time.Now(), &err)

	if err := m.repo.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}
	m.logger.WithField("user_id", userID).Info("all addresses deleted")
	return nil
}

func (m *Manager) observe(op string, started time.Time, errp *error) {
	err := *errp
	m.metrics.ObserveOperation(component, op, started, err)
	if domain.IsStoreError(err) {
		m.logger.WithError(err).WithField("operation", op).Error("address store operation failed")
	}
}

func normalizeFields(f domain.AddressFields) domain.AddressFields {
	f.Address = strings.TrimSpace(f.Address)
	f.Number = strings.TrimSpace(f.Number)
	f.Complement = strings.TrimSpace(f.Complement)
	f.Neighborhood = strings.TrimSpace(f.Neighborhood)
	f.City = strings.TrimSpace(f.City)
	f.State = strings.ToUpper(strings.TrimSpace(f.State))
	f.Zipcode = strings.TrimSpace(f.Zipcode)
	return f
}

func normalizeUpdate(u domain.AddressUpdate) domain.AddressUpdate {
	for _, p := range []*string{u.Address, u.Number, u.Complement, u.Neighborhood, u.City, u.Zipcode} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	if u.State != nil {
		state := strings.ToUpper(strings.TrimSpace(*u.State))
		u.State = &state
	}
	return u
}
