package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// AddressRepository - in-memory адресная книга. Все операции сериализованы одним мьютексом,
// поэтому инвариант «ровно один адрес по умолчанию» держится без дополнительных блокировок.
type AddressRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]domain.Address
	now    func() time.Time
}

// NewAddressRepository создаёт in-memory реализацию AddressRepository.
func NewAddressRepository() *AddressRepository {
	return &AddressRepository{
		items: make(map[int64]domain.Address),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// ListForUser возвращает адреса пользователя: сначала адрес по умолчанию, затем по id.
func (r *AddressRepository) ListForUser(_ context.Context, userID int64) ([]domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.listLocked(userID), nil
}

func (r *AddressRepository) listLocked(userID int64) []domain.Address {
	result := make([]domain.Address, 0)
	for _, a := range r.items {
		if a.UserID == userID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].IsDefault != result[j].IsDefault {
			return result[i].IsDefault
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (r *AddressRepository) GetDefault(_ context.Context, userID int64) (*domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.items {
		if a.UserID == userID && a.IsDefault {
			return &a, nil
		}
	}
	return nil, nil
}

func (r *AddressRepository) Get(_ context.Context, addressID int64) (*domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[addressID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// Add сохраняет адрес. Первый адрес пользователя всегда становится адресом по умолчанию.
func (r *AddressRepository) Add(_ context.Context, userID int64, fields domain.AddressFields) (int64, error) {
	if userID <= 0 {
		return 0, domain.ErrUserRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	makeDefault := fields.IsDefault || len(r.listLocked(userID)) == 0
	if makeDefault {
		r.clearDefaultLocked(userID, 0)
	}

	r.nextID++
	r.items[r.nextID] = domain.Address{
		ID:           r.nextID,
		UserID:       userID,
		Address:      fields.Address,
		Number:       fields.Number,
		Complement:   fields.Complement,
		Neighborhood: fields.Neighborhood,
		City:         fields.City,
		State:        fields.State,
		Zipcode:      fields.Zipcode,
		IsDefault:    makeDefault,
		CreatedAt:    r.now(),
	}
	return r.nextID, nil
}

// SetDefault делает адрес адресом по умолчанию; чужой или отсутствующий адрес не меняет ничего.
func (r *AddressRepository) SetDefault(_ context.Context, addressID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[addressID]
	if !ok || a.UserID != userID {
		return domain.ErrAddressNotOwned
	}
	r.clearDefaultLocked(userID, addressID)
	a.IsDefault = true
	r.items[addressID] = a
	return nil
}

// Update применяет частичное обновление. Снять флаг с текущего адреса по умолчанию нельзя.
func (r *AddressRepository) Update(_ context.Context, addressID int64, update domain.AddressUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[addressID]
	if !ok {
		return domain.ErrAddressNotFound
	}
	update.Apply(&a)
	if update.PromoteToDefault() {
		r.clearDefaultLocked(a.UserID, addressID)
		a.IsDefault = true
	}
	r.items[addressID] = a
	return nil
}

// Delete удаляет адрес пользователя; если он был по умолчанию, флаг получает самый старый из оставшихся.
func (r *AddressRepository) Delete(_ context.Context, addressID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[addressID]
	if !ok || a.UserID != userID {
		return domain.ErrAddressNotFound
	}
	delete(r.items, addressID)

	if a.IsDefault {
		var oldest *domain.Address
		for _, other := range r.items {
			if other.UserID == userID && (oldest == nil || other.ID < oldest.ID) {
				other := other
				oldest = &other
			}
		}
		if oldest != nil {
			oldest.IsDefault = true
			r.items[oldest.ID] = *oldest
		}
	}
	return nil
}

func (r *AddressRepository) DeleteAllForUser(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, a := range r.items {
		if a.UserID == userID {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *AddressRepository) clearDefaultLocked(userID, exceptID int64) {
	for id, a := range r.items {
		if a.UserID == userID && a.IsDefault && id != exceptID {
			a.IsDefault = false
			r.items[id] = a
		}
	}
}

var _ domain.AddressRepository = (*AddressRepository)(nil)
