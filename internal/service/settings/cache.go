package settings

import (
	gocache "github.com/patrickmn/go-cache"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// Cache - процессный кэш настроек.
type Cache interface {
	Get(key string) (domain.Setting, bool)
	Set(setting domain.Setting)
	Delete(key string)
	Flush()
}

// MemoryCache - Cache поверх go-cache без истечения срока жизни записей.
type MemoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache создаёт кэш без TTL и без фоновой очистки.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{c: gocache.New(gocache.NoExpiration, 0)}
}

func (m *MemoryCache) Get(key string) (domain.Setting, bool) {
	if x, found := m.c.Get(key); found {
		return x.(domain.Setting), true
	}
	return domain.Setting{}, false
}

func (m *MemoryCache) Set(setting domain.Setting) {
	m.c.Set(setting.Key, setting, gocache.NoExpiration)
}

func (m *MemoryCache) Delete(key string) {
	m.c.Delete(key)
}

func (m *MemoryCache) Flush() {
	m.c.Flush()
}

var _ Cache = (*MemoryCache)(nil)
