package order

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"time"
)

const (
	orderNumberPrefix   = "ORD"
	orderNumberLayout   = "20060102150405"
	orderNumberSuffix   = 4
	orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// unbiasedByteLimit - наибольшее кратное 36, не превышающее 256; байты от него и выше отбрасываются.
	unbiasedByteLimit = 256 / len(orderNumberAlphabet) * len(orderNumberAlphabet)
)

// NumberGenerator выдаёт номера заказов вида ORD + YYYYMMDDhhmmss + 4 символа [A-Z0-9].
// Уникальность не гарантируется: пространство суффиксов - 36^4 в секунду,
// конфликт ловит уникальный индекс хранилища.
type NumberGenerator struct {
	now  func() time.Time
	rand io.Reader
}

// NewNumberGenerator создаёт генератор на системных часах и crypto/rand.
func NewNumberGenerator() *NumberGenerator {
	return &NumberGenerator{
		now:  func() time.Time { return time.Now().UTC() },
		rand: rand.Reader,
	}
}

// Generate возвращает новый номер заказа.
func (g *NumberGenerator) Generate() (string, error) {
	var seed [16]byte
	if _, err := io.ReadFull(g.rand, seed[:]); err != nil {
		return "", fmt.Errorf("read random seed: %w", err)
	}

	return orderNumberPrefix + g.now().UTC().Format(orderNumberLayout) + suffixFromDigest(sha256.Sum256(seed[:])), nil
}

// suffixFromDigest выбирает символы суффикса из байтов SHA-256 без смещения распределения:
// байты >= unbiasedByteLimit пропускаются, при нехватке байтов дайджест хэшируется повторно.
func suffixFromDigest(sum [sha256.Size]byte) string {
	suffix := make([]byte, 0, orderNumberSuffix)
	for {
		for _, b := range sum {
			if int(b) >= unbiasedByteLimit {
				continue
			}
			suffix = append(suffix, orderNumberAlphabet[int(b)%len(orderNumberAlphabet)])
			if len(suffix) == orderNumberSuffix {
				return string(suffix)
			}
		}
		sum = sha256.Sum256(sum[:])
	}
}
