package export

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/hudmol/yale-accession-marc-export/models"
)

const enumCacheTTL = time.Hour

// EnumSource maps enumeration-value ids to values and back, with a Redis
// write-through cache in front of the database. A nil Redis client just
// means every miss goes to the database.
type EnumSource struct {
	db  *gorm.DB
	rdb *redis.Client

	mu      sync.Mutex
	byID    map[string]string
	byValue map[string]int64
}

func NewEnumSource(db *gorm.DB, rdb *redis.Client) *EnumSource {
	return &EnumSource{
		db:      db,
		rdb:     rdb,
		byID:    make(map[string]string),
		byValue: make(map[string]int64),
	}
}

// ValueForID resolves an enumeration value id to its string value.
func (s *EnumSource) ValueForID(enumName string, id int64) (string, error) {
	key := fmt.Sprintf("enum:%s:%d", enumName, id)

	s.mu.Lock()
	if value, ok := s.byID[key]; ok {
		s.mu.Unlock()
		return value, nil
	}
	s.mu.Unlock()

	if s.rdb != nil {
		if value, err := s.rdb.Get(context.Background(), key).Result(); err == nil {
			s.remember(key, value)
			return value, nil
		}
	}

	var values []string
	err := s.db.Model(&models.EnumerationValue{}).
		Joins("JOIN enumeration ON enumeration.id = enumeration_value.enumeration_id").
		Where("enumeration.name = ? AND enumeration_value.id = ?", enumName, id).
		Limit(1).
		Pluck("enumeration_value.value", &values).Error
	if err != nil {
		return "", fmt.Errorf("looking up %s value %d: %w", enumName, id, err)
	}
	if len(values) == 0 {
		return "", fmt.Errorf("no %s value with id %d", enumName, id)
	}
	value := values[0]

	if s.rdb != nil {
		s.rdb.Set(context.Background(), key, value, enumCacheTTL)
	}
	s.remember(key, value)

	return value, nil
}

// IDForValue resolves an enumeration value string to its id.
func (s *EnumSource) IDForValue(enumName, value string) (int64, error) {
	key := fmt.Sprintf("enum:%s:%s", enumName, value)

	s.mu.Lock()
	if id, ok := s.byValue[key]; ok {
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	var ids []int64
	err := s.db.Model(&models.EnumerationValue{}).
		Joins("JOIN enumeration ON enumeration.id = enumeration_value.enumeration_id").
		Where("enumeration.name = ? AND enumeration_value.value = ?", enumName, value).
		Limit(1).
		Pluck("enumeration_value.id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("looking up %s id for %q: %w", enumName, value, err)
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("no %s value %q", enumName, value)
	}
	id := ids[0]

	s.mu.Lock()
	s.byValue[key] = id
	s.mu.Unlock()

	return id, nil
}

func (s *EnumSource) remember(key, value string) {
	s.mu.Lock()
	s.byID[key] = value
	s.mu.Unlock()
}
