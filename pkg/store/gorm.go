package store

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chat-widget-demo/engine/pkg/logger"
)

// KVRecord is the table backing the gorm durable store
type KVRecord struct {
	Key       string `gorm:"primaryKey;size:512"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (KVRecord) TableName() string {
	return "widget_kv"
}

// GormStore persists the durable store in Postgres. It keeps the same
// last-write-wins semantics as the other backends: each Set is an
// independent upsert with no surrounding transaction.
type GormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewGormStore migrates the KV table and returns the store
func NewGormStore(db *gorm.DB, log *logger.Logger) (*GormStore, error) {
	if err := db.AutoMigrate(&KVRecord{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db, log: log}, nil
}

func (s *GormStore) Get(key string) ([]byte, bool) {
	var record KVRecord
	err := s.db.First(&record, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false
	}
	if err != nil {
		s.log.Warn("kv read failed, treating key as absent", "key", key, "error", err.Error())
		return nil, false
	}
	return record.Value, true
}

func (s *GormStore) Set(key string, value []byte) error {
	record := KVRecord{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
}

func (s *GormStore) Delete(key string) {
	if err := s.db.Delete(&KVRecord{}, "key = ?", key).Error; err != nil {
		s.log.Warn("kv delete failed", "key", key, "error", err.Error())
	}
}

func (s *GormStore) Keys(prefix string) []string {
	var keys []string
	err := s.db.Model(&KVRecord{}).
		Where("key LIKE ?", escapeLike(prefix)+"%").
		Pluck("key", &keys).Error
	if err != nil {
		s.log.Warn("kv key scan failed", "prefix", prefix, "error", err.Error())
		return nil
	}
	return keys
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
