package metadata

import (
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Generic Accessors ---

// GetValue retrieves a value for a given key. A missing key yields "" and found=false.
func GetValue(db *gorm.DB, key string) (string, bool, error) {
	var meta Metadata
	err := db.Where("key = ?", key).First(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return meta.Value, true, nil
}

// SetValue creates or updates a value for a given key. Pass a transaction handle
// to make the write part of a larger unit.
func SetValue(db *gorm.DB, key, value string) error {
	meta := Metadata{
		Key:   key,
		Value: value,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error
}

// --- Curation markers ---

// CurationSource 标识审核数据的来源
type CurationSource string

const (
	SourceEdit      CurationSource = "edit"
	SourcePromotion CurationSource = "promotion"
)

// Curation 是写入审核标记的内容
type Curation struct {
	Curator   string         `json:"curator"`
	CuratedAt time.Time      `json:"curatedAt"`
	Source    CurationSource `json:"source"`
}

// GetCuration 读取物品的审核标记，未审核时返回 nil。
func GetCuration(db *gorm.DB, itemID uint) (*Curation, error) {
	raw, found, err := GetValue(db, CurationKey(itemID))
	if err != nil || !found {
		return nil, err
	}
	var c Curation
	if err := sonic.UnmarshalString(raw, &c); err != nil {
		return nil, fmt.Errorf("无法解析元数据 '%s' 的值: %w", CurationKey(itemID), err)
	}
	return &c, nil
}

// SetCuration 写入（覆盖）物品的审核标记。
func SetCuration(db *gorm.DB, itemID uint, c Curation) error {
	raw, err := sonic.MarshalString(c)
	if err != nil {
		return fmt.Errorf("无法序列化审核标记: %w", err)
	}
	return SetValue(db, CurationKey(itemID), raw)
}
