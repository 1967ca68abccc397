package models

import (
	"time"

	"github.com/kottzoltan/aivio/pkg/constants"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PersonaOverride stores runtime-supplied replacements for one or more
// built-in persona fields. Built-in definitions are never deleted, only
// shadowed by non-empty override fields.
type PersonaOverride struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	Key         string `json:"key" gorm:"type:varchar(64);uniqueIndex;not null"` // persona key
	Title       string `json:"title" gorm:"size:128"`
	Intro       string `json:"intro" gorm:"type:text"`
	Instruction string `json:"instruction" gorm:"type:text"`
	Style       string `json:"style" gorm:"type:text"`
	Script      string `json:"script" gorm:"type:text"`
	Knowledge   string `json:"knowledge" gorm:"type:text"`
}

// TableName 指定表名
func (PersonaOverride) TableName() string {
	return constants.TABLE_PERSONA_OVERRIDES
}

// UpsertPersonaOverride writes the override for its persona key,
// last-write-wins on conflict.
func UpsertPersonaOverride(db *gorm.DB, override *PersonaOverride) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "intro", "instruction", "style", "script", "knowledge", "updated_at",
		}),
	}).Create(override).Error
}

// GetPersonaOverride fetches the override for a persona key.
func GetPersonaOverride(db *gorm.DB, key string) (*PersonaOverride, error) {
	var override PersonaOverride
	err := db.Where("`key` = ?", key).First(&override).Error
	if err != nil {
		return nil, err
	}
	return &override, nil
}

// ListPersonaOverrides returns all stored overrides.
func ListPersonaOverrides(db *gorm.DB) ([]PersonaOverride, error) {
	var overrides []PersonaOverride
	err := db.Order("created_at ASC").Find(&overrides).Error
	return overrides, err
}
