package models

import (
	"time"

	"github.com/kottzoltan/aivio/pkg/constants"
	"gorm.io/gorm"
)

// ConversationLog is one immutable user/AI exchange, appended after every
// successful turn. Outlives the call session it came from.
type ConversationLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`

	LogID    string `json:"logId" gorm:"type:varchar(64);uniqueIndex;not null"` // business id
	CallID   string `json:"callId,omitempty" gorm:"size:128;index"`             // empty for sessionless turns
	Persona  string `json:"persona" gorm:"size:64;index;not null"`
	UserText string `json:"userText" gorm:"type:text"`
	AIText   string `json:"aiText" gorm:"type:text"`
}

// TableName 指定表名
func (ConversationLog) TableName() string {
	return constants.TABLE_CONVERSATION_LOGS
}

// CreateConversationLog appends one log entry.
func CreateConversationLog(db *gorm.DB, entry *ConversationLog) error {
	return db.Create(entry).Error
}

// GetConversationLogsByPersona returns recent entries for a persona.
func GetConversationLogsByPersona(db *gorm.DB, persona string, limit int) ([]ConversationLog, error) {
	var entries []ConversationLog
	query := db.Where("persona = ?", persona).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	return entries, err
}

// GetConversationLogsByCallID returns all entries for a call id in order.
func GetConversationLogsByCallID(db *gorm.DB, callID string) ([]ConversationLog, error) {
	var entries []ConversationLog
	err := db.Where("call_id = ?", callID).Order("created_at ASC").Find(&entries).Error
	return entries, err
}

// CountConversationLogs returns the total number of logged turns.
func CountConversationLogs(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&ConversationLog{}).Count(&count).Error
	return count, err
}
