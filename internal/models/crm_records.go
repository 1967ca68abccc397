package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/kottzoltan/aivio/pkg/constants"
	"gorm.io/gorm"
)

// CRMSyncStatus 同步状态
type CRMSyncStatus string

const (
	CRMSyncStatusOK      CRMSyncStatus = "ok"
	CRMSyncStatusFailed  CRMSyncStatus = "failed"
	CRMSyncStatusSkipped CRMSyncStatus = "skipped" // backend not configured
)

// CRMSyncKind 同步类型
type CRMSyncKind string

const (
	CRMSyncKindLead   CRMSyncKind = "lead"
	CRMSyncKindEvent  CRMSyncKind = "event"
	CRMSyncKindSurvey CRMSyncKind = "survey"
)

// SyncPayload 同步负载
type SyncPayload map[string]interface{}

// Value 实现 driver.Valuer 接口
func (p SyncPayload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan 实现 sql.Scanner 接口
func (p *SyncPayload) Scan(value interface{}) error {
	if value == nil {
		*p = make(SyncPayload)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		*p = make(SyncPayload)
		return nil
	}
	if len(bytes) == 0 {
		*p = make(SyncPayload)
		return nil
	}
	return json.Unmarshal(bytes, p)
}

// CRMSyncRecord records one attempted CRM submission, success or not, so the
// fire-and-forget side-effect path stays observable.
type CRMSyncRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`

	Persona      string        `json:"persona" gorm:"size:64;index;not null"`
	Kind         CRMSyncKind   `json:"kind" gorm:"size:20;index;not null"`
	Status       CRMSyncStatus `json:"status" gorm:"size:20;index;not null"`
	Payload      SyncPayload   `json:"payload" gorm:"type:json"`
	RemoteID     string        `json:"remoteId,omitempty" gorm:"size:128"`
	ErrorMessage string        `json:"errorMessage,omitempty" gorm:"type:text"`
}

// TableName 指定表名
func (CRMSyncRecord) TableName() string {
	return constants.TABLE_CRM_SYNC_RECORDS
}

// CreateCRMSyncRecord appends one sync record.
func CreateCRMSyncRecord(db *gorm.DB, record *CRMSyncRecord) error {
	return db.Create(record).Error
}

// GetCRMSyncRecordsByPersona returns recent sync records for a persona.
func GetCRMSyncRecordsByPersona(db *gorm.DB, persona string, limit int) ([]CRMSyncRecord, error) {
	var records []CRMSyncRecord
	query := db.Where("persona = ?", persona).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

// CountCRMSyncRecords counts sync records by status.
func CountCRMSyncRecords(db *gorm.DB, status CRMSyncStatus) (int64, error) {
	var count int64
	err := db.Model(&CRMSyncRecord{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
