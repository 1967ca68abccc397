// Package crm submits extracted conversation outcomes (leads, calendar
// events, survey results) to the CRM/ERP backend. Every attempt is recorded
// as a sync record so the fire-and-forget path stays auditable.
package crm

import (
	"context"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/kottzoltan/aivio/internal/models"
	"github.com/kottzoltan/aivio/pkg/apperr"
	"github.com/kottzoltan/aivio/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config CRM backend configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Lead is a sales contact captured from a conversation.
type Lead struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Note  string `json:"note,omitempty"`
}

// CalendarEvent is an appointment captured from a conversation.
type CalendarEvent struct {
	Title    string    `json:"title"`
	StartsAt time.Time `json:"startsAt"`
	Note     string    `json:"note,omitempty"`
}

// SurveyResult is a completed satisfaction survey.
type SurveyResult struct {
	Rating int    `json:"rating"`
	Note   string `json:"note,omitempty"`
}

type createResponse struct {
	ID string `json:"id"`
}

// Client posts records to the CRM backend over HTTP. A nil db disables sync
// recording; an empty BaseURL records every attempt as skipped.
type Client struct {
	config *Config
	db     *gorm.DB
}

// NewClient creates a CRM client.
func NewClient(cfg *Config, db *gorm.DB) *Client {
	if cfg == nil {
		cfg = &Config{Timeout: 10 * time.Second}
	}
	return &Client{config: cfg, db: db}
}

// SubmitLead creates a lead record.
func (c *Client) SubmitLead(ctx context.Context, personaKey string, lead Lead) error {
	return c.submit(ctx, personaKey, models.CRMSyncKindLead, "/api/leads", lead, models.SyncPayload{
		"name": lead.Name, "email": lead.Email, "phone": lead.Phone, "note": lead.Note,
	})
}

// SubmitEvent creates a calendar event.
func (c *Client) SubmitEvent(ctx context.Context, personaKey string, event CalendarEvent) error {
	return c.submit(ctx, personaKey, models.CRMSyncKindEvent, "/api/events", event, models.SyncPayload{
		"title": event.Title, "startsAt": event.StartsAt.Format(time.RFC3339), "note": event.Note,
	})
}

// SubmitSurvey records a completed satisfaction survey.
func (c *Client) SubmitSurvey(ctx context.Context, personaKey string, result SurveyResult) error {
	return c.submit(ctx, personaKey, models.CRMSyncKindSurvey, "/api/surveys", result, models.SyncPayload{
		"rating": result.Rating, "note": result.Note,
	})
}

func (c *Client) submit(ctx context.Context, personaKey string, kind models.CRMSyncKind, path string, body any, payload models.SyncPayload) error {
	if c.config.BaseURL == "" {
		c.record(personaKey, kind, models.CRMSyncStatusSkipped, payload, "", "crm backend not configured")
		return nil
	}

	timeout := c.config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var created createResponse
	err := requests.
		URL(c.config.BaseURL).
		Path(path).
		Header("Authorization", "Bearer "+c.config.APIKey).
		BodyJSON(body).
		ToJSON(&created).
		Fetch(ctx)
	if err != nil {
		c.record(personaKey, kind, models.CRMSyncStatusFailed, payload, "", err.Error())
		return apperr.Upstream("crm", err)
	}

	c.record(personaKey, kind, models.CRMSyncStatusOK, payload, created.ID, "")
	logger.Info("crm record synced",
		zap.String("persona", personaKey),
		zap.String("kind", string(kind)),
		zap.String("remoteId", created.ID))
	return nil
}

func (c *Client) record(personaKey string, kind models.CRMSyncKind, status models.CRMSyncStatus, payload models.SyncPayload, remoteID, errMsg string) {
	if c.db == nil {
		return
	}
	rec := &models.CRMSyncRecord{
		Persona:      personaKey,
		Kind:         kind,
		Status:       status,
		Payload:      payload,
		RemoteID:     remoteID,
		ErrorMessage: errMsg,
	}
	if err := models.CreateCRMSyncRecord(c.db, rec); err != nil {
		logger.Error("failed to record crm sync", zap.Error(err))
	}
}
