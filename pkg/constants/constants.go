package constants

// Database table names
const (
	TABLE_PERSONA_OVERRIDES = "persona_overrides"
	TABLE_CONVERSATION_LOGS = "conversation_logs"
	TABLE_CRM_SYNC_RECORDS  = "crm_sync_records"
)

// Built-in persona keys
const (
	PERSONA_OUTBOUND_SALES = "outbound_sales"
	PERSONA_EMAIL_SALES    = "email_sales"
	PERSONA_SUPPORT        = "support_inbound"
	PERSONA_DATA_INTAKE    = "data_intake"
	PERSONA_SURVEY         = "survey_satisfaction"
	PERSONA_DEMO           = "demo"
)

// DEFAULT_PERSONA is assigned to call sessions that don't name a robot.
const DEFAULT_PERSONA = PERSONA_SUPPORT
