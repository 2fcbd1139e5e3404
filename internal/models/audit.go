package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin         = "LOGIN"
	AuditActionRegister      = "REGISTER"
	AuditActionStudentDelete = "STUDENT_DELETE"
	AuditActionEntryDelete   = "ENTRY_DELETE"
	AuditActionDemoSeed      = "DEMO_SEED"
	AuditActionDemoClear     = "DEMO_CLEAR"
	AuditActionReportRequest = "REPORT_REQUEST"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// AuditContext carries request details recorded with an audit entry.
type AuditContext struct {
	IPAddress string
	UserAgent string
}

// NewAuditLog builds an audit log for the acting user.
func NewAuditLog(userID, action, resource, resourceID string, values []byte, meta AuditContext) *AuditLog {
	log := &AuditLog{
		UserID:    &userID,
		Action:    action,
		Resource:  resource,
		NewValues: values,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if resourceID != "" {
		log.ResourceID = &resourceID
	}
	return log
}
