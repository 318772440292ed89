// Package domain contains inbound report documents and their matching
// against contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusConfirmed ReportStatus = "confirmed"
	ReportStatusRejected  ReportStatus = "rejected"
	ReportStatusProcessed ReportStatus = "processed"
)

// MatchConfidence grades how sure the scorer is about a report's contract.
type MatchConfidence string

const (
	ConfidenceHigh   MatchConfidence = "high"
	ConfidenceMedium MatchConfidence = "medium"
	ConfidenceNone   MatchConfidence = "none"
)

// InboundReport is a sales report that arrived by email. It holds the raw
// envelope plus the match outcome, and waits for operator review unless the
// match was certain.
type InboundReport struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"not null;index" json:"organization_id"`

	SenderEmail   string `gorm:"not null;index" json:"sender_email"`
	SenderName    string `gorm:"type:text" json:"sender_name,omitempty"`
	Subject       string `gorm:"type:text" json:"subject,omitempty"`
	AttachmentKey string `gorm:"type:text" json:"attachment_key,omitempty"`

	Status ReportStatus `gorm:"type:text;not null;default:'pending'" json:"status"`

	// MatchedContractID is only ever set from a real match outcome; a report
	// with ConfidenceNone carries no contract at all.
	MatchConfidence   MatchConfidence `gorm:"type:text;not null;default:'none'" json:"match_confidence"`
	MatchedContractID *snowflake.ID   `gorm:"index" json:"matched_contract_id,omitempty"`
	CandidateIDs      datatypes.JSON  `gorm:"type:jsonb" json:"candidate_ids,omitempty"`
	MatchReason       string          `gorm:"type:text" json:"match_reason,omitempty"`

	RejectReason string `gorm:"type:text" json:"reject_reason,omitempty"`

	// SalesPeriodID links the period produced when the report was processed.
	SalesPeriodID *snowflake.ID `gorm:"index" json:"sales_period_id,omitempty"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`

	ReceivedAt time.Time `gorm:"not null" json:"received_at"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (InboundReport) TableName() string { return "inbound_reports" }
