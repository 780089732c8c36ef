package ports

import (
	"context"
	"time"
)

// ProtocolData is one protocol assignment as reported by the treatment API
type ProtocolData struct {
	ID        string
	Name      string
	Status    string
	StartDate *time.Time
	Progress  float64
}

// ProtocolAssignments splits a recipient's protocols by lifecycle
type ProtocolAssignments struct {
	Active  []ProtocolData
	Pending []ProtocolData
}

// CheckinQuestion is one task of the day
type CheckinQuestion struct {
	ID   string
	Text string
}

// CheckinResponse is an answer already given today
type CheckinResponse struct {
	QuestionID string
	Answer     string
}

// DailyCheckin is the check-in state of one protocol for today
type DailyCheckin struct {
	HasCheckinToday bool
	Questions       []CheckinQuestion
	Responses       []CheckinResponse
}

// TreatmentAPI defines the contract for the external treatment tracking API
type TreatmentAPI interface {
	GetProtocolAssignments(ctx context.Context, recipientID string) (*ProtocolAssignments, error)
	GetDailyCheckin(ctx context.Context, protocolID string) (*DailyCheckin, error)
}
