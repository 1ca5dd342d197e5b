package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is the user-tracked state of a job application.
type ApplicationStatus string

// ApplicationStatus constants
const (
	StatusApplied     ApplicationStatus = "applied"
	StatusInterviewed ApplicationStatus = "interviewed"
	StatusRejected    ApplicationStatus = "rejected"
	StatusOffer       ApplicationStatus = "offer"
)

// ParseApplicationStatus parses a wire status value.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	switch st := ApplicationStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusApplied, StatusInterviewed, StatusRejected, StatusOffer:
		return st, nil
	default:
		return "", &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", s)}
	}
}

// CallbackReceived is true iff the employer responded positively.
func (s ApplicationStatus) CallbackReceived() bool {
	return s == StatusInterviewed || s == StatusOffer
}

// ApplicationRecord is the persisted document for one generated package.
type ApplicationRecord struct {
	ID               uuid.UUID         `json:"id"`
	OwnerID          string            `json:"userId"`
	Company          string            `json:"company"`
	JobTitle         string            `json:"jobTitle"`
	JobDescription   string            `json:"jobDescription"`
	Resume           string            `json:"resume"`
	ToolsSelected    []ToolName        `json:"toolsSelected"`
	Outputs          Outputs           `json:"outputs"`
	Status           ApplicationStatus `json:"status"`
	CallbackReceived bool              `json:"callbackReceived"`
	DateApplied      time.Time         `json:"dateApplied"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// SetStatus changes the status and recomputes CallbackReceived.
func (r *ApplicationRecord) SetStatus(status ApplicationStatus) {
	r.Status = status
	r.CallbackReceived = status.CallbackReceived()
}

// ApplicationStats summarizes a user's applications for the dashboard.
type ApplicationStats struct {
	Total       int `json:"total"`
	Callbacks   int `json:"callbacks"`
	SuccessRate int `json:"successRate"`
	Applied     int `json:"applied"`
	Interviewed int `json:"interviewed"`
	Rejected    int `json:"rejected"`
	Offers      int `json:"offers"`
}

// ComputeStats aggregates records into dashboard statistics.
// SuccessRate is the rounded percentage of records with a callback.
func ComputeStats(records []ApplicationRecord) ApplicationStats {
	var stats ApplicationStats
	stats.Total = len(records)
	for _, r := range records {
		if r.CallbackReceived {
			stats.Callbacks++
		}
		switch r.Status {
		case StatusApplied:
			stats.Applied++
		case StatusInterviewed:
			stats.Interviewed++
		case StatusRejected:
			stats.Rejected++
		case StatusOffer:
			stats.Offers++
		}
	}
	if stats.Total > 0 {
		stats.SuccessRate = (stats.Callbacks*100 + stats.Total/2) / stats.Total
	}
	return stats
}
