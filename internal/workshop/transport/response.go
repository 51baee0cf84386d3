package transport

import (
	"time"

	"workshop_portal_backend/internal/workshop/repository"

	"github.com/google/uuid"
)

// QuoteResponse is the wire shape of a workshop quote.
type QuoteResponse struct {
	ID               uuid.UUID      `json:"id"`
	CompanyID        uuid.UUID      `json:"companyId"`
	QuoteType        string         `json:"quoteType"`
	Status           string         `json:"status"`
	EstimateID       *uuid.UUID     `json:"estimateId"`
	JobCardID        *uuid.UUID     `json:"jobCardId"`
	BranchID         *uuid.UUID     `json:"branchId"`
	Currency         *string        `json:"currency,omitempty"`
	TotalAmount      float64        `json:"totalAmount"`
	NegotiatedAmount *float64       `json:"negotiatedAmount"`
	QuotedAmount     *float64       `json:"quotedAmount"`
	AcceptedAmount   *float64       `json:"acceptedAmount"`
	AdditionalAmount float64        `json:"additionalAmount"`
	ETAHours         *float64       `json:"etaHours,omitempty"`
	Remarks          *string        `json:"remarks"`
	Meta             map[string]any `json:"meta"`
	CreatedBy        *uuid.UUID     `json:"createdBy,omitempty"`
	ApprovedBy       *uuid.UUID     `json:"approvedBy"`
	ApprovedAt       *time.Time     `json:"approvedAt"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// FromQuote maps a stored quote onto the wire shape.
func FromQuote(q *repository.Quote) QuoteResponse {
	return QuoteResponse{
		ID:               q.ID,
		CompanyID:        q.CompanyID,
		QuoteType:        "branch_labor",
		Status:           q.Status,
		EstimateID:       q.EstimateID,
		JobCardID:        q.JobCardID,
		BranchID:         q.BranchID,
		Currency:         q.Currency,
		TotalAmount:      q.TotalAmount,
		NegotiatedAmount: q.NegotiatedAmount,
		QuotedAmount:     q.QuotedAmount,
		AcceptedAmount:   q.AcceptedAmount,
		AdditionalAmount: q.AdditionalAmount,
		ETAHours:         q.ETAHours,
		Remarks:          q.Remarks,
		Meta:             q.Meta,
		CreatedBy:        q.CreatedBy,
		ApprovedBy:       q.ApprovedBy,
		ApprovedAt:       q.ApprovedAt,
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
	}
}

// QuoteEnvelope is the {quote, items} payload both surfaces return. Items are
// always empty for branch labor quotes; the array keeps the shape stable for
// clients that also consume part quotes.
type QuoteEnvelope struct {
	Quote QuoteResponse `json:"quote"`
	Items []any         `json:"items"`
}

// Envelope wraps a quote in the response payload shape.
func Envelope(q *repository.Quote) QuoteEnvelope {
	return QuoteEnvelope{Quote: FromQuote(q), Items: []any{}}
}
