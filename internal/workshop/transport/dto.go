// Package transport defines the wire shapes of the quote endpoints. The
// update body is a tagged union: a workflow action when workflowAction is
// present, otherwise a direct status/amount update.
package transport

import (
	"encoding/json"
	"strings"
)

// WorkflowUpdate drives the quote through negotiation, acceptance, or
// rejection.
type WorkflowUpdate struct {
	Action           string
	NegotiatedAmount *float64
	NegotiationNote  *string
	RejectionReason  *string
}

// DirectUpdate changes the quote's status and/or labor figures without going
// through the workflow actions.
type DirectUpdate struct {
	Status     string
	LaborHours *float64
	LaborRate  *float64
}

// QuoteUpdateRequest is the PATCH body. Exactly one of Workflow or Direct is
// set after unmarshalling; Workflow wins whenever workflowAction is present.
type QuoteUpdateRequest struct {
	Workflow *WorkflowUpdate
	Direct   *DirectUpdate
}

type quoteItemPatch struct {
	LaborHours *float64 `json:"laborHours"`
	Quantity   *float64 `json:"quantity"`
	LaborRate  *float64 `json:"laborRate"`
	UnitPrice  *float64 `json:"unitPrice"`
}

type rawQuoteUpdate struct {
	WorkflowAction   string           `json:"workflowAction"`
	NegotiatedAmount *float64         `json:"negotiatedAmount"`
	NegotiationNote  *string          `json:"negotiationNote"`
	RejectionReason  *string          `json:"rejectionReason"`
	Status           string           `json:"status"`
	Header           *struct {
		Status string `json:"status"`
	} `json:"header"`
	Items []quoteItemPatch `json:"items"`
	Item  *quoteItemPatch  `json:"item"`
}

func (r *QuoteUpdateRequest) UnmarshalJSON(data []byte) error {
	var raw rawQuoteUpdate
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if action := strings.ToLower(strings.TrimSpace(raw.WorkflowAction)); action != "" {
		r.Workflow = &WorkflowUpdate{
			Action:           action,
			NegotiatedAmount: raw.NegotiatedAmount,
			NegotiationNote:  raw.NegotiationNote,
			RejectionReason:  raw.RejectionReason,
		}
		r.Direct = nil
		return nil
	}

	status := raw.Status
	if status == "" && raw.Header != nil {
		status = raw.Header.Status
	}

	var item *quoteItemPatch
	if len(raw.Items) > 0 {
		item = &raw.Items[0]
	} else if raw.Item != nil {
		item = raw.Item
	}

	direct := &DirectUpdate{Status: strings.ToLower(strings.TrimSpace(status))}
	if item != nil {
		direct.LaborHours = item.LaborHours
		if direct.LaborHours == nil {
			direct.LaborHours = item.Quantity
		}
		direct.LaborRate = item.LaborRate
		if direct.LaborRate == nil {
			direct.LaborRate = item.UnitPrice
		}
	}
	r.Direct = direct
	r.Workflow = nil
	return nil
}
