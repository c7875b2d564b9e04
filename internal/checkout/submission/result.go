package submission

import (
	"fmt"

	"github.com/looprex/checkout/internal/domain"
)

type Stage string

const (
	StageHeader   Stage = "header"
	StageLineItem Stage = "line_item"
	StageStock    Stage = "stock"
)

// SubmissionError reports that the order header could not be created. No
// line items were attempted.
type SubmissionError struct {
	OrderNumber string
	Stage       Stage
	Err         error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit order %s: %s: %v", e.OrderNumber, e.Stage, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

type LineFailure struct {
	Line   domain.OrderLine `json:"line"`
	Stage  Stage            `json:"stage"`
	Reason string           `json:"reason"`
}

// Result is the outcome of a submission whose header was created.
// AllSucceeded is true only when every line item was created; stock
// reductions that failed are reported separately and never undo a line.
type Result struct {
	AllSucceeded  bool               `json:"allSucceeded"`
	OrderID       int64              `json:"orderId"`
	OrderNumber   string             `json:"orderNumber"`
	Succeeded     []domain.OrderLine `json:"succeeded,omitempty"`
	Failed        []LineFailure      `json:"failed,omitempty"`
	StockFailures []LineFailure      `json:"stockFailures,omitempty"`
}

// NoneSucceeded reports a header without any line items.
func (r Result) NoneSucceeded() bool {
	return len(r.Succeeded) == 0
}

// Wire is the client-facing shape of a submission outcome.
type Wire struct {
	OK               bool               `json:"ok"`
	OrderID          int64              `json:"orderId,omitempty"`
	CreatedLineItems []domain.OrderLine `json:"createdLineItems,omitempty"`
	FailedLineItems  []LineFailure      `json:"failedLineItems,omitempty"`
	Message          string             `json:"message,omitempty"`
}

func (r Result) Wire() Wire {
	w := Wire{
		OK:               r.AllSucceeded,
		OrderID:          r.OrderID,
		CreatedLineItems: r.Succeeded,
		FailedLineItems:  r.Failed,
	}
	if !r.AllSucceeded {
		w.Message = fmt.Sprintf("%d of %d line items could not be created", len(r.Failed), len(r.Failed)+len(r.Succeeded))
	}
	return w
}

// WireError renders a header failure.
func WireError(err error) Wire {
	return Wire{OK: false, Message: err.Error()}
}
