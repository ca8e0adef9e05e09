package flows

import "errors"

// Sentinel errors for the flow engine layer.
var (
	ErrFlowNotFound = errors.New("flow not found")

	// ErrDuplicateSend is returned by LedgerRepository.Record when the
	// (flow, customer, period) key already exists. The engine treats it
	// as "already handled", never as a failure.
	ErrDuplicateSend = errors.New("send already recorded for this flow, customer and period")

	ErrUnknownFlowType  = errors.New("unknown flow type")
	ErrTemplateRequired = errors.New("flow template subject and body are required")
)
