package analytics

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSourceUnavailable signals a transport failure or non-success status from the order source.
	ErrSourceUnavailable = errors.New("analytics: order source unavailable")
	// ErrSourceRejected signals that the order source answered but refused the request.
	ErrSourceRejected = errors.New("analytics: order source rejected request")
)

// RejectedError carries the order source's own message unchanged.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return ErrSourceRejected.Error()
	}
	return e.Message
}

// Unwrap lets errors.Is match ErrSourceRejected.
func (e *RejectedError) Unwrap() error { return ErrSourceRejected }

// Window is an inclusive creation-time range with a row cap.
type Window struct {
	From  time.Time
	To    time.Time
	Limit int
}

// OrderSource lists orders created within a window, newest first where the
// backend supports ordering.
type OrderSource interface {
	ListOrders(ctx context.Context, window Window) ([]Order, error)
}
