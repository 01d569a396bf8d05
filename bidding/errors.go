package bidding

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Reason explains why a bid submission was refused. External callers branch
// on these codes, so their values are part of the API.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonShipmentNotActive Reason = "SHIPMENT_NOT_ACTIVE"
	ReasonCurrencyMismatch  Reason = "CURRENCY_MISMATCH"
	ReasonDuplicate         Reason = "BID_DUPLICATE"
	ReasonExactDuplicate    Reason = "BID_EXACT_DUPLICATE"
	ReasonPriceDuplicate    Reason = "BID_PRICE_DUPLICATE"
)

func (r Reason) Message() string {
	switch r {
	case ReasonShipmentNotActive:
		return "shipment no longer accepts bids"
	case ReasonCurrencyMismatch:
		return "currency must match the shipment's preferred currency"
	case ReasonDuplicate:
		return "an offer with the same parameters was already rejected"
	case ReasonExactDuplicate:
		return "the same offer was already submitted"
	case ReasonPriceDuplicate:
		return "price must differ from your previous offer on this shipment"
	default:
		return ""
	}
}

// Decision is the outcome of admission control.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision { return Decision{Allowed: true} }
func deny(r Reason) Decision { return Decision{Reason: r} }

func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &AdmissionError{Reason: d.Reason}
}

// AdmissionError is returned by SubmitBid when admission control refuses a bid.
type AdmissionError struct {
	Reason Reason
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("bid not admitted: %s", e.Reason)
}

// TransitionError reports a state transition attempted outside its
// precondition. Errors with the same Code match under errors.Is.
type TransitionError struct {
	Code    string
	Message string
}

func (e *TransitionError) Error() string {
	return e.Message
}

func (e *TransitionError) Is(target error) bool {
	t, ok := target.(*TransitionError)
	return ok && t.Code == e.Code
}

var (
	ErrShipmentNotActive = &TransitionError{Code: "SHIPMENT_NOT_ACTIVE", Message: "only active shipments can change status"}
	ErrBidNotOwned       = &TransitionError{Code: "BID_NOT_OWNED", Message: "bid does not belong to this shipment"}
	ErrBidNotPending     = &TransitionError{Code: "BID_NOT_PENDING", Message: "only pending bids can be accepted or rejected"}
	ErrInvalidTransition = &TransitionError{Code: "INVALID_STATE", Message: "bid is no longer pending"}
)

var (
	ErrShipmentNotFound = errors.New("shipment not found")
	ErrBidNotFound      = errors.New("bid not found")
)

const pgUniqueViolation = "23505"

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// sqlite drivers without error translation
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
