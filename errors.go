package capgains

import (
	"errors"
	"fmt"

	"github.com/etnz/capgains/date"
)

var (
	// ErrInsufficientInventory is matched by every *InsufficientInventoryError.
	ErrInsufficientInventory = errors.New("insufficient inventory")
	// ErrMissingRate is matched by every *MissingRateError.
	ErrMissingRate = errors.New("missing fx rate")
	// ErrIntegrity is matched by every *IntegrityError.
	ErrIntegrity = errors.New("ledger integrity violation")
)

// InsufficientInventoryError reports a sale that cannot be fully matched
// against the remaining purchases of its asset. The ledger must be corrected
// before reconciliation can go on.
type InsufficientInventoryError struct {
	SaleID    int64
	Date      date.Date
	AssetCode string
	Quantity  Quantity // sale quantity still to reconcile when the pass started
	Missing   Quantity // quantity no purchase could cover
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("cannot reconcile sale %d of %s on %s: %s units to match, %s units missing",
		e.SaleID, e.AssetCode, e.Date, e.Quantity, e.Missing)
}

func (e *InsufficientInventoryError) Is(target error) bool { return target == ErrInsufficientInventory }

// MissingRateError reports that no fx rate is known on or before Date.
type MissingRateError struct {
	Date date.Date
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("no fx rate on or before %s", e.Date)
}

func (e *MissingRateError) Is(target error) bool { return target == ErrMissingRate }

// IntegrityError reports a corrupt ledger: figures computed from it cannot be trusted.
type IntegrityError struct {
	ActivityID int64 // zero when not related to a single activity
	Reason     string
}

func (e *IntegrityError) Error() string {
	if e.ActivityID != 0 {
		return fmt.Sprintf("activity %d: %s", e.ActivityID, e.Reason)
	}
	return e.Reason
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// integrityf returns an *IntegrityError for activity 'id'.
func integrityf(id int64, format string, args ...any) error {
	return &IntegrityError{ActivityID: id, Reason: fmt.Sprintf(format, args...)}
}
