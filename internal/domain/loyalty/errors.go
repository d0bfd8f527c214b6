package loyalty

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Configuration error kinds. A *ConfigError unwraps to one of these.
var (
	ErrEmptyTable        = errors.New("discount table is empty")
	ErrMalformedEntry    = errors.New("malformed discount table entry")
	ErrNonNumeric        = errors.New("non-numeric discount table value")
	ErrNegativeThreshold = errors.New("negative discount threshold")
	ErrPercentageRange   = errors.New("discount percentage out of range")
	ErrNonAscending      = errors.New("discount thresholds not ascending")
	ErrUnknownPeriod     = errors.New("unknown lookback period")
	ErrStatusFilter      = errors.New("invalid order status filter")
)

// ErrDataSource is matched by every *DataSourceError.
var ErrDataSource = errors.New("order history unavailable")

// ConfigError describes why the loyalty configuration is unusable. It is
// recovered locally: the module disables itself and only administrators see
// the message.
type ConfigError struct {
	Kind error
	// Index is the zero-based table entry position, -1 when not applicable.
	Index int
	Entry string
}

func (e *ConfigError) Error() string {
	if e.Index < 0 {
		if e.Entry == "" {
			return e.Kind.Error()
		}
		return fmt.Sprintf("%s: %q", e.Kind, e.Entry)
	}
	return fmt.Sprintf("%s: entry %d %q", e.Kind, e.Index+1, e.Entry)
}

func (e *ConfigError) Unwrap() error {
	return e.Kind
}

// DataSourceError is returned when the customer's order history cannot be
// read. It is never treated as an empty history.
type DataSourceError struct {
	CustomerID string
	Err        error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("order history for customer %s: %v", e.CustomerID, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDataSource) match.
func (e *DataSourceError) Is(target error) bool {
	return target == ErrDataSource
}
