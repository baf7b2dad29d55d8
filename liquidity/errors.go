package liquidity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameters    = errors.New("InvalidParameters")
	ErrInsufficientReserve  = errors.New("InsufficientReserve")
	ErrScheduleNotFound     = errors.New("ScheduleNotFound")
	ErrScheduleRevoked      = errors.New("ScheduleRevoked")
	ErrScheduleNotRevocable = errors.New("ScheduleNotRevocable")
	ErrNotYetVested         = errors.New("NotYetVested")
	ErrUnauthorized         = errors.New("Unauthorized")
	ErrArithmeticOverflow   = errors.New("ArithmeticOverflow")
	ErrReentrantCall        = errors.New("ReentrantCall")
	ErrReleasesLocked       = errors.New("ReleasesLocked")
	ErrTokenAlreadySet      = errors.New("TokenAlreadySet")
	ErrTokenNotSet          = errors.New("TokenNotSet")
)

type CustomError struct {
	Code    int
	Message string
	Err     error
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

func NewCustomError(code int, message string, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func InvalidAmountError(entity, value string) error {
	return fmt.Errorf("%w: invalid amount %q for %s", ErrInvalidParameters, value, entity)
}

func InvalidUserAddressError(address string) error {
	return fmt.Errorf("%w: invalid user address %q", ErrInvalidParameters, address)
}

func ScheduleNotFoundError(id string) error {
	return fmt.Errorf("%w: schedule %s", ErrScheduleNotFound, id)
}

func ScheduleRevokedError(id string) error {
	return fmt.Errorf("%w: schedule %s", ErrScheduleRevoked, id)
}
