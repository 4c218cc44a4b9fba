package vigilib

import "errors"

var (
	ErrInvalidAddress  = errors.New("address is not a well-formed chain address")
	ErrInvalidTimeout  = errors.New("timeout must be a positive number of seconds")
	ErrSameBeneficiary = errors.New("beneficiary must differ from the user address")

	ErrAlreadyArmed = errors.New("a check is already armed for this user")
	ErrNotArmed     = errors.New("no armed check exists for this user")
	ErrNotFound     = errors.New("no delegation found for this user")

	ErrOracleUnavailable = errors.New("activity oracle could not reach its sources")
	ErrNoRoute           = errors.New("no bridge or swap route for this token")
	ErrInvalidAmount     = errors.New("balance amount is not a valid decimal integer")

	ErrCircuitOpen = errors.New("circuit breaker is open")
)
