package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrAccessDenied       = errors.New("access denied")
	ErrNotRegistered      = errors.New("user is not registered")

	// Identity directory
	ErrDuplicatePersonnelNumber = errors.New("personnel number already exists")
	ErrUnknownPerson            = errors.New("no person with this personnel number")
	ErrPersonLinked             = errors.New("person is linked to a registered user")

	// Registration
	ErrAlreadyRegistered = errors.New("user is already registered")

	// Fund ledger
	ErrFundClosed        = errors.New("fund is closed")
	ErrSelfCollection    = errors.New("treasurer cannot be the birthday person")
	ErrInvalidDeadline   = errors.New("deadline must be in the future")
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrNotTreasurer      = errors.New("user is not the treasurer of this fund")
)
