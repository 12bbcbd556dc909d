package service

import "errors"

// Caller-facing failures. Handlers map them to HTTP statuses with errors.Is;
// anything else is an infrastructure fault.
var (
	ErrNotFound         = errors.New("sale not found")
	ErrAlreadyProcessed = errors.New("sale has already been processed")
	ErrInvalidState     = errors.New("sale cannot be cancelled in its current state")
	ErrInvalidReason    = errors.New("invalid cancellation reason")
	ErrInvalidStatus    = errors.New("invalid sale status")
	ErrInvalidAgentID   = errors.New("invalid agent id")
	ErrUnknownProduct   = errors.New("unknown product")
	ErrEmptySelection   = errors.New("no product selected")
	ErrInvalidQuantity  = errors.New("quantity must be a positive integer")
	ErrQuantityCap      = errors.New("quantity exceeds the per-product limit")
	ErrInvalidBuyer     = errors.New("buyer last name, first name and matricule are required")
	ErrInvalidGrade     = errors.New("invalid buyer grade")
	ErrDuplicateReceipt = errors.New("duplicate receipt number")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidRole        = errors.New("invalid role: must be admin, agent or controller")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidUser        = errors.New("username and name are required")
)
