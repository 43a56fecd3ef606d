// Package core defines the fundamental types and errors for Nuance.
package core

import "errors"

// Core errors that can occur across the system
var (
	// Catalog errors
	ErrItemNotFound  = errors.New("catalog item not found")
	ErrDuplicateItem = errors.New("catalog item id already exists")

	// History errors
	ErrRecordNotFound = errors.New("day record not found")

	// Coach errors
	ErrInsufficientData = errors.New("not enough history for recommendations")

	// State errors
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrCorruptState    = errors.New("persisted state is corrupt")
	ErrPersonalization = errors.New("personalization mode required")

	// Access errors
	ErrTierLocked = errors.New("feature locked for current tier")
	ErrBadPIN     = errors.New("owner PIN incorrect")
	ErrPINFormat  = errors.New("PIN must be 4 to 12 digits")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)
