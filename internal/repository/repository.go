// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres).
package repository

import "errors"

var (
	// ErrNotFound is returned when no committed document matches.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a part number is already taken.
	ErrConflict = errors.New("part number already exists")
)
