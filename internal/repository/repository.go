// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres, sqlite) inside this directory.
package repository

import "errors"

var (
	// ErrNotFound is returned when no record exists for the requested key.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned by Create when the key is already taken.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict is returned by CompareAndSwap when the stored version moved on.
	ErrConflict = errors.New("record version conflict")
)
