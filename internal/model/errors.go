package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for records and collections.
var (
	// ErrInvalid is matched by every ValidationError.
	ErrInvalid = errors.New("record failed validation")

	// ErrInvalidMember is returned when a collection cannot admit a member.
	ErrInvalidMember = errors.New("cannot add an invalid record to a collection")

	// ErrNoComparator is returned by Sort on a collection without a comparator.
	ErrNoComparator = errors.New("cannot sort a collection without a comparator")

	// ErrNoURL is returned when neither a URL root nor an owning collection
	// URL is available.
	ErrNoURL = errors.New("a URL root or collection URL must be specified")

	// ErrNoSyncer is returned when a persistence operation has no syncer.
	ErrNoSyncer = errors.New("no syncer configured")

	// ErrUnparseable is returned when a response cannot be turned into
	// attributes.
	ErrUnparseable = errors.New("unparseable response")
)

// ValidationError wraps an error returned by a Kind's validator.
type ValidationError struct {
	// Kind is the name of the record kind that rejected the attributes.
	Kind string

	// Err is the validator's error.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Kind == "" {
		return "validation failed: " + e.Err.Error()
	}
	return e.Kind + " validation failed: " + e.Err.Error()
}

// Unwrap returns the validator's error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match ValidationError with ErrInvalid.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// InvalidMemberError lists the members a collection dropped during Add.
type InvalidMemberError struct {
	// Positions are the indices of the dropped members in the Add call.
	Positions []int

	// Errs holds the reason for each dropped member.
	Errs []error
}

func (e *InvalidMemberError) append(pos int, err error) *InvalidMemberError {
	if e == nil {
		e = &InvalidMemberError{}
	}
	e.Positions = append(e.Positions, pos)
	e.Errs = append(e.Errs, err)
	return e
}

// Error implements the error interface.
func (e *InvalidMemberError) Error() string {
	parts := make([]string, len(e.Positions))
	for i, pos := range e.Positions {
		parts[i] = fmt.Sprintf("#%d: %v", pos, e.Errs[i])
	}
	return ErrInvalidMember.Error() + " (" + strings.Join(parts, "; ") + ")"
}

// Unwrap returns the reasons for every dropped member.
func (e *InvalidMemberError) Unwrap() []error {
	return e.Errs
}

// Is allows errors.Is to match InvalidMemberError with ErrInvalidMember.
func (e *InvalidMemberError) Is(target error) bool {
	return target == ErrInvalidMember
}
