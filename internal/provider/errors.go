// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"errors"
	"fmt"
)

// ErrResearchFailed is matched by every provider failure.
var ErrResearchFailed = errors.New("research failed")

// ErrNothingToCompare is returned by Compare when no items are supplied.
var ErrNothingToCompare = errors.New("no research items to compare")

// ProviderError wraps a failed model call: network, auth, quota, or a
// response that could not be decoded.
type ProviderError struct {
	// Op names the adapter operation, e.g. "research web".
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrResearchFailed) true for any ProviderError.
func (e *ProviderError) Is(target error) bool {
	return target == ErrResearchFailed
}

// ParseError reports a structured-extraction response that was not a JSON object.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing structured response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
