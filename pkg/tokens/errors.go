package tokens

import (
	"errors"
	"fmt"
)

// Sentinel errors for token operations.
var (
	// ErrConfiguration is returned when the key material needed for an
	// operation is missing.
	ErrConfiguration = errors.New("token configuration error")

	// ErrUnsupportedTokenType is returned by Create for any kind other than JWT.
	ErrUnsupportedTokenType = errors.New("unsupported token type")

	// ErrVerification is wrapped by every verification failure.
	ErrVerification = errors.New("token verification failed")

	// ErrInvalidToken is returned when key-set verification fails.
	ErrInvalidToken = fmt.Errorf("invalid token: %w", ErrVerification)

	// ErrUnauthorized is returned when secret verification fails.
	ErrUnauthorized = fmt.Errorf("unauthorized: %w", ErrVerification)

	// ErrKeySet is returned when a key set cannot be loaded or parsed.
	ErrKeySet = errors.New("key set error")
)
