package app

import "errors"

// ErrUnknownVariant is returned when a requested variant is not configured.
var ErrUnknownVariant = errors.New("unknown model variant")
