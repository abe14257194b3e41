package common

import "errors"

// ErrNotFound reports that an upstream row (analysis text, model version)
// does not exist yet. Callers decide whether that skips the item or fails
// the operation; nothing substitutes defaults for it.
var ErrNotFound = errors.New("not found")
