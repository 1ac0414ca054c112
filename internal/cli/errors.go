package cli

import "errors"

// ErrChecksFailed indicates a run finished with at least one failing check
// or job. Output describing the failure has already been printed.
var ErrChecksFailed = errors.New("checks failed")
