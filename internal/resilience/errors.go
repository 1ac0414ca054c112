package resilience

// isClientError is implemented by errors caused by the request itself, such
// as bad input or missing permissions. Repeating the request cannot help.
type isClientError interface {
	error
	IsClientError() bool
}

// ClientError marks a non-retryable failure.
type ClientError struct {
	Msg string
	Err error
}

// AsClientError wraps err so that Retry gives up immediately.
func AsClientError(err error) error {
	if err == nil {
		return nil
	}
	return &ClientError{Msg: err.Error(), Err: err}
}

func (e *ClientError) Error() string { return e.Msg }

func (e *ClientError) Unwrap() error { return e.Err }

// IsClientError reports true.
func (e *ClientError) IsClientError() bool { return true }
