package rainfield

import "fmt"

// ErrorKind classifies request-level failures.
type ErrorKind string

const (
	// KindConfig marks a request rejected before any work started.
	KindConfig ErrorKind = "config"
	// KindInternal marks any other fault during field construction.
	KindInternal ErrorKind = "internal"
)

// ServiceError is the only error GetInterpolatedField returns.
type ServiceError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("rainfield %s error: %s", e.Kind, e.Detail)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func configError(err error) *ServiceError {
	return &ServiceError{Kind: KindConfig, Detail: err.Error(), Err: err}
}

func internalError(err error) *ServiceError {
	return &ServiceError{Kind: KindInternal, Detail: err.Error(), Err: err}
}
