package errors

import sterrors "errors"

var (
	ErrBridgeReleased        = sterrors.New("mediabridge: bridge has been released")
	ErrEndpointRequired      = sterrors.New("mediabridge: boundary endpoint is required")
	ErrConfigRequired        = sterrors.New("mediabridge: configuration is required")
	ErrLoggerRequired        = sterrors.New("mediabridge: logger is required")
	ErrFamilyNameRequired    = sterrors.New("mediabridge: event family name is required")
	ErrFamilyPrefixRequired  = sterrors.New("mediabridge: event family prefix is required")
	ErrFamilyResolveMissing  = sterrors.New("mediabridge: event family target resolver is required")
	ErrDuplicateFamily       = sterrors.New("mediabridge: event family is already registered")
	ErrObserverRequired      = sterrors.New("mediabridge: observer is required")
	ErrObserverNotComparable = sterrors.New("mediabridge: observer must be comparable, use a pointer")
	ErrPlayerCreateFailed    = sterrors.New("mediabridge: media player could not be created")
	ErrRecorderCreateFailed  = sterrors.New("mediabridge: media recorder could not be created")
	ErrInstanceDestroyed     = sterrors.New("mediabridge: media player or recorder has been destroyed")
	ErrUnsupportedSignature  = sterrors.New("mediabridge: observer method signature is not supported")
	ErrNativeUnsupported     = sterrors.New("mediabridge: native endpoint is not supported on this platform")
	ErrLibraryNotFound       = sterrors.New("mediabridge: native bridge library not found")
	ErrPublisherRequired     = sterrors.New("mediabridge: publisher is required")
	ErrTopicRequired         = sterrors.New("mediabridge: topic is required")
)

// ConfigValidationError wraps the joined validation failures of a Config.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "mediabridge: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError returns nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
