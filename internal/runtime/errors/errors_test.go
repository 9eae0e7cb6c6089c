package errors

import (
	"errors"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"ErrBridgeReleased", ErrBridgeReleased, "mediabridge: bridge has been released"},
		{"ErrEndpointRequired", ErrEndpointRequired, "mediabridge: boundary endpoint is required"},
		{"ErrConfigRequired", ErrConfigRequired, "mediabridge: configuration is required"},
		{"ErrLoggerRequired", ErrLoggerRequired, "mediabridge: logger is required"},
		{"ErrFamilyPrefixRequired", ErrFamilyPrefixRequired, "mediabridge: event family prefix is required"},
		{"ErrDuplicateFamily", ErrDuplicateFamily, "mediabridge: event family is already registered"},
		{"ErrObserverRequired", ErrObserverRequired, "mediabridge: observer is required"},
		{"ErrObserverNotComparable", ErrObserverNotComparable, "mediabridge: observer must be comparable, use a pointer"},
		{"ErrInstanceDestroyed", ErrInstanceDestroyed, "mediabridge: media player or recorder has been destroyed"},
		{"ErrUnsupportedSignature", ErrUnsupportedSignature, "mediabridge: observer method signature is not supported"},
		{"ErrPublisherRequired", ErrPublisherRequired, "mediabridge: publisher is required"},
		{"ErrTopicRequired", ErrTopicRequired, "mediabridge: topic is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestConfigValidationError(t *testing.T) {
	inner := errors.New("invalid topic")
	err := ConfigValidationError{Err: inner}

	want := "mediabridge: invalid configuration: invalid topic"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if unwrapped := err.Unwrap(); unwrapped != inner {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, inner)
	}
}

func TestNewConfigValidationError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if err := NewConfigValidationError(nil); err != nil {
			t.Errorf("NewConfigValidationError(nil) = %v, want nil", err)
		}
	})

	t.Run("wraps and matches with errors.As", func(t *testing.T) {
		inner := errors.New("bad")
		err := NewConfigValidationError(inner)

		var cve ConfigValidationError
		if !errors.As(err, &cve) {
			t.Fatalf("expected ConfigValidationError, got %T", err)
		}
		if !errors.Is(err, inner) {
			t.Fatal("expected wrapped error to match inner")
		}
	})
}
