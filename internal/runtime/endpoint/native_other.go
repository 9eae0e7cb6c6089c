//go:build !darwin && !linux

package endpoint

import (
	errspkg "github.com/drblury/mediabridge/internal/runtime/errors"
)

// Native is unavailable on this platform.
type Native struct{}

// OpenNative always fails on platforms without purego dlopen support.
func OpenNative(path string) (*Native, error) {
	return nil, errspkg.ErrNativeUnsupported
}

func (n *Native) Path() string { return "" }

func (n *Native) InvokeCall(method, args string, buffers [][]byte) (int, string, error) {
	return 0, "", errspkg.ErrNativeUnsupported
}

func (n *Native) OnEvent(channel string, fn EventFunc) error {
	return errspkg.ErrNativeUnsupported
}

func (n *Native) InitializeEnvironment() error { return errspkg.ErrNativeUnsupported }

func (n *Native) ReleaseEnvironment() error { return errspkg.ErrNativeUnsupported }

func (n *Native) GetBuffer(handle uint64, length int) ([]byte, error) {
	return nil, errspkg.ErrNativeUnsupported
}

func (n *Native) Close() error { return nil }
