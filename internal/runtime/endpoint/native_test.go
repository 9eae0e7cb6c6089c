//go:build darwin || linux

package endpoint

import (
	"errors"
	"path/filepath"
	"testing"
	"unsafe"

	errspkg "github.com/drblury/mediabridge/internal/runtime/errors"
)

func TestOpenNativeMissingLibrary(t *testing.T) {
	t.Setenv(LibraryEnv, filepath.Join(t.TempDir(), "nope.so"))
	_, err := OpenNative(filepath.Join(t.TempDir(), "missing.so"))
	if !errors.Is(err, errspkg.ErrLibraryNotFound) {
		t.Fatalf("expected ErrLibraryNotFound, got %v", err)
	}
}

func TestCString(t *testing.T) {
	raw := []byte("onJoinChannelSuccess\x00trailing")
	if got := cString(uintptr(unsafe.Pointer(&raw[0]))); got != "onJoinChannelSuccess" {
		t.Fatalf("unexpected string %q", got)
	}
	if cString(0) != "" {
		t.Fatal("nil pointer must yield an empty string")
	}
}

func TestCopyBuffers(t *testing.T) {
	a := []byte{1, 2, 3}
	ptrs := []uintptr{uintptr(unsafe.Pointer(&a[0])), 0}
	lens := []uint32{3, 0}

	out := copyBuffers(uintptr(unsafe.Pointer(&ptrs[0])), uintptr(unsafe.Pointer(&lens[0])), 2)
	keepAlive(a, ptrs, lens)

	if len(out) != 2 || len(out[0]) != 3 || out[0][2] != 3 {
		t.Fatalf("unexpected buffers %v", out)
	}
	if out[1] == nil || len(out[1]) != 0 {
		t.Fatalf("empty slot must be an empty buffer, got %v", out[1])
	}
	a[0] = 9
	if out[0][0] != 1 {
		t.Fatal("buffers must be copied out of native memory")
	}
	if copyBuffers(0, 0, 0) != nil {
		t.Fatal("no buffers expected")
	}
}
