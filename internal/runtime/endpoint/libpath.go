package endpoint

import (
	"os"
	"path/filepath"
	"runtime"
)

// LibraryEnv overrides the native library location. It may name the file
// itself or the directory holding it.
const LibraryEnv = "MEDIABRIDGE_LIB_PATH"

// LibraryName returns the platform file name of the native bridge library.
func LibraryName(goos string) string {
	switch goos {
	case "darwin":
		return "libmediabridge.dylib"
	case "windows":
		return "mediabridge.dll"
	default:
		return "libmediabridge.so"
	}
}

// LibraryCandidates lists the locations tried when opening the native
// library, most specific first. explicit, when set, is always tried first.
func LibraryCandidates(explicit string) []string {
	libName := LibraryName(runtime.GOOS)
	var paths []string

	if explicit != "" {
		paths = append(paths, explicit)
	}
	if envPath := os.Getenv(LibraryEnv); envPath != "" {
		if info, err := os.Stat(envPath); err == nil && info.IsDir() {
			paths = append(paths, filepath.Join(envPath, libName))
		} else {
			paths = append(paths, envPath)
		}
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, libName),
			filepath.Join(exeDir, "..", "lib", libName),
		)
	}

	if root := findModuleRoot(); root != "" {
		paths = append(paths, filepath.Join(root, "build", libName))
	}

	switch runtime.GOOS {
	case "darwin":
		paths = append(paths,
			libName,
			filepath.Join("/usr/local/lib", libName),
			filepath.Join("/opt/homebrew/lib", libName),
		)
	case "linux":
		paths = append(paths,
			libName,
			filepath.Join("/usr/local/lib", libName),
			filepath.Join("/usr/lib", libName),
		)
	default:
		paths = append(paths, libName)
	}

	return dedupe(paths)
}

// findModuleRoot walks up from the working directory to the directory
// containing go.mod.
func findModuleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
