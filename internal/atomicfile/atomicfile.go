// Package atomicfile wraps natefinch/atomic for crash-safe whole-file
// writes (used when bootstrapping a run's log directory and any single-
// shot marker files) and carries a Windows long-path helper needed once
// log paths nest under <LogRoot>/<date>/Jobs/.
package atomicfile

import (
	"bytes"
	"runtime"
	"strings"

	natefinchatomic "github.com/natefinch/atomic"
)

// WriteFile atomically replaces the contents of path with data: written to
// a temp file in the same directory, then renamed into place, so a crash
// mid-write never leaves a truncated file behind.
func WriteFile(path string, data []byte) error {
	return natefinchatomic.WriteFile(path, bytes.NewReader(data))
}

const maxPath = 260

// MaybePrefixLongFilenameOnWindows prepends the "\\?\" extended-length
// prefix to an absolute drive-letter path that would otherwise exceed
// Windows' MAX_PATH, normalizing slash direction and collapsing "."
// segments along the way. Relative paths and paths already carrying the
// prefix are returned unchanged; on non-Windows builds this is a no-op.
func MaybePrefixLongFilenameOnWindows(path string) string {
	if runtime.GOOS != "windows" {
		return path
	}

	if !isDriveAbsolute(path) {
		return path
	}

	normalized := normalizeBackslashes(path)
	if len(normalized) <= maxPath {
		return normalized
	}

	return `\\?\` + normalized
}

func isDriveAbsolute(path string) bool {
	if len(path) < 3 {
		return false
	}

	drive := path[0]

	return isASCIILetter(drive) && path[1] == ':' && (path[2] == '\\' || path[2] == '/')
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func normalizeBackslashes(path string) string {
	path = strings.ReplaceAll(path, "/", `\`)

	segments := strings.Split(path, `\`)
	kept := segments[:0]

	for _, seg := range segments {
		if seg == "." {
			continue
		}

		kept = append(kept, seg)
	}

	return strings.Join(kept, `\`)
}
