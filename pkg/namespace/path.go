package namespace

import "strings"

// Root is the permanent root directory. It exists from bootstrap on its
// owning shard and has no delete transition.
const Root = "/"

// IsRoot reports whether path is the root directory.
func IsRoot(path string) bool {
	return path == Root
}

// IsDirPath reports whether path denotes a directory (trailing separator).
func IsDirPath(path string) bool {
	return strings.HasSuffix(path, "/")
}

// ValidatePath checks the normalized-path rules the wire contract assumes:
// absolute, no empty segments, no NUL bytes. Paths are routed by their exact
// bytes, so normalization is the caller's job and anything non-normalized is
// rejected rather than repaired.
func ValidatePath(path string) error {
	if path == "" {
		return NewMalformed("empty path", path)
	}
	if !strings.HasPrefix(path, "/") {
		return NewMalformed("path is not absolute", path)
	}
	if strings.Contains(path, "\x00") {
		return NewMalformed("path contains NUL byte", path)
	}
	if path != Root && strings.Contains(path, "//") {
		return NewMalformed("path contains empty segment", path)
	}
	return nil
}

// ParentOf returns the parent directory path, always with its trailing
// separator. The root has no parent and returns "".
func ParentOf(path string) string {
	if IsRoot(path) || path == "" {
		return ""
	}
	trimmed := strings.TrimSuffix(path, "/")
	idx := strings.LastIndexByte(trimmed, '/')
	if idx < 0 {
		return ""
	}
	return trimmed[:idx+1]
}

// BaseName returns the last path segment. Directories keep their trailing
// separator so the kind stays visible in listings.
func BaseName(path string) string {
	if IsRoot(path) {
		return Root
	}
	trimmed := strings.TrimSuffix(path, "/")
	idx := strings.LastIndexByte(trimmed, '/')
	name := trimmed[idx+1:]
	if IsDirPath(path) {
		return name + "/"
	}
	return name
}

// IsImmediateChild reports whether candidate is a direct child of the
// directory at parent. parent must carry its trailing separator.
func IsImmediateChild(parent, candidate string) bool {
	if !strings.HasPrefix(candidate, parent) || candidate == parent {
		return false
	}
	rest := strings.TrimSuffix(candidate[len(parent):], "/")
	return rest != "" && !strings.Contains(rest, "/")
}
