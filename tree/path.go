package tree

import (
	"fmt"
	"strings"
)

// Root is the path of the store's root node, which always exists.
const Root = "/"

// Join appends child to parent.
func Join(parent, child string) string {
	if parent == Root {
		return Root + child
	}
	return parent + "/" + child
}

// Parent returns the parent path of path. The parent of a top-level node
// and of the root itself is Root.
func Parent(path string) string {
	pos := strings.LastIndex(path, "/")
	if pos <= 0 {
		return Root
	}
	return path[:pos]
}

// Base returns the last segment of path, or "" for the root.
func Base(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

// ValidatePath checks that path is absolute, has no empty segments and no
// trailing slash (except for the root itself).
func ValidatePath(path string) error {
	if path == Root {
		return nil
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, path)
	}
	for _, segment := range strings.Split(path[1:], "/") {
		if err := ValidateSegment(segment); err != nil {
			return fmt.Errorf("%w: in %q", err, path)
		}
	}
	return nil
}

// ValidateSegment checks that name can be used as a single path segment.
func ValidateSegment(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty segment", ErrInvalidPath)
	case name == "." || name == "..":
		return fmt.Errorf("%w: relative segment %q", ErrInvalidPath, name)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("%w: segment %q contains a reserved character", ErrInvalidPath, name)
	}
	return nil
}
