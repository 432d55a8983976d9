package content

import (
	"path"
	"strings"

	"github.com/leslieo2/go-hot-content/internal/constants"
)

// Key identifies a registry record. Path keys name files relative to the
// content root; synthetic keys name in-memory resources. The two spaces
// never collide because Synthetic is part of the comparison.
type Key struct {
	Name      string
	Synthetic bool
}

// PathKey canonicalizes a root-relative file path into a key.
func PathKey(p string) Key {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimLeft(p, "/")
	return Key{Name: path.Clean(p)}
}

// IDKey builds a key for a caller-supplied unique id.
func IDKey(id string) Key {
	return Key{Name: id, Synthetic: true}
}

// ParseKey reads the textual form produced by Key.String.
func ParseKey(s string) Key {
	if id, ok := strings.CutPrefix(s, constants.SyntheticKeyPrefix); ok {
		return IDKey(id)
	}
	return PathKey(s)
}

func (k Key) String() string {
	if k.Synthetic {
		return constants.SyntheticKeyPrefix + k.Name
	}
	return k.Name
}

// escapesRoot reports whether a path key points outside the content root
// or names the root itself.
func (k Key) escapesRoot() bool {
	return !k.Synthetic && (k.Name == ".." || strings.HasPrefix(k.Name, "../") || k.Name == ".")
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool {
	return k == Key{}
}
