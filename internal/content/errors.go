package content

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrorKind classifies why a resource failed to load.
type ErrorKind int

const (
	// OpenFailed means the primary file could not be opened or read.
	OpenFailed ErrorKind = iota + 1
	// DependencyFailed means a secondary file the primary one needs failed.
	DependencyFailed
	// ParameterMismatch means the caller supplied parameters of the wrong
	// shape for the resource kind, or asked for the wrong kind.
	ParameterMismatch
	// ConstructionFailed means format-specific construction failed after
	// the bytes were read.
	ConstructionFailed
)

func (k ErrorKind) String() string {
	switch k {
	case OpenFailed:
		return "open failed"
	case DependencyFailed:
		return "dependency failed"
	case ParameterMismatch:
		return "parameter mismatch"
	case ConstructionFailed:
		return "construction failed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Sentinels for errors.Is on a *LoadError.
var (
	ErrOpenFailed         = errors.New("content: open failed")
	ErrDependencyFailed   = errors.New("content: dependency failed")
	ErrParameterMismatch  = errors.New("content: parameter mismatch")
	ErrConstructionFailed = errors.New("content: construction failed")

	// ErrNotLoaded is returned by typed lookups of keys with no record.
	ErrNotLoaded = errors.New("content: not loaded")
	// ErrHotReloadDisabled is returned by reload requests while no watcher runs.
	ErrHotReloadDisabled = errors.New("content: hot reload disabled")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case OpenFailed:
		return ErrOpenFailed
	case DependencyFailed:
		return ErrDependencyFailed
	case ParameterMismatch:
		return ErrParameterMismatch
	case ConstructionFailed:
		return ErrConstructionFailed
	}
	return nil
}

// LoadError is the typed failure of a load, reload or force reload.
type LoadError struct {
	Kind ErrorKind
	Key  Key
	Path string
	Err  error
}

// NewLoadError is the constructor resources use to report a classified failure.
func NewLoadError(kind ErrorKind, path string, err error) *LoadError {
	return &LoadError{Kind: kind, Path: path, Err: err}
}

func (e *LoadError) Error() string {
	subject := e.Path
	if !e.Key.IsZero() {
		subject = e.Key.String()
	}
	if e.Err == nil {
		return fmt.Sprintf("load %s: %s", subject, e.Kind)
	}
	return fmt.Sprintf("load %s: %s: %v", subject, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *LoadError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf extracts the kind of a load failure anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind, true
	}
	return 0, false
}

// classify turns whatever a resource returned into a *LoadError bound to key.
// Unclassified errors are OpenFailed when the file system refused the read
// and ConstructionFailed otherwise.
func classify(err error, key Key, path string) *LoadError {
	var le *LoadError
	if errors.As(err, &le) {
		out := *le
		if out.Key.IsZero() {
			out.Key = key
		}
		if out.Path == "" {
			out.Path = path
		}
		return &out
	}
	kind := ConstructionFailed
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		kind = OpenFailed
	}
	return &LoadError{Kind: kind, Key: key, Path: path, Err: err}
}

// DuplicateKeyError is returned when Add targets an id that is already registered.
type DuplicateKeyError struct {
	Key Key
}

func (e DuplicateKeyError) Error() string {
	return fmt.Sprintf("content: %s is already registered", e.Key)
}
