package content

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/leslieo2/go-hot-content/internal/observability"
)

// Load returns the resource at the root-relative path name as its concrete
// type, constructing a new T on a miss.
//
// A cached record of a different type is a ParameterMismatch and leaves the
// reference count unchanged.
func Load[T any, PT interface {
	*T
	Resource
}](m *Manager, name string, params any) (PT, error) {
	return LoadKey[T, PT](m, PathKey(name), params)
}

// LoadKey is Load for an explicit key.
func LoadKey[T any, PT interface {
	*T
	Resource
}](m *Manager, key Key, params any) (PT, error) {
	if err := m.checkType(key, func(r Resource) bool { _, ok := r.(PT); return ok }, fmt.Sprintf("%T", PT(nil))); err != nil {
		return nil, err
	}
	res, err := m.registry.Load(key, params, func() Resource { return PT(new(T)) })
	if err != nil {
		return nil, err
	}
	return res.(PT), nil
}

// GetLoaded returns an existing record as its concrete type and increments
// its count. Absent keys return ErrNotLoaded.
func GetLoaded[T any, PT interface {
	*T
	Resource
}](m *Manager, key Key) (PT, error) {
	if !m.registry.Contains(key) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotLoaded)
	}
	if err := m.checkType(key, func(r Resource) bool { _, ok := r.(PT); return ok }, fmt.Sprintf("%T", PT(nil))); err != nil {
		return nil, err
	}
	res, _ := m.registry.GetLoaded(key)
	return res.(PT), nil
}

// ForceReload reloads key in place with params, or loads it when absent.
// Handles taken before the call observe the new content.
func ForceReload[T any, PT interface {
	*T
	Resource
}](m *Manager, key Key, params any) (PT, error) {
	if err := m.checkType(key, func(r Resource) bool { _, ok := r.(PT); return ok }, fmt.Sprintf("%T", PT(nil))); err != nil {
		return nil, err
	}
	res, err := m.registry.ForceReload(key, params, func() Resource { return PT(new(T)) })
	if err != nil {
		return nil, err
	}
	return res.(PT), nil
}

// checkType fails with ParameterMismatch when key is cached as another kind.
func (m *Manager) checkType(key Key, is func(Resource) bool, want string) error {
	live, ok := m.registry.peek(key)
	if !ok || is(live) {
		return nil
	}
	err := &LoadError{
		Kind: ParameterMismatch,
		Key:  key,
		Path: m.registry.recordPath(key),
		Err:  fmt.Errorf("cached as %T, requested %s", live, want),
	}
	m.metrics.RecordLoad(observability.LoadResultMismatch)
	m.logger.Warn("Content requested as the wrong kind", zap.Stringer("key", key), zap.Error(err.Err))
	return err
}
