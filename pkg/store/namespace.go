package store

import "strings"

// namespacedStore scopes a shared backend to one visitor, mirroring how
// per-origin browser storage isolates profiles: every visitor sees their own
// "session" slot and history keys over one physical store.
type namespacedStore struct {
	base   Store
	prefix string
}

// Namespaced wraps base so all keys live under the visitor's namespace
func Namespaced(base Store, visitorID string) Store {
	return &namespacedStore{base: base, prefix: "visitor:" + visitorID + ":"}
}

func (s *namespacedStore) Get(key string) ([]byte, bool) {
	return s.base.Get(s.prefix + key)
}

func (s *namespacedStore) Set(key string, value []byte) error {
	return s.base.Set(s.prefix+key, value)
}

func (s *namespacedStore) Delete(key string) {
	s.base.Delete(s.prefix + key)
}

func (s *namespacedStore) Keys(prefix string) []string {
	full := s.base.Keys(s.prefix + prefix)
	keys := make([]string, 0, len(full))
	for _, k := range full {
		keys = append(keys, strings.TrimPrefix(k, s.prefix))
	}
	return keys
}
