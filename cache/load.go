package cache

// Loader produces the value for a cache miss.
type Loader func() (any, error)

// GetOrLoad reads key through s. On a miss it calls load and stores the
// result; loader errors are returned and nothing is cached.
func GetOrLoad(s Store, key string, load Loader, opts ...SetOption) (any, error) {
	if s != nil {
		if value, ok := s.Get(key); ok {
			return value, nil
		}
	}
	value, err := load()
	if err != nil {
		return nil, err
	}
	if s != nil {
		s.Set(key, value, opts...)
	}
	return value, nil
}

// Typed is GetOrLoad for a concrete type. A cached value of another type is
// treated as a miss and overwritten.
func Typed[T any](s Store, key string, load func() (T, error), opts ...SetOption) (T, error) {
	if s != nil {
		if value, ok := s.Get(key); ok {
			if typed, ok := value.(T); ok {
				return typed, nil
			}
		}
	}
	value, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	if s != nil {
		s.Set(key, value, opts...)
	}
	return value, nil
}

// Nop is a Store that never holds anything.
type Nop struct{}

func (Nop) Get(string) (any, bool) { return nil, false }
func (Nop) Set(string, any, ...SetOption) {}
func (Nop) Invalidate(string) bool { return false }
func (Nop) InvalidateByTag(string) int { return 0 }
func (Nop) InvalidateByPattern(string) int { return 0 }
func (Nop) Clear() {}
