package filter

import "sync"

// Cache memoizes Design by Spec. It is safe for concurrent use.
type Cache struct {
	mu    sync.Mutex
	coefs map[Spec]Coefficients
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{coefs: make(map[Spec]Coefficients)}
}

// Design returns cached coefficients for spec, designing them on first use.
// Callers get their own copy.
func (c *Cache) Design(spec Spec) (Coefficients, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if coefs, ok := c.coefs[spec]; ok {
		return coefs.Clone(), nil
	}

	coefs, err := Design(spec)
	if err != nil {
		return Coefficients{}, err
	}
	c.coefs[spec] = coefs
	return coefs.Clone(), nil
}

// Len returns the number of cached designs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.coefs)
}
