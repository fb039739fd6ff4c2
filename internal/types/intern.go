package types

import "sync"

// StringInterner deduplicates frequently repeated strings (category names,
// design-system names, tags) to reduce per-entity memory footprint when the
// graph holds a large number of components drawn from a small vocabulary.
type StringInterner struct {
	mu      sync.RWMutex
	strings map[string]string // canonical string -> itself
}

var (
	categoryInterner     = NewStringInterner()
	designSystemInterner = NewStringInterner()
	tagInterner          = NewStringInterner()
)

// NewStringInterner creates a new string interner.
func NewStringInterner() *StringInterner {
	return &StringInterner{
		strings: make(map[string]string, 100),
	}
}

// Intern returns the canonical instance of the string, adding it to the pool
// on first sight.
func (si *StringInterner) Intern(s string) string {
	if s == "" {
		return ""
	}

	si.mu.RLock()
	if canonical, exists := si.strings[s]; exists {
		si.mu.RUnlock()
		return canonical
	}
	si.mu.RUnlock()

	si.mu.Lock()
	defer si.mu.Unlock()

	if canonical, exists := si.strings[s]; exists {
		return canonical
	}

	si.strings[s] = s
	return s
}

// InternCategory interns a Category string.
func InternCategory(c Category) Category {
	return Category(categoryInterner.Intern(string(c)))
}

// InternDesignSystem interns a DesignSystem string.
func InternDesignSystem(d DesignSystem) DesignSystem {
	return DesignSystem(designSystemInterner.Intern(string(d)))
}

// InternTag interns a tag string.
func InternTag(tag string) string {
	return tagInterner.Intern(tag)
}

// Size returns the number of interned strings across all pools.
func (si *StringInterner) Size() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.strings)
}

// Clear removes all interned strings (useful for testing).
func (si *StringInterner) Clear() {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.strings = make(map[string]string, 100)
}
