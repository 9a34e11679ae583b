package resolve

// Entry is one resource found while listing a namespace.
type Entry struct {
	// Key is the path relative to the theme root without extension. Passing
	// it to Handler.File resolves the same resource.
	Key string
	// Name is the path relative to the namespace without extension.
	Name string
	// Path is the root-relative physical path that produced the entry.
	Path string
}

// Listing is an ordered, first-write-wins mapping of resource keys.
type Listing struct {
	keys    []string
	entries map[string]Entry
}

// NewListing returns an empty listing.
func NewListing() *Listing {
	return &Listing{entries: make(map[string]Entry)}
}

// Add stores the entry unless its key is already present. It reports whether
// the entry was stored.
func (l *Listing) Add(entry Entry) bool {
	if l.entries == nil {
		l.entries = make(map[string]Entry)
	}
	if _, exists := l.entries[entry.Key]; exists {
		return false
	}
	l.entries[entry.Key] = entry
	l.keys = append(l.keys, entry.Key)
	return true
}

// Merge adds every entry of other, keeping existing keys untouched.
func (l *Listing) Merge(other *Listing) {
	if other == nil {
		return
	}
	for _, key := range other.keys {
		l.Add(other.entries[key])
	}
}

// Get returns the entry stored under key.
func (l *Listing) Get(key string) (Entry, bool) {
	if l == nil {
		return Entry{}, false
	}
	entry, ok := l.entries[key]
	return entry, ok
}

// Keys returns the keys in insertion order.
func (l *Listing) Keys() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.keys))
	copy(out, l.keys)
	return out
}

// Entries returns the entries in insertion order.
func (l *Listing) Entries() []Entry {
	if l == nil {
		return nil
	}
	out := make([]Entry, 0, len(l.keys))
	for _, key := range l.keys {
		out = append(out, l.entries[key])
	}
	return out
}

// Len returns the number of entries.
func (l *Listing) Len() int {
	if l == nil {
		return 0
	}
	return len(l.keys)
}

// Map returns key to display name.
func (l *Listing) Map() map[string]string {
	out := make(map[string]string, l.Len())
	if l == nil {
		return out
	}
	for key, entry := range l.entries {
		out[key] = entry.Name
	}
	return out
}
