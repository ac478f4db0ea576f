package activities

// DefaultCategory is shown for activities the backend does not categorize.
const DefaultCategory = "General"

type Activity struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	Category        string   `json:"category,omitempty"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// SpotsLeft is capacity minus the current roster size. It is not clamped, so
// an over-full activity reports a negative number.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

func (a Activity) DisplayCategory() string {
	if a.Category == "" {
		return DefaultCategory
	}
	return a.Category
}

// Entry pairs an activity with the name it is keyed by.
type Entry struct {
	Name     string   `json:"name"`
	Activity Activity `json:"activity"`
}

// Store is an immutable, ordered snapshot of every activity the backend
// reported. Order is the key order of the backend's JSON object.
type Store struct {
	entries []Entry
}

// NewStore builds a snapshot from entries in iteration order. A repeated name
// keeps its first position and takes the later value, matching how a JSON
// object with a duplicate key is read.
func NewStore(entries []Entry) Store {
	out := make([]Entry, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, e := range entries {
		if i, ok := index[e.Name]; ok {
			out[i] = e
			continue
		}
		index[e.Name] = len(out)
		out = append(out, e)
	}
	return Store{entries: out}
}

func (s Store) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the snapshot so callers cannot mutate it.
func (s Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s Store) Get(name string) (Activity, bool) {
	for _, e := range s.entries {
		if e.Name == name {
			return e.Activity, true
		}
	}
	return Activity{}, false
}
