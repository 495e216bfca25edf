package filter

import "sync"

// Registry keeps one Selection per chat for the lifetime of the process.
type Registry struct {
	mu         sync.Mutex
	selections map[int64]Selection
}

func NewRegistry() *Registry {
	return &Registry{selections: make(map[int64]Selection)}
}

func (r *Registry) Get(chatID int64) Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selections[chatID].clone()
}

// Update applies fn to the chat's selection and returns the result.
func (r *Registry) Update(chatID int64, fn func(*Selection)) Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	sel := r.selections[chatID].clone()
	fn(&sel)
	r.selections[chatID] = sel
	return sel.clone()
}

// clone detaches the optional pointers so callers cannot mutate stored state.
func (s Selection) clone() Selection {
	out := Selection{Status: s.Status}
	if s.Priority != nil {
		p := *s.Priority
		out.Priority = &p
	}
	if s.Category != nil {
		c := *s.Category
		out.Category = &c
	}
	return out
}
