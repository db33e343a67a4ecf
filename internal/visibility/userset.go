package visibility

import "sort"

// UserSet is an immutable set of user ids. The zero value is an empty set.
type UserSet struct {
	ids map[string]struct{}
}

// NewUserSet builds a set from ids, dropping empty entries.
func NewUserSet(ids ...string) UserSet {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		m[id] = struct{}{}
	}
	return UserSet{ids: m}
}

// Has reports whether id is a member.
func (s UserSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of members.
func (s UserSet) Len() int { return len(s.ids) }

// Slice returns the members in ascending order.
func (s UserSet) Slice() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Union returns a new set holding the members of s and every other set.
func (s UserSet) Union(others ...UserSet) UserSet {
	size := len(s.ids)
	for _, o := range others {
		size += len(o.ids)
	}
	m := make(map[string]struct{}, size)
	for id := range s.ids {
		m[id] = struct{}{}
	}
	for _, o := range others {
		for id := range o.ids {
			m[id] = struct{}{}
		}
	}
	return UserSet{ids: m}
}

// Without returns a copy of s with id removed.
func (s UserSet) Without(id string) UserSet {
	m := make(map[string]struct{}, len(s.ids))
	for k := range s.ids {
		if k != id {
			m[k] = struct{}{}
		}
	}
	return UserSet{ids: m}
}
