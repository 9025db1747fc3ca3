package health

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// FoldSet is an insertion-ordered string set whose membership ignores case.
// The first spelling added is the one kept. The zero value is ready to use.
type FoldSet struct {
	items []string
	seen  map[string]struct{}
}

// NewFoldSet returns a set holding values in order.
func NewFoldSet(values ...string) FoldSet {
	var s FoldSet
	s.Add(values...)
	return s
}

// Add inserts every non-blank value not yet present and reports how many
// were new.
func (s *FoldSet) Add(values ...string) int {
	added := 0
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if _, ok := s.seen[k]; ok {
			continue
		}
		if s.seen == nil {
			s.seen = make(map[string]struct{})
		}
		s.seen[k] = struct{}{}
		s.items = append(s.items, v)
		added++
	}
	return added
}

// Union adds every member of o.
func (s *FoldSet) Union(o FoldSet) int {
	return s.Add(o.items...)
}

// Contains reports whether v is a member, ignoring case.
func (s FoldSet) Contains(v string) bool {
	_, ok := s.seen[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

func (s FoldSet) Len() int { return len(s.items) }

// Values returns a copy of the members in insertion order.
func (s FoldSet) Values() []string {
	if len(s.items) == 0 {
		return nil
	}
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

func (s FoldSet) MarshalJSON() ([]byte, error) {
	if s.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}

func (s *FoldSet) UnmarshalJSON(b []byte) error {
	var values []string
	if err := json.Unmarshal(b, &values); err != nil {
		return err
	}
	*s = NewFoldSet(values...)
	return nil
}

func (s FoldSet) MarshalYAML() (any, error) {
	if s.items == nil {
		return []string{}, nil
	}
	return s.items, nil
}

func (s *FoldSet) UnmarshalYAML(node *yaml.Node) error {
	var values []string
	if err := node.Decode(&values); err != nil {
		return err
	}
	*s = NewFoldSet(values...)
	return nil
}
