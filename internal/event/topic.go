package event

import "strings"

// Topic is a hierarchical event type using dot notation, for example
// "git.status.changed".
type Topic string

// Pattern syntax.
const (
	WildcardSingle = "*"  // one segment
	WildcardMulti  = "**" // any number of segments, including none
	Separator      = "."
)

func (t Topic) String() string { return string(t) }

// Segments splits t on Separator. The empty topic has no segments.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// IsValid reports whether the topic is non-empty and has no empty segments.
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// Matches reports whether the topic matches pattern. In a pattern "*" matches
// exactly one segment and "**" matches zero or more.
//
//	git.*          matches git.commit but not git.status.changed
//	git.**         matches git.status.changed
//	*.*.changed    matches git.branch.changed
func (t Topic) Matches(pattern Topic) bool {
	return matchSegments(t.Segments(), pattern.Segments())
}

func matchSegments(topic, pattern []string) bool {
	for len(pattern) > 0 {
		head := pattern[0]
		pattern = pattern[1:]

		if head == WildcardMulti {
			for skip := 0; skip <= len(topic); skip++ {
				if matchSegments(topic[skip:], pattern) {
					return true
				}
			}
			return false
		}

		if len(topic) == 0 || (head != WildcardSingle && head != topic[0]) {
			return false
		}
		topic = topic[1:]
	}
	return len(topic) == 0
}
