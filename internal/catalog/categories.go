package catalog

import "strings"

// CategoryMatcher assigns provider categories to the configured labels.
// Label order is significant: the first matching label wins.
type CategoryMatcher struct {
	labels     []string
	normalized []string
}

func NewCategoryMatcher(labels []string) *CategoryMatcher {
	m := &CategoryMatcher{}
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		m.labels = append(m.labels, label)
		m.normalized = append(m.normalized, strings.ToLower(label))
	}
	return m
}

// Labels returns the configured labels in match order.
func (m *CategoryMatcher) Labels() []string {
	return append([]string(nil), m.labels...)
}

// Match compares case-insensitively; a label matches when it equals,
// contains or is contained in the source. An empty source never matches.
func (m *CategoryMatcher) Match(source string) (string, bool) {
	src := strings.ToLower(strings.TrimSpace(source))
	if src == "" {
		return "", false
	}
	for i, target := range m.normalized {
		if src == target || strings.Contains(src, target) || strings.Contains(target, src) {
			return m.labels[i], true
		}
	}
	return "", false
}

// Has reports whether label is one of the configured labels, ignoring case.
func (m *CategoryMatcher) Has(label string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, target := range m.normalized {
		if target == label {
			return true
		}
	}
	return false
}
