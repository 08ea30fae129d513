package scraper

import (
	"sort"
	"strings"
)

var registry = map[string]Profile{}

func Register(p Profile) {
	registry[strings.ToLower(p.Name)] = p
}

func Get(name string) (Profile, bool) {
	p, ok := registry[strings.ToLower(name)]
	return p, ok
}

// Names lists registered profiles in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
