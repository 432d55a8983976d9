package snapshot

import "sort"

// Changes is the classification of paths between two trees.
// The three sets are sorted and pairwise disjoint.
type Changes struct {
	Added    []string
	Modified []string
	Removed  []string
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// Len returns the total number of changed paths.
func (c Changes) Len() int {
	return len(c.Added) + len(c.Modified) + len(c.Removed)
}

// Diff compares old against new. A path present in both trees is modified
// when its size or modification time differs.
func Diff(old, new Tree) Changes {
	var c Changes
	for path, ne := range new {
		oe, ok := old[path]
		if !ok {
			c.Added = append(c.Added, path)
			continue
		}
		if !entryEqual(oe, ne) {
			c.Modified = append(c.Modified, path)
		}
	}
	for path := range old {
		if _, ok := new[path]; !ok {
			c.Removed = append(c.Removed, path)
		}
	}
	sort.Strings(c.Added)
	sort.Strings(c.Modified)
	sort.Strings(c.Removed)
	return c
}

func entryEqual(a, b Entry) bool {
	return a.Size == b.Size && a.ModTime.Equal(b.ModTime)
}
