package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/skelly-dev/atlas/internal/parser"
)

// Changes lists how a live tree differs from the files recorded in an index.
type Changes struct {
	Added   []string `json:"added,omitempty"`
	Changed []string `json:"changed,omitempty"`
	Deleted []string `json:"deleted,omitempty"`
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Changed) == 0 && len(c.Deleted) == 0
}

// HashFiles returns the content hash of each file, keyed by relative path.
// Files that cannot be read are left out.
func HashFiles(root string, files []string) map[string]string {
	hashes := make(map[string]string, len(files))
	for _, file := range files {
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(file)))
		if err != nil {
			continue
		}
		hashes[file] = parser.HashContent(content)
	}
	return hashes
}

// Diff compares recorded content hashes with current ones.
func Diff(previous, current map[string]string) Changes {
	var changes Changes
	for file, hash := range current {
		prev, ok := previous[file]
		switch {
		case !ok:
			changes.Added = append(changes.Added, file)
		case prev != hash:
			changes.Changed = append(changes.Changed, file)
		}
	}
	for file := range previous {
		if _, ok := current[file]; !ok {
			changes.Deleted = append(changes.Deleted, file)
		}
	}
	sort.Strings(changes.Added)
	sort.Strings(changes.Changed)
	sort.Strings(changes.Deleted)
	return changes
}

func (c Changes) String() string {
	return fmt.Sprintf("%d added, %d changed, %d deleted", len(c.Added), len(c.Changed), len(c.Deleted))
}
