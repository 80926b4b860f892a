// Package write materializes a partition mapping as one output file per
// partition, named flat or Hive-style, with atomic per-file commits.
package write

import (
	"fmt"
	"path"
	"strings"

	"github.com/cholmes/geopartition/partition"
)

// Style selects the output naming scheme.
type Style int

const (
	// Flat names files by the sanitized partition key at the output root.
	Flat Style = iota
	// Hive nests directories `level=value/` per key component, one data
	// file per leaf directory.
	Hive
)

func (s Style) String() string {
	switch s {
	case Flat:
		return "flat"
	case Hive:
		return "hive"
	default:
		return fmt.Sprintf("style(%d)", int(s))
	}
}

const sanitizeReplacement = "_"

// sanitize makes a key component safe as a single path element.
func sanitize(s string) string {
	if s == "" {
		return sanitizeReplacement
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|' || r == ' ':
			b.WriteByte('_')
		case r < 0x20:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "." || out == ".." {
		return sanitizeReplacement
	}
	return out
}

// plannedFile is one partition resolved to its relative output path.
type plannedFile struct {
	key  partition.Key
	path string
}

// planPaths resolves every partition key to a relative output path,
// deterministically suffixing a counter when sanitization collides. Keys
// arrive in canonical order, so suffix assignment is reproducible.
func planPaths(m *partition.Mapping, style Style, ext string) []plannedFile {
	keys := m.Keys()
	levels := m.Levels()

	files := make([]plannedFile, 0, len(keys))
	seen := make(map[string]int, len(keys))
	for _, k := range keys {
		var p string
		switch style {
		case Hive:
			parts := make([]string, 0, len(levels)+1)
			for i, c := range k.Components() {
				level := fmt.Sprintf("level%d", i)
				if i < len(levels) {
					level = levels[i]
				}
				parts = append(parts, sanitize(level)+"="+sanitize(c))
			}
			parts = append(parts, "data"+ext)
			p = path.Join(parts...)
		default:
			parts := make([]string, len(k.Components()))
			for i, c := range k.Components() {
				parts[i] = sanitize(c)
			}
			p = strings.Join(parts, "_") + ext
		}

		// Collisions get a counter suffix instead of a silent overwrite.
		if n, ok := seen[p]; ok {
			base := p
			for {
				cand := suffixed(base, ext, n)
				if _, taken := seen[cand]; !taken {
					seen[base] = n + 1
					seen[cand] = 1
					p = cand
					break
				}
				n++
			}
		} else {
			seen[p] = 1
		}
		files = append(files, plannedFile{key: k, path: p})
	}
	return files
}

func suffixed(p, ext string, n int) string {
	base := strings.TrimSuffix(p, ext)
	return fmt.Sprintf("%s-%d%s", base, n, ext)
}
