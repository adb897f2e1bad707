// Package desktop parses desktop-entry files into records.
package desktop

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"
)

// FallbackName is used for entries that do not carry a Name key.
const FallbackName = "none"

// Record is one application or plugin descriptor.
type Record struct {
	Name       string          `json:"name"`
	Exec       string          `json:"exec"`
	Icon       string          `json:"icon"`
	Categories map[string]bool `json:"categories"`
	Comment    string          `json:"comment"`
	Source     string          `json:"source"`
	Type       string          `json:"type"`
	Keywords   []string        `json:"keywords"`
	NoDisplay  bool            `json:"no_display"`
	Hidden     bool            `json:"hidden"`
	Terminal   bool            `json:"terminal"`

	// Extra keeps the remaining default-section keys (X-* extensions, plugin metadata).
	Extra map[string]string `json:"extra,omitempty"`
}

var knownKeys = map[string]bool{
	"Name": true, "Exec": true, "Icon": true, "Categories": true, "Comment": true,
	"Type": true, "Keywords": true, "NoDisplay": true, "Hidden": true, "Terminal": true,
}

// FromEntries builds a record from parsed entries of the file at path.
func FromEntries(path string, entries Entries) Record {
	rec := Record{
		Name:       entries.Get("Name"),
		Exec:       entries.Get("Exec"),
		Icon:       entries.Get("Icon"),
		Comment:    entries.Get("Comment"),
		Type:       entries.Get("Type"),
		Source:     path,
		Categories: make(map[string]bool),
		Keywords:   splitList(entries.Get("Keywords")),
		NoDisplay:  parseBool(entries.Get("NoDisplay")),
		Hidden:     parseBool(entries.Get("Hidden")),
		Terminal:   parseBool(entries.Get("Terminal")),
	}
	if rec.Name == "" {
		rec.Name = FallbackName
	}
	for _, c := range splitList(entries.Get("Categories")) {
		rec.Categories[c] = true
	}

	prefix := DefaultSection + "/"
	for k, v := range entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		key := strings.TrimPrefix(k, prefix)
		if knownKeys[key] {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]string)
		}
		rec.Extra[key] = v
	}

	return rec
}

// LoadRecord parses the file at path into a record.
func LoadRecord(path string) (Record, error) {
	entries, err := ParseFile(path)
	if err != nil {
		return Record{}, err
	}
	return FromEntries(path, entries), nil
}

// Executable builds the minimal record used for binaries found on $PATH.
// Exec holds the path quoted so that Args gives it back as one word.
func Executable(path string) Record {
	return Record{
		Name:       filepath.Base(path),
		Exec:       strings.ReplaceAll(shellquote.Join(path), "%", "%%"),
		Source:     path,
		Type:       "Application",
		Categories: make(map[string]bool),
	}
}

// Matches reports whether needle is a case-sensitive substring of the name.
// An empty needle matches nothing.
func (r Record) Matches(needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(r.Name, needle)
}

// InCategory reports whether the record lists the category.
func (r Record) InCategory(category string) bool {
	return r.Categories[category]
}

// CategoryList returns the categories sorted.
func (r Record) CategoryList() []string {
	list := make([]string, 0, len(r.Categories))
	for c := range r.Categories {
		list = append(list, c)
	}
	sort.Strings(list)
	return list
}

// Args turns Exec into an argument vector. Field codes %c, %i and %k are
// expanded, file and URL codes are dropped and %% becomes a literal percent.
func (r Record) Args() []string {
	raw := strings.TrimSpace(r.Exec)
	if raw == "" {
		return nil
	}

	words, err := shellquote.Split(raw)
	if err != nil {
		words = strings.Fields(raw)
	}

	args := make([]string, 0, len(words))
	for _, w := range words {
		switch w {
		case "%f", "%F", "%u", "%U", "%d", "%D", "%n", "%N", "%v", "%m":
			continue
		case "%i":
			if r.Icon != "" {
				args = append(args, "--icon", r.Icon)
			}
			continue
		}
		w = expandFieldCodes(w, r)
		if w == "" {
			continue
		}
		args = append(args, w)
	}
	return args
}

func expandFieldCodes(word string, r Record) string {
	if !strings.Contains(word, "%") {
		return word
	}

	var b strings.Builder
	for i := 0; i < len(word); i++ {
		if word[i] != '%' || i == len(word)-1 {
			b.WriteByte(word[i])
			continue
		}
		i++
		switch word[i] {
		case '%':
			b.WriteByte('%')
		case 'c':
			b.WriteString(r.Name)
		case 'k':
			b.WriteString(r.Source)
		case 'i':
			b.WriteString(r.Icon)
		default:
			// unknown and file codes expand to nothing inside a word
		}
	}
	return b.String()
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}
