package curriculum

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Subject is a leaf of the navigation tree: program > year > branch > subject.
type Subject struct {
	Program string `json:"program"`
	Year    string `json:"year"`
	Branch  string `json:"branch"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
}

type File struct {
	Subjects []Subject `json:"subjects"`
}

type Registry struct {
	mu       sync.RWMutex
	subjects map[string]map[string]Subject // branch key -> slug -> subject
}

func NewRegistry() *Registry {
	return &Registry{
		subjects: make(map[string]map[string]Subject),
	}
}

func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curriculum: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse curriculum: %w", err)
	}

	registry := NewRegistry()
	for _, s := range file.Subjects {
		if !registry.Add(s) {
			return nil, fmt.Errorf("invalid or duplicate curriculum entry: %s/%s/%s/%s", s.Program, s.Year, s.Branch, s.Name)
		}
	}
	return registry, nil
}

// Add inserts a subject and reports whether it was new and well formed.
func (r *Registry) Add(s Subject) bool {
	s = Normalize(s)
	if s.Program == "" || s.Year == "" || s.Branch == "" || s.Slug == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := branchKey(s.Program, s.Year, s.Branch)
	bucket, ok := r.subjects[key]
	if !ok {
		bucket = make(map[string]Subject)
		r.subjects[key] = bucket
	}
	if _, exists := bucket[s.Slug]; exists {
		return false
	}
	bucket[s.Slug] = s
	return true
}

// Lookup accepts either the subject slug or its display name.
func (r *Registry) Lookup(program, year, branch, subject string) (Subject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket, ok := r.subjects[branchKey(Slugify(program), Slugify(year), Slugify(branch))]
	if !ok {
		return Subject{}, false
	}
	s, ok := bucket[Slugify(subject)]
	return s, ok
}

func (r *Registry) Exists(program, year, branch, subject string) bool {
	_, ok := r.Lookup(program, year, branch, subject)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, bucket := range r.subjects {
		n += len(bucket)
	}
	return n
}

// Tree renders the registry as program -> year -> branch -> subjects, sorted by name.
func (r *Registry) Tree() map[string]map[string]map[string][]Subject {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tree := make(map[string]map[string]map[string][]Subject)
	for _, bucket := range r.subjects {
		for _, s := range bucket {
			years, ok := tree[s.Program]
			if !ok {
				years = make(map[string]map[string][]Subject)
				tree[s.Program] = years
			}
			branches, ok := years[s.Year]
			if !ok {
				branches = make(map[string][]Subject)
				years[s.Year] = branches
			}
			branches[s.Branch] = append(branches[s.Branch], s)
		}
	}
	for _, years := range tree {
		for _, branches := range years {
			for _, list := range branches {
				sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
			}
		}
	}
	return tree
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases and collapses everything but letters and digits to '-'.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlug.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Normalize slugs the classification fields and derives the subject slug.
func Normalize(s Subject) Subject {
	s.Program = Slugify(s.Program)
	s.Year = Slugify(s.Year)
	s.Branch = Slugify(s.Branch)
	s.Name = strings.TrimSpace(s.Name)
	s.Slug = Slugify(s.Name)
	return s
}

func branchKey(program, year, branch string) string {
	return program + "/" + year + "/" + branch
}
