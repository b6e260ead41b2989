package questions

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/topten/internal/model"
)

// Provider supplies the immutable question list for a category
type Provider interface {
	QuestionsForCategory(ctx context.Context, categoryID string) ([]model.Question, error)
}

// Category is a named set of questions
type Category struct {
	ID        string           `yaml:"id"`
	Name      string           `yaml:"name"`
	Questions []model.Question `yaml:"questions"`
}

// Pack is the on-disk format of a question file
type Pack struct {
	Categories []Category `yaml:"categories"`
}

// Service holds question categories in memory
type Service struct {
	mu         sync.RWMutex
	categories map[string]Category
}

var _ Provider = (*Service)(nil)

// New creates an empty question Service
func New() *Service {
	return &Service{
		categories: make(map[string]Category),
	}
}

// LoadFromFile loads a YAML question pack, replacing any loaded categories
func (s *Service) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return s.LoadYAML(data)
}

// LoadYAML parses and loads a YAML question pack
func (s *Service) LoadYAML(data []byte) error {
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return fmt.Errorf("parse question pack: %w", err)
	}
	return s.LoadCategories(pack.Categories...)
}

// LoadCategories validates and loads categories (useful for testing)
func (s *Service) LoadCategories(categories ...Category) error {
	loaded := make(map[string]Category, len(categories))
	for _, c := range categories {
		if c.ID == "" {
			return fmt.Errorf("category %q has no id", c.Name)
		}
		for i := range c.Questions {
			if err := validateQuestion(&c.Questions[i]); err != nil {
				return fmt.Errorf("category %s: %w", c.ID, err)
			}
		}
		loaded[c.ID] = c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = loaded
	return nil
}

// QuestionsForCategory returns a copy of the category's questions
func (s *Service) QuestionsForCategory(ctx context.Context, categoryID string) ([]model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[categoryID]
	if !ok {
		return nil, model.ErrCategoryNotFound
	}

	result := make([]model.Question, len(c.Questions))
	for i, q := range c.Questions {
		result[i] = q.Clone()
	}
	return result, nil
}

// CategoryIDs returns the loaded category IDs in sorted order
func (s *Service) CategoryIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.categories))
	for id := range s.categories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func validateQuestion(q *model.Question) error {
	if q.Text == "" {
		return fmt.Errorf("question %s has no text", q.ID)
	}
	if len(q.Answers) == 0 || len(q.Answers) > model.BoardSize {
		return fmt.Errorf("question %s has %d answers, want 1-%d", q.ID, len(q.Answers), model.BoardSize)
	}

	seen := make(map[int]bool, len(q.Answers))
	for i := range q.Answers {
		a := &q.Answers[i]
		if a.ID == "" {
			a.ID = fmt.Sprintf("%s-%d", q.ID, i+1)
		}
		// Missing ranks follow list order
		if a.Rank == 0 {
			a.Rank = i + 1
		}
		if a.Rank < 1 || a.Rank > model.BoardSize {
			return fmt.Errorf("question %s answer %s has rank %d, want 1-%d", q.ID, a.ID, a.Rank, model.BoardSize)
		}
		if seen[a.Rank] {
			return fmt.Errorf("question %s has duplicate rank %d", q.ID, a.Rank)
		}
		seen[a.Rank] = true
	}
	return nil
}
