package domain

import (
	"fmt"
	"strings"
)

// Category returns the category with the given ID.
func (c Catalog) Category(categoryID string) (Category, bool) {
	for _, category := range c.Categories {
		if category.ID == categoryID {
			return category, true
		}
	}
	return Category{}, false
}

// HasQuestion reports whether any category contains the question.
func (c Catalog) HasQuestion(questionID string) bool {
	for _, category := range c.Categories {
		for _, question := range category.Questions {
			if question.ID == questionID {
				return true
			}
		}
	}
	return false
}

// Answer returns the answer with the given ID.
func (q Question) Answer(answerID string) (Answer, bool) {
	for _, answer := range q.Answers {
		if answer.ID == answerID {
			return answer, true
		}
	}
	return Answer{}, false
}

// CorrectCount returns how many answers are marked correct.
func (q Question) CorrectCount() int {
	n := 0
	for _, answer := range q.Answers {
		if answer.IsCorrect {
			n++
		}
	}
	return n
}

// Validate checks identifier uniqueness and value ranges.
// Question IDs must be unique across the whole catalog because completion is tracked by question ID alone.
func (c Catalog) Validate() error {
	categories := make(map[string]struct{}, len(c.Categories))
	questions := make(map[string]struct{})
	for _, category := range c.Categories {
		if strings.TrimSpace(category.ID) == "" {
			return fmt.Errorf("%w: category with empty id", ErrInvalidCatalog)
		}
		if _, dup := categories[category.ID]; dup {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidCatalog, category.ID)
		}
		categories[category.ID] = struct{}{}
		if strings.TrimSpace(category.Name) == "" {
			return fmt.Errorf("%w: category %q has no name", ErrInvalidCatalog, category.ID)
		}

		for _, question := range category.Questions {
			if strings.TrimSpace(question.ID) == "" {
				return fmt.Errorf("%w: question with empty id in category %q", ErrInvalidCatalog, category.ID)
			}
			if _, dup := questions[question.ID]; dup {
				return fmt.Errorf("%w: duplicate question %q", ErrInvalidCatalog, question.ID)
			}
			questions[question.ID] = struct{}{}

			answers := make(map[string]struct{}, len(question.Answers))
			for _, answer := range question.Answers {
				if _, dup := answers[answer.ID]; dup {
					return fmt.Errorf("%w: duplicate answer %q in question %q", ErrInvalidCatalog, answer.ID, question.ID)
				}
				answers[answer.ID] = struct{}{}
				if answer.Points < 0 {
					return fmt.Errorf("%w: negative points on answer %q in question %q", ErrInvalidCatalog, answer.ID, question.ID)
				}
			}
		}
	}
	return nil
}
