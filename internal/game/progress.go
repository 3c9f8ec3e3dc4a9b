package game

import (
	"sort"

	"trivia-party/internal/domain"
)

// QuestionSet is an unordered set of question IDs. Only membership is meaningful.
type QuestionSet map[string]struct{}

// Tracker owns the completed question set and derives category completion from the catalog.
type Tracker struct {
	catalog   domain.Catalog
	completed QuestionSet
}

func NewTracker(catalog domain.Catalog) *Tracker {
	return &Tracker{catalog: catalog, completed: make(QuestionSet)}
}

// Restore seeds the completed set, dropping IDs that are not in the catalog.
func (t *Tracker) Restore(questionIDs []string) (dropped int) {
	for _, id := range questionIDs {
		if !t.catalog.HasQuestion(id) {
			dropped++
			continue
		}
		t.completed[id] = struct{}{}
	}
	return dropped
}

// MarkComplete adds a question ID and reports whether it was newly added.
func (t *Tracker) MarkComplete(questionID string) bool {
	if _, ok := t.completed[questionID]; ok {
		return false
	}
	t.completed[questionID] = struct{}{}
	return true
}

func (t *Tracker) IsQuestionComplete(questionID string) bool {
	_, ok := t.completed[questionID]
	return ok
}

// IsCategoryComplete is true when every question of the category is complete.
// Unknown categories are never complete; categories without questions always are.
func (t *Tracker) IsCategoryComplete(categoryID string) bool {
	category, ok := t.catalog.Category(categoryID)
	if !ok {
		return false
	}
	for _, question := range category.Questions {
		if !t.IsQuestionComplete(question.ID) {
			return false
		}
	}
	return true
}

// IsCatalogComplete is true when every category is complete.
func (t *Tracker) IsCatalogComplete() bool {
	for _, category := range t.catalog.Categories {
		if !t.IsCategoryComplete(category.ID) {
			return false
		}
	}
	return true
}

// NextQuestion returns the first question of the category, in catalog order, that is not complete.
func (t *Tracker) NextQuestion(categoryID string) (domain.Question, int, bool) {
	category, ok := t.catalog.Category(categoryID)
	if !ok {
		return domain.Question{}, -1, false
	}
	for i, question := range category.Questions {
		if !t.IsQuestionComplete(question.ID) {
			return question, i, true
		}
	}
	return domain.Question{}, -1, false
}

// Reset clears the completed set.
func (t *Tracker) Reset() {
	t.completed = make(QuestionSet)
}

func (t *Tracker) Len() int {
	return len(t.completed)
}

// Completed returns the completed IDs sorted, for stable serialization.
func (t *Tracker) Completed() []string {
	ids := make([]string, 0, len(t.completed))
	for id := range t.completed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
