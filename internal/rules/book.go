// Package rules manages the in-memory set of custom SQL quality rules.
package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/dqlens/internal/models"
)

// DefaultAuthor is recorded as CreatedBy when no author is configured
const DefaultAuthor = "current.user@company.com"

// ErrRuleNotFound is returned when no rule has the requested ID
var ErrRuleNotFound = errors.New("rule not found")

// ValidationError collects every problem with a rule draft
type ValidationError struct {
	Rule   string
	Errors []string
}

func (e *ValidationError) Error() string {
	name := e.Rule
	if name == "" {
		name = "rule"
	}
	return fmt.Sprintf("%s is invalid: %s", name, strings.Join(e.Errors, "; "))
}

// DefaultDraft returns the field values the rule editor starts with
func DefaultDraft() models.RuleDraft {
	return models.RuleDraft{
		Severity: models.SeverityMedium,
		Enabled:  true,
		Schedule: DefaultSchedule,
	}
}

// ValidateDraft checks the editable fields of a rule
func ValidateDraft(d models.RuleDraft) error {
	var problems []string

	if strings.TrimSpace(d.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !d.Severity.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown severity %q", d.Severity))
	}
	if d.Threshold < 0 {
		problems = append(problems, fmt.Sprintf("threshold must be >= 0, got %v", d.Threshold))
	}
	if _, err := ParseSchedule(d.Schedule); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return &ValidationError{Rule: d.Name, Errors: problems}
	}
	return nil
}

// Book holds the rule set. It is not safe for concurrent use.
type Book struct {
	rules  []models.CustomRule
	now    func() time.Time
	newID  func() string
	author string
}

// Option configures a Book
type Option func(*Book)

// WithClock overrides the clock used for CreatedAt and LastRun
func WithClock(now func() time.Time) Option {
	return func(b *Book) { b.now = now }
}

// WithIDGenerator overrides rule ID generation
func WithIDGenerator(gen func() string) Option {
	return func(b *Book) { b.newID = gen }
}

// WithAuthor sets the CreatedBy value of new rules
func WithAuthor(author string) Option {
	return func(b *Book) {
		if author != "" {
			b.author = author
		}
	}
}

// NewBook creates a book holding a copy of rules
func NewBook(rules []models.CustomRule, opts ...Option) *Book {
	b := &Book{
		rules:  append([]models.CustomRule{}, rules...),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
		author: DefaultAuthor,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// List returns a copy of all rules in insertion order
func (b *Book) List() []models.CustomRule {
	out := make([]models.CustomRule, len(b.rules))
	copy(out, b.rules)
	return out
}

// Len returns the number of rules
func (b *Book) Len() int {
	return len(b.rules)
}

// Get returns the rule with the given ID
func (b *Book) Get(id string) (models.CustomRule, error) {
	i, err := b.index(id)
	if err != nil {
		return models.CustomRule{}, err
	}
	return b.rules[i], nil
}

// Create validates the draft and appends a new rule
func (b *Book) Create(d models.RuleDraft) (models.CustomRule, error) {
	if err := ValidateDraft(d); err != nil {
		return models.CustomRule{}, err
	}

	now := b.now()
	lastRun := now
	rule := models.CustomRule{
		ID:        b.newID(),
		CreatedBy: b.author,
		CreatedAt: now,
		LastRun:   &lastRun,
	}
	applyDraft(&rule, d)

	b.rules = append(b.rules, rule)
	return rule, nil
}

// Update replaces the editable fields of a rule and refreshes LastRun
func (b *Book) Update(id string, d models.RuleDraft) (models.CustomRule, error) {
	i, err := b.index(id)
	if err != nil {
		return models.CustomRule{}, err
	}
	if err := ValidateDraft(d); err != nil {
		return models.CustomRule{}, err
	}

	rule := &b.rules[i]
	applyDraft(rule, d)
	lastRun := b.now()
	rule.LastRun = &lastRun

	return *rule, nil
}

// Delete removes a rule
func (b *Book) Delete(id string) error {
	i, err := b.index(id)
	if err != nil {
		return err
	}
	b.rules = append(b.rules[:i], b.rules[i+1:]...)
	return nil
}

// Toggle flips Enabled and leaves every other field untouched
func (b *Book) Toggle(id string) (models.CustomRule, error) {
	i, err := b.index(id)
	if err != nil {
		return models.CustomRule{}, err
	}
	b.rules[i].Enabled = !b.rules[i].Enabled
	return b.rules[i], nil
}

// Resolve finds a rule by exact ID, then by case-insensitive name
func (b *Book) Resolve(ref string) (models.CustomRule, error) {
	if r, err := b.Get(ref); err == nil {
		return r, nil
	}
	var match *models.CustomRule
	for i := range b.rules {
		if strings.EqualFold(b.rules[i].Name, ref) {
			if match != nil {
				return models.CustomRule{}, fmt.Errorf("rule name %q is ambiguous", ref)
			}
			match = &b.rules[i]
		}
	}
	if match == nil {
		return models.CustomRule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, ref)
	}
	return *match, nil
}

func (b *Book) index(id string) (int, error) {
	for i := range b.rules {
		if b.rules[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

func applyDraft(r *models.CustomRule, d models.RuleDraft) {
	r.Name = strings.TrimSpace(d.Name)
	r.Description = d.Description
	r.SQLQuery = d.SQLQuery
	r.Threshold = d.Threshold
	r.Severity = d.Severity
	r.Enabled = d.Enabled
	r.Schedule = strings.TrimSpace(d.Schedule)
}
