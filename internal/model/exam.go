package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// AssessmentType is a display label only.
type AssessmentType string

const (
	AssessmentTypeExam AssessmentType = "EXAM"
	AssessmentTypeQuiz AssessmentType = "QUIZ"
	AssessmentTypeTest AssessmentType = "TEST"
)

// Exam is the read-only definition an attempt is taken against.
// Sections and Questions are populated by the question bank.
type Exam struct {
	ID                   uuid.UUID      `json:"id"`
	Title                string         `json:"title"`
	AuthorID             int            `json:"author_id"`
	AssessmentType       AssessmentType `json:"assessment_type"`
	Status               ExamStatus     `json:"status"`
	ScheduledStart       *time.Time     `json:"scheduled_start,omitempty"`
	ScheduledEnd         *time.Time     `json:"scheduled_end,omitempty"`
	DurationMinutes      int            `json:"duration_minutes"`
	PassingScore         float64        `json:"passing_score"`
	HasSections          bool           `json:"has_sections"`
	RandomizeQuestions   bool           `json:"randomize_questions"`
	BrowserSecurity      bool           `json:"browser_security"`
	AllowBrowserWarnings bool           `json:"allow_browser_warnings"`
	MaxViolations        int            `json:"max_violations"`
	// MaxAttempts of 0 means unlimited retakes.
	MaxAttempts int        `json:"max_attempts"`
	Sections    []Section  `json:"sections"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Section is a timed sub-block of an exam.
type Section struct {
	ID              uuid.UUID `json:"id"`
	ExamID          uuid.UUID `json:"exam_id"`
	Title           string    `json:"title"`
	Position        int       `json:"position"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Duration returns the section budget.
func (s *Section) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// IsPublished reports whether students may see the exam at all.
func (e *Exam) IsPublished() bool {
	return e.Status == ExamStatusPublished
}

// AvailableAt reports whether a new attempt may be started at now.
func (e *Exam) AvailableAt(now time.Time) bool {
	if !e.IsPublished() {
		return false
	}
	if e.ScheduledStart != nil && now.Before(*e.ScheduledStart) {
		return false
	}
	if e.ScheduledEnd != nil && now.After(*e.ScheduledEnd) {
		return false
	}
	return true
}

// Question looks up a question of this exam by id.
func (e *Exam) Question(id uuid.UUID) (*Question, bool) {
	for i := range e.Questions {
		if e.Questions[i].ID == id {
			return &e.Questions[i], true
		}
	}
	return nil, false
}

// Section looks up a section of this exam by id.
func (e *Exam) Section(id uuid.UUID) (*Section, bool) {
	for i := range e.Sections {
		if e.Sections[i].ID == id {
			return &e.Sections[i], true
		}
	}
	return nil, false
}

// OrderedSections returns the sections sorted by position.
func (e *Exam) OrderedSections() []Section {
	out := make([]Section, len(e.Sections))
	copy(out, e.Sections)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// OrderedQuestions returns the questions in authoring order: section
// position first (unsectioned questions lead), then question position.
func (e *Exam) OrderedQuestions() []Question {
	sectionPos := make(map[uuid.UUID]int, len(e.Sections))
	for _, s := range e.Sections {
		sectionPos[s.ID] = s.Position
	}
	rank := func(q *Question) int {
		if q.SectionID == nil {
			return -1
		}
		return sectionPos[*q.SectionID]
	}

	out := make([]Question, len(e.Questions))
	copy(out, e.Questions)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(&out[i]), rank(&out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i].Position < out[j].Position
	})
	return out
}

// TotalPoints sums the points of every question in the exam.
func (e *Exam) TotalPoints() float64 {
	var total float64
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

// TimeBudget is the overall wall-clock allowance of one attempt. For
// sectioned exams the exam duration is informational and the budget is the
// sum of the section durations.
func (e *Exam) TimeBudget() time.Duration {
	if e.HasSections && len(e.Sections) > 0 {
		var total time.Duration
		for i := range e.Sections {
			total += e.Sections[i].Duration()
		}
		return total
	}
	return time.Duration(e.DurationMinutes) * time.Minute
}

// ViolationLimit is MaxViolations clamped to at least one.
func (e *Exam) ViolationLimit() int {
	if e.MaxViolations < 1 {
		return 1
	}
	return e.MaxViolations
}

// ExamSummary is the admin-facing projection of an exam without its content.
type ExamSummary struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	AssessmentType  AssessmentType `json:"assessment_type"`
	Status          ExamStatus     `json:"status"`
	DurationMinutes int            `json:"duration_minutes"`
	PassingScore    float64        `json:"passing_score"`
	HasSections     bool           `json:"has_sections"`
	SectionCount    int            `json:"section_count"`
	QuestionCount   int            `json:"question_count"`
	TotalPoints     float64        `json:"total_points"`
}

// Summary builds the admin projection.
func (e *Exam) Summary() ExamSummary {
	return ExamSummary{
		ID:              e.ID,
		Title:           e.Title,
		AssessmentType:  e.AssessmentType,
		Status:          e.Status,
		DurationMinutes: e.DurationMinutes,
		PassingScore:    e.PassingScore,
		HasSections:     e.HasSections,
		SectionCount:    len(e.Sections),
		QuestionCount:   len(e.Questions),
		TotalPoints:     e.TotalPoints(),
	}
}
