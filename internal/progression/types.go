package progression

import (
	"github.com/khianthai/khian/internal/ids"
	"github.com/khianthai/khian/internal/store"
)

// TestSummary is a test as seen from the lesson list.
type TestSummary struct {
	ID           ids.ID
	Title        string
	PassingScore int
	Attempts     int
}

// Completed reports whether the student has attempted the test.
func (t *TestSummary) Completed() bool {
	return t != nil && t.Attempts > 0
}

// GameSummary is a game as seen from the lesson list.
type GameSummary struct {
	ID     ids.ID
	Title  string
	Type   string
	Passed bool
}

// LessonView is one lesson with the student's state.
type LessonView struct {
	store.Lesson

	Status        Status
	CanAccess     bool
	IsChapterHead bool

	// Progress is nil when the student has not touched the lesson.
	Progress *store.LessonProgress
	PreTest  *TestSummary
	PostTest *TestSummary
	Games    []GameSummary
}

// ActivityInput is one in-lesson activity submission.
type ActivityInput struct {
	ActivityID string `validate:"required"`
	Answer     any
	IsCorrect  bool
	// Score defaults to 100 or 0 from IsCorrect when nil.
	Score     *int `validate:"omitempty,min=0,max=100"`
	TimeSpent int  `validate:"min=0"`
}

// PreTestStatus describes whether a lesson's pre-test blocks it.
type PreTestStatus struct {
	HasPreTest      bool
	Completed       bool
	CanAccessLesson bool
	TestID          ids.ID
	Title           string
}

// PostTestStatus describes a lesson's post-test.
type PostTestStatus struct {
	HasPostTest bool
	Unlocked    bool // the lesson is completed
	Completed   bool
	TestID      ids.ID
	Title       string
}
