package store

import (
	"context"
	"time"

	"github.com/khianthai/khian/internal/ids"
)

// QueryOpts configures list queries with filtering and pagination.
type QueryOpts struct {
	Limit   int    // max results (0 = unlimited)
	Offset  int    // rows to skip, only honored with Limit
	Purpose string // event purpose filter (vision events only)
}

// TestType distinguishes pre-tests from post-tests.
type TestType string

const (
	PreTest  TestType = "PRE_TEST"
	PostTest TestType = "POST_TEST"
)

// NotificationType classifies a notification.
type NotificationType string

const (
	NotifyInfo    NotificationType = "INFO"
	NotifySuccess NotificationType = "SUCCESS"
	NotifyWarning NotificationType = "WARNING"
)

// Lesson is one unit of a classroom's curriculum.
type Lesson struct {
	ID          ids.ID
	ClassroomID ids.ID
	Title       string
	Chapter     string
	OrderIndex  int
	Content     string
	IsActive    bool
	CreatedAt   time.Time
}

// Test is a pre- or post-test attached to a lesson.
type Test struct {
	ID           ids.ID
	LessonID     ids.ID
	ClassroomID  ids.ID
	Title        string
	Type         TestType
	PassingScore int
	IsActive     bool
	CreatedAt    time.Time

	// Questions is populated only by GetTest.
	Questions []Question
}

// Question is a multiple-choice item of a test.
type Question struct {
	ID            ids.ID
	TestID        ids.ID
	Text          string
	Options       []string
	CorrectAnswer Answer
	OrderIndex    int
	Explanation   string
	ImageURL      string
}

// Game is a practice game attached to a lesson.
type Game struct {
	ID          ids.ID
	LessonID    ids.ID
	ClassroomID ids.ID
	Title       string
	Type        string
	Settings    map[string]any
	IsActive    bool
	CreatedAt   time.Time
}

// LessonProgress tracks one student's progress through one lesson.
type LessonProgress struct {
	StudentID       ids.ID
	LessonID        ids.ID
	IsCompleted     bool
	CompletedAt     *time.Time
	TimeSpent       int // seconds
	ActivityResults []ActivityResult
	UpdatedAt       time.Time
}

// ActivityResult is the latest submission for one in-lesson activity.
type ActivityResult struct {
	ActivityID  string    `json:"activityId"`
	Answer      any       `json:"answer,omitempty"`
	IsCorrect   bool      `json:"isCorrect"`
	Score       int       `json:"score"`
	TimeSpent   int       `json:"timeSpent"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// TestAttempt is one graded test submission.
type TestAttempt struct {
	ID            ids.ID
	StudentID     ids.ID
	TestID        ids.ID
	AttemptNumber int
	Score         int
	IsPassed      bool
	Answers       map[ids.ID]Answer
	TimeSpent     int
	CompletedAt   time.Time
}

// GameAttempt is one recorded game play.
type GameAttempt struct {
	ID            ids.ID
	StudentID     ids.ID
	GameID        ids.ID
	AttemptNumber int
	Score         int
	Level         int
	IsPassed      bool
	TimeSpent     int
	Data          map[string]any
	CompletedAt   time.Time
}

// WritingAttempt is one verified handwriting submission. Append-only.
type WritingAttempt struct {
	ID           ids.ID
	StudentID    ids.ID
	TargetWord   string
	DetectedText string
	IsCorrect    bool
	Confidence   float64
	Explanation  string
	Method       string
	ImagePath    string
	ImageURL     string
	ImageData    string // inline data URL when no stored image exists
	CreatedAt    time.Time
}

// Notification is a message shown to a student.
type Notification struct {
	ID        ids.ID
	StudentID ids.ID
	Title     string
	Message   string
	Type      NotificationType
	IsRead    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CurriculumRepo reads and writes lessons, tests, questions and games.
type CurriculumRepo interface {
	CreateLesson(ctx context.Context, l *Lesson) error
	GetLesson(ctx context.Context, id ids.ID) (*Lesson, error)

	// ActiveLessons returns active lessons of a classroom ordered by OrderIndex.
	ActiveLessons(ctx context.Context, classroomID ids.ID) ([]Lesson, error)

	// AllLessons returns every lesson regardless of classroom or state.
	AllLessons(ctx context.Context) ([]Lesson, error)
	UpdateLessonContent(ctx context.Context, id ids.ID, content string) error

	CreateTest(ctx context.Context, t *Test) error

	// GetTest returns the test with its complete question set ordered by
	// OrderIndex.
	GetTest(ctx context.Context, id ids.ID) (*Test, error)

	// ActiveTests returns active tests attached to any of the given lessons.
	// Questions are not loaded.
	ActiveTests(ctx context.Context, lessonIDs []ids.ID) ([]Test, error)

	CreateQuestion(ctx context.Context, q *Question) error
	AllQuestions(ctx context.Context) ([]Question, error)
	UpdateQuestion(ctx context.Context, q *Question) error

	CreateGame(ctx context.Context, g *Game) error
	GetGame(ctx context.Context, id ids.ID) (*Game, error)
	ActiveGames(ctx context.Context, lessonIDs []ids.ID) ([]Game, error)
	AllGames(ctx context.Context) ([]Game, error)
	UpdateGameSettings(ctx context.Context, id ids.ID, settings map[string]any) error
}

// ProgressRepo manages per-student lesson progress.
type ProgressRepo interface {
	// GetProgress returns nil, nil when the student has no progress row
	// for the lesson.
	GetProgress(ctx context.Context, studentID, lessonID ids.ID) (*LessonProgress, error)

	// ListProgress returns all progress rows of a student.
	ListProgress(ctx context.Context, studentID ids.ID) ([]LessonProgress, error)

	// UpsertProgress inserts or replaces the row keyed by (student, lesson).
	UpsertProgress(ctx context.Context, p *LessonProgress) error
}

// AttemptRepo records test, game and writing attempts.
type AttemptRepo interface {
	CreateTestAttempt(ctx context.Context, a *TestAttempt) error

	// MaxTestAttemptNumber returns 0 when the student has no attempts.
	MaxTestAttemptNumber(ctx context.Context, studentID, testID ids.ID) (int, error)

	// CountTestAttempts returns attempts per test for the given tests.
	// Tests without attempts are absent from the result.
	CountTestAttempts(ctx context.Context, studentID ids.ID, testIDs []ids.ID) (map[ids.ID]int, error)

	ListTestAttempts(ctx context.Context, studentID, testID ids.ID) ([]TestAttempt, error)

	CreateGameAttempt(ctx context.Context, a *GameAttempt) error
	MaxGameAttemptNumber(ctx context.Context, studentID, gameID ids.ID) (int, error)

	// PassedGames returns the subset of gameIDs with at least one passing
	// attempt by the student.
	PassedGames(ctx context.Context, studentID ids.ID, gameIDs []ids.ID) (map[ids.ID]bool, error)

	CreateWritingAttempt(ctx context.Context, a *WritingAttempt) error

	// ListWritingAttempts returns a student's attempts newest first.
	ListWritingAttempts(ctx context.Context, studentID ids.ID, opts QueryOpts) ([]WritingAttempt, error)
	CountWritingAttempts(ctx context.Context, studentID ids.ID) (int, error)
}

// NotificationRepo stores student notifications.
type NotificationRepo interface {
	CreateNotification(ctx context.Context, n *Notification) error

	// ListNotifications returns newest first.
	ListNotifications(ctx context.Context, studentID ids.ID, unreadOnly bool, limit int) ([]Notification, error)

	// MarkRead returns ErrNotFound when the notification does not exist or
	// belongs to another student. Marking an already-read notification
	// succeeds.
	MarkRead(ctx context.Context, studentID, notificationID ids.ID) error
}

// VisionRequestEventData captures the data for a single vision model request.
type VisionRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// VisionRequestEvent is a stored VisionRequestEventData.
type VisionRequestEvent struct {
	ID        int
	Timestamp time.Time
	VisionRequestEventData
}

// UsageStat aggregates events by purpose or model.
type UsageStat struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to vision request events.
type EventRepo interface {
	AppendVisionRequest(ctx context.Context, data VisionRequestEventData) error
	QueryVisionEvents(ctx context.Context, opts QueryOpts) ([]VisionRequestEvent, error)

	// GetVisionEvent returns nil, nil when the event does not exist.
	GetVisionEvent(ctx context.Context, id int) (*VisionRequestEvent, error)
	UsageByPurpose(ctx context.Context) ([]UsageStat, error)
	UsageByModel(ctx context.Context) ([]UsageStat, error)
}
