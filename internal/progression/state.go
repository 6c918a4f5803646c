package progression

// Status is the student-facing state of a lesson.
type Status string

const (
	StatusLocked        Status = "LOCKED"
	StatusUnlocked      Status = "UNLOCKED"
	StatusPostTestReady Status = "POST_TEST_READY"
	StatusGamesReady    Status = "GAMES_READY"
	StatusCompleted     Status = "COMPLETED"
)

// StateInput is everything ResolveState needs to know about one lesson.
type StateInput struct {
	IsChapterHead bool

	// PrevCompleted is the completion of the previous lesson in the same
	// chapter. Ignored for chapter heads.
	PrevCompleted bool

	HasPreTest      bool
	PreTestAttempts int

	Completed bool

	HasPostTest      bool
	PostTestAttempts int

	Games       int
	PassedGames int
}

// ResolveState maps a lesson's inputs to its status and whether the
// student may open it. Only UNLOCKED lessons are accessible.
func ResolveState(in StateInput) (Status, bool) {
	if !in.IsChapterHead && !in.PrevCompleted {
		return StatusLocked, false
	}

	// Chapter heads never wait for a pre-test.
	if !in.IsChapterHead && in.HasPreTest && in.PreTestAttempts == 0 {
		return StatusLocked, false
	}

	if !in.Completed {
		return StatusUnlocked, true
	}

	postTestDone := !in.HasPostTest || in.PostTestAttempts > 0
	if !postTestDone {
		return StatusPostTestReady, false
	}

	if in.Games > 0 && in.PassedGames < in.Games {
		return StatusGamesReady, false
	}

	return StatusCompleted, false
}
