package progression

import "testing"

func TestResolveState(t *testing.T) {
	tests := []struct {
		name       string
		in         StateInput
		wantStatus Status
		wantAccess bool
	}{
		{"chapter head fresh", StateInput{IsChapterHead: true}, StatusUnlocked, true},
		{"chapter head ignores pre-test", StateInput{IsChapterHead: true, HasPreTest: true}, StatusUnlocked, true},
		{"previous not completed", StateInput{}, StatusLocked, false},
		{"previous not completed even if this one is", StateInput{Completed: true}, StatusLocked, false},
		{"pre-test pending", StateInput{PrevCompleted: true, HasPreTest: true}, StatusLocked, false},
		{"pre-test attempted", StateInput{PrevCompleted: true, HasPreTest: true, PreTestAttempts: 1}, StatusUnlocked, true},
		{"no pre-test", StateInput{PrevCompleted: true}, StatusUnlocked, true},
		{
			"post-test ready",
			StateInput{IsChapterHead: true, Completed: true, HasPostTest: true},
			StatusPostTestReady, false,
		},
		{
			"games ready after post-test",
			StateInput{IsChapterHead: true, Completed: true, HasPostTest: true, PostTestAttempts: 2, Games: 2, PassedGames: 1},
			StatusGamesReady, false,
		},
		{
			"games ready without post-test",
			StateInput{IsChapterHead: true, Completed: true, Games: 1},
			StatusGamesReady, false,
		},
		{
			"all games passed",
			StateInput{IsChapterHead: true, Completed: true, Games: 2, PassedGames: 2},
			StatusCompleted, false,
		},
		{
			"no games no post-test",
			StateInput{PrevCompleted: true, Completed: true},
			StatusCompleted, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, access := ResolveState(tt.in)
			if status != tt.wantStatus || access != tt.wantAccess {
				t.Fatalf("ResolveState(%+v) = (%s, %v), want (%s, %v)",
					tt.in, status, access, tt.wantStatus, tt.wantAccess)
			}
		})
	}
}

func TestResolveState_OnlyUnlockedIsAccessible(t *testing.T) {
	for _, head := range []bool{true, false} {
		for _, prev := range []bool{true, false} {
			for _, pre := range []int{-1, 0, 1} {
				for _, done := range []bool{true, false} {
					for _, post := range []int{-1, 0, 1} {
						for _, passed := range []int{0, 1, 2} {
							in := StateInput{
								IsChapterHead: head, PrevCompleted: prev,
								HasPreTest: pre >= 0, PreTestAttempts: max(pre, 0),
								Completed:   done,
								HasPostTest: post >= 0, PostTestAttempts: max(post, 0),
								Games: 2, PassedGames: passed,
							}
							status, access := ResolveState(in)
							if access != (status == StatusUnlocked) {
								t.Fatalf("%+v: status %s with access %v", in, status, access)
							}
						}
					}
				}
			}
		}
	}
}
