package stage

import (
	"errors"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	allowed := map[string][]string{
		Briefings:    {Ready, Blocked},
		Ready:        {Testing, Implementing, Probing, Blocked, Briefings},
		Testing:      {Review, Blocked},
		Implementing: {Review, Blocked},
		Probing:      {Ready, Done, Blocked},
		Review:       {Done, Testing, Implementing, Probing, Blocked},
		Blocked:      {Ready},
		Done:         {},
	}
	for _, from := range All {
		want := map[string]bool{}
		for _, to := range allowed[from] {
			want[to] = true
		}
		for _, to := range All {
			got := IsValidTransition(from, to)
			if got != want[to] {
				t.Errorf("IsValidTransition(%s, %s) = %v, want %v", from, to, got, want[to])
			}
		}
	}
}

func TestDoneIsTerminal(t *testing.T) {
	if !IsTerminal(Done) {
		t.Fatal("done must be terminal")
	}
	for _, to := range All {
		if IsValidTransition(Done, to) {
			t.Errorf("done -> %s must be illegal", to)
		}
	}
	if got := ValidNextStages(Done); len(got) != 0 {
		t.Errorf("ValidNextStages(done) = %v, want empty", got)
	}
}

func TestSelfTransitionsIllegal(t *testing.T) {
	for _, s := range All {
		if IsValidTransition(s, s) {
			t.Errorf("%s -> %s must be illegal", s, s)
		}
	}
}

func TestBlockedReachableFromEveryNonDoneStage(t *testing.T) {
	for _, s := range All {
		if s == Done || s == Blocked {
			continue
		}
		if !IsValidTransition(s, Blocked) {
			t.Errorf("%s -> blocked must be legal", s)
		}
	}
}

func TestAcceptsClaims(t *testing.T) {
	want := map[string]bool{
		Briefings:    false,
		Ready:        true,
		Testing:      true,
		Implementing: true,
		Review:       true,
		Probing:      true,
		Done:         false,
		Blocked:      false,
	}
	for s, expect := range want {
		if got := AcceptsClaims(s); got != expect {
			t.Errorf("AcceptsClaims(%s) = %v, want %v", s, got, expect)
		}
	}
}

func TestCheck(t *testing.T) {
	if err := Check(Briefings, Ready); err != nil {
		t.Fatalf("briefings -> ready: %v", err)
	}
	err := Check(Briefings, Done)
	var te TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("want TransitionError, got %v", err)
	}
	if te.From != Briefings || te.To != Done {
		t.Errorf("TransitionError = %+v", te)
	}
}

func TestUnknownStage(t *testing.T) {
	if IsValid("shipped") {
		t.Error("shipped must not be a valid stage")
	}
	if IsValidTransition("shipped", Ready) {
		t.Error("transition from unknown stage must be illegal")
	}
	if ValidNextStages("shipped") != nil {
		t.Error("ValidNextStages(unknown) must be nil")
	}
}
