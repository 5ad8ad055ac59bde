package mood

import "testing"

func TestAnalyzeReplySignalWins(t *testing.T) {
	decision := Analyze("hey what's up", "Honestly this is textbook friendzone, he called you bro twice.")
	if decision.Mood != Friendzone {
		t.Fatalf("expected friendzone, got %s", decision.Mood)
	}
	if decision.Intensity < 1 || decision.Intensity > 5 {
		t.Fatalf("intensity out of range: %f", decision.Intensity)
	}
}

func TestAnalyzeFallsBackToChat(t *testing.T) {
	decision := Analyze("she left me on read... what if she hates me? should i text again??", "Let's break it down.")
	if decision.Mood != Overthinking {
		t.Fatalf("expected overthinking, got %s", decision.Mood)
	}
}

func TestAnalyzeNeutral(t *testing.T) {
	decision := Analyze("ok", "Sure.")
	if decision.Mood != Neutral || decision.Score != 0 {
		t.Fatalf("expected neutral, got %+v", decision)
	}
}

func TestAnalyzeManipulationIsBoosted(t *testing.T) {
	decision := Analyze("", "This is a red flag: he keeps saying you're overreacting, that's gaslighting.")
	if decision.Mood != Manipulative {
		t.Fatalf("expected manipulative, got %s", decision.Mood)
	}
	if decision.Intensity < 3 {
		t.Fatalf("expected boosted intensity, got %f", decision.Intensity)
	}
}

func TestParseLabel(t *testing.T) {
	if l, ok := ParseLabel(" Flirty "); !ok || l != Flirty {
		t.Fatalf("expected flirty, got %q %v", l, ok)
	}
	if _, ok := ParseLabel("ecstatic"); ok {
		t.Fatal("expected unknown label to be rejected")
	}
}
