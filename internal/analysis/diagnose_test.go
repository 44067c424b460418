package analysis

import "testing"

func TestDiagnose(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	tracks := []Track{
		{ID: 3, Tempo: f(142), Energy: f(0.7)},
		{ID: 2, Tempo: f(142), Energy: f(0.7), GenreTag: "trap"},
		{ID: 1, Tempo: f(142), Energy: f(0.7), GenreTag: "grime"},
		{ID: 4, Tempo: f(90), Energy: f(0.1)},
	}

	d := m.Diagnose(tracks, grimeNode)
	if d.TrackCount != 4 || len(d.Matches) != 3 {
		t.Fatalf("Diagnose() = %d tracks, %d matches; want 4, 3", d.TrackCount, len(d.Matches))
	}
	for i, wantID := range []int64{1, 2, 3} {
		if d.Matches[i].Track.ID != wantID {
			t.Errorf("match %d is track %d, want %d", i, d.Matches[i].Track.ID, wantID)
		}
	}
	if d.TagMatches != 1 || d.InRangeMatches != 3 || d.StrongMatches != 3 {
		t.Errorf("counts = tag %d, in range %d, strong %d", d.TagMatches, d.InRangeMatches, d.StrongMatches)
	}
	if d.AvgTempo != 142 || len(d.Warnings) != 0 || d.Verdict != VerdictLegitimate {
		t.Errorf("avg %v, warnings %v, verdict %q", d.AvgTempo, d.Warnings, d.Verdict)
	}
}

func TestDiagnoseVerdicts(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	scenario := []Track{
		{ID: 1, Tempo: f(142), Energy: f(0.7), GenreTag: "grime"},
		{ID: 2, Tempo: f(142), Energy: f(0.7), GenreTag: "trap"},
		{ID: 3, Tempo: f(142), Energy: f(0.7)},
	}
	tagOnly := []Track{
		{ID: 1, Tempo: f(100), Energy: f(0.2), GenreTag: "grime"},
		{ID: 2, Tempo: f(100), Energy: f(0.2), GenreTag: "Grime"},
	}

	if d := m.Diagnose(nil, grimeNode); d.Verdict != VerdictAbsent || len(d.Matches) != 0 {
		t.Errorf("empty catalog: %+v", d)
	}
	if d := m.Diagnose(scenario, trapNode); d.Verdict != VerdictQuestionable {
		t.Errorf("trap verdict = %q, want questionable", d.Verdict)
	}

	d := m.Diagnose(tagOnly, grimeNode)
	if d.Verdict != VerdictTagDriven {
		t.Errorf("tag-only verdict = %q, want tag driven", d.Verdict)
	}
	if len(d.Warnings) != 3 {
		t.Errorf("warnings = %v, want 3", d.Warnings)
	}
}

func TestStrength(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{84, StrengthStrong},
		{60.01, StrengthStrong},
		{60, StrengthModerate},
		{45.5, StrengthModerate},
		{44, StrengthWeak},
	}
	for _, tt := range tests {
		if got := Strength(tt.score); got != tt.want {
			t.Errorf("Strength(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
