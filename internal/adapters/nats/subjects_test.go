package natsadapter

import "testing"

func TestFrameSubject_RoundTrip(t *testing.T) {
	subj := FrameSubject("0b5f-77", 12)
	if subj != "viz.frame.0b5f-77.12" {
		t.Fatalf("unexpected subject %q", subj)
	}
	run, day, err := ParseFrameSubject(subj)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run != "0b5f-77" || day != 12 {
		t.Errorf("expected 0b5f-77/12, got %s/%d", run, day)
	}
}

func TestParseFrameSubject_Invalid(t *testing.T) {
	for _, s := range []string{"viz.run.x.ingested", "viz.frame.x", "viz.frame.x.day", "transit.vehicle.1"} {
		if _, _, err := ParseFrameSubject(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestSubjects(t *testing.T) {
	if got := RunIngestedSubject("abc"); got != "viz.run.abc.ingested" {
		t.Errorf("unexpected %q", got)
	}
	if got := RunFramesSubject("abc"); got != "viz.frame.abc.*" {
		t.Errorf("unexpected %q", got)
	}
}

func TestValidToken(t *testing.T) {
	tests := map[string]bool{
		"9f1c7a4e-0000-4000-8000-000000000000": true,
		"":                                     false,
		"a.b":                                  false,
		"a*":                                   false,
		"a>":                                   false,
		"a b":                                  false,
	}
	for in, want := range tests {
		if got := validToken(in); got != want {
			t.Errorf("validToken(%q) = %v, want %v", in, got, want)
		}
	}
}
