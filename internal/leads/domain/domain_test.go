package domain

import "testing"

func TestNormalizeRSAStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"open", StatusOpen},
		{"new", StatusOpen},
		{"", StatusOpen},
		{"garbage", StatusOpen},
		{"Assigned", StatusPending},
		{"ACCEPTED", StatusPending},
		{"dispatched", StatusPending},
		{"enroute", StatusPending},
		{"inprocess", StatusPending},
		{"processing", StatusPending},
		{"job_started", StatusPending},
		{" pending ", StatusPending},
		{"completed", StatusDone},
		{"closed", StatusDone},
		{"closed_won", StatusDone},
		{"done", StatusDone},
		{"cancelled", StatusLost},
		{"closed_lost", StatusLost},
		{"lost", StatusLost},
	}

	for _, tc := range tests {
		if got := NormalizeRSAStatus(tc.in); got != tc.want {
			t.Errorf("NormalizeRSAStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseRSAAction(t *testing.T) {
	tests := []struct {
		in   string
		want RSAAction
		ok   bool
	}{
		{"accept", RSAAccept, true},
		{" Accept ", RSAAccept, true},
		{"enroute", RSAEnroute, true},
		{"job_started", RSAJobStarted, true},
		{"start", RSAJobStarted, true},
		{"jobstarted", RSAJobStarted, true},
		{"complete", RSAComplete, true},
		{"completed", RSAComplete, true},
		{"done", RSAComplete, true},
		{"lose", RSALose, true},
		{"lost", RSALose, true},
		{"cancel", RSALose, true},
		{"", "", false},
		{"teleport", "", false},
	}

	for _, tc := range tests {
		got, ok := ParseRSAAction(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseRSAAction(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestRSAStageAllowed(t *testing.T) {
	tests := []struct {
		action RSAAction
		stage  string
		want   bool
	}{
		{RSAAccept, "new", true},
		{RSAAccept, "", true}, // empty stage counts as new
		{RSAAccept, "Assigned", true},
		{RSAAccept, "enroute", false},
		{RSAEnroute, "accepted", true},
		{RSAEnroute, "new", false},
		{RSAJobStarted, "enroute", true},
		{RSAJobStarted, "new", false},
		{RSAComplete, "job_started", true},
		{RSAComplete, "new", false},
		{RSALose, "enroute", true},
		{RSALose, "completed", false},
	}

	for _, tc := range tests {
		if got := RSAStageAllowed(tc.action, tc.stage); got != tc.want {
			t.Errorf("RSAStageAllowed(%q, %q) = %v, want %v", tc.action, tc.stage, got, tc.want)
		}
	}
}

func TestRSATransitionFor(t *testing.T) {
	tests := []struct {
		action     RSAAction
		wantStage  string
		wantStatus string
		wantEvent  string
	}{
		{RSAAccept, "accepted", StatusPending, "rsa_accepted"},
		{RSAEnroute, "enroute", StatusPending, "rsa_enroute"},
		{RSAJobStarted, "job_started", StatusPending, "rsa_job_started"},
		{RSAComplete, "completed", StatusDone, "rsa_completed"},
		{RSALose, "lost", StatusLost, "rsa_lost"},
	}

	for _, tc := range tests {
		got := RSATransitionFor(tc.action)
		if got.LeadStage != tc.wantStage || got.LeadStatus != tc.wantStatus || got.EventType != tc.wantEvent {
			t.Errorf("RSATransitionFor(%q) = %+v", tc.action, got)
		}
	}
}
