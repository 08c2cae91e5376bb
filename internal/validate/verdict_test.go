package validate

import (
	"errors"
	"testing"

	"github.com/ShayCichocki/anvil/pkg/models"
)

func TestParseVerdict_ValidResponse(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantScore  float64
		wantIssues int
		wantBuild  int
	}{
		{
			name:      "bare object",
			response:  `{"score": 7.5, "issues": [], "build_errors": []}`,
			wantScore: 7.5,
		},
		{
			name: "fenced object",
			response: "```json\n" +
				`{"score": 4, "issues": [{"severity": "error", "location": "main.go", "message": "nil deref", "suggested_fix": "check err"}], "build_errors": []}` +
				"\n```",
			wantScore:  4,
			wantIssues: 1,
		},
		{
			name: "surrounding prose",
			response: "Here is my verdict:\n" +
				`{"score": 2, "issues": [], "build_errors": ["main.go:3: undefined: foo"]}` +
				"\nLet me know if you need more detail.",
			wantScore: 2,
			wantBuild: 1,
		},
		{
			name:      "boundary scores",
			response:  `{"score": 10, "issues": [], "build_errors": []}`,
			wantScore: 10,
		},
		{
			name:      "zero score",
			response:  `{"score": 0, "issues": [], "build_errors": []}`,
			wantScore: 0,
		},
		{
			name: "multiple issues",
			response: `{"score": 5.5, "issues": [
				{"severity": "error", "location": "auth.go", "message": "token never expires"},
				{"severity": "warning", "location": "auth.go", "message": "magic constant"},
				{"severity": "info", "location": "", "message": "consider table tests"}
			], "build_errors": []}`,
			wantScore:  5.5,
			wantIssues: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := ParseVerdict(tt.response)
			if err != nil {
				t.Fatalf("ParseVerdict() error = %v", err)
			}
			if eval.Score != tt.wantScore {
				t.Errorf("Score = %v, want %v", eval.Score, tt.wantScore)
			}
			if len(eval.Issues) != tt.wantIssues {
				t.Errorf("len(Issues) = %d, want %d", len(eval.Issues), tt.wantIssues)
			}
			if len(eval.BuildErrors) != tt.wantBuild {
				t.Errorf("len(BuildErrors) = %d, want %d", len(eval.BuildErrors), tt.wantBuild)
			}
		})
	}
}

func TestParseVerdict_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"empty", ""},
		{"no object", "I cannot evaluate this code."},
		{"unbalanced", `{"score": 5`},
		{"not json", "{score five}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVerdict(tt.response)
			if !errors.Is(err, ErrMalformedVerdict) {
				t.Errorf("ParseVerdict(%q) error = %v, want ErrMalformedVerdict", tt.response, err)
			}
		})
	}
}

func TestParseVerdict_ScoreOutOfRange(t *testing.T) {
	tests := []string{
		`{"score": -1, "issues": [], "build_errors": []}`,
		`{"score": 10.5, "issues": [], "build_errors": []}`,
		`{"score": 100, "issues": [], "build_errors": []}`,
	}

	for _, response := range tests {
		_, err := ParseVerdict(response)
		if !errors.Is(err, ErrScoreOutOfRange) {
			t.Errorf("ParseVerdict(%q) error = %v, want ErrScoreOutOfRange", response, err)
		}
	}
}

func TestParseVerdict_SeverityNormalization(t *testing.T) {
	response := `{"score": 6, "issues": [
		{"severity": "ERROR", "message": "boom"},
		{"severity": "Critical", "message": "unknown severity"},
		{"severity": "", "message": "blank severity"},
		{"severity": "info", "message": ""}
	]}`

	eval, err := ParseVerdict(response)
	if err != nil {
		t.Fatalf("ParseVerdict() error = %v", err)
	}

	// Blank-message issues are dropped.
	if len(eval.Issues) != 3 {
		t.Fatalf("len(Issues) = %d, want 3", len(eval.Issues))
	}
	if eval.Issues[0].Severity != models.SeverityError {
		t.Errorf("Issues[0].Severity = %q, want %q", eval.Issues[0].Severity, models.SeverityError)
	}
	if eval.Issues[1].Severity != models.SeverityWarning {
		t.Errorf("Issues[1].Severity = %q, want %q (unknown normalized)", eval.Issues[1].Severity, models.SeverityWarning)
	}
	if eval.Issues[2].Severity != models.SeverityWarning {
		t.Errorf("Issues[2].Severity = %q, want %q (blank normalized)", eval.Issues[2].Severity, models.SeverityWarning)
	}
}
