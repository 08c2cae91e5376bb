package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/anvil/pkg/models"
)

// Common errors for verdict parsing.
var (
	// ErrMalformedVerdict indicates the critique response could not be parsed.
	ErrMalformedVerdict = errors.New("malformed critique verdict")
	// ErrScoreOutOfRange indicates a score outside the valid 0-10 range.
	ErrScoreOutOfRange = errors.New("score out of range (must be 0-10)")
)

// verdict mirrors the JSON object the critique prompt requests.
type verdict struct {
	Score       float64        `json:"score"`
	Issues      []verdictIssue `json:"issues"`
	BuildErrors []string       `json:"build_errors"`
}

type verdictIssue struct {
	Severity     string `json:"severity"`
	Location     string `json:"location"`
	Message      string `json:"message"`
	SuggestedFix string `json:"suggested_fix"`
}

// ParseVerdict extracts an Evaluation from a critique response. The
// response may wrap the JSON object in markdown fences or prose; the
// outermost object is what gets parsed.
//
// Returns an error if:
//   - No JSON object is present or it does not decode
//   - The score is outside the valid 0-10 range
func ParseVerdict(response string) (models.Evaluation, error) {
	raw, ok := extractObject(response)
	if !ok {
		return models.Evaluation{}, ErrMalformedVerdict
	}

	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return models.Evaluation{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	if v.Score < 0 || v.Score > 10 {
		return models.Evaluation{}, ErrScoreOutOfRange
	}

	eval := models.Evaluation{
		Score:       v.Score,
		BuildErrors: v.BuildErrors,
	}
	for _, vi := range v.Issues {
		if strings.TrimSpace(vi.Message) == "" {
			continue
		}
		severity := models.IssueSeverity(strings.ToLower(strings.TrimSpace(vi.Severity)))
		if !severity.Valid() {
			severity = models.SeverityWarning
		}
		eval.Issues = append(eval.Issues, models.Issue{
			Severity:     severity,
			Location:     vi.Location,
			Message:      vi.Message,
			SuggestedFix: vi.SuggestedFix,
		})
	}

	return eval, nil
}

// extractObject returns the outermost JSON object in s, stripping any
// surrounding prose or markdown fencing.
func extractObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
