package orchestrator

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ShayCichocki/anvil/pkg/models"
)

// ambiguityRule ties trigger keywords to the clarifying question they
// raise. The first matching rule wins.
type ambiguityRule struct {
	keywords      []string
	prompt        string
	choices       []string
	defaultAnswer string
}

// KeywordDetector flags tasks whose wording touches a decision the
// task text does not settle, and raises a canned clarifying question
// with a safe default.
type KeywordDetector struct {
	rules []ambiguityRule
}

// NewKeywordDetector creates a detector with the default rule set.
func NewKeywordDetector() *KeywordDetector {
	return &KeywordDetector{rules: defaultAmbiguityRules}
}

// defaultAmbiguityRules covers the decisions most often left implicit
// in task descriptions.
var defaultAmbiguityRules = []ambiguityRule{
	{
		keywords:      []string{"auth", "authentication", "login", "sign in", "signin", "session"},
		prompt:        "Which authentication scheme should be used?",
		choices:       []string{"JWT", "session cookies", "OAuth2"},
		defaultAnswer: "JWT",
	},
	{
		keywords:      []string{"database", "storage", "persist", "persistence", "store data"},
		prompt:        "Which storage backend should be targeted?",
		choices:       []string{"SQLite", "PostgreSQL", "in-memory"},
		defaultAnswer: "SQLite",
	},
	{
		keywords:      []string{"api", "endpoint", "service", "server"},
		prompt:        "Which transport style should the service expose?",
		choices:       []string{"REST", "gRPC", "websocket"},
		defaultAnswer: "REST",
	},
}

// Detect scans the task for ambiguity triggers. It returns a pending
// question for the first matching rule, or nil when the task reads as
// unambiguous. The caller fills in the job ID.
func (d *KeywordDetector) Detect(task string) *models.Question {
	lowered := strings.ToLower(task)
	for _, rule := range d.rules {
		for _, kw := range rule.keywords {
			if !containsWord(lowered, kw) {
				continue
			}
			return &models.Question{
				ID:      uuid.NewString(),
				Prompt:  rule.prompt,
				Choices: append([]string(nil), rule.choices...),
				Default: rule.defaultAnswer,
				Status:  models.QuestionPending,
			}
		}
	}
	return nil
}

// containsWord reports whether word appears in s on its own, not as a
// fragment of a longer word ("api" must not match "rapid").
func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(s[start-1])
		afterOK := end == len(s) || !isWordChar(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
