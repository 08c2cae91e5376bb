package generate

import (
	"os"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestNewAnthropicClient_WithAPIKey(t *testing.T) {
	client, err := NewAnthropicClient(AnthropicConfig{APIKey: "test-key-123"})
	if err != nil {
		t.Fatalf("NewAnthropicClient failed: %v", err)
	}
	if client == nil {
		t.Fatal("NewAnthropicClient returned nil")
	}
	if client.Tracker() == nil {
		t.Error("Tracker should not be nil")
	}
}

func TestNewAnthropicClient_WithEnvVar(t *testing.T) {
	original := os.Getenv("ANTHROPIC_API_KEY")
	defer os.Setenv("ANTHROPIC_API_KEY", original)

	os.Setenv("ANTHROPIC_API_KEY", "env-test-key")

	client, err := NewAnthropicClient(AnthropicConfig{})
	if err != nil {
		t.Fatalf("NewAnthropicClient failed: %v", err)
	}
	if client == nil {
		t.Fatal("NewAnthropicClient returned nil")
	}
}

func TestNewAnthropicClient_NoAPIKey(t *testing.T) {
	original := os.Getenv("ANTHROPIC_API_KEY")
	defer os.Setenv("ANTHROPIC_API_KEY", original)

	os.Unsetenv("ANTHROPIC_API_KEY")

	_, err := NewAnthropicClient(AnthropicConfig{})
	if err == nil {
		t.Fatal("NewAnthropicClient should fail without API key")
	}
}

func TestNewAnthropicClient_Bedrock(t *testing.T) {
	// Skip if AWS credentials not available
	if os.Getenv("AWS_REGION") == "" && os.Getenv("AWS_DEFAULT_REGION") == "" {
		t.Skip("AWS_REGION not set, skipping Bedrock test")
	}

	client, err := NewAnthropicClient(AnthropicConfig{
		UseBedrock: true,
		AWSRegion:  "us-west-2",
	})
	if err != nil {
		t.Fatalf("NewAnthropicClient with Bedrock failed: %v", err)
	}
	if client == nil {
		t.Fatal("NewAnthropicClient returned nil")
	}
}

func TestTranslateModelForBedrock(t *testing.T) {
	tests := []struct {
		model anthropic.Model
		want  anthropic.Model
	}{
		{anthropic.ModelClaudeSonnet4_20250514, "us.anthropic.claude-sonnet-4-20250514-v1:0"},
		{anthropic.ModelClaude3_5Haiku20241022, "us.anthropic.claude-3-5-haiku-20241022-v1:0"},
		{anthropic.ModelClaudeOpus4_5_20251101, "us.anthropic.claude-opus-4-5-20251101-v1:0"},
		// Already translated or custom models pass through
		{"us.anthropic.claude-sonnet-4-20250514-v1:0", "us.anthropic.claude-sonnet-4-20250514-v1:0"},
		{"custom-model", "custom-model"},
	}

	for _, tt := range tests {
		if got := translateModelForBedrock(tt.model); got != tt.want {
			t.Errorf("translateModelForBedrock(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}
