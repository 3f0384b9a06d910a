package services

import (
	"strings"
	"testing"
)

func TestBuildPromptSingleReport(t *testing.T) {
	header := BuildMetadataHeader("Jane Doe", 1, []string{"15/03/2024"})
	spec := BuildPrompt(1, header, "Hemoglobin: 13.5 g/dL")

	if spec.MaxTokens != 800 {
		t.Errorf("MaxTokens = %d, want 800", spec.MaxTokens)
	}
	if spec.Temperature != 0.1 {
		t.Errorf("Temperature = %v, want 0.1", spec.Temperature)
	}
	if !strings.Contains(spec.UserPrompt, "PATIENT: Jane Doe") {
		t.Error("user prompt missing metadata header")
	}
	if !strings.Contains(spec.UserPrompt, "Hemoglobin: 13.5 g/dL") {
		t.Error("user prompt missing retrieved context")
	}
	if spec.SystemPrompt == "" {
		t.Error("system prompt is empty")
	}
}

func TestBuildPromptFewReports(t *testing.T) {
	for _, docCount := range []int{2, 3} {
		spec := BuildPrompt(docCount, "", "ctx")
		if spec.MaxTokens != 1000 {
			t.Errorf("docCount=%d: MaxTokens = %d, want 1000", docCount, spec.MaxTokens)
		}
		if spec.Temperature != 0.1 {
			t.Errorf("docCount=%d: Temperature = %v, want 0.1", docCount, spec.Temperature)
		}
	}
}

func TestBuildPromptManyReports(t *testing.T) {
	spec := BuildPrompt(8, "", "ctx")

	if spec.MaxTokens != 1200 {
		t.Errorf("MaxTokens = %d, want 1200", spec.MaxTokens)
	}
	if spec.Temperature != 0.15 {
		t.Errorf("Temperature = %v, want 0.15", spec.Temperature)
	}
	if !strings.Contains(spec.UserPrompt, "trend-focused") {
		t.Error("many-report prompt should ask for a trend-focused summary")
	}
}

func TestBuildPromptTiersDiffer(t *testing.T) {
	single := BuildPrompt(1, "", "ctx")
	few := BuildPrompt(3, "", "ctx")
	many := BuildPrompt(10, "", "ctx")

	if single.SystemPrompt == few.SystemPrompt {
		t.Error("single and few-report tiers share a system prompt")
	}
	if few.SystemPrompt == many.SystemPrompt {
		t.Error("few and many-report tiers share a system prompt")
	}
}

func TestBuildMetadataHeader(t *testing.T) {
	got := BuildMetadataHeader("Jane Doe", 3, []string{"15/03/2024", "16/04/2024"})
	want := "PATIENT: Jane Doe\nREPORTS: 3\nDATES: 15/03/2024, 16/04/2024\n\n---\n\n"
	if got != want {
		t.Errorf("header = %q, want %q", got, want)
	}
}

func TestBuildMetadataHeaderDefaults(t *testing.T) {
	got := BuildMetadataHeader("", 0, nil)
	if !strings.Contains(got, "PATIENT: Patient") {
		t.Errorf("empty name should fall back to generic label, got %q", got)
	}
	if !strings.Contains(got, "DATES: Not detected") {
		t.Errorf("empty dates should report not detected, got %q", got)
	}
}

func TestDefaultQuestion(t *testing.T) {
	if DefaultQuestion == "" {
		t.Fatal("DefaultQuestion is empty")
	}
	if !strings.Contains(strings.ToLower(DefaultQuestion), "trend") {
		t.Errorf("default question should mention trends, got %q", DefaultQuestion)
	}
}
