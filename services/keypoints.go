package services

import (
	"regexp"
	"strings"

	"medvault-rag/models"
)

var metricLine = regexp.MustCompile(`(?i)^([A-Za-z0-9\s\(\),\.\-/]+?)\s+(\d+\.?\d*)\s+([a-zA-Z0-9/\^µ%]+)`)

// Non-clinical labels that look like metric lines but are not.
var metricSkipWords = []string{
	"patient", "age", "gender", "lab", "registered", "reported", "test description",
}

// ExtractMetrics harvests "name value unit" test results from report text,
// line by line, deduplicated in order of first appearance.
func ExtractMetrics(text string) []models.Metric {
	var metrics []models.Metric
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 5 {
			continue
		}

		m := metricLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		name := strings.TrimSpace(m[1])
		if len(name) < 3 || !hasLetters(name) {
			continue
		}
		if containsAny(strings.ToLower(name), metricSkipWords) {
			continue
		}

		key := name + "|" + m[2] + "|" + m[3]
		if seen[key] {
			continue
		}
		seen[key] = true

		metrics = append(metrics, models.Metric{
			Name:  name,
			Value: m[2],
			Unit:  m[3],
		})
	}

	return metrics
}

// ExtractDates collects distinct date strings found anywhere in the text,
// capped at ten.
func ExtractDates(text string) []string {
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{4}`),
		regexp.MustCompile(`\d{4}[/-]\d{1,2}[/-]\d{1,2}`),
	}

	var dates []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		for _, match := range pattern.FindAllString(text, -1) {
			if !seen[match] {
				seen[match] = true
				dates = append(dates, match)
			}
			if len(dates) >= 10 {
				return dates
			}
		}
	}
	return dates
}

// BuildStructuredData assembles the typed extraction payload persisted with
// each report.
func BuildStructuredData(meta ExtractedMetadata, text string) *models.StructuredReport {
	return &models.StructuredReport{
		Patient: models.PatientBlock{
			Name:   meta.PatientName,
			Age:    meta.Age,
			Gender: meta.Gender,
		},
		Metrics: ExtractMetrics(text),
		Dates:   ExtractDates(text),
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
