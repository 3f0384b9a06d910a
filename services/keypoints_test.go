package services

import "testing"

func TestExtractMetrics(t *testing.T) {
	text := `Complete Blood Count
Hemoglobin 13.5 g/dL
Total Leukocyte Count 7500 /cumm
Platelet Count 250 10^3/uL
Patient Name: Jane Doe
Age 42 years
HDL Cholesterol 45 mg/dL
Hemoglobin 13.5 g/dL`

	metrics := ExtractMetrics(text)

	want := map[string]string{
		"Hemoglobin":            "13.5",
		"Total Leukocyte Count": "7500",
		"Platelet Count":        "250",
		"HDL Cholesterol":       "45",
	}
	got := map[string]string{}
	for _, m := range metrics {
		got[m.Name] = m.Value
	}

	for name, value := range want {
		if got[name] != value {
			t.Errorf("metric %q: got value %q, want %q", name, got[name], value)
		}
	}
	if _, ok := got["Patient Name: Jane Doe"]; ok {
		t.Errorf("patient line misread as metric")
	}
	if _, ok := got["Age"]; ok {
		t.Errorf("age line misread as metric")
	}
	if len(metrics) != len(want) {
		t.Errorf("expected %d metrics after dedup and filtering, got %d (%v)", len(want), len(metrics), got)
	}
}

func TestExtractMetricsUnits(t *testing.T) {
	metrics := ExtractMetrics("Vitamin D (25-OH) 18.2 ng/mL\nTSH 2.1 uIU/mL")
	if len(metrics) != 2 {
		t.Fatalf("expected 2 metrics, got %d", len(metrics))
	}
	if metrics[0].Unit != "ng/mL" {
		t.Errorf("expected unit ng/mL, got %q", metrics[0].Unit)
	}
	if metrics[1].Unit != "uIU/mL" {
		t.Errorf("expected unit uIU/mL, got %q", metrics[1].Unit)
	}
}

func TestExtractDates(t *testing.T) {
	text := "Sampled 15/03/2024, reported 2024-03-16, follow up 15/03/2024"
	dates := ExtractDates(text)

	if len(dates) != 2 {
		t.Fatalf("expected 2 distinct dates, got %v", dates)
	}
	if dates[0] != "15/03/2024" || dates[1] != "2024-03-16" {
		t.Errorf("unexpected dates: %v", dates)
	}
}

func TestBuildStructuredData(t *testing.T) {
	meta := ExtractedMetadata{PatientName: "Jane Doe", Age: "42", Gender: "Female"}
	sd := BuildStructuredData(meta, "Hemoglobin 13.5 g/dL\nDate: 15/03/2024")

	if sd.Patient.Name != "Jane Doe" || sd.Patient.Age != "42" {
		t.Errorf("patient block wrong: %+v", sd.Patient)
	}
	if len(sd.Metrics) != 1 || sd.Metrics[0].Name != "Hemoglobin" {
		t.Errorf("metrics wrong: %+v", sd.Metrics)
	}
	if len(sd.Dates) != 1 {
		t.Errorf("dates wrong: %v", sd.Dates)
	}
}
