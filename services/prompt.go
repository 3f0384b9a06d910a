package services

import (
	"fmt"
	"strings"
)

// DefaultQuestion is the fixed analytical query the vault answers when the
// caller does not supply one.
const DefaultQuestion = "Summarize all medical reports and show trends in test values over time."

// PromptSpec is a fully assembled completion request: instructions, user
// prompt, and an output budget sized to the document count.
type PromptSpec struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int32
	Temperature  float32
}

const singleReportSystem = `You are a medical report analyzer. Create clear, concise summaries of medical reports.

RULES:
- Be factual and precise
- List key findings
- Highlight abnormalities
- Keep it brief`

const multiReportSystem = `You are a medical report analyzer. Create clear, concise summaries of medical reports.

RULES:
- Be factual and precise
- Show trends ONLY if multiple reports of same type exist but if present focus more on trends.
- List key findings for different report types
- Highlight abnormalities
- Keep it brief and readable
- The Summary should consist of all the numeric values present in all the reports along with their units.
- Show trend of each and every value if multiple reports of same type exist`

const manyReportSystem = `You are a medical report analyzer summarizing a large set of reports.

RULES:
- Be factual and precise
- Focus on trends across repeated tests and on abnormal values; do not enumerate every normal value
- Use trend arrows (value1 -> value2 -> value3) with dates for repeated tests
- Highlight abnormalities and concerning changes
- Keep it readable`

// BuildPrompt selects a template tier by document count: a single document
// gets exhaustive per-value detail, a few documents get detail plus trend
// arrows, many documents get a trend-and-exception summary to stay inside
// the output budget.
func BuildPrompt(docCount int, metadataHeader, context string) PromptSpec {
	fullContext := metadataHeader + context

	switch {
	case docCount <= 1:
		return PromptSpec{
			SystemPrompt: singleReportSystem,
			UserPrompt: fmt.Sprintf(`Summarize this medical report.

%s

Create a summary with:

**Patient Information**
- Name, Age, Gender (if available)
- Report date

**Report Type**
- Blood test / Imaging / Cardiac / Other

**Key Findings**
- Main test results (with reference ranges for lab values)
- Important observations

**Abnormalities** (if any)
- Values outside normal range
- Concerning findings

Keep it concise and accurate.`, fullContext),
			MaxTokens:   800,
			Temperature: 0.1,
		}

	case docCount <= 3:
		return PromptSpec{
			SystemPrompt: multiReportSystem,
			UserPrompt: fmt.Sprintf(`Analyze these medical reports and create a summary.

%s

Create a summary following this format:

**Patient Information**
- Name, Age, Gender (if available)
- Report dates

**Key Findings**
For each test/report type found:
- Test name: Results (with reference ranges if lab values)
- Trends (if multiple reports of same type): Date1 -> Date2 (status)

**Abnormalities** (if any)
- List any values outside normal range
- Mention any concerning findings

**Recommendations** (if mentioned in reports, mention the reference letting the user know that the Recommendations are from the report)
- Follow-up actions
- Lifestyle changes

Keep it concise and medically accurate.`, fullContext),
			MaxTokens:   1000,
			Temperature: 0.1,
		}

	default:
		return PromptSpec{
			SystemPrompt: manyReportSystem,
			UserPrompt: fmt.Sprintf(`Analyze these medical reports and create a trend-focused summary.

%s

Create a summary following this format:

**Patient Information**
- Name, Age, Gender (if available)
- Report date range

**Trends**
- For each repeated test: Value1 -> Value2 -> Value3 with dates and status

**Abnormalities and Exceptions**
- Values outside normal range, with the report date
- Concerning changes between reports

Keep it concise and medically accurate.`, fullContext),
			MaxTokens:   1200,
			Temperature: 0.15,
		}
	}
}

// BuildMetadataHeader prefixes the context with patient identity, report
// count, and the dates seen across the corpus.
func BuildMetadataHeader(patientName string, reportCount int, dates []string) string {
	if patientName == "" {
		patientName = "Patient"
	}
	dateList := "Not detected"
	if len(dates) > 0 {
		dateList = strings.Join(dates, ", ")
	}

	return fmt.Sprintf("PATIENT: %s\nREPORTS: %d\nDATES: %s\n\n---\n\n", patientName, reportCount, dateList)
}
