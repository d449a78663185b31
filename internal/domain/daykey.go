package domain

import (
	"regexp"
	"strconv"
)

// CompletionFooter is the fixed instruction carried in the footer of every
// trackable daily-reading message. History scans filter on it.
const CompletionFooter = "React with ✅ when completed"

// CheckmarkEmoji is the reaction that marks a reading complete.
const CheckmarkEmoji = "✅"

// MaxPlanDays bounds the day key. A leap-year plan has 366 days.
const MaxPlanDays = 366

var dayPattern = regexp.MustCompile(`(?i)\*\*Day (\d+)\*\*`)

// ExtractDayKey parses the Day N marker out of a message's embed description.
// Extraction is mandatory and blocking: an event whose message yields no day
// key is dropped, never recorded under a fallback day.
func ExtractDayKey(description string) (int, bool) {
	m := dayPattern.FindStringSubmatch(description)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > MaxPlanDays {
		return 0, false
	}
	return n, true
}
