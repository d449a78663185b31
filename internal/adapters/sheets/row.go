package sheets

import (
	"strconv"
	"strings"
	"time"

	"bibleman-bot/internal/domain"
)

// Two physical layouts exist in the Progress tab. The current layout keys on
// the day number in column A; the legacy layout keys on the calendar date and
// carries the day number in the last column. All new writes use the current
// layout; reads must normalize both.
//
//	current: Day | User | Name | Guild | Date | Reaction Time | Zone Time | Channel
//	legacy:  Date | User | Name | Reaction Time | Zone Time | Guild | Channel | Day
var headerRow = []interface{}{"Day", "User", "Name", "Guild", "Date", "Reaction Time", "Zone Time", "Channel"}

func cellString(raw []interface{}, idx int) string {
	if idx >= len(raw) {
		return ""
	}
	switch v := raw[idx].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func cellDay(raw []interface{}, idx int) (int, bool) {
	s := cellString(raw, idx)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > domain.MaxPlanDays {
		return 0, false
	}
	return n, true
}

func looksLikeDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// parseRow normalizes one physical row into a LedgerRow. A row whose first
// column is neither an in-range day number nor a date is rejected (header
// rows, stray notes).
func parseRow(raw []interface{}) (domain.LedgerRow, bool) {
	if day, ok := cellDay(raw, 0); ok {
		return domain.LedgerRow{
			DayNumber:            day,
			UserID:               cellString(raw, 1),
			DisplayName:          cellString(raw, 2),
			Community:            cellString(raw, 3),
			ObservationDate:      cellString(raw, 4),
			ObservationTime:      cellString(raw, 5),
			ObservationTimeLabel: cellString(raw, 6),
			ChannelName:          cellString(raw, 7),
		}, cellString(raw, 1) != ""
	}
	if looksLikeDate(cellString(raw, 0)) {
		day, ok := cellDay(raw, 7)
		if !ok {
			return domain.LedgerRow{}, false
		}
		return domain.LedgerRow{
			DayNumber:            day,
			UserID:               cellString(raw, 1),
			DisplayName:          cellString(raw, 2),
			ObservationTime:      cellString(raw, 3),
			ObservationTimeLabel: cellString(raw, 4),
			Community:            cellString(raw, 5),
			ChannelName:          cellString(raw, 6),
			ObservationDate:      cellString(raw, 0),
		}, cellString(raw, 1) != ""
	}
	return domain.LedgerRow{}, false
}

// rowValues renders a LedgerRow in the current physical layout.
func rowValues(row domain.LedgerRow) []interface{} {
	return []interface{}{
		row.DayNumber,
		row.UserID,
		row.DisplayName,
		row.Community,
		row.ObservationDate,
		row.ObservationTime,
		row.ObservationTimeLabel,
		row.ChannelName,
	}
}
