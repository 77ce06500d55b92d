package ledger

import (
	"testing"
	"time"

	"example.com/expense-tracker/backend/internal/models"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TestAdvance проверяет сдвиг даты для всех периодичностей.
func TestAdvance(t *testing.T) {
	tests := []struct {
		name      string
		from      time.Time
		frequency models.Frequency
		want      time.Time
	}{
		{"daily", date(2024, 3, 10), models.FrequencyDaily, date(2024, 3, 11)},
		{"daily year end", date(2023, 12, 31), models.FrequencyDaily, date(2024, 1, 1)},
		{"weekly", date(2024, 2, 26), models.FrequencyWeekly, date(2024, 3, 4)},
		{"monthly plain", date(2024, 3, 15), models.FrequencyMonthly, date(2024, 4, 15)},
		{"monthly leap clamp", date(2024, 1, 31), models.FrequencyMonthly, date(2024, 2, 29)},
		{"monthly non-leap clamp", date(2023, 1, 31), models.FrequencyMonthly, date(2023, 2, 28)},
		{"monthly 31 to 30", date(2024, 3, 31), models.FrequencyMonthly, date(2024, 4, 30)},
		{"monthly december", date(2024, 12, 31), models.FrequencyMonthly, date(2025, 1, 31)},
		{"yearly", date(2024, 6, 1), models.FrequencyYearly, date(2025, 6, 1)},
		{"yearly leap day", date(2024, 2, 29), models.FrequencyYearly, date(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Advance(tt.from, tt.frequency)
			if !got.Equal(tt.want) {
				t.Fatalf("Advance(%s, %s) = %s, want %s", tt.from.Format("2006-01-02"), tt.frequency, got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

// TestAdvanceStrictlyIncreases проверяет, что следующая дата всегда позже исходной.
func TestAdvanceStrictlyIncreases(t *testing.T) {
	frequencies := []models.Frequency{models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly, models.FrequencyYearly}
	start := date(2023, 1, 1)

	for offset := 0; offset < 800; offset++ {
		from := start.AddDate(0, 0, offset)
		for _, frequency := range frequencies {
			if next := Advance(from, frequency); !next.After(from) {
				t.Fatalf("Advance(%s, %s) = %s is not after input", from.Format("2006-01-02"), frequency, next.Format("2006-01-02"))
			}
		}
	}
}

// TestAdvanceIgnoresTimeOfDay проверяет нормализацию времени суток.
func TestAdvanceIgnoresTimeOfDay(t *testing.T) {
	from := time.Date(2024, 5, 10, 23, 45, 0, 0, time.UTC)
	got := Advance(from, models.FrequencyDaily)
	if !got.Equal(date(2024, 5, 11)) {
		t.Fatalf("expected 2024-05-11 midnight, got %s", got)
	}
}
