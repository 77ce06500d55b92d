package ledger

import (
	"time"

	"example.com/expense-tracker/backend/internal/models"
)

// Day приводит момент времени к полуночи его календарной даты (UTC).
// Часовой пояс исходного значения учитывается при выборе даты.
func Day(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Advance возвращает следующую дату платежа для заданной периодичности.
func Advance(date time.Time, frequency models.Frequency) time.Time {
	current := Day(date)

	switch frequency {
	case models.FrequencyDaily:
		return current.AddDate(0, 0, 1)
	case models.FrequencyWeekly:
		return current.AddDate(0, 0, 7)
	case models.FrequencyYearly:
		return addMonthsClamped(current, 12)
	default:
		return addMonthsClamped(current, 1)
	}
}

// addMonthsClamped сдвигает дату на n месяцев, прижимая день к концу целевого месяца.
// time.AddDate нормализует 31 января + 1 месяц в 2 марта, здесь получаем 28/29 февраля.
func addMonthsClamped(date time.Time, months int) time.Time {
	first := time.Date(date.Year(), date.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()

	day := date.Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}
