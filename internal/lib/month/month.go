// Package month реализует календарную арифметику по месяцам для сроков подписок.
package month

import (
	"time"
)

// AddMonths прибавляет к t указанное число календарных месяцев.
// Если в целевом месяце нет такого дня, берется его последний день:
// 31 января + 1 месяц = 29 февраля (в високосный год).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := DaysIn(target.Year(), target.Month()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysIn возвращает количество дней в месяце.
func DaysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// CountMonths считает количество месяцев подписки, оставшихся после момента from
// для подписки длиной subMonths, начавшейся в subStart.
func CountMonths(subStart time.Time, subMonths int, from time.Time) int {
	subEnd := AddMonths(subStart, subMonths)

	if !from.Before(subEnd) {
		return 0
	}
	if !from.After(subStart) {
		return subMonths
	}

	monthsDiff := (from.Year()-subStart.Year())*12 +
		int(from.Month()) - int(subStart.Month())

	// неполный месяц считается прошедшим
	if from.Day() > subStart.Day() {
		monthsDiff++
	}

	remaining := subMonths - monthsDiff
	if remaining < 0 {
		return 0
	}
	return remaining
}
