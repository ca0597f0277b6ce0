// Package timeparse разбирает дату и время доставки из админских форм:
// время в 12-часовом (с AM/PM) или 24-часовом виде, дата строго YYYY-MM-DD.
// Все функции чистые, итоговые метки времени всегда в UTC.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ParcelDesk/ParcelDesk/internal/apperr"
)

type Clock struct {
	Hour   int
	Minute int
}

var (
	clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?:\s*([AaPp][Mm]))?$`)
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ParseClock принимает "14:05", "9:30", "1:30 PM", "12:00am" и т.п.
// Возвращает ok=false для любой строки, не похожей на время суток
// или с часами/минутами вне диапазона.
func ParseClock(s string) (Clock, bool) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Clock{}, false
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])

	if m[3] != "" {
		// 12-часовой циферблат: 12 AM — полночь, 12 PM — полдень.
		if hour < 1 || hour > 12 {
			return Clock{}, false
		}
		switch strings.ToUpper(m[3]) {
		case "AM":
			if hour == 12 {
				hour = 0
			}
		case "PM":
			if hour != 12 {
				hour += 12
			}
		}
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Clock{}, false
	}
	return Clock{Hour: hour, Minute: minute}, true
}

// ComposeUTC собирает абсолютный момент из даты "YYYY-MM-DD" и строки времени.
// Дата проверяется и по форме, и как реальная календарная дата.
func ComposeUTC(date, clock string) (time.Time, error) {
	if !dateRe.MatchString(date) {
		return time.Time{}, apperr.Validation("invalid date %q, expected YYYY-MM-DD", date)
	}
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date %q: no such calendar date", date)
	}
	c, ok := ParseClock(clock)
	if !ok {
		return time.Time{}, apperr.Validation("invalid time %q", clock)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, time.UTC), nil
}

// ResolveUTC дополняет недостающую половину из уже сохранённого момента:
// пришла только дата — время берём из existing, пришло только время — дату.
// Это политика слияния, а не "по умолчанию сейчас".
func ResolveUTC(existing time.Time, date, clock string) (time.Time, error) {
	if date == "" {
		date = existing.UTC().Format("2006-01-02")
	}
	if clock == "" {
		clock = existing.UTC().Format("15:04")
	}
	return ComposeUTC(date, clock)
}
