package utils

import (
	"fmt"
	"time"
)

// Ptr returns a pointer to v, for APIs that take optional values.
func Ptr[T any](v T) *T {
	return &v
}

// FormatDuration renders a duration in a compact human form (2h30m, 45m).
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh%dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

// DiscordTimestamp renders t as a Discord timestamp tag.
func DiscordTimestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}
