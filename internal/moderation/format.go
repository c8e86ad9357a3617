package moderation

import (
	"fmt"
	"html"
	"strings"
	"time"

	"tg-moderation/internal/models"
)

// Formatter renders user-visible texts in one language and timezone.
type Formatter struct {
	lang string
	loc  *time.Location
}

func NewFormatter(lang string, loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{lang: lang, loc: loc}
}

// Text formats the catalogue entry key.
func (f *Formatter) Text(key string, args ...interface{}) string {
	tmpl := models.GetTranslation(f.lang, key)
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// Duration renders d in whole seconds, minutes or hours.
func (f *Formatter) Duration(d time.Duration) string {
	seconds := int64(d / time.Second)
	switch {
	case seconds < 60:
		return f.Text("unit_seconds", seconds)
	case seconds < 3600:
		return f.Text("unit_minutes", seconds/60)
	default:
		return f.Text("unit_hours", seconds/3600)
	}
}

// ActionDuration renders the length of an action.
func (f *Formatter) ActionDuration(a Action) string {
	if a.Kind != ActionRestrict {
		return f.Text("permanent")
	}
	return f.Duration(a.Duration)
}

// Until renders the wall-clock expiry of an action started at now.
func (f *Formatter) Until(now time.Time, a Action) string {
	if a.Kind != ActionRestrict {
		return f.Text("permanent")
	}
	return now.Add(a.Duration).In(f.loc).Format("15:04:05")
}

// Clock renders t as a time of day.
func (f *Formatter) Clock(t time.Time) string {
	return t.In(f.loc).Format("15:04:05")
}

// Timestamp renders t as a date and time.
func (f *Formatter) Timestamp(t time.Time) string {
	return t.In(f.loc).Format("2006-01-02 15:04:05")
}

// DisplayName picks the best human label for a user, HTML escaped.
func DisplayName(firstName, lastName, username string, userID int64) string {
	name := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	if name == "" {
		name = username
	}
	if name == "" {
		name = fmt.Sprintf("User %d", userID)
	}
	return html.EscapeString(name)
}
