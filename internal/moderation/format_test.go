package moderation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tg-moderation/internal/models"
)

func TestFormatterDuration(t *testing.T) {
	uz := NewFormatter(models.LangUzbek, time.UTC)
	en := NewFormatter(models.LangEnglish, time.UTC)

	assert.Equal(t, "45 soniya", uz.Duration(45*time.Second))
	assert.Equal(t, "5 daqiqa", uz.Duration(5*time.Minute))
	assert.Equal(t, "30 daqiqa", uz.Duration(30*time.Minute))
	assert.Equal(t, "1 soat", uz.Duration(time.Hour))
	assert.Equal(t, "2 hours", en.Duration(150*time.Minute))
}

func TestFormatterUntil(t *testing.T) {
	tashkent := time.FixedZone("UZT", 5*3600)
	f := NewFormatter(models.LangUzbek, tashkent)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "15:05:00", f.Until(now, Action{Kind: ActionRestrict, Duration: 5 * time.Minute}))
	assert.Equal(t, "doimiy", f.Until(now, Action{Kind: ActionBan}))
	assert.Equal(t, "doimiy", f.ActionDuration(Action{Kind: ActionBan}))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ali Valiyev", DisplayName("Ali", "Valiyev", "ali", 1))
	assert.Equal(t, "ali", DisplayName("", "", "ali", 1))
	assert.Equal(t, "User 9", DisplayName("", "", "", 9))
	assert.Equal(t, "&lt;b&gt;", DisplayName("<b>", "", "", 1))
}
