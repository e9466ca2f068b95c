package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/studio_booking/internal/clock"
	"github.com/Freeeeeet/studio_booking/internal/config"
	"github.com/Freeeeeet/studio_booking/internal/service"
)

func TestGenerationDue(t *testing.T) {
	tests := []struct {
		name  string
		today time.Weekday
		from  time.Weekday
		want  bool
	}{
		{"sunday generation on sunday", time.Sunday, time.Sunday, true},
		{"sunday generation on saturday", time.Saturday, time.Sunday, false},
		{"sunday generation on monday", time.Monday, time.Sunday, false},
		{"friday generation on saturday", time.Saturday, time.Friday, true},
		{"friday generation on thursday", time.Thursday, time.Friday, false},
		{"monday generation any day", time.Wednesday, time.Monday, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, generationDue(tt.today, tt.from))
		})
	}
}

func TestGenerationWeeks(t *testing.T) {
	studio := time.FixedZone("ART", -3*60*60)
	cfg := &config.Config{GenerationWeekday: config.Weekday(time.Sunday)}

	newScheduler := func(now time.Time) *Scheduler {
		clk := clock.Fixed(studio, now)
		generation := service.NewGenerationService(nil, nil, nil, nil, nil, nil, clk, zap.NewNop())
		return NewScheduler(nil, nil, generation, clk, cfg, zap.NewNop())
	}

	// понедельник после пропущенного воскресенья: догоняется текущая неделя
	weeks := newScheduler(time.Date(2026, 3, 9, 8, 0, 0, 0, studio)).generationWeeks()
	require.Len(t, weeks, 1)
	assert.True(t, weeks[0].Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, studio)))

	// воскресенье: текущая и следующая недели
	weeks = newScheduler(time.Date(2026, 3, 15, 8, 0, 0, 0, studio)).generationWeeks()
	require.Len(t, weeks, 2)
	assert.True(t, weeks[0].Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, studio)))
	assert.True(t, weeks[1].Equal(time.Date(2026, 3, 16, 0, 0, 0, 0, studio)))
}
