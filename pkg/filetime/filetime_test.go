package filetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeRoundTrip(t *testing.T) {
	want := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	ft := FromTime(want)
	got := ft.Time()
	assert.True(t, want.Equal(got), "want %v, got %v", want, got)
}

func TestEpoch(t *testing.T) {
	ft := FILETIME(0)
	got := ft.Time()
	assert.Equal(t, 1601, got.Year())
	assert.Equal(t, time.January, got.Month())
	assert.Equal(t, 1, got.Day())
}
