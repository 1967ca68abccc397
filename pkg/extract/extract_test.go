package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday noon, UTC.
var now = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

func TestExtractEmail(t *testing.T) {
	f := Extract("Az email címem kovacs.peter@example.hu, írjanak rá.", now)
	assert.Equal(t, "kovacs.peter@example.hu", f.Email)
	assert.True(t, f.HasContact())
}

func TestExtractPhone(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"hungarian mobile", "Elérnek a +36 30 123 4567 számon."},
		{"domestic prefix", "A számom 06 20 987 6543."},
		{"international", "Call me at +44 20 7946 0958 please."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Extract(tt.text, now)
			assert.NotEmpty(t, f.Phone)
			assert.True(t, f.HasContact())
		})
	}
}

func TestExtractNoContact(t *testing.T) {
	f := Extract("Csak érdeklődni szeretnék az árakról.", now)
	assert.False(t, f.HasContact())
}

func TestExtractTomorrowWithTime(t *testing.T) {
	f := Extract("Jó lenne holnap 14:30-kor.", now)
	require.NotNil(t, f.When)
	assert.Equal(t, time.Date(2024, 4, 11, 14, 30, 0, 0, time.UTC), *f.When)
}

func TestExtractTodayHourWord(t *testing.T) {
	f := Extract("Ráérek ma 15 órakor.", now)
	require.NotNil(t, f.When)
	assert.Equal(t, time.Date(2024, 4, 10, 15, 0, 0, 0, time.UTC), *f.When)
}

func TestExtractWeekdayDefaultsMorning(t *testing.T) {
	// "péntek" from Wednesday resolves to the coming Friday, 09:00 default.
	f := Extract("Inkább pénteken hívjanak vissza.", now)
	require.NotNil(t, f.When)
	assert.Equal(t, time.Date(2024, 4, 12, 9, 0, 0, 0, time.UTC), *f.When)
}

func TestExtractSameWeekdayRollsForward(t *testing.T) {
	// Asking for "szerda" on a Wednesday means next week's Wednesday.
	f := Extract("Legyen szerda.", now)
	require.NotNil(t, f.When)
	assert.Equal(t, time.Date(2024, 4, 17, 9, 0, 0, 0, time.UTC), *f.When)
}

func TestExtractNoDate(t *testing.T) {
	f := Extract("Köszönöm a segítséget.", now)
	assert.Nil(t, f.When)
}

func TestExtractRatingDigit(t *testing.T) {
	f := Extract("Összességében 4-esre értékelném a szolgáltatást.", now)
	assert.Equal(t, 4, f.Rating)
}

func TestExtractRatingWord(t *testing.T) {
	f := Extract("Ötös, nagyon elégedett voltam!", now)
	assert.Equal(t, 5, f.Rating)
}

func TestExtractRatingIgnoresPhoneDigits(t *testing.T) {
	f := Extract("A számom +36 30 123 4567.", now)
	assert.Equal(t, 0, f.Rating)
}

func TestExtractRatingIgnoresClockDigits(t *testing.T) {
	f := Extract("Hívjanak 12:30-kor.", now)
	assert.Equal(t, 0, f.Rating)
}

func TestExtractRatingIgnoresEmbeddedNumberWords(t *testing.T) {
	// "jött" and "kötött" contain "öt" but carry no rating.
	f := Extract("Megjött a futár és kötött egy megállapodást.", now)
	assert.Equal(t, 0, f.Rating)
}
