package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTherapist(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"name then duration", "Deep Tissue - Jane Doe - 60min", "Jane Doe"},
		{"name at end", "Reflexology - Sarah", "Sarah"},
		{"initial", "Acupuncture - John K. - 45 mins", "John K."},
		{"duration before name", "Reiki - 60 min - Maria", "Maria"},
		{"duration only", "Deep Tissue Massage - 60 mins", GeneralTherapist},
		{"no segment", "Hot Stone Massage", GeneralTherapist},
		{"quote duration", "Facial - Anna 60'", "Anna"},
		{"lowercase name", "Cupping - lucy", "lucy"},
		// The first dash segment wins even when it is a modality.
		{"lowercase modality before name", "Massage - deep tissue - Jane", "deep tissue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTherapist(tt.in))
		})
	}
}

func TestDurationFromName(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"Deep Tissue - Jane Doe - 60min", 60},
		{"Massage 90 mins", 90},
		{"Facial 45 minutes", 45},
		{"Hot Stone - 75'", 75},
		{"Consultation - 30", 30},
		{"Reiki", 0},
		{"Acupuncture MIN 20", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DurationFromName(tt.in))
		})
	}
}

func TestResolveDurationPrefersStructuredFields(t *testing.T) {
	assert.Equal(t, 50, ResolveDuration("Massage 60min", 0, 50, 40))
	assert.Equal(t, 40, ResolveDuration("Massage 60min", 0, 0, 40))
	assert.Equal(t, 60, ResolveDuration("Massage 60min", 0, 0, 0))
	assert.Equal(t, 0, ResolveDuration("Massage", -5))
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Deep Tissue - Jane Doe - 60min", "Deep Tissue"},
		{"Deep Tissue - Jane Doe - 90 mins", "Deep Tissue"},
		{"Reiki - 60 min - Maria", "Reiki"},
		{"Hot Stone - 75'", "Hot Stone"},
		{"Consultation - 30", "Consultation"},
		{"Facial   Glow  45 minutes", "Facial Glow"},
		{"Sports Massage", "Sports Massage"},
		{"60min", "60min"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseName(tt.in))
		})
	}
}
