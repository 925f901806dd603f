package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{Op: "mindbody.bookableitems", StatusCode: 400, Message: "Invalid SiteId"}
	assert.Equal(t, "mindbody.bookableitems: Mindbody API returned error code: 400 - Invalid SiteId", err.Error())

	wrapped := &ProviderError{Op: "mindbody.staff", Err: errors.New("dial tcp: refused")}
	assert.Contains(t, wrapped.Error(), "dial tcp: refused")
	assert.True(t, errors.Is(fmt.Errorf("outer: %w", wrapped), wrapped.Err))
}

func TestProviderErrorTemporary(t *testing.T) {
	tests := []struct {
		name string
		err  *ProviderError
		want bool
	}{
		{"transport", &ProviderError{Err: errors.New("timeout")}, true},
		{"cancelled", &ProviderError{Err: fmt.Errorf("do: %w", context.Canceled)}, false},
		{"throttled", &ProviderError{StatusCode: 429}, true},
		{"server", &ProviderError{StatusCode: 503}, true},
		{"client", &ProviderError{StatusCode: 400}, false},
		{"unauthorized", &ProviderError{StatusCode: 401}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Temporary())
			assert.Equal(t, tt.want, IsTemporary(fmt.Errorf("wrap: %w", tt.err)))
		})
	}
	assert.False(t, IsTemporary(ErrNotConfigured))
}

func TestSlotUnavailableIs(t *testing.T) {
	err := fmt.Errorf("admit: %w", &SlotUnavailableError{BookableItemID: "b1", Reason: "taken"})
	assert.True(t, errors.Is(err, ErrSlotUnavailable))
	var sue *SlotUnavailableError
	assert.True(t, errors.As(err, &sue))
	assert.Equal(t, "b1", sue.BookableItemID)
}

func TestAdmissionErrorUnwrap(t *testing.T) {
	cause := errors.New("redis down")
	err := &AdmissionError{Reason: "add line", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "add line")
}

func TestStaffFullNameAndSlotHelpers(t *testing.T) {
	assert.Equal(t, "Jane Doe", Staff{FirstName: "Jane", LastName: "Doe"}.FullName())
	assert.Equal(t, "Jane", Staff{FirstName: "Jane"}.FullName())

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	slot := BookableSlot{BookableItemID: "b1", StartDateTime: start, EndDateTime: start.Add(75 * time.Minute)}
	assert.True(t, slot.Valid())
	assert.Equal(t, 75, slot.DurationMinutes())

	slot.EndDateTime = start
	assert.False(t, slot.Valid())
	assert.Equal(t, 0, slot.DurationMinutes())

	g := TherapistTreatmentGroup{Therapist: "Jane Doe", BaseName: "Deep Tissue"}
	assert.Equal(t, "Jane Doe||Deep Tissue", g.Key())
}
