package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatus_CanTransitionTo(t *testing.T) {
	all := []BookingStatus{BookingStatusPending, BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled}
	allowed := map[[2]BookingStatus]bool{
		{BookingStatusPending, BookingStatusInProgress}:   true,
		{BookingStatusPending, BookingStatusCancelled}:    true,
		{BookingStatusInProgress, BookingStatusCompleted}: true,
		{BookingStatusInProgress, BookingStatusCancelled}: true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]BookingStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestBookingStatus_Valid(t *testing.T) {
	assert.True(t, BookingStatusCancelled.Valid())
	assert.False(t, BookingStatus("DONE").Valid())
	assert.False(t, BookingStatus("").Valid())
}

func TestUser_FullName(t *testing.T) {
	assert.Equal(t, "Jane Doe", (&User{FirstName: "Jane", LastName: "Doe"}).FullName())
	assert.Equal(t, "Jane", (&User{FirstName: "Jane"}).FullName())
	assert.Equal(t, "jane@example.com", (&User{Email: "jane@example.com"}).FullName())
}
