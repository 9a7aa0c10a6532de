package service

import (
	"context"
	"sync"
	"testing"

	"carservice/internal/model"
	"carservice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitFeedback(t *testing.T) {
	h := newHarness(t)
	f := seedBookingFixture(h)
	ctx := context.Background()
	b := h.store.addBooking(model.Booking{CustomerID: f.customer.ID, VehicleID: f.vehicle.ID, ServiceID: f.service.ID, Status: model.BookingStatusCompleted})

	fb, err := h.feedback.SubmitFeedback(ctx, principalOf(f.customer), b.ID, FeedbackRequest{Rating: 5, Comments: "  great  "})
	require.NoError(t, err)
	assert.Equal(t, 5, fb.Rating)
	assert.Equal(t, "great", fb.Comments)
	assert.True(t, h.store.booking(b.ID).FeedbackSubmitted)

	_, err = h.feedback.SubmitFeedback(ctx, principalOf(f.customer), b.ID, FeedbackRequest{Rating: 3})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	count, err := fakeBookingRepo{h.store}.CountFeedbackByCustomer(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSubmitFeedback_Rejections(t *testing.T) {
	h := newHarness(t)
	f := seedBookingFixture(h)
	other := h.store.addUser(model.RoleCustomer, "other@example.com", "Other", "Customer")
	completed := h.store.addBooking(model.Booking{CustomerID: f.customer.ID, ServiceID: f.service.ID, Status: model.BookingStatusCompleted})

	tests := []struct {
		name      string
		principal Principal
		bookingID uuid.UUID
		status    model.BookingStatus
		rating    int
		kind      apperror.Kind
	}{
		{name: "pending booking", principal: principalOf(f.customer), status: model.BookingStatusPending, rating: 4, kind: apperror.KindConflict},
		{name: "in progress booking", principal: principalOf(f.customer), status: model.BookingStatusInProgress, rating: 4, kind: apperror.KindConflict},
		{name: "cancelled booking", principal: principalOf(f.customer), status: model.BookingStatusCancelled, rating: 4, kind: apperror.KindConflict},
		{name: "rating too low", principal: principalOf(f.customer), bookingID: completed.ID, rating: 0, kind: apperror.KindValidation},
		{name: "rating too high", principal: principalOf(f.customer), bookingID: completed.ID, rating: 6, kind: apperror.KindValidation},
		{name: "another customer's booking", principal: principalOf(other), bookingID: completed.ID, rating: 4, kind: apperror.KindNotFound},
		{name: "missing booking", principal: principalOf(f.customer), bookingID: uuid.New(), rating: 4, kind: apperror.KindNotFound},
		{name: "staff cannot rate", principal: principalOf(f.staff), bookingID: completed.ID, rating: 4, kind: apperror.KindAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := tt.bookingID
			if id == uuid.Nil {
				id = h.store.addBooking(model.Booking{CustomerID: f.customer.ID, ServiceID: f.service.ID, Status: tt.status}).ID
			}
			_, err := h.feedback.SubmitFeedback(context.Background(), tt.principal, id, FeedbackRequest{Rating: tt.rating})
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
			assert.False(t, h.store.booking(id).FeedbackSubmitted)
		})
	}
}

func TestSubmitFeedback_ConcurrentSubmissions(t *testing.T) {
	h := newHarness(t)
	f := seedBookingFixture(h)
	b := h.store.addBooking(model.Booking{CustomerID: f.customer.ID, ServiceID: f.service.ID, Status: model.BookingStatusCompleted})

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.feedback.SubmitFeedback(context.Background(), principalOf(f.customer), b.ID, FeedbackRequest{Rating: 4})
		}(i)
	}
	wg.Wait()

	succeeded, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperror.Is(err, apperror.KindConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)

	count, err := fakeBookingRepo{h.store}.CountFeedbackByCustomer(context.Background(), f.customer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
