package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	t.Run("Canonical", func(t *testing.T) {
		for _, st := range Statuses {
			got, err := ParseStatus(string(st))
			require.NoError(t, err)
			assert.Equal(t, st, got)
		}
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		got, err := ParseStatus(" finished ")
		require.NoError(t, err)
		assert.Equal(t, StatusFinished, got)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := ParseStatus("archived")
		var unknown *UnknownStatusError
		assert.ErrorAs(t, err, &unknown)
		assert.Equal(t, "archived", unknown.Value)
	})

	assert.True(t, StatusCancelled.IsValid())
	assert.False(t, Status("cancelled").IsValid())
}

func TestChatState_Awaiting(t *testing.T) {
	var nilState *ChatState
	assert.False(t, nilState.Awaiting())
	assert.False(t, (&ChatState{Step: StepIdle}).Awaiting())
	assert.True(t, (&ChatState{Step: StepAwaitReason}).Awaiting())
	assert.True(t, (&ChatState{Step: StepAwaitExpenses}).Awaiting())
	assert.True(t, (&ChatState{Step: StepAwaitPrice}).Awaiting())
}

func testBooking() Booking {
	return Booking{
		BookingID:         "B100",
		UserID:            "U7",
		Name:              "Dana Reyes",
		Email:             "dana@example.com",
		Officer:           "officer-1",
		CarID:             "C3",
		Status:            StatusPending,
		PickupDate:        "2026-10-20",
		ReturnDate:        "2026-10-22",
		RentalType:        RentalCompany,
		AdditionalRequest: "with driver",
		CreatedAt:         "2026-10-01T08:00:00Z",
		Price:             1200,
	}
}

func TestRequests_WireShape(t *testing.T) {
	actor := Actor{ID: "A1", Name: "Kim", Role: "admin"}
	b := testBooking()

	t.Run("Cancel", func(t *testing.T) {
		raw, err := json.Marshal(NewCancelRequest(b, actor, "Customer no-show"))
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		assert.Equal(t, "Customer no-show", m["cancel_reason"])
		assert.Equal(t, "A1", m["admin_id"])
		assert.Equal(t, "Kim", m["admin_name"])
		assert.Equal(t, "admin", m["admin_role"])
		assert.Equal(t, "U7", m["user_id"])
		assert.Equal(t, "dana@example.com", m["clientEmail"])
	})

	t.Run("Pending keeps user_id once", func(t *testing.T) {
		raw, err := json.Marshal(NewPendingRequest(b, actor))
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		assert.Equal(t, "U7", m["user_id"])
		assert.Equal(t, "B100", m["booking_id"])
		assert.Equal(t, "Pending", m["status"])
		assert.Equal(t, "company", m["rental_type"])
	})

	t.Run("Invoice", func(t *testing.T) {
		raw, err := json.Marshal(NewInvoiceRequest(b, actor))
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		assert.Equal(t, "B100", m["bookingId"])
		assert.Equal(t, "with driver", m["driver"])
		assert.Equal(t, "C3", m["carId"])
		assert.Equal(t, "admin", m["role"])
		assert.Equal(t, float64(1200), m["price"])
	})
}

func TestRequests_Validate(t *testing.T) {
	actor := Actor{ID: "A1", Role: "admin"}
	b := testBooking()

	assert.NoError(t, NewCancelRequest(b, actor, "late").Validate())
	assert.Error(t, NewCancelRequest(b, actor, "").Validate())
	assert.Error(t, NewConfirmRequest(b, Actor{}).Validate())
	assert.Error(t, NewPriceNotifyRequest(b, actor, 0).Validate())
	assert.NoError(t, NewPriceNotifyRequest(b, actor, 250).Validate())

	noUser := b
	noUser.UserID = ""
	err := NewFinishRequest(noUser, actor, 10).Validate()
	var invalid *InvalidRequestError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Message, "UserID")
}

func TestActor(t *testing.T) {
	assert.Error(t, Actor{Name: "x"}.Validate())
	assert.NoError(t, Actor{ID: "1", Role: "admin"}.Validate())
	assert.Equal(t, DefaultRole, Actor{}.RoleOrDefault())
	assert.Equal(t, "admin", Actor{Role: "admin"}.RoleOrDefault())
}
