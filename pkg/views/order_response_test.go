package views

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pigbank/orders/pkg"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderResponse_RoundTrip(t *testing.T) {
	original := OrderResponse{
		ID:          "5f6071b2-6f0e-4a6a-a2d8-1f7b2a8c9d10",
		UserID:      "0b6a2c4e-1234-4cde-9abc-5f6071b26f0e",
		Amount:      decimal.RequireFromString("123.45"),
		Description: "round trip",
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC),
		Status:      pkg.OrderStatusPending,
	}

	payload, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded OrderResponse
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, original.UserID, decoded.UserID)
	assert.Equal(t, original.Description, decoded.Description)
	assert.Equal(t, original.Status, decoded.Status)
	assert.True(t, original.Amount.Equal(decoded.Amount), "amount must survive the round trip exactly")
	assert.True(t, original.CreatedAt.Equal(decoded.CreatedAt))
}

func TestOrderResponse_AmountPrecision(t *testing.T) {
	// Values that lose precision through float64 must survive as decimals.
	resp := OrderResponse{Amount: decimal.RequireFromString("0.1")}
	payload, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded OrderResponse
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.True(t, decimal.RequireFromString("0.1").Equal(decoded.Amount))
}
