package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusProcessing, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, OrderStatus("shipped").Valid())
}

func TestProductPriceAcceptsStringOrNumber(t *testing.T) {
	var fromNumber, fromString Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"title":"Phone","price":500}`), &fromNumber))
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"title":"Phone","price":"500"}`), &fromString))
	assert.True(t, fromNumber.Price.Equal(fromString.Price))

	out, err := json.Marshal(fromString)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"title":"Phone","description":"","price":500}`, string(out))
}

func TestCartLineFlattensProduct(t *testing.T) {
	line := CartLine{Product: Product{Id: 1, Title: "A", Price: decimal.NewFromInt(10)}, Quantity: 3}
	out, err := json.Marshal(line)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"title":"A","description":"","price":10,"quantity":3}`, string(out))
	assert.True(t, line.Subtotal().Equal(decimal.NewFromInt(30)))
}

func TestUserDisplayAndAvatar(t *testing.T) {
	u := User{FirstName: "Ada", LastName: "Lovelace"}
	assert.Equal(t, "Ada Lovelace", u.DisplayName())
	assert.Contains(t, u.AvatarURL(), "name=Ada%20Lovelace")

	assert.Equal(t, "Neo", User{Name: "Neo"}.DisplayName())
	assert.Equal(t, "User", User{}.DisplayName())
	assert.Equal(t, "https://cdn/x.png", User{Image: "https://cdn/x.png"}.AvatarURL())
	assert.Equal(t, "/uploads/me.png", User{Image: "me.png"}.AvatarURL())
}

func TestProductPatchApply(t *testing.T) {
	title := "New"
	p := Product{Id: 5, Title: "Old", Description: "keep", Price: decimal.NewFromInt(3)}
	got := ProductPatch{Title: &title}.Apply(p)
	assert.Equal(t, int64(5), got.Id)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, "keep", got.Description)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(3)))
}

func TestProductPriceLegacyShapes(t *testing.T) {
	for _, raw := range []string{`{"id":2,"title":"B","price":""}`, `{"id":2,"title":"B","price":null}`, `{"id":2,"title":"B"}`} {
		var p Product
		require.NoError(t, json.Unmarshal([]byte(raw), &p), raw)
		assert.Equal(t, int64(2), p.Id)
		assert.True(t, p.Price.IsZero(), raw)
	}

	var bad Product
	assert.Error(t, json.Unmarshal([]byte(`{"id":3,"price":"abc"}`), &bad))
}

func TestCartLineDecodeKeepsQuantity(t *testing.T) {
	var line CartLine
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"title":"A","price":"10","quantity":4}`), &line))
	assert.Equal(t, int64(1), line.Id)
	assert.Equal(t, "A", line.Title)
	assert.Equal(t, 4, line.Quantity)
	assert.True(t, line.Subtotal().Equal(decimal.NewFromInt(40)))
}
