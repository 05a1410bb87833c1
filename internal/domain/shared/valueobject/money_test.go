package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney_RoundsHalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.005", "10.01"},
		{"10.004", "10.00"},
		{"0.125", "0.13"},
		{"2.5", "2.50"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := NewMoneyFromString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.String())
		})
	}
}

func TestNewMoneyFromString_Invalid(t *testing.T) {
	_, err := NewMoneyFromString("not-a-number")
	assert.Error(t, err)
}

func TestMoney_Arithmetic(t *testing.T) {
	price := MustMoney("150.00")

	assert.Equal(t, "300.00", price.MultiplyByInt(2).String())
	assert.Equal(t, "100.00", MustMoney("300").Subtract(MustMoney("200")).String())
	assert.Equal(t, "15.00", MustMoney("300").Percent(decimal.NewFromInt(5)).String())
	assert.Equal(t, "0.00", MustMoney("-3").NonNegative().String())
	assert.Equal(t, "1.00", MustMoney("1").Min(MustMoney("2")).String())
	assert.Equal(t, "0.30", Sum(MustMoney("0.1"), MustMoney("0.2")).String())
	assert.Equal(t, int64(30050), MustMoney("300.50").MinorUnits())
	assert.True(t, NewMoneyFromMinor(30050).Equals(MustMoney("300.50")))
}

func TestMoney_Comparisons(t *testing.T) {
	a := MustMoney("100")
	b := MustMoney("200")

	assert.True(t, a.LessThan(b))
	assert.True(t, a.LessThanOrEqual(a))
	assert.True(t, b.GreaterThan(a))
	assert.True(t, b.GreaterThanOrEqual(b))
	assert.True(t, Zero().IsZero())
	assert.True(t, a.IsPositive())
	assert.True(t, MustMoney("-1").IsNegative())
}

func TestMoney_JSON(t *testing.T) {
	t.Run("marshals as number with two decimals", func(t *testing.T) {
		data, err := json.Marshal(struct {
			Total Money `json:"total"`
		}{Total: MustMoney("300")})
		require.NoError(t, err)
		assert.JSONEq(t, `{"total":300.00}`, string(data))
		assert.Contains(t, string(data), "300.00")
	})

	t.Run("unmarshals numbers and strings", func(t *testing.T) {
		var v struct {
			A Money `json:"a"`
			B Money `json:"b"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"a":150.5,"b":"99.999"}`), &v))
		assert.Equal(t, "150.50", v.A.String())
		assert.Equal(t, "100.00", v.B.String())
	})

	t.Run("rejects garbage", func(t *testing.T) {
		var m Money
		assert.Error(t, json.Unmarshal([]byte(`"abc"`), &m))
	})
}
