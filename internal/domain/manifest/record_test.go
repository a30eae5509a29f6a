package manifest

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawRecord_Lookup(t *testing.T) {
	t.Run("returns exact key first", func(t *testing.T) {
		r := RawRecord{"City": "Kolkata", "*City": "Howrah"}
		v, ok := r.Lookup("City")
		require.True(t, ok)
		assert.Equal(t, "Kolkata", v)
	})

	t.Run("falls back to marker variant", func(t *testing.T) {
		r := RawRecord{"*City": "Howrah"}
		v, ok := r.Lookup("City")
		require.True(t, ok)
		assert.Equal(t, "Howrah", v)
	})

	t.Run("strips marker when key carries one", func(t *testing.T) {
		r := RawRecord{"Postal Code": "700107"}
		v, ok := r.Lookup("*Postal Code")
		require.True(t, ok)
		assert.Equal(t, "700107", v)
	})

	t.Run("skips blank and nil values", func(t *testing.T) {
		r := RawRecord{"Customer Phone": "   ", "*Phone": nil, "phone": "98300"}
		v, ok := r.Lookup(KeysPhone...)
		require.True(t, ok)
		assert.Equal(t, "98300", v)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		r := RawRecord{"Shipping City": "  Kolkata "}
		assert.Equal(t, "Kolkata", r.String("", KeysCity...))
	})

	t.Run("stringifies numbers", func(t *testing.T) {
		r := RawRecord{"pin": float64(700107), "Quantity": json.Number("2")}
		assert.Equal(t, "700107", r.String("", "pin"))
		assert.Equal(t, "2", r.String("", "Quantity"))
	})

	t.Run("reports missing", func(t *testing.T) {
		_, ok := RawRecord{}.Lookup("City", "  ")
		assert.False(t, ok)
		assert.Equal(t, "fallback", RawRecord{}.String("fallback", "City"))
	})
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in   string
		def  int
		want int
	}{
		{"12", 0, 12},
		{"1,250", 0, 1250},
		{" 3.9 ", 0, 3},
		{"-2.5", 0, -2},
		{"", 7, 7},
		{"abc", 7, 7},
		{"1e3", 0, 1000},
		{"1e19", 5, 5},
		{"-1e19", 5, 5},
		{"99999999999999999999999", 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInt(tt.in, tt.def))
		})
	}
}

func TestParseDecimal(t *testing.T) {
	assert.True(t, decimal.RequireFromString("1250.50").Equal(ParseDecimal("1,250.50", decimal.Zero)))
	assert.True(t, decimal.NewFromInt(9).Equal(ParseDecimal("n/a", decimal.NewFromInt(9))))

	_, ok := ParseDecimalOK("  ")
	assert.False(t, ok)
}

func TestNormalize_MarkerAgnostic(t *testing.T) {
	plain := RawRecord{
		"Order ID":       "PZ100",
		"Street Address": "12 Park Street",
		"Phone":          "9830012345",
		"Payment Status": "COD",
		"First Name":     "Asha",
		"Last Name":      "Sen",
		"City":           "Kolkata",
		"Postal Code":    "700016",
		"Size":           "M",
		"Color":          "Red",
	}
	marked := RawRecord{}
	for k, v := range plain {
		marked["*"+k] = v
	}

	assert.Equal(t, Normalize(plain), Normalize(marked))
	assert.Equal(t, "Kolkata", Normalize(marked).City)
	assert.Equal(t, "PZ100", Normalize(plain).OrderID)
}

func TestNormalize_Numbers(t *testing.T) {
	t.Run("explicit total is kept", func(t *testing.T) {
		f := Normalize(RawRecord{"Total Price": "1,499.00", "Quantity": "2"})
		require.NotNil(t, f.TotalAmount)
		assert.True(t, decimal.RequireFromString("1499").Equal(*f.TotalAmount))
		assert.Equal(t, 2, f.Quantity)
	})

	t.Run("unparsable total becomes zero", func(t *testing.T) {
		f := Normalize(RawRecord{"Total Amount": "free"})
		require.NotNil(t, f.TotalAmount)
		assert.True(t, f.TotalAmount.IsZero())
	})

	t.Run("absent total stays nil", func(t *testing.T) {
		f := Normalize(RawRecord{"Unit Item Price": "100"})
		assert.Nil(t, f.TotalAmount)
		assert.True(t, decimal.NewFromInt(100).Equal(f.UnitPrice))
	})

	t.Run("malformed dimensions fall back to zero", func(t *testing.T) {
		f := Normalize(RawRecord{"Length (cm)": "x", "Weight (gm)": "250"})
		assert.Equal(t, 0, f.LengthCm)
		assert.Equal(t, 250, f.WeightGm)
	})
}

func TestRawRecord_Clone(t *testing.T) {
	r := RawRecord{"a": "1"}
	c := r.Clone()
	c["a"] = "2"
	assert.Equal(t, "1", r["a"])
}
