package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoredNumeric_Scan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want string
	}{
		{"nil", nil, "null"},
		{"int64", int64(-7), "-7"},
		{"text", "4611686018427387904", "4611686018427387904"},
		{"bytes", []byte("123"), "123"},
		{"numeric with zero fraction", "15.000", "15"},
		{"integral float", float64(99), "99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n StoredNumeric
			require.NoError(t, n.Scan(tt.src))
			assert.Equal(t, tt.want, n.String())
		})
	}
}

func TestStoredNumeric_ScanRejectsLossyInput(t *testing.T) {
	var n StoredNumeric

	err := n.Scan(1.5)
	assert.True(t, IsPrecisionLoss(err))

	err = n.Scan("15.5")
	require.Error(t, err)

	err = n.Scan(true)
	require.Error(t, err)
}

func TestStoredNumeric_Value(t *testing.T) {
	v, err := Null().Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = MustParseNumeric("4611686018427387904").Value()
	require.NoError(t, err)
	assert.Equal(t, "4611686018427387904", v)
}

func TestStoredNumeric_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]StoredNumeric{
		"a": MustParseNumeric("4611686018427387904"),
		"b": Null(),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"4611686018427387904","b":null}`, string(data))

	var decoded struct {
		A StoredNumeric `json:"a"`
		B StoredNumeric `json:"b"`
		C StoredNumeric `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"4611686018427387904","b":null,"c":12}`), &decoded))
	assert.Equal(t, "4611686018427387904", decoded.A.String())
	assert.True(t, decoded.B.IsNull())
	assert.Equal(t, "12", decoded.C.String())
}

func TestStoredNumeric_BigIntIsACopy(t *testing.T) {
	n := FromInt64(10)
	b := n.BigInt()
	b.SetInt64(11)
	assert.Equal(t, "10", n.String())
}
