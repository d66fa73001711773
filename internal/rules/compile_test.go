package rules

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRule_UnmarshalJSON_WireVariants(t *testing.T) {
	data := `[
		{"id":"a","name":"Gift","minCartValue":"500.00","hasUpperLimit":false,"productIds":"[111, \"222\"]","status":"active"},
		{"id":"b","minCartValue":20.01,"hasUpperLimit":true,"maxCartValue":"2000","productIds":[333],"isActive":true},
		{"id":"c","minCartValue":10,"productIds":"not json"}
	]`

	var rs []Rule
	require.NoError(t, json.Unmarshal([]byte(data), &rs))
	require.Len(t, rs, 3)

	a, err := Compile(rs[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222"}, a.Products)
	assert.Equal(t, int64(50000), a.MinMinor)
	assert.True(t, a.Active())

	b, err := Compile(rs[1])
	require.NoError(t, err)
	assert.Equal(t, []string{"333"}, b.Products)
	assert.Equal(t, int64(2001), b.MinMinor)
	assert.Equal(t, int64(200000), b.MaxMinor)

	_, err = Compile(rs[2])
	var invalid *InvalidRuleError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "c", invalid.RuleID)
}

func TestRule_UnmarshalJSON_ID(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr bool
	}{
		{name: "string", data: `{"id":" gift "}`, want: "gift"},
		{name: "integer", data: `{"id":7}`, want: "7"},
		{name: "large integer", data: `{"id":90071992547409930}`, want: "90071992547409930"},
		{name: "null", data: `{"id":null}`, want: ""},
		{name: "missing", data: `{"name":"x"}`, want: ""},
		{name: "object", data: `{"id":{"v":1}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Rule
			err := json.Unmarshal([]byte(tt.data), &r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.ID)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"missing id", Rule{MinCartValue: "1"}},
		{"bad minimum", Rule{ID: "x", MinCartValue: "ten"}},
		{"upper limit without maximum", Rule{ID: "x", HasUpperLimit: true}},
		{"bad maximum", Rule{ID: "x", HasUpperLimit: true, MaxCartValue: "lots"}},
		{"unknown status", Rule{ID: "x", Status: "paused"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.rule)
			var invalid *InvalidRuleError
			assert.True(t, errors.As(err, &invalid), "expected InvalidRuleError, got %v", err)
		})
	}
}

func TestRule_Active(t *testing.T) {
	yes, no := true, false

	assert.True(t, Rule{}.Active())
	assert.True(t, Rule{Status: StatusActive, IsActive: &no}.Active())
	assert.False(t, Rule{Status: StatusInactive}.Active())
	assert.False(t, Rule{IsActive: &no}.Active())
	assert.True(t, Rule{IsActive: &yes}.Active())
}

func TestRule_UnmarshalYAML(t *testing.T) {
	doc := `
- id: gift
  name: Free gift over 500
  minCartValue: 500
  productIds: [111, 222]
  worksInReverse: true
- id: encoded
  minCartValue: "19.99"
  productIds: '["333"]'
  status: inactive
`
	var rs []Rule
	require.NoError(t, yaml.Unmarshal([]byte(doc), &rs))
	require.Len(t, rs, 2)

	gift, err := Compile(rs[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222"}, gift.Products)
	assert.Equal(t, int64(50000), gift.MinMinor)
	assert.True(t, gift.WorksInReverse)

	encoded, err := Compile(rs[1])
	require.NoError(t, err)
	assert.Equal(t, []string{"333"}, encoded.Products)
	assert.Equal(t, int64(1999), encoded.MinMinor)
	assert.False(t, encoded.Active())
}

func TestProductList_RoundTripsAsArray(t *testing.T) {
	out, err := json.Marshal(Rule{ID: "x", ProductIDs: Products("1", "2")})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"productIds":["1","2"]`)
}

func TestAmount_MinorUnitsRounding(t *testing.T) {
	tests := map[Amount]int64{
		"":        0,
		"0":       0,
		"20.01":   2001,
		"19.999":  2000,
		"1000":    100000,
		"0.1":     10,
		" 5.5 ":   550,
		"1234.56": 123456,
	}
	for in, want := range tests {
		got, err := in.MinorUnits()
		require.NoError(t, err, "amount %q", in)
		assert.Equal(t, want, got, "amount %q", in)
	}

	for _, in := range []Amount{"NaN", "Inf", "1e30", "-1e30", "92233720368547758.08"} {
		_, err := in.MinorUnits()
		assert.ErrorContains(t, err, "invalid amount", "amount %q", in)
	}
}

func TestCompile_OutOfRangeThresholdIsInvalid(t *testing.T) {
	_, err := Compile(Rule{ID: "huge", MinCartValue: "1e30", ProductIDs: Products("111")})

	var invalid *InvalidRuleError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "huge", invalid.RuleID)
}
