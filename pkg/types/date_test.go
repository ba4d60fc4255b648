package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{name: "plain date", input: "2024-01-01", want: NewDate(2024, time.January, 1)},
		{name: "leap day", input: "2024-02-29", want: NewDate(2024, time.February, 29)},
		{name: "not a leap year", input: "2023-02-29", wantErr: true},
		{name: "timestamp is rejected", input: "2024-01-01T00:00:00Z", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "lasagna", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestDateValid(t *testing.T) {
	assert.True(t, NewDate(2024, time.December, 31).Valid())
	assert.False(t, NewDate(2024, time.April, 31).Valid())
	assert.False(t, Date{}.Valid())
	assert.True(t, NewDate(0, time.January, 1).Valid())
	assert.True(t, NewDate(9999, time.December, 31).Valid())
	assert.False(t, NewDate(10000, time.January, 1).Valid())
	assert.False(t, NewDate(-5, time.January, 1).Valid())

	// Every valid date survives its own text form.
	for _, d := range []Date{NewDate(0, time.January, 1), NewDate(9999, time.December, 31)} {
		back, err := ParseDate(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, back)
	}
}

func TestDateJSON(t *testing.T) {
	t.Run("item with date", func(t *testing.T) {
		d := NewDate(2024, time.January, 1)
		item := Item{ID: 1, Description: "Lasagna", Date: &d}

		data, err := json.Marshal(item)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":1,"description":"Lasagna","date":"2024-01-01"}`, string(data))

		var back Item
		require.NoError(t, json.Unmarshal(data, &back))
		assert.True(t, item.Equal(&back))
	})

	t.Run("absent date is null", func(t *testing.T) {
		item := Item{ID: 2}
		data, err := json.Marshal(item)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":2,"description":"","date":null}`, string(data))

		var back Item
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Nil(t, back.Date)
	})

	t.Run("malformed date is rejected", func(t *testing.T) {
		var item Item
		err := json.Unmarshal([]byte(`{"id":3,"date":"01/02/2024"}`), &item)
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("non-string date is rejected", func(t *testing.T) {
		var item Item
		err := json.Unmarshal([]byte(`{"id":3,"date":20240101}`), &item)
		assert.ErrorIs(t, err, ErrInvalidDate)
	})
}
