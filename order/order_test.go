package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []byte(`{"customer":"Perry Krieger","destination":"8204 Victoria Street, Fremont, CA 94536",` +
	`"event_name":"CREATED","id":"4b76edbf","item":"Caesar salad","price":4775,"sent_at_second":7}`)

func TestDecode(t *testing.T) {
	o, err := Decode(sample)
	require.NoError(t, err)
	assert.Equal(t, Order{
		ID:          "4b76edbf",
		Customer:    "Perry Krieger",
		Destination: "8204 Victoria Street, Fremont, CA 94536",
		Status:      Created,
		Item:        "Caesar salad",
		Price:       4775,
		SentAt:      7,
	}, o)
}

func TestMergeKeepsAbsentFields(t *testing.T) {
	o, err := Decode(sample)
	require.NoError(t, err)

	require.NoError(t, o.Merge([]byte(`{"id":"4b76edbf","event_name":"COOKED","sent_at_second":12,"item":null}`)))
	assert.Equal(t, Cooked, o.Status)
	assert.Equal(t, int64(12), o.SentAt)
	assert.Equal(t, "Caesar salad", o.Item)
	assert.Equal(t, "Perry Krieger", o.Customer)
	assert.Equal(t, int64(4775), o.Price)
}

func TestMergeRejectsMalformed(t *testing.T) {
	var o Order
	assert.Error(t, o.Merge([]byte(`{"id":`)))
}

func TestMarshalList(t *testing.T) {
	data, err := MarshalList([]Order{{ID: "a", Price: 1}, {ID: "b", Status: Delivered}})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"id":"a","customer":"","destination":"","event_name":"","item":"","price":1,"sent_at_second":0},
		{"id":"b","customer":"","destination":"","event_name":"DELIVERED","item":"","price":0,"sent_at_second":0}
	]`, string(data))

	data, err = MarshalList(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestCriteriaMatch(t *testing.T) {
	o, _ := Decode(sample)

	tests := []struct {
		name     string
		criteria Criteria
		want     bool
	}{
		{"price exact", Criteria{Price: 4775}, true},
		{"price mismatch", Criteria{Price: 477}, false},
		{"customer substring", Criteria{Customer: "Krie"}, true},
		{"destination substring", Criteria{Destination: "Fremont"}, true},
		{"status substring", Criteria{Status: "CREA"}, true},
		{"item mismatch", Criteria{Item: "pizza"}, false},
		{"all must match", Criteria{Price: 4775, Item: "pizza"}, false},
		{"inactive matches all", Criteria{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria.Match(&o))
		})
	}
}

func TestCriteriaSet(t *testing.T) {
	var c Criteria
	assert.False(t, c.Active())

	require.NoError(t, c.Set("price", " 4775.50 "))
	require.NoError(t, c.Set("status", "COOK"))
	assert.Equal(t, Criteria{Price: 4775, Status: "COOK"}, c)
	assert.True(t, c.Active())

	assert.ErrorIs(t, c.Set("price", "12a"), ErrInvalidPrice)
	assert.ErrorIs(t, c.Set("id", "x"), ErrUnknownField)

	require.NoError(t, c.Set("price", ""))
	assert.Equal(t, int64(0), c.Price)
}

func TestCriteriaKey(t *testing.T) {
	a := Criteria{Customer: "ab", Item: "c"}
	b := Criteria{Customer: "a", Item: "bc"}
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), Criteria{Customer: "ab", Item: "c"}.Key())
}

func TestDecodePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{`{"price":4775}`, 4775},
		{`{"price":47.75}`, 47},
		{`{"price":1e3}`, 1000},
		{`{"price":-3.9}`, -3},
	}
	for _, tt := range tests {
		o, err := Decode([]byte(tt.raw))
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, o.Price, tt.raw)
	}

	_, err := Decode([]byte(`{"price":true}`))
	assert.Error(t, err)
}
