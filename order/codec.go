package order

import (
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

// Merge overlays the fields present in the JSON object raw onto o. Fields
// absent from raw, or null in raw, keep their current value.
func (o *Order) Merge(raw []byte) error {
	return o.UnmarshalJSON(raw)
}

// Decode parses a single JSON object into a new Order.
func Decode(raw []byte) (Order, error) {
	var o Order
	err := o.UnmarshalJSON(raw)
	return o, err
}

// AppendList writes orders as a JSON array.
func AppendList(w *jwriter.Writer, orders []Order) {
	w.RawByte('[')
	for i := range orders {
		if i > 0 {
			w.RawByte(',')
		}
		orders[i].MarshalEasyJSON(w)
	}
	w.RawByte(']')
}

func MarshalList(orders []Order) ([]byte, error) {
	var w jwriter.Writer
	AppendList(&w, orders)
	return w.BuildBytes()
}

// readPrice accepts any JSON number. A fractional price keeps its integer
// part, the same way search input is parsed.
func readPrice(in *jlexer.Lexer) int64 {
	n := in.JsonNumber()
	if !in.Ok() {
		return 0
	}
	if v, err := n.Int64(); err == nil {
		return v
	}
	f, err := n.Float64()
	if err != nil {
		in.AddError(err)
		return 0
	}
	return int64(f)
}
