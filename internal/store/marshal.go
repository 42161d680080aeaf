package store

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/modelq/internal/ir"
)

// encodeBody serializes a column-keyed record as msgpack.
// Map keys are sorted so identical records produce identical bytes.
func encodeBody(row ir.Object) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(ir.ToAny(row)); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeBody is the inverse of encodeBody.
//
// Loose interface decoding yields int64/uint64/float64 instead of the
// narrowest Go type, which ir.FromAny maps back onto Int and Float.
func decodeBody(data []byte) (ir.Object, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	v, err := ir.FromAny(raw)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("decode body: expected object, got %s", ir.KindOf(v))
	}
	return obj, nil
}
