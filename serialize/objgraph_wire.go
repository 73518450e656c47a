package serialize

import (
	"reflect"

	"github.com/wudi/continuum/values"
)

// arrayIdentity is the encode-side key BinaryCodec/JSONCodec register an
// AnyValue array under with objgraph.Tracker: the backing array's pointer,
// so two KindArray values sharing the same underlying []values.Value (e.g.
// the same slice placed in more than one frame slot) round-trip as the same
// object rather than being duplicated on the wire. A nil/empty slice has no
// address worth sharing, so it's always registered fresh.
func arrayIdentity(elements []values.Value) any {
	if len(elements) == 0 {
		return new(struct{})
	}
	return reflect.ValueOf(elements).Pointer()
}
