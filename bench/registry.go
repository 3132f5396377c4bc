package bench

import (
	"fmt"

	"github.com/weiihann/fsbench/workload"
)

var (
	registry = map[string]Variant{}
	names    []string
)

func init() {
	for _, style := range []Style{Direct, Buffered, Incremental, SmallFiles} {
		for _, order := range workload.Orders() {
			for _, op := range []Op{Write, Update, Read} {
				name := fmt.Sprintf("%s%s_%s", style.Prefix(), op, order)
				registry[name] = Variant{
					Name:  name,
					Op:    op,
					Order: order,
					Style: style,
				}
				names = append(names, name)
			}
		}
	}
}

// Lookup resolves a mode name. Unknown names yield a *UsageError wrapping
// ErrUnknownMode.
func Lookup(name string) (Variant, error) {
	v, ok := registry[name]
	if !ok {
		return Variant{}, &UsageError{Err: fmt.Errorf("%w %q", ErrUnknownMode, name)}
	}

	return v, nil
}

// Names returns every registered mode in registration order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)

	return out
}
