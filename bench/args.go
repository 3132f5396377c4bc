package bench

import (
	"strconv"
)

// ParseArgs interprets `<mode> <size> [block_size] [run]`. The mode is
// resolved before any number is parsed; a missing block_size is a usage
// error because every variant needs one.
func ParseArgs(args []string) (Variant, Params, error) {
	if len(args) < 2 || len(args) > 4 {
		return Variant{}, Params{}, usagef("expected <mode> <size> [block_size] [run], got %d arguments", len(args))
	}

	v, err := Lookup(args[0])
	if err != nil {
		return Variant{}, Params{}, err
	}

	var p Params

	p.Size, err = strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return Variant{}, Params{}, usagef("can't parse size %q", args[1])
	}

	if len(args) < 3 {
		return Variant{}, Params{}, usagef("block_size is required for %s", v.Name)
	}

	block, err := strconv.ParseUint(args[2], 10, strconv.IntSize-1)
	if err != nil || block == 0 {
		return Variant{}, Params{}, usagef("can't parse block_size %q", args[2])
	}

	p.BlockSize = int(block)

	if len(args) == 4 {
		run, err := strconv.ParseUint(args[3], 10, 32)
		if err != nil {
			return Variant{}, Params{}, usagef("can't parse run %q", args[3])
		}

		p.Run = uint32(run)
	}

	return v, p, nil
}
