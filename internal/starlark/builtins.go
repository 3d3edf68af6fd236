package starlark

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/leapstack-labs/rulehost/pkg/cst"
	"github.com/leapstack-labs/rulehost/pkg/linemap"
)

// Predeclared returns the globals every rule script sees:
//
//	loc        position helpers (line_starts, byte_offset, byte_span_to_loc,
//	           span_to_loc, point_to_loc)
//	cst_index  cst_index(ir=None) returns an index over a CST payload; with
//	           no argument it indexes the current request's payload
func Predeclared() starlark.StringDict {
	return starlark.StringDict{
		"loc": &starlarkstruct.Module{
			Name: "loc",
			Members: starlark.StringDict{
				"line_starts":      starlark.NewBuiltin("line_starts", locLineStarts),
				"byte_offset":      starlark.NewBuiltin("byte_offset", locByteOffset),
				"byte_span_to_loc": starlark.NewBuiltin("byte_span_to_loc", locByteSpanToLoc),
				"span_to_loc":      starlark.NewBuiltin("span_to_loc", locSpanToLoc),
				"point_to_loc":     starlark.NewBuiltin("point_to_loc", locPointToLoc),
			},
		},
		"cst_index": starlark.NewBuiltin("cst_index", cstIndex),
	}
}

func locLineStarts(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &text); err != nil {
		return nil, err
	}
	return GoToStarlark(linemap.ComputeLineStarts(text))
}

func locByteOffset(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text string
	var index int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "text", &text, "index", &index); err != nil {
		return nil, err
	}
	return starlark.MakeInt(linemap.ByteOffset(text, index)), nil
}

func locByteSpanToLoc(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var start, end int
	var startsVal starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "start", &start, "end", &end, "line_starts", &startsVal); err != nil {
		return nil, err
	}
	if startsVal == starlark.None {
		return nil, fmt.Errorf("%s: line_starts is required", b.Name())
	}
	starts, err := optionalInts(startsVal)
	if err != nil {
		return nil, fmt.Errorf("%s: line_starts: %w", b.Name(), err)
	}
	return locationValue(linemap.ByteSpanToLoc(start, end, starts)), nil
}

func locSpanToLoc(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text string
	var start, end int
	var startsVal starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "text", &text, "start", &start, "end", &end, "line_starts?", &startsVal); err != nil {
		return nil, err
	}
	starts, err := optionalInts(startsVal)
	if err != nil {
		return nil, fmt.Errorf("%s: line_starts: %w", b.Name(), err)
	}
	return locationValue(linemap.SpanToLoc(text, start, end, starts)), nil
}

func locPointToLoc(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text string
	var start int
	length := 1
	var startsVal starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "text", &text, "start", &start, "length?", &length, "line_starts?", &startsVal); err != nil {
		return nil, err
	}
	starts, err := optionalInts(startsVal)
	if err != nil {
		return nil, fmt.Errorf("%s: line_starts: %w", b.Name(), err)
	}
	return locationValue(linemap.PointToLoc(text, start, length, starts)), nil
}

func cstIndex(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var irVal starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "ir?", &irVal); err != nil {
		return nil, err
	}

	if irVal == starlark.None {
		req := requestFromThread(thread)
		if req == nil {
			return starlark.None, nil
		}
		idx, err := req.CST()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		if idx == nil {
			return starlark.None, nil
		}
		return newIndexValue(idx), nil
	}

	ir, err := decodeIR(irVal)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return newIndexValue(cst.NewIndex(ir)), nil
}

// locationValue returns a location as a dict, the shape violations carry.
func locationValue(l linemap.Location) starlark.Value {
	d := starlark.NewDict(4)
	_ = d.SetKey(starlark.String("line"), starlark.MakeInt(l.Line))
	_ = d.SetKey(starlark.String("col"), starlark.MakeInt(l.Col))
	_ = d.SetKey(starlark.String("end_line"), starlark.MakeInt(l.EndLine))
	_ = d.SetKey(starlark.String("end_col"), starlark.MakeInt(l.EndCol))
	return d
}

func optionalInts(v starlark.Value) ([]int, error) {
	if v == nil || v == starlark.None {
		return nil, nil
	}
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("got %s, want list of ints", v.Type())
	}
	out := []int{}
	iter := iterable.Iterate()
	defer iter.Done()
	var item starlark.Value
	for iter.Next(&item) {
		n, err := ToInt(item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
