package script

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"docweave/mdfmt"
)

// Predeclared returns the environment available to generator files. The md
// module mirrors the mdfmt helper library:
//
//	md.table(headers, rows, alignment="l")
//	md.header(text, level=1)
//	md.ordered_list(items) / md.unordered_list(items)
//	md.link(url, text=None)
func Predeclared() starlark.StringDict {
	return starlark.StringDict{
		"md": &starlarkstruct.Module{
			Name: "md",
			Members: starlark.StringDict{
				"table":          starlark.NewBuiltin("md.table", mdTable),
				"header":         starlark.NewBuiltin("md.header", mdHeader),
				"ordered_list":   starlark.NewBuiltin("md.ordered_list", mdOrderedList),
				"unordered_list": starlark.NewBuiltin("md.unordered_list", mdUnorderedList),
				"link":           starlark.NewBuiltin("md.link", mdLink),
			},
		},
	}
}

func mdTable(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var headersV, rowsV, alignmentV starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"headers", &headersV, "rows", &rowsV, "alignment?", &alignmentV); err != nil {
		return nil, err
	}

	headers, err := stringSlice(headersV)
	if err != nil {
		return nil, fmt.Errorf("%s: headers: %w", b.Name(), err)
	}

	var rows [][]string
	it := starlark.Iterate(rowsV)
	if it == nil {
		return nil, fmt.Errorf("%s: rows: got %s, want iterable", b.Name(), rowsV.Type())
	}
	defer it.Done()
	var rowV starlark.Value
	for it.Next(&rowV) {
		row, err := stringSlice(rowV)
		if err != nil {
			return nil, fmt.Errorf("%s: row: %w", b.Name(), err)
		}
		rows = append(rows, row)
	}

	aligns, err := alignments(alignmentV)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}

	out, err := mdfmt.Table(headers, rows, aligns...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.String(out), nil
}

func alignments(v starlark.Value) ([]mdfmt.Alignment, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := starlark.AsString(v); ok {
		a, err := mdfmt.ParseAlignment(s)
		if err != nil {
			return nil, err
		}
		return []mdfmt.Alignment{a}, nil
	}
	specs, err := stringSlice(v)
	if err != nil {
		return nil, err
	}
	aligns := make([]mdfmt.Alignment, len(specs))
	for i, s := range specs {
		a, err := mdfmt.ParseAlignment(s)
		if err != nil {
			return nil, err
		}
		aligns[i] = a
	}
	return aligns, nil
}

func mdHeader(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text string
	level := 1
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "text", &text, "level?", &level); err != nil {
		return nil, err
	}
	return starlark.String(mdfmt.Header(text, level)), nil
}

func mdOrderedList(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	items, err := unpackItems(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	return starlark.String(mdfmt.OrderedList(items)), nil
}

func mdUnorderedList(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	items, err := unpackItems(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	return starlark.String(mdfmt.UnorderedList(items)), nil
}

func unpackItems(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) ([]mdfmt.ListItem, error) {
	var itemsV starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "items", &itemsV); err != nil {
		return nil, err
	}
	items, err := listItems(itemsV)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return items, nil
}

// listItems converts a Starlark list of strings and nested lists into list
// items. A nested list becomes the children of the item preceding it, i.e.
// ["a", ["b"]] renders "b" one level beneath "a".
func listItems(v starlark.Value) ([]mdfmt.ListItem, error) {
	it := starlark.Iterate(v)
	if it == nil {
		return nil, fmt.Errorf("got %s, want iterable", v.Type())
	}
	defer it.Done()

	var items []mdfmt.ListItem
	var elem starlark.Value
	for it.Next(&elem) {
		if s, ok := starlark.AsString(elem); ok {
			items = append(items, mdfmt.ListItem{Text: s})
			continue
		}
		sub, err := listItems(elem)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			items = append(items, sub...)
			continue
		}
		last := &items[len(items)-1]
		last.Children = append(last.Children, sub...)
	}
	return items, nil
}

func mdLink(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var url, text string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "url", &url, "text?", &text); err != nil {
		return nil, err
	}
	return starlark.String(mdfmt.Link(url, text)), nil
}

func stringSlice(v starlark.Value) ([]string, error) {
	if v == nil {
		return nil, fmt.Errorf("got none, want iterable of strings")
	}
	it := starlark.Iterate(v)
	if it == nil {
		return nil, fmt.Errorf("got %s, want iterable of strings", v.Type())
	}
	defer it.Done()

	var out []string
	var elem starlark.Value
	for it.Next(&elem) {
		s, ok := starlark.AsString(elem)
		if !ok {
			return nil, fmt.Errorf("got %s element, want string", elem.Type())
		}
		out = append(out, s)
	}
	return out, nil
}
