// Package sink writes extraction results back out as rows.
package sink

import "github.com/JonMunkholm/tabclass/internal/tabular"

// Rows flattens a result into output rows.
//
// An unclassified result yields one row per projection. A classified result
// yields one row per leaf projection with the key path inserted at
// classifyIndex, outermost key first. The index is clamped to the row length.
func Rows(res *tabular.Result, classifyIndex int) [][]string {
	if !res.Classified() {
		out := make([][]string, len(res.Rows))
		for i, p := range res.Rows {
			out[i] = append([]string(nil), p...)
		}
		return out
	}

	var out [][]string
	_ = res.Tree.Walk(func(path []string, items []tabular.Projection) error {
		for _, p := range items {
			out = append(out, insertAt(p, path, classifyIndex))
		}
		return nil
	})
	return out
}

// Title builds the header row for Rows: the projected column names with the
// classification names inserted at classifyIndex.
func Title(columns, classify []string, classifyIndex int) []string {
	return insertAt(columns, classify, classifyIndex)
}

func insertAt(row, keys []string, at int) []string {
	if at < 0 {
		at = 0
	}
	if at > len(row) {
		at = len(row)
	}

	out := make([]string, 0, len(row)+len(keys))
	out = append(out, row[:at]...)
	out = append(out, keys...)
	out = append(out, row[at:]...)
	return out
}
