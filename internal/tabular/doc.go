// Package tabular extracts column projections from tabular rows and groups
// them into ordered classification trees.
//
// The package performs no I/O. A caller supplies a header and rows, either
// directly to [Build] or through a [RowSource] passed to [Extract], together
// with a [Spec] describing which columns to project, which columns classify
// the rows and which columns must be non-empty.
//
// # Pipeline
//
// Each row passes through four stages:
//
//  1. Column resolution: [Resolve] maps column names to header positions once
//     per pass. Names missing from the header stay resolvable as absent.
//  2. Filtering: rows whose width differs from the header, or whose required
//     or classification cells hold the empty string, are skipped.
//  3. Projection: [Project] extracts the requested cells in caller order,
//     substituting [Spec.Default] for absent columns.
//  4. Classification: projections are folded into a [Tree] keyed by the
//     classification columns, outermost first.
//
// # Example
//
//	res, err := tabular.Build(
//	    []string{"name", "team", "score"},
//	    [][]string{{"Alice", "A", "10"}, {"Bob", "B", "20"}, {"Cy", "A", "30"}},
//	    tabular.Spec{Columns: []string{"name", "score"}, Classify: []string{"team"}},
//	)
//	// res.Tree: {"A": [["Alice","10"],["Cy","30"]], "B": [["Bob","20"]]}
//
// # Errors
//
// Data-quality problems never fail a pass: the row is dropped and counted in
// [Result.Stats]. Only caller contract violations, such as a row shorter than
// a resolved column position ([ErrRowTooShort]), are returned as errors.
package tabular
