// Package dataset loads training examples from disk.
package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/linear-ml/sdca/internal/solver"
)

// LoadLibSVM reads examples in LibSVM format: one example per line,
//
//	label index:value index:value ...
//
// with non-negative integer feature indices. Text after '#' is a
// comment; blank lines are skipped. All features land in a single
// sparse column, example weights are 1, and line numbers become example
// ids. Returns the examples and the column size (max index + 1).
func LoadLibSVM(path string) ([]solver.Example, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var examples []solver.Example
	numFeatures := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		label, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: invalid label %q: %w", lineNo, fields[0], err)
		}

		var col solver.SparseColumn
		for _, f := range fields[1:] {
			idxStr, valStr, ok := strings.Cut(f, ":")
			if !ok {
				return nil, 0, fmt.Errorf("line %d: invalid feature %q, want index:value", lineNo, f)
			}
			idx, err := strconv.Atoi(idxStr)
			if err != nil || idx < 0 {
				return nil, 0, fmt.Errorf("line %d: invalid feature index %q", lineNo, idxStr)
			}
			val, err := strconv.ParseFloat(valStr, 64)
			if err != nil {
				return nil, 0, fmt.Errorf("line %d: invalid feature value %q: %w", lineNo, valStr, err)
			}
			if idx+1 > numFeatures {
				numFeatures = idx + 1
			}
			col.Indices = append(col.Indices, idx)
			col.Values = append(col.Values, val)
		}

		examples = append(examples, solver.Example{
			SparseFeatures: []solver.SparseColumn{col},
			Weight:         1,
			Label:          label,
			ID:             strconv.Itoa(lineNo),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return examples, numFeatures, nil
}

// NormalizeBinaryLabels rewrites the conventional LibSVM -1 labels to 0
// in place, the domain the classification losses expect. Other labels
// are left alone.
func NormalizeBinaryLabels(examples []solver.Example) {
	for i := range examples {
		if examples[i].Label == -1 {
			examples[i].Label = 0
		}
	}
}
