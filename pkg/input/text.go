package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadText reads one sample per line, either `value` or `label,value`.  Blank lines and lines starting with #
// are skipped.  A value that does not parse as a number fails with ErrInvalidInputFormat and the line number.
func ReadText(r io.Reader) (*LabeledSequence, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	seq := &LabeledSequence{}
	labeled := false
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInputFormat, err)
		}
		line, _ := cr.FieldPos(0)

		var label, raw string
		switch len(rec) {
		case 1:
			raw = rec[0]
		case 2:
			label, raw = strings.TrimSpace(rec[0]), rec[1]
			labeled = true
		default:
			return nil, fmt.Errorf("%w: line %d: expected value or label,value, got %d fields", ErrInvalidInputFormat, line, len(rec))
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %q is not a number", ErrInvalidInputFormat, line, raw)
		}
		seq.Labels = append(seq.Labels, label)
		seq.Values = append(seq.Values, v)
	}
	if !labeled {
		seq.Labels = nil
	}
	return seq, nil
}
