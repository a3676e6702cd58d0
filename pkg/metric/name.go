package metric

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-logfmt/logfmt"
)

// Name identifies a control chart.  Charts are named after the measured quantity, e.g. fill_weight_grams, and
// carry labels that say where the samples came from.  Names are marshalled with a bracketed logfmt suffix, e.g.
// fill_weight_grams[line=3 source=weights.csv]
type Name struct {
	name   string
	labels map[string]string
}

// NewName returns a chart name with a copy of labels
func NewName(name string, labels map[string]string) Name {
	n := Name{name: name, labels: make(map[string]string, len(labels))}
	for k, v := range labels {
		n.labels[k] = v
	}
	return n
}

// Base returns the name without labels
func (n Name) Base() string {
	return n.name
}

// Labels returns a copy of the labels
func (n Name) Labels() map[string]string {
	out := make(map[string]string, len(n.labels))
	for k, v := range n.labels {
		out[k] = v
	}
	return out
}

// With returns a new name with labels upserted
func (n Name) With(labels map[string]string) Name {
	out := NewName(n.name, n.labels)
	for k, v := range labels {
		out.labels[k] = v
	}
	return out
}

// String marshals the name, e.g. fill_weight_grams[line=3 source=weights.csv].  Labels with keys that are not
// valid logfmt keys are left out.
func (n Name) String() string {
	b, err := MarshalLabels(n.labels)
	if err != nil {
		return n.name
	}
	return n.name + string(b)
}

// MarshalLabels encodes labels as logfmt pairs in sorted key order enclosed in brackets.  A pair whose key is
// empty or contains a space, control character, '=', '"' or invalid UTF-8 is skipped.  No encodable labels
// encode to an empty string.
func MarshalLabels(labels map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		if validKey(k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return []byte{}, nil
	}
	sort.Strings(keys)

	var b bytes.Buffer
	b.WriteByte('[')
	e := logfmt.NewEncoder(&b)
	for _, k := range keys {
		if err := e.EncodeKeyval(k, labels[k]); err != nil {
			return nil, fmt.Errorf("failed to encode label %s=%s: %w", k, labels[k], err)
		}
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}

func validKey(k string) bool {
	if k == "" {
		return false
	}
	return strings.IndexFunc(k, invalidKeyRune) == -1
}

func invalidKeyRune(r rune) bool {
	return r <= ' ' || r == '=' || r == '"' || r == utf8.RuneError
}
