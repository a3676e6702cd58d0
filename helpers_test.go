package nelson

import (
	"testing"

	"github.com/stretchr/testify/mock"
)

// quietT drops the log output of the mock package and passes failures through
type quietT struct {
	t *testing.T
}

func (q quietT) Logf(format string, args ...interface{}) {}

func (q quietT) Errorf(format string, args ...interface{}) {
	q.t.Errorf(format, args...)
}

func (q quietT) FailNow() {
	q.t.FailNow()
}

func silenceT(t *testing.T) mock.TestingT {
	return quietT{t}
}
