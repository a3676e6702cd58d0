// Package proto defines the enumerations carried in chart reports
package proto

// ReportReason says why a chart report was sent
type ReportReason int32

const (
	_ ReportReason = iota
	// OutOfControl is sent when an evaluation finds a violation after the chart was in control or unknown
	OutOfControl
	// Recovered is sent when a chart that was out of control evaluates clean
	Recovered
	// InControl is sent for the first evaluation of a chart that finds no violation
	InControl
)

var reasonNames = map[ReportReason]string{
	OutOfControl: "OutOfControl",
	Recovered:    "Recovered",
	InControl:    "InControl",
}

func (r ReportReason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return "ReportReason(unknown)"
}
