package sheets

import (
	"context"

	"wealthpillar/internal/core"
)

// PeriodReport is one closed budgeting period, ready for an external sink.
type PeriodReport struct {
	PersonID   string
	PersonName string
	Start      core.Date
	End        core.Date
	Spent      core.Money
}

// ReportWriter is the outbound port for closed period reports.
type ReportWriter interface {
	// AppendPeriodReport writes the report and returns a sink-specific
	// reference to the written row.
	AppendPeriodReport(ctx context.Context, r PeriodReport) (rowRef string, err error)
}
