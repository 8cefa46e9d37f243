package eodobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/trace"
)

type observableEodSummarizer struct {
	summarizer interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableEodSummarizer)(nil)

func Wrap(summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableEodSummarizer{summarizer: summarizer}
}

func (oes *observableEodSummarizer) SummarizeDay(t time.Time) (string, error) {
	ctx, span := trace.StartSpan(context.Background(), "eod.SummarizeDay")
	defer span.End()

	date := t.Format("2006-01-02")
	return oes.report(ctx, date, func() (string, error) { return oes.summarizer.SummarizeDay(t) })
}

func (oes *observableEodSummarizer) SummarizeToday() (string, error) {
	ctx, span := trace.StartSpan(context.Background(), "eod.SummarizeToday")
	defer span.End()

	return oes.report(ctx, "today", oes.summarizer.SummarizeToday)
}

func (oes *observableEodSummarizer) report(ctx context.Context, date string, run func() (string, error)) (string, error) {
	op := logger.StartOperation(ctx, "eod_summary", "date", date)

	csvPath, err := run()
	if err != nil {
		trace.RecordError(ctx, err)
		op.EndWithError(err)
		return "", err
	}
	if csvPath == "" {
		logger.InfoSkip(ctx, 2, "No fills recorded, no summary written", "date", date)
		op.End("written", false)
		return "", nil
	}

	trace.AddEvent(ctx, "eod.written", attribute.String("csv_path", csvPath))
	op.End("written", true, "csv_path", csvPath)
	return csvPath, nil
}

func (oes *observableEodSummarizer) ShouldRunNow() (bool, string) {
	ctx, span := trace.StartSpan(context.Background(), "eod.ShouldRunNow")
	defer span.End()

	shouldRun, csvPath := oes.summarizer.ShouldRunNow()
	logger.DebugSkip(ctx, 1, "End-of-day check", "should_run", shouldRun, "csv_path", csvPath)
	return shouldRun, csvPath
}
