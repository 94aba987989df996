package history

import (
	"context"

	"git.home.luguber.info/inful/rstprep/internal/pipeline"
)

// RecordReport stores a finished pipeline report; it lets a Store act as
// the pipeline's report sink.
func (s *Store) RecordReport(ctx context.Context, r *pipeline.Report) error {
	run := Run{
		ID:         r.RunID,
		StartedAt:  r.Started,
		FinishedAt: r.Finished,
		Outcome:    r.Outcome,
	}
	if r.Traversal != nil {
		run.Complete = r.Traversal.Complete
		run.Documents = r.Traversal.Processed.Len()
	}
	if r.Err != nil {
		run.Error = r.Err.Error()
	}
	return s.Record(ctx, run)
}

var _ pipeline.Recorder = (*Store)(nil)
