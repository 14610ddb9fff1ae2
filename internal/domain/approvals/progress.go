package approvals

import (
	"context"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	ierr "github.com/koshtony/beezy-beta/internal/errors"
)

// Summarize aggregates the records of one workflow. Total counts distinct
// levels observed; a level counts as approved once it has cleared under p.
func Summarize(records []Record, p Policy) Progress {
	byLevel := lo.GroupBy(records, func(r Record) int { return r.Level })

	progress := Progress{TotalLevels: len(byLevel)}
	for _, recs := range byLevel {
		if lo.SomeBy(recs, func(r Record) bool { return r.Status == StatusRejected }) {
			progress.HasRejection = true
			continue
		}
		if levelCleared(recs, p) {
			progress.Approved++
		}
	}

	if progress.TotalLevels > 0 {
		progress.Percent = decimal.NewFromInt(int64(progress.Approved)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(progress.TotalLevels))).
			Round(1).
			InexactFloat64()
	}

	switch {
	case progress.HasRejection:
		progress.Status = ProgressRejected
	case progress.TotalLevels > 0 && progress.Approved == progress.TotalLevels:
		progress.Status = ProgressFullyApproved
	default:
		progress.Status = ProgressInProgress
	}
	return progress
}

func levelCleared(recs []Record, p Policy) bool {
	counts := lo.CountValuesBy(recs, func(r Record) string { return r.Status })
	if counts[StatusRejected] > 0 {
		return false
	}
	if counts[StatusApproved] > 0 {
		return p.clearsOnFirstApproval() || counts[StatusPending] == 0
	}
	// A level of notify-only approvers clears as soon as it opens.
	return counts[StatusPending] == 0 && counts[StatusNotified] > 0 && counts[StatusCancelled] == 0
}

// Progress reports the aggregate state of the workflow running for target.
func (e *Engine) Progress(ctx context.Context, target Target) (Progress, error) {
	if err := validateTarget(target); err != nil {
		return Progress{}, err
	}
	records, err := e.store.ListTargetRecords(ctx, target)
	if err != nil {
		return Progress{}, err
	}
	if len(records) == 0 {
		return Progress{}, ierr.NewError("no approval records").
			WithHintf("no approval records for %s", target).
			Mark(ierr.ErrNotFound)
	}

	// Records are ordered by creation, so the first one names the workflow.
	typ, err := e.store.GetType(ctx, records[0].ApprovalTypeID)
	if err != nil {
		return Progress{}, err
	}
	records = lo.Filter(records, func(r Record, _ int) bool { return r.ApprovalTypeID == typ.ID })

	flows, err := e.store.ListFlows(ctx, typ.ID)
	if err != nil {
		return Progress{}, err
	}

	progress := Summarize(records, e.policy)
	progress.ApprovalType = typ.Name
	progress.Target = target
	progress.Records = records
	progress.Timeline = e.timeline(ctx, flows, records)
	return progress, nil
}

func (e *Engine) timeline(ctx context.Context, flows []Flow, records []Record) []Stage {
	byLevel := lo.GroupBy(records, func(r Record) int { return r.Level })
	activeLevels := lo.FilterMap(flows, func(f Flow, _ int) (int, bool) { return f.Level, f.IsActive })
	levels := lo.Uniq(append(activeLevels, lo.Keys(byLevel)...))
	sort.Ints(levels)

	names := map[string]string{}
	stages := make([]Stage, 0, len(levels))
	for _, level := range levels {
		recs := byLevel[level]
		stage := Stage{Level: level, Status: stageStatus(recs, e.policy), Approvers: []StageApprover{}}
		for _, rec := range recs {
			name, ok := names[rec.ApproverID]
			if !ok {
				name = e.displayName(ctx, rec.ApproverID)
				names[rec.ApproverID] = name
			}
			stage.Approvers = append(stage.Approvers, StageApprover{
				RecordID:   rec.ID,
				ApproverID: rec.ApproverID,
				Name:       name,
				Status:     rec.Status,
				Comment:    rec.Comment,
				DecidedAt:  rec.ApprovedAt,
			})
		}
		stages = append(stages, stage)
	}
	return stages
}

func stageStatus(recs []Record, p Policy) string {
	if len(recs) == 0 {
		return StageUpcoming
	}
	counts := lo.CountValuesBy(recs, func(r Record) string { return r.Status })
	switch {
	case counts[StatusRejected] > 0:
		return StageRejected
	case levelCleared(recs, p) && counts[StatusApproved] > 0:
		return StageApproved
	case counts[StatusPending] > 0:
		return StagePending
	case counts[StatusNotified] == len(recs):
		return StageNotified
	default:
		return StageCancelled
	}
}
