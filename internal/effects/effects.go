// Package effects holds the side effects triggered by committed writes.
//
// Hook handlers here do no work themselves: each turns a WriteOperation into
// a typed jobs.Job and enqueues it, so the write that triggered it returns
// promptly. The job handlers run later on the jobs.Runner.
package effects

import (
	"context"
	"fmt"

	"github.com/roach88/hiscores/internal/hooks"
	"github.com/roach88/hiscores/internal/jobs"
	"github.com/roach88/hiscores/internal/model"
)

// Enqueuer accepts jobs. *jobs.Runner satisfies it.
type Enqueuer interface {
	Enqueue(job jobs.Job) error
}

// Register installs the default hook handlers on router.
func Register(router *hooks.Router, enq Enqueuer) error {
	regs := []struct {
		entity model.EntityType
		op     model.OperationKind
		h      hooks.Handler
	}{
		{model.EntitySnapshot, model.OpCreate, onSnapshotCreated(enq)},
		{model.EntityPlayer, model.OpUpdate, onPlayerUpdated(enq)},
		{model.EntityMembership, model.OpCreateMany, onMembersChanged(enq, jobs.KindMembersJoined)},
		{model.EntityMembership, model.OpDeleteMany, onMembersChanged(enq, jobs.KindMembersLeft)},
		{model.EntityParticipation, model.OpCreateMany, onParticipantsJoined(enq)},
		{model.EntityNameChange, model.OpUpdate, onNameChangeReviewed(enq)},
	}
	for _, r := range regs {
		if err := router.Register(r.entity, r.op, r.h); err != nil {
			return err
		}
	}
	return nil
}

func enqueue(enq Enqueuer, kind jobs.Kind, op model.WriteOperation, payload map[string]any) error {
	if err := enq.Enqueue(jobs.Job{Kind: kind, OperationID: op.ID, Payload: payload}); err != nil {
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return nil
}

func onSnapshotCreated(enq Enqueuer) hooks.Handler {
	return func(_ context.Context, op model.WriteOperation) error {
		row := op.Result.Row
		return enqueue(enq, jobs.KindSyncAchievements, op, map[string]any{
			"snapshot_id": row["id"],
			"player_id":   row["player_id"],
		})
	}
}

func onPlayerUpdated(enq Enqueuer) hooks.Handler {
	return func(_ context.Context, op model.WriteOperation) error {
		row := op.Result.Row
		return enqueue(enq, jobs.KindPlayerUpdated, op, map[string]any{
			"player_id": row["id"],
			"username":  row["username"],
			"changed":   op.Request.Data.Keys(),
		})
	}
}

// onMembersChanged enqueues one job per affected group. Joins carry the
// created rows; leaves carry the deleteMany filter.
func onMembersChanged(enq Enqueuer, kind jobs.Kind) hooks.Handler {
	return func(_ context.Context, op model.WriteOperation) error {
		if op.Result.Count == 0 {
			return nil
		}
		rows := op.Request.Rows
		if kind == jobs.KindMembersLeft {
			rows = []model.Row{op.Request.Where}
		}
		for _, g := range groupBy(rows, "group_id", "player_id") {
			if err := enqueue(enq, kind, op, map[string]any{
				"group_id":   g.key,
				"player_ids": g.members,
			}); err != nil {
				return err
			}
		}
		return nil
	}
}

func onParticipantsJoined(enq Enqueuer) hooks.Handler {
	return func(_ context.Context, op model.WriteOperation) error {
		if op.Result.Count == 0 {
			return nil
		}
		for _, g := range groupBy(op.Request.Rows, "competition_id", "player_id") {
			if err := enqueue(enq, jobs.KindParticipantsJoined, op, map[string]any{
				"competition_id": g.key,
				"player_ids":     g.members,
			}); err != nil {
				return err
			}
		}
		return nil
	}
}

func onNameChangeReviewed(enq Enqueuer) hooks.Handler {
	return func(_ context.Context, op model.WriteOperation) error {
		row := op.Result.Row
		payload := map[string]any{
			"name_change_id": row["id"],
			"status":         row["status"],
		}
		if outcome, ok := row["review_context"].(*model.ReviewOutcome); ok && outcome != nil {
			payload["review_kind"] = string(outcome.Kind)
			payload["review_reason"] = outcome.Reason
		}
		return enqueue(enq, jobs.KindNameChangeReviewed, op, payload)
	}
}

type group struct {
	key     any
	members []any
}

// groupBy buckets rows by their key column, collecting member values. A row
// whose member column is a slice contributes every element. Groups and
// members keep first-seen order.
func groupBy(rows []model.Row, keyCol, memberCol string) []group {
	index := make(map[string]int)
	var out []group
	for _, r := range rows {
		k := fmt.Sprint(r[keyCol])
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, group{key: r[keyCol]})
		}
		switch m := r[memberCol].(type) {
		case nil:
		case []any:
			out[i].members = append(out[i].members, m...)
		case []int64:
			for _, v := range m {
				out[i].members = append(out[i].members, v)
			}
		default:
			out[i].members = append(out[i].members, m)
		}
	}
	return out
}
