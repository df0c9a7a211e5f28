package effects

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/hiscores/internal/jobs"
	"github.com/roach88/hiscores/internal/model"
)

// Client is the data access the job handlers need. *access.Client
// satisfies it.
type Client interface {
	Write(ctx context.Context, req model.WriteRequest) (model.Result, error)
	ReadOne(ctx context.Context, req model.ReadRequest) (model.Row, error)
}

// Achievement is a threshold on one snapshot field.
type Achievement struct {
	Name      string
	Metric    string
	Field     string
	Threshold float64
}

// Achievements lists the thresholds checked on every new snapshot.
var Achievements = []Achievement{
	{"100m Overall Exp.", "overall", "overall_experience", 100_000_000},
	{"200m Overall Exp.", "overall", "overall_experience", 200_000_000},
	{"500m Overall Exp.", "overall", "overall_experience", 500_000_000},
	{"1b Overall Exp.", "overall", "overall_experience", 1_000_000_000},
	{"2b Overall Exp.", "overall", "overall_experience", 2_000_000_000},
	{"4.6b Overall Exp.", "overall", "overall_experience", 4_600_000_000},
	{"100 EHP", "ehp", "ehp_value", 100},
	{"500 EHP", "ehp", "ehp_value", 500},
	{"1k EHP", "ehp", "ehp_value", 1_000},
	{"5k EHP", "ehp", "ehp_value", 5_000},
	{"10k EHP", "ehp", "ehp_value", 10_000},
	{"100 EHB", "ehb", "ehb_value", 100},
	{"500 EHB", "ehb", "ehb_value", 500},
	{"1k EHB", "ehb", "ehb_value", 1_000},
	{"5k EHB", "ehb", "ehb_value", 5_000},
	{"10k EHB", "ehb", "ehb_value", 10_000},
}

// RegisterJobs installs the job handlers on runner.
func RegisterJobs(runner *jobs.Runner, client Client) error {
	handlers := map[jobs.Kind]jobs.Func{
		jobs.KindSyncAchievements:   syncAchievements(client),
		jobs.KindPlayerUpdated:      logJob("player updated", "player_id", "username", "changed"),
		jobs.KindMembersJoined:      logJob("group members joined", "group_id", "player_ids"),
		jobs.KindMembersLeft:        logJob("group members left", "group_id", "player_ids"),
		jobs.KindParticipantsJoined: logJob("competition participants joined", "competition_id", "player_ids"),
		jobs.KindNameChangeReviewed: logJob("name change reviewed", "name_change_id", "status", "review_kind", "review_reason"),
	}
	for kind, fn := range handlers {
		if err := runner.Handle(kind, fn); err != nil {
			return err
		}
	}
	return nil
}

// syncAchievements records every threshold the snapshot reaches. Existing
// achievements are kept, so a player is credited once with the earliest
// snapshot's timestamp.
func syncAchievements(client Client) jobs.Func {
	return func(ctx context.Context, job jobs.Job) error {
		snapshot, err := client.ReadOne(ctx, model.ReadRequest{
			Entity: model.EntitySnapshot,
			Where:  model.Row{"id": job.Payload["snapshot_id"]},
		})
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		if snapshot == nil {
			return fmt.Errorf("snapshot %v not found", job.Payload["snapshot_id"])
		}

		reached := Reached(snapshot)
		if len(reached) == 0 {
			return nil
		}

		rows := make([]model.Row, len(reached))
		for i, a := range reached {
			rows[i] = model.Row{
				"player_id":  snapshot["player_id"],
				"name":       a.Name,
				"metric":     a.Metric,
				"threshold":  int64(a.Threshold),
				"created_at": snapshot["created_at"],
			}
		}
		res, err := client.Write(ctx, model.WriteRequest{
			Entity:         model.EntityAchievement,
			Operation:      model.OpCreateMany,
			Rows:           rows,
			SkipDuplicates: true,
		})
		if err != nil {
			return fmt.Errorf("write achievements: %w", err)
		}
		slog.Info("achievements synced",
			"player_id", snapshot["player_id"],
			"snapshot_id", snapshot["id"],
			"new", res.Count,
		)
		return nil
	}
}

// Reached returns the achievements whose threshold the decoded snapshot row
// meets. Fields missing from the row reach nothing.
func Reached(snapshot model.Row) []Achievement {
	var out []Achievement
	for _, a := range Achievements {
		v, ok := snapshot[a.Field].(float64)
		if ok && v >= a.Threshold {
			out = append(out, a)
		}
	}
	return out
}

// logJob reports a job's payload to the operator log. These events are
// consumed by subsystems outside this module.
func logJob(msg string, keys ...string) jobs.Func {
	return func(_ context.Context, job jobs.Job) error {
		args := []any{"operation_id", job.OperationID}
		for _, k := range keys {
			if v, ok := job.Payload[k]; ok {
				args = append(args, k, v)
			}
		}
		slog.Info(msg, args...)
		return nil
	}
}
