package videos

import (
	"math"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/domain/videos"
	"github.com/yungbote/videoguard-backend/internal/pkg/dbctx"
)

type StateCount struct {
	State   moderation.JobState `json:"state"`
	Count   int64               `json:"count"`
	Percent float64             `json:"percent"`
}

type Stats struct {
	Total  int64        `json:"total"`
	States []StateCount `json:"states"`
}

func (s Stats) Count(state moderation.JobState) int64 {
	for _, c := range s.States {
		if c.State == state {
			return c.Count
		}
	}
	return 0
}

// Stats counts videos per job state. Every known state is listed, in lifecycle order.
func (r *videoRepo) Stats(dbc dbctx.Context) (Stats, error) {
	var rows []struct {
		State string
		N     int64
	}
	if err := dbc.DB(r.db).
		Model(&videos.Video{}).
		Select("state, COUNT(*) AS n").
		Group("state").
		Scan(&rows).Error; err != nil {
		return Stats{}, err
	}
	counts := map[moderation.JobState]int64{}
	var total int64
	for _, row := range rows {
		counts[moderation.JobState(row.State)] += row.N
		total += row.N
	}
	out := Stats{Total: total, States: make([]StateCount, 0, len(moderation.AllJobStates))}
	for _, s := range moderation.AllJobStates {
		c := StateCount{State: s, Count: counts[s]}
		if total > 0 {
			c.Percent = math.Round(float64(c.Count)*10000/float64(total)) / 100
		}
		out.States = append(out.States, c)
	}
	return out, nil
}
