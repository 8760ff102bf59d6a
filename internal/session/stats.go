package session

import (
	"slices"
	"strconv"
)

// Votes further apart than this trigger min/max outlier reporting.
const outlierSpread = 2

type Stats struct {
	Votes    map[string]string `json:"votes"`
	Average  float64           `json:"average"`
	Median   float64           `json:"median"`
	MinVoter string            `json:"minVoter,omitempty"`
	MaxVoter string            `json:"maxVoter,omitempty"`
}

// Summarize computes the reveal statistics for the current vote set. Tokens
// that don't parse as numbers ("?", "pass") stay in the raw vote map but are
// excluded from the numeric aggregates.
func Summarize(s Session) Stats {
	nums := make([]float64, 0, len(s.Votes))
	for _, raw := range s.Votes {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			nums = append(nums, v)
		}
	}
	slices.Sort(nums)

	stats := Stats{Votes: s.Votes}
	if len(nums) == 0 {
		return stats
	}

	sum := 0.0
	for _, v := range nums {
		sum += v
	}
	stats.Average = sum / float64(len(nums))

	mid := len(nums) / 2
	if len(nums)%2 == 1 {
		stats.Median = nums[mid]
	} else {
		stats.Median = (nums[mid-1] + nums[mid]) / 2
	}

	if len(nums) > 1 {
		min, max := nums[0], nums[len(nums)-1]
		if max-min > outlierSpread {
			// Scan members in join order so a tie on the extreme value
			// resolves to the last matching voter deterministically; map
			// iteration order would make this flap between reveals.
			for _, m := range s.Members {
				raw, ok := s.Votes[m.UserID]
				if !ok {
					continue
				}
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					continue
				}
				if v == min {
					stats.MinVoter = m.UserID
				}
				if v == max {
					stats.MaxVoter = m.UserID
				}
			}
		}
	}
	return stats
}

// HasConsensus reports whether every recorded vote is the same raw token and
// everyone in the session has voted. The member count includes spectators, so
// a spectator who never votes suppresses consensus.
func HasConsensus(s Session) bool {
	if len(s.Votes) == 0 || len(s.Votes) != len(s.Members) {
		return false
	}
	distinct := make(map[string]struct{}, len(s.Votes))
	for _, raw := range s.Votes {
		distinct[raw] = struct{}{}
	}
	return len(distinct) == 1
}
