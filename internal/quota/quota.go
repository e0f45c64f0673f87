// Package quota computes storage usage of a board collection against plan limits.
//
// Per-image byte sizes were historically not tracked, so usage is an estimate:
// images without a recorded size count as AverageImageBytes. The result is a
// presentation hint only; it never gates mutations.
package quota

import (
	"strings"

	"moodboard-backend/internal/models"
)

const (
	// AverageImageBytes is the size assumed for images uploaded before sizes were recorded.
	AverageImageBytes int64 = 2 << 20

	nearLimitRatio = 0.8
)

const (
	TierFree    = "free"
	TierPremium = "premium"
)

type Plan struct {
	Tier              string `json:"tier"`
	MaxBoards         int    `json:"max_boards"`
	MaxImagesPerBoard int    `json:"max_images_per_board"`
	TotalStorageBytes int64  `json:"total_storage_bytes"`
}

var plans = map[string]Plan{
	TierFree: {
		Tier:              TierFree,
		MaxBoards:         3,
		MaxImagesPerBoard: 20,
		TotalStorageBytes: 100 << 20,
	},
	TierPremium: {
		Tier:              TierPremium,
		MaxBoards:         20,
		MaxImagesPerBoard: 100,
		TotalStorageBytes: 5 << 30,
	},
}

// PlanFor resolves a tier name; unknown tiers fall back to the free plan.
func PlanFor(tier string) Plan {
	if p, ok := plans[strings.ToLower(strings.TrimSpace(tier))]; ok {
		return p
	}
	return plans[TierFree]
}

type Snapshot struct {
	UsedBytes  int64  `json:"used_bytes"`
	TotalBytes int64  `json:"total_bytes"`
	ImageCount int    `json:"image_count"`
	MaxImages  int    `json:"max_images"`
	BoardCount int    `json:"board_count"`
	MaxBoards  int    `json:"max_boards"`
	PlanTier   string `json:"plan_tier"`
}

func ComputeUsage(boards []models.Board, plan Plan) Snapshot {
	s := Snapshot{
		TotalBytes: plan.TotalStorageBytes,
		MaxImages:  plan.MaxImagesPerBoard * plan.MaxBoards,
		BoardCount: len(boards),
		MaxBoards:  plan.MaxBoards,
		PlanTier:   plan.Tier,
	}
	for _, b := range boards {
		for _, img := range b.Images {
			s.ImageCount++
			if img.SizeBytes > 0 {
				s.UsedBytes += img.SizeBytes
			} else {
				s.UsedBytes += AverageImageBytes
			}
		}
	}
	return s
}

// UsagePercent is used/total in percent; a zero ceiling reads as 0.
func (s Snapshot) UsagePercent() float64 {
	if s.TotalBytes <= 0 {
		return 0
	}
	return float64(s.UsedBytes) / float64(s.TotalBytes) * 100
}

func (s Snapshot) IsNearLimit() bool {
	return s.TotalBytes > 0 && float64(s.UsedBytes) >= float64(s.TotalBytes)*nearLimitRatio
}

func (s Snapshot) IsOverLimit() bool {
	return s.TotalBytes > 0 && s.UsedBytes >= s.TotalBytes
}
