package gamification

// XP award amounts for session milestones. Earned XP grows the garden plant
// through its stages.
const (
	xpPerStage = 500
	maxStage   = 10

	XPSessionStarted   = 5
	XPSessionCompleted = 25
	XPStreakDay        = 40
	XPNewDuration      = 30
	XPNewRoom          = 50
	XPWeeklyChallenge  = 150
)

// AchievementXP returns the XP award for unlocking an achievement of the given tier.
func AchievementXP(tier Tier) int {
	switch tier {
	case TierBronze:
		return 50
	case TierSilver:
		return 100
	case TierGold:
		return 150
	case TierPlatinum:
		return 200
	default:
		return 50
	}
}

// Garden tracks the plant-growth progression.
type Garden struct {
	Stage int `json:"stage"`
	XP    int `json:"xp"`
}

// GardenProgress describes the plant's current position for display.
type GardenProgress struct {
	Stage       int      `json:"stage"`
	StageName   string   `json:"stageName"`
	XP          int      `json:"xp"`
	Pct         float64  `json:"pct"`         // progress within current stage, 0.0–1.0
	Decorations []string `json:"decorations"` // garden decorations unlocked at current stage
}

// awardXP adds amount to g.XP and advances the stage as thresholds are crossed.
//
// Stage cost model (uniform): every stage costs exactly xpPerStage XP. The
// cumulative XP threshold to reach stage N is (N-1)*xpPerStage. The loop
// compares cumulative XP against g.Stage*xpPerStage because g.Stage is the
// current stage before increment, so the threshold for advancing FROM stage
// S is S*xpPerStage.
//
// It is called inside the Tracker mutex; callers must not acquire it again.
func awardXP(g *Garden, amount int) {
	g.XP += amount
	g.Stage = max(g.Stage, 1)
	for g.Stage < maxStage && g.XP >= g.Stage*xpPerStage {
		g.Stage++
	}
}

// getProgress computes the display-ready progress for g.
//
// Within-stage progress: (XP - cumulativeThreshold) / xpPerStage, where
// cumulativeThreshold = (stage-1)*xpPerStage. This gives 0.0 at the start
// of the stage and 1.0 at the threshold for the next stage. At maxStage,
// progress is always 1.0 (the plant is fully grown).
func getProgress(g *Garden) GardenProgress {
	stage := max(min(g.Stage, maxStage), 1)

	pct := 1.0
	if stage < maxStage {
		pct = min(max(float64(g.XP-(stage-1)*xpPerStage)/float64(xpPerStage), 0), 1)
	}

	return GardenProgress{
		Stage:       stage,
		StageName:   stageName(stage),
		XP:          g.XP,
		Pct:         pct,
		Decorations: stageDecorations(stage),
	}
}

// stageName returns the display name for a growth stage.
func stageName(stage int) string {
	names := []string{
		"seed", "sprout", "seedling", "sapling", "budding",
		"blooming", "flourishing", "verdant", "radiant", "ancient",
	}
	if stage < 1 || stage > len(names) {
		return "seed"
	}
	return names[stage-1]
}

// stageDecorations returns the garden decorations unlocked at the given
// stage. Stage 1 is the entry stage with no decorations.
func stageDecorations(stage int) []string {
	switch stage {
	case 1:
		return []string{}
	case 2:
		return []string{"clay_pot"}
	case 3:
		return []string{"pebble_border"}
	case 4:
		return []string{"watering_can"}
	case 5:
		return []string{"glazed_pot"}
	case 6:
		return []string{"garden_gnome"}
	case 7:
		return []string{"fairy_lights"}
	case 8:
		return []string{"butterfly"}
	case 9:
		return []string{"fountain"}
	case 10:
		return []string{"golden_trellis", "songbird"}
	default:
		return []string{}
	}
}

// GardenProgress returns a snapshot of the current garden progress.
func (t *Tracker) GardenProgress() GardenProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return getProgress(&t.stats.Garden)
}
