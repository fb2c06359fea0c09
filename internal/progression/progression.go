// Package progression holds the pure level math. Every level, stage and
// progress number in the system comes from here, nowhere else.
package progression

import "math"

// Stage buckets a level into a named tier.
type Stage string

const (
	Spark Stage = "Spark"
	Glow  Stage = "Glow"
	Blaze Stage = "Blaze"
	Nova  Stage = "Nova"
	Orbit Stage = "Orbit"
)

const xpPerSquare = 100

// Level maps accumulated XP to a level. XP thresholds grow quadratically:
// level L starts at 100*(L-1)^2 XP.
func Level(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(math.Floor(math.Sqrt(float64(xp)/xpPerSquare))) + 1
}

// StageFor buckets a level into its stage.
func StageFor(level int) Stage {
	switch {
	case level <= 3:
		return Spark
	case level <= 7:
		return Glow
	case level <= 12:
		return Blaze
	case level <= 18:
		return Nova
	default:
		return Orbit
	}
}

// LevelFloor is the XP at which the given level begins.
func LevelFloor(level int) int64 {
	if level < 1 {
		level = 1
	}
	n := int64(level - 1)
	return xpPerSquare * n * n
}

// Progress is the percentage through the current level, in [0, 100).
func Progress(xp int64) float64 {
	if xp < 0 {
		xp = 0
	}
	level := Level(xp)
	floor := LevelFloor(level)
	ceil := LevelFloor(level + 1)
	return float64(xp-floor) / float64(ceil-floor) * 100
}

// Color is the UI accent for a stage.
func (s Stage) Color() string {
	switch s {
	case Spark:
		return "blue"
	case Glow:
		return "green"
	case Blaze:
		return "orange"
	case Nova:
		return "purple"
	case Orbit:
		return "yellow"
	}
	return "gray"
}

// Emoji is the badge shown next to a stage name.
func (s Stage) Emoji() string {
	switch s {
	case Spark:
		return "✨"
	case Glow:
		return "🌟"
	case Blaze:
		return "🔥"
	case Nova:
		return "💫"
	case Orbit:
		return "🪐"
	}
	return ""
}

// InsightValue converts a token balance to its display value.
func InsightValue(tokens int64) int64 {
	return tokens * 5
}
