// Package scoring maps accumulated experience to levels, in-level progress
// and a cross-dimension balance index.
//
// The leveling curve is quadratic: reaching level L takes L² + 4L experience,
// so every level costs two more entries than the one before it.
package scoring

import "math"

// MinExperience is the experience needed to leave level 0.
const MinExperience = 5

// Threshold returns the experience at which level starts.
func Threshold(level int) int {
	if level <= 0 {
		return 0
	}
	return level*level + 4*level
}

// Level returns the level reached with the given experience.
// Negative experience counts as none.
func Level(experience int) int {
	if experience < MinExperience {
		return 0
	}
	level := int(math.Floor(-2 + math.Sqrt(4+float64(experience))))
	// Settle float rounding at exact thresholds.
	for level > 0 && Threshold(level) > experience {
		level--
	}
	for Threshold(level+1) <= experience {
		level++
	}
	return level
}

// Progress returns how far experience has advanced through its current
// level, as a percentage in [0, 100).
func Progress(experience int) float64 {
	if experience < 0 {
		experience = 0
	}
	level := Level(experience)
	start := Threshold(level)
	end := Threshold(level + 1)
	if end <= start {
		return 0
	}
	return float64(experience-start) / float64(end-start) * 100
}

// TotalLevel is the level of the summed experience across all dimensions.
func TotalLevel(scores []int) int {
	total := 0
	for _, s := range scores {
		if s > 0 {
			total += s
		}
	}
	return Level(total)
}

// Balance scores how evenly experience is spread across dimensions, from 0
// (lopsided) to 100 (even). It is 100 minus the coefficient of variation as
// a percentage, floored at 0 and rounded. An empty vector or one without any
// experience is perfectly balanced.
func Balance(scores []int) int {
	if len(scores) == 0 {
		return 100
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	if sum == 0 {
		return 100
	}
	n := float64(len(scores))
	mean := float64(sum) / n
	var variance float64
	for _, s := range scores {
		d := float64(s) - mean
		variance += d * d
	}
	variance /= n
	cv := math.Sqrt(variance) / mean * 100
	return int(math.Round(math.Max(0, 100-cv)))
}
