// internal/scoring/score.go
package scoring

import (
	"fmt"
	"math"

	"github.com/guesshole/guesshole/internal/models"
)

// Config holds the scoring tunables. All values have sensible defaults; see
// DefaultConfig.
type Config struct {
	// Distance thresholds in kilometers. At or below Min the guess counts as
	// perfect; at or above Max it scores zero distance points.
	MaxDistanceKm float64
	MinDistanceKm float64

	// Weights applied to the distance and time components of the base score.
	DistanceMultiplier float64
	TimeMultiplier     float64

	// Guesses made within the grace window get the full time bonus.
	GraceTimeSeconds float64
}

// DefaultConfig returns the tunables the game ships with.
func DefaultConfig() Config {
	return Config{
		MaxDistanceKm:      5000,
		MinDistanceKm:      10,
		DistanceMultiplier: 1.0,
		TimeMultiplier:     1.0,
		GraceTimeSeconds:   5,
	}
}

// BaseScore computes the pre-multiplier score for a guess. Accuracy decays
// linearly from 1000 points at MinDistanceKm to 0 at MaxDistanceKm; the time
// bonus decays linearly from the grace window to the full round duration and
// is itself weighted by accuracy, so a fast but wildly wrong guess still
// scores nothing.
func (c Config) BaseScore(distanceKm float64, roundDuration, guessTime int) int {
	capped := math.Min(distanceKm, c.MaxDistanceKm)

	var accuracy float64
	switch {
	case capped <= c.MinDistanceKm:
		accuracy = 1.0
	case capped >= c.MaxDistanceKm:
		accuracy = 0.0
	default:
		accuracy = 1.0 - (capped-c.MinDistanceKm)/(c.MaxDistanceKm-c.MinDistanceKm)
	}
	baseDistanceScore := 1000 * accuracy

	t := float64(guessTime)
	var timeFactor float64
	switch {
	case t <= c.GraceTimeSeconds:
		timeFactor = 1.0
	case t >= float64(roundDuration):
		timeFactor = 0.0
	default:
		timeFactor = 1.0 - (t-c.GraceTimeSeconds)/(float64(roundDuration)-c.GraceTimeSeconds)
	}

	timeWeighted := baseDistanceScore * timeFactor * c.TimeMultiplier
	score := int(math.Round(baseDistanceScore*c.DistanceMultiplier + timeWeighted))
	if score < 0 {
		return 0
	}
	return score
}

// Multipliers returns the bonus tags that apply to a guess. Stacking is
// multiplicative and order-independent; the first-guess bonus is suppressed
// in solo games where being first is meaningless.
func Multipliers(
	guessTime int,
	isFirstGuess bool,
	guessed, target *models.LocationPoint,
	isSoloGame bool,
) []models.ScoreMultiplier {
	var out []models.ScoreMultiplier

	if guessTime < 5 {
		out = append(out, models.ScoreMultiplier{
			Kind:        models.MultiplierTriggerHappy,
			Value:       1.2,
			DisplayName: "Trigger Happy!",
			Tooltip:     "Trigger Happy Bonus: Guess within 5 seconds",
		})
	}

	if !isSoloGame && isFirstGuess {
		out = append(out, models.ScoreMultiplier{
			Kind:        models.MultiplierFirstGuess,
			Value:       1.1,
			DisplayName: "First Guess!",
			Tooltip:     "First Guess Bonus: You were the first to guess this round",
		})
	}

	if guessed == nil || target == nil {
		return out
	}

	if guessed.Admin0Name != "" && guessed.Admin0Name == target.Admin0Name {
		out = append(out, models.ScoreMultiplier{
			Kind:        models.MultiplierCorrectCountry,
			Value:       1.1,
			DisplayName: "Country Bonus!",
			Tooltip:     fmt.Sprintf("Country Bonus: Correctly identified %s", target.Admin0Name),
		})
	}

	// Admin level 1 is a state in some countries, a province, region or
	// metropolitan area in others; the label uses the target's own type name.
	if guessed.Admin1Name != "" && guessed.Admin1Name == target.Admin1Name {
		out = append(out, models.ScoreMultiplier{
			Kind:        models.MultiplierCorrectRegion,
			Value:       1.3,
			DisplayName: fmt.Sprintf("%s Bonus!", target.Admin1Type),
			Tooltip:     fmt.Sprintf("%s Bonus: Correctly identified %s", target.Admin1Type, target.Admin1Name),
		})
	}

	if guessed.Admin2Name != "" && guessed.Admin2Name == target.Admin2Name {
		out = append(out, models.ScoreMultiplier{
			Kind:        models.MultiplierCorrectLocale,
			Value:       1.5,
			DisplayName: fmt.Sprintf("%s Bonus!", target.Admin2Type),
			Tooltip:     fmt.Sprintf("%s Bonus: Correctly identified %s", target.Admin2Type, target.Admin2Name),
		})
	}

	return out
}

// FinalScore applies the multiplier pipeline to a base score. Rounding
// happens once, at the end.
func FinalScore(baseScore int, multipliers []models.ScoreMultiplier) int {
	score := float64(baseScore)
	for _, m := range multipliers {
		score *= m.Value
	}
	return int(math.Round(score))
}

const earthRadiusKm = 6371.0

// DistanceKm computes the great-circle (haversine) distance between two
// coordinates, in kilometers.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
