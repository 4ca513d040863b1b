package satellite

// NDVI thresholds for the health curve. Below bare-soil little
// differentiation is needed, the sparse-vegetation band gets the finest
// mapping, and dense canopy saturates at 0.8.
const (
	ndviBareSoil   = 0.2
	ndviSparse     = 0.4
	ndviSaturation = 0.8
)

// CalculateNDVI computes (NIR - Red) / (NIR + Red), clamped to [0,1].
// A zero denominator yields 0.
func CalculateNDVI(nir, red float64) float64 {
	denom := nir + red
	if denom == 0 {
		return 0
	}

	return ClampNDVI((nir - red) / denom)
}

// ClampNDVI clamps a raw NDVI value to [0,1]. Negative values (water,
// bare rock) are treated as 0.
func ClampNDVI(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

// HealthScore maps an NDVI value to a 0-100 crop health score:
//
//	0.0-0.2 -> 0-30   (stress / bare soil)
//	0.2-0.4 -> 30-60  (moderate / sparse vegetation)
//	0.4-0.8 -> 60-100 (healthy / dense vegetation, saturating at 0.8)
func HealthScore(ndvi float64) int {
	ndvi = ClampNDVI(ndvi)

	var health int

	switch {
	case ndvi < ndviBareSoil:
		health = int(ndvi / ndviBareSoil * 30)
	case ndvi < ndviSparse:
		health = int(30 + (ndvi-ndviBareSoil)/0.2*30)
	default:
		over := ndvi - ndviSparse
		if over > 0.4 {
			over = 0.4
		}

		health = int(60 + over/0.4*40)
	}

	if health < 0 {
		return 0
	}

	if health > 100 {
		return 100
	}

	return health
}

// Concern returns the advisory message for a health score.
func Concern(score int) string {
	switch {
	case score < 40:
		return "Stress detected - possible water or pest issues"
	case score < 70:
		return "Monitor closely - vegetation moderate"
	default:
		return "Healthy vegetation"
	}
}
