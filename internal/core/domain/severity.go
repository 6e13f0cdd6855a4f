package domain

import (
	"fmt"
	"math"
	"strings"
)

// CVSS v3.x base metric weights.
var (
	cvssAV  = map[string]float64{"N": 0.85, "A": 0.62, "L": 0.55, "P": 0.2}
	cvssAC  = map[string]float64{"L": 0.77, "H": 0.44}
	cvssUI  = map[string]float64{"N": 0.85, "R": 0.62}
	cvssCIA = map[string]float64{"H": 0.56, "L": 0.22, "N": 0}

	// PR weights depend on scope.
	cvssPRUnchanged = map[string]float64{"N": 0.85, "L": 0.62, "H": 0.27}
	cvssPRChanged   = map[string]float64{"N": 0.85, "L": 0.68, "H": 0.5}
)

// ParseCVSS3Vector computes the base score for a CVSS v3.0/v3.1 vector
// string such as "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H".
// Only the eight base metrics are considered; temporal and
// environmental metrics are ignored.
func ParseCVSS3Vector(vector string) (float64, error) {
	parts := strings.Split(vector, "/")
	if len(parts) < 9 || !strings.HasPrefix(parts[0], "CVSS:3") {
		return 0, fmt.Errorf("%w: malformed CVSS v3 vector %q", ErrInvalidInput, vector)
	}

	metrics := make(map[string]string, len(parts)-1)
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			return 0, fmt.Errorf("%w: malformed CVSS metric %q", ErrInvalidInput, part)
		}
		metrics[key] = value
	}

	scopeChanged := metrics["S"] == "C"
	if !scopeChanged && metrics["S"] != "U" {
		return 0, fmt.Errorf("%w: unknown scope %q", ErrInvalidInput, metrics["S"])
	}

	prWeights := cvssPRUnchanged
	if scopeChanged {
		prWeights = cvssPRChanged
	}

	av, ok1 := cvssAV[metrics["AV"]]
	ac, ok2 := cvssAC[metrics["AC"]]
	pr, ok3 := prWeights[metrics["PR"]]
	ui, ok4 := cvssUI[metrics["UI"]]
	c, ok5 := cvssCIA[metrics["C"]]
	i, ok6 := cvssCIA[metrics["I"]]
	a, ok7 := cvssCIA[metrics["A"]]
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
		return 0, fmt.Errorf("%w: unknown metric value in %q", ErrInvalidInput, vector)
	}

	iss := 1 - (1-c)*(1-i)*(1-a)
	var impact float64
	if scopeChanged {
		impact = 7.52*(iss-0.029) - 3.25*math.Pow(iss-0.02, 15)
	} else {
		impact = 6.42 * iss
	}

	if impact <= 0 {
		return 0, nil
	}

	exploitability := 8.22 * av * ac * pr * ui
	score := impact + exploitability
	if scopeChanged {
		score *= 1.08
	}
	return roundUp1(math.Min(score, 10)), nil
}

// roundUp1 rounds up to one decimal place, per the CVSS v3.1
// specification's Roundup function.
func roundUp1(v float64) float64 {
	scaled := int(math.Round(v * 100000))
	if scaled%10000 == 0 {
		return float64(scaled) / 100000
	}
	return (math.Floor(float64(scaled)/10000) + 1) / 10
}

// ValidSeverity reports whether a numeric severity is on the 0-10
// scale used by both CVSS v2 and v3.
func ValidSeverity(score float64) bool {
	return score >= 0 && score <= 10
}
