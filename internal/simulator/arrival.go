package simulator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/telhawk-systems/authsim/internal/models"
)

// Regime is the time-of-day/day-of-week class that drives the arrival rate.
type Regime int

const (
	RegimeWorkHours Regime = iota
	RegimeLateNight
	RegimeDaytime
)

func (r Regime) String() string {
	switch r {
	case RegimeWorkHours:
		return "work_hours"
	case RegimeLateNight:
		return "late_night"
	default:
		return "daytime"
	}
}

// Classify returns the arrival regime for when.
//
// Both hour conditions are intentionally broad: work hours is any weekday hour that is
// >= 9 or <= 17, late night is any hour < 5 or >= 11. Changing either would shift the
// statistical shape of generated data.
func Classify(when time.Time) Regime {
	weekday := when.Weekday() != time.Saturday && when.Weekday() != time.Sunday
	hour := when.Hour()

	workHours := weekday && (hour >= 9 || hour <= 17)
	lateNight := hour < 5 || hour >= 11

	switch {
	case workHours:
		return RegimeWorkHours
	case lateNight:
		return RegimeLateNight
	default:
		return RegimeDaytime
	}
}

// TriangularBounds parameterizes a triangular distribution.
type TriangularBounds struct {
	Min, Max, Mode float64
}

// UniformBounds parameterizes a uniform distribution over [Min, Max).
type UniformBounds struct {
	Min, Max float64
}

// ArrivalModel samples legitimate arrivals for one hour. The regime picks the
// distribution of the Poisson rate lambda.
type ArrivalModel struct {
	WorkHours TriangularBounds
	LateNight UniformBounds
	Daytime   UniformBounds
}

// DefaultArrivalModel is the model used when a Config leaves Arrival unset.
var DefaultArrivalModel = ArrivalModel{
	WorkHours: TriangularBounds{Min: 1.5, Max: 5.0, Mode: 2.75},
	LateNight: UniformBounds{Min: 0, Max: 5.0},
	Daytime:   UniformBounds{Min: 1.5, Max: 4.25},
}

// IsZero reports whether no bounds were configured.
func (m ArrivalModel) IsZero() bool {
	return m == ArrivalModel{}
}

// Lambda samples the hourly arrival rate for when.
func (m ArrivalModel) Lambda(when time.Time, src rand.Source) (float64, error) {
	var lambda float64

	switch Classify(when) {
	case RegimeWorkHours:
		b := m.WorkHours
		if !(b.Min < b.Max) || b.Mode < b.Min || b.Mode > b.Max {
			return 0, fmt.Errorf("triangular(%g, %g, %g): %w", b.Min, b.Max, b.Mode, models.ErrInvalidDistributionParameter)
		}
		lambda = distuv.NewTriangle(b.Min, b.Max, b.Mode, src).Rand()
	case RegimeLateNight:
		lambda = distuv.Uniform{Min: m.LateNight.Min, Max: m.LateNight.Max, Src: src}.Rand()
	default:
		lambda = distuv.Uniform{Min: m.Daytime.Min, Max: m.Daytime.Max, Src: src}.Rand()
	}

	if !(lambda > 0) || math.IsInf(lambda, 0) {
		return 0, fmt.Errorf("poisson lambda %g at %s: %w", lambda, when.Format(models.TimeLayout), models.ErrInvalidDistributionParameter)
	}
	return lambda, nil
}

// Sample returns the number of legitimate arrivals in the hour starting at when,
// and one inter-arrival gap in minutes per arrival.
func (m ArrivalModel) Sample(when time.Time, src rand.Source) (int, []float64, error) {
	lambda, err := m.Lambda(when, src)
	if err != nil {
		return 0, nil, err
	}

	arrivals := int(distuv.Poisson{Lambda: lambda, Src: src}.Rand())

	gap := distuv.Exponential{Rate: 1 / lambda, Src: src}
	gaps := make([]float64, arrivals)
	for i := range gaps {
		gaps[i] = gap.Rand()
	}

	return arrivals, gaps, nil
}
