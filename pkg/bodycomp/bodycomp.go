// Package bodycomp estimates body composition from weight and bioelectrical
// impedance for 1byone scales. The estimator is a pure function of the user's
// sex, age, height and activity group; callers should treat the formulas as
// opaque and only rely on the input contract.
package bodycomp

import (
	"math"

	"github.com/mlsorensen/gobodyscale"
)

// Activity groups understood by the formulas.
const (
	GroupLow    = 0
	GroupMedium = 1
	GroupHigh   = 2
)

// ActivityGroup collapses the five activity levels into the three groups the
// formulas know about. The mapping must stay as is for compatibility with the
// vendor's results.
func ActivityGroup(level gobodyscale.ActivityLevel) int {
	switch level {
	case gobodyscale.ActivitySedentary, gobodyscale.ActivityMild:
		return GroupLow
	case gobodyscale.ActivityModerate:
		return GroupMedium
	case gobodyscale.ActivityHeavy, gobodyscale.ActivityExtreme:
		return GroupHigh
	default:
		return GroupLow
	}
}

// SexCode returns 1 for male and 0 for female.
func SexCode(sex gobodyscale.Sex) int {
	if sex == gobodyscale.SexMale {
		return 1
	}
	return 0
}

// Estimator computes derived metrics for one user.
type Estimator struct {
	sex      int // male = 1, female = 0
	age      int
	heightCm float64
	group    int
}

// New creates an estimator. group is one of GroupLow, GroupMedium, GroupHigh.
func New(sex, age int, heightCm float64, group int) Estimator {
	return Estimator{sex: sex, age: age, heightCm: heightCm, group: group}
}

// ForUser creates an estimator from a user profile.
func ForUser(u gobodyscale.UserProfile) Estimator {
	return New(SexCode(u.Sex), u.Age, u.HeightCm, ActivityGroup(u.Activity))
}

// BMI returns the body mass index for weight in kg.
func (e Estimator) BMI(weight float64) float64 {
	h := e.heightCm / 100.0
	if h <= 0 {
		return 0
	}
	return weight / (h * h)
}

// BodyFat returns the body fat percentage.
func (e Estimator) BodyFat(weight float64, impedanceCoeff uint32) float64 {
	fat := 1.2*e.BMI(weight) + 0.23*float64(e.age) - 10.8*float64(e.sex) - 5.4

	// higher resistance means less lean tissue
	if impedanceCoeff > 0 {
		resistance := float64(impedanceCoeff & 0xFFFF)
		fat += clamp((resistance-500.0)/100.0, -5, 5)
	}

	fat -= 1.5 * float64(e.group)
	return round(clamp(fat, 5, 75), 1)
}

// Water returns the body water percentage for a body fat percentage.
func (e Estimator) Water(fat float64) float64 {
	water := (100.0 - fat) * 0.7
	coeff := 0.98
	if water < 50 {
		coeff = 1.02
	}
	return round(clamp(coeff*water, 35, 75), 1)
}

// BoneMass returns the bone mass in kg.
func (e Estimator) BoneMass(weight float64, impedanceValue int) float64 {
	peopleCoeff := 1.0
	switch e.group {
	case GroupMedium:
		peopleCoeff = 1.0427
	case GroupHigh:
		peopleCoeff = 1.0958
	}

	sexConst := 4.76325
	if e.sex == 1 {
		sexConst = 3.49305
	}

	h := e.heightCm / 100.0
	lean := 9.058*h*h + 12.226 + 0.32*weight - 0.0068*float64(impedanceValue)
	lean = lean - sexConst - 0.0542*float64(e.age)

	return round(clamp(lean*0.045*peopleCoeff, 0.5, 8), 2)
}

// VisceralFat returns the visceral fat index.
func (e Estimator) VisceralFat(weight float64) float64 {
	ageFactor := 0.07
	if e.sex == 1 {
		ageFactor = 0.1
	}
	vf := (e.BMI(weight)-13.0)*0.8 + ageFactor*float64(e.age) - 2.0
	return round(clamp(vf, 1, 50), 1)
}

// Muscle returns the muscle mass in kg: lean body mass without bones.
func (e Estimator) Muscle(weight, fat, bone float64) float64 {
	muscle := weight - (fat/100.0)*weight - bone
	return round(math.Max(muscle, 0), 2)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
