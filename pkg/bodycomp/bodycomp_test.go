package bodycomp_test

import (
	"testing"

	"github.com/mlsorensen/gobodyscale"
	"github.com/mlsorensen/gobodyscale/pkg/bodycomp"
	"github.com/stretchr/testify/assert"
)

func TestActivityGroup(t *testing.T) {
	tests := []struct {
		level gobodyscale.ActivityLevel
		want  int
	}{
		{gobodyscale.ActivitySedentary, 0},
		{gobodyscale.ActivityMild, 0},
		{gobodyscale.ActivityModerate, 1},
		{gobodyscale.ActivityHeavy, 2},
		{gobodyscale.ActivityExtreme, 2},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, bodycomp.ActivityGroup(tt.level))
			assert.Equal(t, tt.want, bodycomp.ActivityGroup(tt.level), "must be stable across calls")
		})
	}
}

func TestSexCode(t *testing.T) {
	assert.Equal(t, 1, bodycomp.SexCode(gobodyscale.SexMale))
	assert.Equal(t, 0, bodycomp.SexCode(gobodyscale.SexFemale))
}

func TestEstimator_Deterministic(t *testing.T) {
	e := bodycomp.New(1, 35, 180, bodycomp.GroupMedium)

	fat := e.BodyFat(80, 520)
	assert.Equal(t, fat, e.BodyFat(80, 520))

	bone := e.BoneMass(80, 15)
	assert.Equal(t, bone, e.BoneMass(80, 15))
	assert.Equal(t, e.Muscle(80, fat, bone), e.Muscle(80, fat, bone))
}

func TestEstimator_PlausibleRanges(t *testing.T) {
	users := []gobodyscale.UserProfile{
		{Sex: gobodyscale.SexMale, Age: 30, HeightCm: 180, Activity: gobodyscale.ActivityModerate},
		{Sex: gobodyscale.SexFemale, Age: 60, HeightCm: 160, Activity: gobodyscale.ActivitySedentary},
		{Sex: gobodyscale.SexFemale, Age: 20, HeightCm: 170, Activity: gobodyscale.ActivityExtreme},
	}
	weights := []float64{45, 72.68, 110, 655.35}
	coeffs := []uint32{0, 5, 500, 0xFFFFFF}

	for _, u := range users {
		e := bodycomp.ForUser(u)
		for _, w := range weights {
			for _, c := range coeffs {
				fat := e.BodyFat(w, c)
				assert.GreaterOrEqual(t, fat, 5.0)
				assert.LessOrEqual(t, fat, 75.0)

				water := e.Water(fat)
				assert.GreaterOrEqual(t, water, 35.0)
				assert.LessOrEqual(t, water, 75.0)

				bone := e.BoneMass(w, int(c&0xFF)*3)
				assert.GreaterOrEqual(t, bone, 0.5)
				assert.LessOrEqual(t, bone, 8.0)

				vf := e.VisceralFat(w)
				assert.GreaterOrEqual(t, vf, 1.0)
				assert.LessOrEqual(t, vf, 50.0)

				muscle := e.Muscle(w, fat, bone)
				assert.GreaterOrEqual(t, muscle, 0.0)
				assert.Less(t, muscle, w)
			}
		}
	}
}

func TestEstimator_ActivityLowersFat(t *testing.T) {
	low := bodycomp.New(1, 40, 175, bodycomp.GroupLow)
	high := bodycomp.New(1, 40, 175, bodycomp.GroupHigh)

	assert.Greater(t, low.BodyFat(85, 500), high.BodyFat(85, 500))
}

func TestEstimator_Muscle(t *testing.T) {
	e := bodycomp.New(0, 30, 165, bodycomp.GroupLow)

	assert.InDelta(t, 80-20-3, e.Muscle(80, 25, 3), 1e-9)
	assert.Equal(t, 0.0, e.Muscle(1, 75, 8))
}
