package gobodyscale

import (
	"fmt"
	"strings"
)

// Sex of the weighed user, as understood by body-composition formulas.
type Sex uint8

const (
	SexMale Sex = iota
	SexFemale
)

func (s Sex) String() string {
	switch s {
	case SexMale:
		return "male"
	case SexFemale:
		return "female"
	default:
		return fmt.Sprintf("unknown (%d)", s)
	}
}

func (s Sex) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Sex) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "male", "m":
		*s = SexMale
	case "female", "f":
		*s = SexFemale
	default:
		return fmt.Errorf("invalid sex %q", text)
	}
	return nil
}

// ActivityLevel is the user's self-reported activity, ordered from least to most active.
type ActivityLevel uint8

const (
	ActivitySedentary ActivityLevel = iota
	ActivityMild
	ActivityModerate
	ActivityHeavy
	ActivityExtreme
)

var activityNames = []string{"sedentary", "mild", "moderate", "heavy", "extreme"}

func (a ActivityLevel) String() string {
	if int(a) < len(activityNames) {
		return activityNames[a]
	}
	return fmt.Sprintf("unknown (%d)", a)
}

func (a ActivityLevel) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *ActivityLevel) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, n := range activityNames {
		if n == name {
			*a = ActivityLevel(i)
			return nil
		}
	}
	return fmt.Errorf("invalid activity level %q", text)
}

// Unit is the weight unit the scale shows on its display.
type Unit uint8

const (
	UnitKG Unit = iota
	UnitLB
	UnitST
)

func (u Unit) String() string {
	switch u {
	case UnitKG:
		return "kg"
	case UnitLB:
		return "lb"
	case UnitST:
		return "st"
	default:
		return fmt.Sprintf("unknown (%d)", u)
	}
}

func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *Unit) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "kg":
		*u = UnitKG
	case "lb", "lbs":
		*u = UnitLB
	case "st":
		*u = UnitST
	default:
		return fmt.Errorf("invalid unit %q", text)
	}
	return nil
}

// UserProfile is the snapshot of the active user taken at the start of a session.
type UserProfile struct {
	Name     string        `yaml:"name"`
	Sex      Sex           `yaml:"sex"`
	Age      int           `yaml:"age"`
	HeightCm float64       `yaml:"height_cm"`
	Activity ActivityLevel `yaml:"activity"`
	Unit     Unit          `yaml:"unit"`
}

// Validate checks that the profile can feed the body-composition formulas.
func (u UserProfile) Validate() error {
	if u.Age <= 0 || u.Age > 120 {
		return fmt.Errorf("age must be in 1..120, got %d", u.Age)
	}
	if u.HeightCm < 50 || u.HeightCm > 250 {
		return fmt.Errorf("height_cm must be in 50..250, got %.1f", u.HeightCm)
	}
	if u.Activity > ActivityExtreme {
		return fmt.Errorf("invalid activity level %d", u.Activity)
	}
	if u.Unit > UnitST {
		return fmt.Errorf("invalid unit %d", u.Unit)
	}
	return nil
}

func (u UserProfile) String() string {
	return fmt.Sprintf("User[%s sex=%s age=%d height=%.0fcm activity=%s unit=%s]",
		u.Name, u.Sex, u.Age, u.HeightCm, u.Activity, u.Unit)
}
