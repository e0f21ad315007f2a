package gobodyscale

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// Measurement is a single body-composition reading derived from one scale notification.
// ID is assigned by the measurement store on insert and is not part of the reading itself.
type Measurement struct {
	ID           string    `yaml:"id"`
	Timestamp    time.Time `yaml:"timestamp"`
	WeightKg     float64   `yaml:"weight_kg"`
	FatPercent   float64   `yaml:"fat_percent"`
	WaterPercent float64   `yaml:"water_percent"`
	BoneMassKg   float64   `yaml:"bone_mass_kg"`
	VisceralFat  float64   `yaml:"visceral_fat"`
	MuscleMassKg float64   `yaml:"muscle_mass_kg"`
}

// SameMetrics reports whether every metric field of m equals the one in o.
// Timestamp and ID are ignored.
func (m Measurement) SameMetrics(o Measurement) bool {
	return m.WeightKg == o.WeightKg &&
		m.FatPercent == o.FatPercent &&
		m.WaterPercent == o.WaterPercent &&
		m.BoneMassKg == o.BoneMassKg &&
		m.VisceralFat == o.VisceralFat &&
		m.MuscleMassKg == o.MuscleMassKg
}

// Merge overwrites every metric field of m with the one from o. ID and
// Timestamp are kept, so a weigh-in stays anchored at its first reading.
func (m *Measurement) Merge(o Measurement) {
	m.WeightKg = o.WeightKg
	m.FatPercent = o.FatPercent
	m.WaterPercent = o.WaterPercent
	m.BoneMassKg = o.BoneMassKg
	m.VisceralFat = o.VisceralFat
	m.MuscleMassKg = o.MuscleMassKg
}

func (m Measurement) String() string {
	return fmt.Sprintf("Measurement[%s weight=%.2fkg fat=%.1f%% water=%.1f%% bone=%.2fkg visceral=%.1f muscle=%.2fkg]",
		m.Timestamp.Format(time.RFC3339), m.WeightKg, m.FatPercent, m.WaterPercent, m.BoneMassKg, m.VisceralFat, m.MuscleMassKg)
}

// ActionKind identifies what a handshake step asks the session to do.
type ActionKind uint8

const (
	ActionSubscribe ActionKind = iota // enable notifications on a characteristic
	ActionWrite                       // write a command frame to a characteristic
	ActionPrompt                      // ask the user to do something
)

func (k ActionKind) String() string {
	switch k {
	case ActionSubscribe:
		return "subscribe"
	case ActionWrite:
		return "write"
	case ActionPrompt:
		return "prompt"
	default:
		return fmt.Sprintf("unknown (%d)", k)
	}
}

// Action is a single handshake step. Only the fields relevant to Kind are set.
type Action struct {
	Kind           ActionKind
	Service        bluetooth.UUID
	Characteristic bluetooth.UUID
	Payload        []byte
	MessageKey     string
	MessageParam   int
}

// Driver is the interface implemented by every supported scale model.
// Drivers are pure protocol logic: they never touch the transport or the
// stores themselves.
type Driver interface {
	// Name is the short driver name, e.g. "1byone".
	Name() string

	// NextStep returns the action for handshake step ordinal step. It returns
	// false once the handshake has no more steps.
	NextStep(step int, user UserProfile) (Action, bool)

	// OnNotify decodes a notification from characteristic char into a
	// measurement taken at the given time. It returns false when the payload
	// is not a measurement and must be ignored.
	OnNotify(char bluetooth.UUID, data []byte, user UserProfile, at time.Time) (Measurement, bool)
}

// --- Implementation Registry ---

// Factory is a function that creates a new driver for a discovered device.
type Factory func(*FoundDevice) Driver

var (
	registry = make(map[string]Factory)
	regLock  = sync.RWMutex{}
)

// Register makes a driver available by its device name prefix.
// This function should be called from the init() function of the driver's package.
func Register(namePrefix string, factory Factory) {
	regLock.Lock()
	defer regLock.Unlock()

	if _, found := registry[namePrefix]; found {
		logrus.WithField("prefix", namePrefix).Warn("driver for prefix is being overwritten")
	}
	registry[namePrefix] = factory
}

// NewDriverForDevice finds a registered factory for the given device name and
// creates a new Driver. It matches based on the prefix, so a device named
// "1byone-3F2A" matches a driver registered as "1byone".
func NewDriverForDevice(device *FoundDevice) (Driver, error) {
	regLock.RLock()
	defer regLock.RUnlock()

	for prefix, factory := range registry {
		if strings.HasPrefix(device.Name, prefix) {
			return factory(device), nil
		}
	}

	return nil, fmt.Errorf("%w: '%s'", ErrUnknownDevice, device.Name)
}
