package onebyone

import (
	"fmt"
	"time"

	"github.com/mlsorensen/gobodyscale"
	"github.com/mlsorensen/gobodyscale/pkg/bodycomp"
	"github.com/mlsorensen/gobodyscale/pkg/scales/onebyone/comms"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// DriverName is the name the driver registers under.
const DriverName = "1byone"

func init() {
	gobodyscale.Register(DriverName, New)
}

// This line is the compile-time check. It will fail to compile if
// *OneByoneScale ever stops satisfying the gobodyscale.Driver interface.
var _ gobodyscale.Driver = (*OneByoneScale)(nil)

// Handshake steps.
const (
	stepSubscribe = iota
	stepSetUnit
	stepPrompt
)

type OneByoneScale struct {
	name   string
	Logger *logrus.Logger
}

func New(device *gobodyscale.FoundDevice) gobodyscale.Driver {
	return &OneByoneScale{
		name:   device.Name,
		Logger: logrus.StandardLogger(),
	}
}

func (s *OneByoneScale) Name() string {
	return DriverName
}

func (s *OneByoneScale) DeviceName() string {
	return s.name
}

// NextStep subscribes to measurements, sends the user's unit and then asks
// the user to step on the scale. The unit command must not be written before
// the subscription is active.
func (s *OneByoneScale) NextStep(step int, user gobodyscale.UserProfile) (gobodyscale.Action, bool) {
	switch step {
	case stepSubscribe:
		return gobodyscale.Action{
			Kind:           gobodyscale.ActionSubscribe,
			Service:        comms.OneByoneServiceUUID,
			Characteristic: comms.OneByoneNotifyCharUUID,
		}, true
	case stepSetUnit:
		cmd := comms.EncodeCommand(comms.UnitCodeFor(user.Unit), comms.DefaultGroup)
		return gobodyscale.Action{
			Kind:           gobodyscale.ActionWrite,
			Service:        comms.OneByoneServiceUUID,
			Characteristic: comms.OneByoneCommandCharUUID,
			Payload:        cmd.Bytes(),
		}, true
	case stepPrompt:
		return gobodyscale.Action{
			Kind:         gobodyscale.ActionPrompt,
			MessageKey:   gobodyscale.MessageStepOnScale,
			MessageParam: 0,
		}, true
	default:
		return gobodyscale.Action{}, false
	}
}

// OnNotify decodes a body-composition notification and derives the metrics for user.
func (s *OneByoneScale) OnNotify(char bluetooth.UUID, data []byte, user gobodyscale.UserProfile, at time.Time) (gobodyscale.Measurement, bool) {
	frame, ok := comms.DecodeNotification(data)
	if !ok {
		return gobodyscale.Measurement{}, false
	}

	s.Logger.WithField("bytes", fmt.Sprintf("% X", frame.RawFrame)).Debug("received bytes")
	s.Logger.WithFields(logrus.Fields{
		"weight":          frame.WeightKg(),
		"impedance_coeff": frame.ImpedanceCoeff,
		"impedance_value": frame.ImpedanceValue,
	}).Debug("decoded frame")
	s.Logger.WithField("user", user.String()).Debug("deriving for user")

	m := Derive(frame, user, at)
	s.Logger.WithField("measurement", m.String()).Debug("scale measurement")
	return m, true
}

// Derive computes a measurement from a decoded frame.
func Derive(frame comms.RawNotificationFrame, user gobodyscale.UserProfile, at time.Time) gobodyscale.Measurement {
	est := bodycomp.ForUser(user)
	weight := frame.WeightKg()

	m := gobodyscale.Measurement{
		Timestamp: at,
		WeightKg:  weight,
	}
	m.FatPercent = est.BodyFat(weight, frame.ImpedanceCoeff)
	m.WaterPercent = est.Water(m.FatPercent)
	m.BoneMassKg = est.BoneMass(weight, frame.ImpedanceValue)
	m.VisceralFat = est.VisceralFat(weight)
	m.MuscleMassKg = est.Muscle(weight, m.FatPercent, m.BoneMassKg)
	return m
}
