package gobodyscale

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// MessageStepOnScale asks the user to step on the scale.
const MessageStepOnScale = "info_step_on_scale"

var messages = map[string]string{
	MessageStepOnScale: "Please step barefoot on the scale",
}

// LogMessenger shows prompts as log lines.
type LogMessenger struct {
	Logger *logrus.Logger
}

func (m LogMessenger) Prompt(key string, param int) {
	logger := m.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	text, ok := messages[key]
	if !ok {
		text = key
	}
	if param != 0 {
		text = fmt.Sprintf("%s (%d)", text, param)
	}
	logger.WithField("key", key).Info(text)
}
