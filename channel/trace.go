package channel

import "github.com/sirupsen/logrus"

// logger is the package-level sink for debug tracing of channel and
// select activity. Nothing is emitted by default unless the caller
// raises the logger's level.
var logger logrus.FieldLogger = logrus.StandardLogger()

// SetLogger replaces the package-level logger used for debug tracing of
// channel and select activity. Passing nil restores the standard
// logrus logger.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		logger = logrus.StandardLogger()
		return
	}
	logger = l
}

func traceChan(event string, id uintptr, fields logrus.Fields) {
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["chan"] = id
	logger.WithFields(fields).Debug(event)
}

func traceSelect(event string, fields logrus.Fields) {
	if fields == nil {
		fields = logrus.Fields{}
	}
	logger.WithFields(fields).Debug(event)
}
