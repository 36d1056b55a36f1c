package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

// LogFormatter is a logrus.Formatter that forwards every entry, fields
// included, to New Relic while writing the wrapped formatter's output.
//
// Adapted from the nrlogrus formatter, which drops entry fields:
// https://github.com/newrelic/go-agent/blob/f1942e10f0819e2c854d5d7289eb0dc1c52a00af/v3/integrations/logcontext-v2/nrlogrus/formatter.go
type LogFormatter struct {
	app       *newrelic.Application
	formatter logrus.Formatter
}

func NewLogFormatter(app *newrelic.Application, formatter logrus.Formatter) LogFormatter {
	return LogFormatter{
		app:       app,
		formatter: formatter,
	}
}

// Format implements logrus.Formatter
func (f LogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	message := e.Message
	if len(e.Data) > 0 {
		errorString := "<nil>"
		fields := make(map[string]interface{}, len(e.Data))
		for k, v := range e.Data {
			if err, ok := v.(error); ok && k == logrus.ErrorKey {
				errorString = fmt.Sprintf("%q", err.Error())
				continue
			}
			fields[k] = v
		}

		if encoded, err := json.Marshal(fields); err == nil {
			message = fmt.Sprintf("message=%q, error=%s, data=%s", message, errorString, encoded)
		}
	}

	logData := newrelic.LogData{
		Severity: e.Level.String(),
		Message:  message,
	}

	logBytes, err := f.formatter.Format(e)
	if err != nil {
		return nil, err
	}
	logBytes = bytes.TrimRight(logBytes, "\n")
	b := bytes.NewBuffer(logBytes)

	var txn *newrelic.Transaction
	if e.Context != nil {
		txn = newrelic.FromContext(e.Context)
	}

	enrichOption := newrelic.FromApp(f.app)
	if txn != nil {
		txn.RecordLog(logData)
		enrichOption = newrelic.FromTxn(txn)
	} else {
		f.app.RecordLog(logData)
	}

	if err := newrelic.EnrichLog(b, enrichOption); err != nil {
		return nil, err
	}
	b.WriteString("\n")
	return b.Bytes(), nil
}
