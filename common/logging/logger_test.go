package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatterUsesUTC(t *testing.T) {
	formatter := NewFormatter(false, true)
	zone := time.FixedZone("UTC+5", 5*60*60)
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2022, 1, 2, 8, 0, 0, 0, zone),
		Level:   logrus.InfoLevel,
		Message: "hello",
		Data:    logrus.Fields{},
	}
	b, err := formatter.Format(entry)
	require.NoError(t, err)
	assert.Contains(t, string(b), "2022-01-02 03:00:00.000 Z")
	assert.Contains(t, string(b), `"msg":"hello"`)
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Setup("-", false, false, "chatty"))
}

func TestEntryWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	w := &EntryWriter{Entry: logrus.NewEntry(logger), Level: logrus.WarnLevel}
	n, err := w.Write([]byte("first line\n"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	_, _ = w.Write([]byte("\n"))
	_, _ = w.Write([]byte("second\r\nthird  \n"))

	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, "level=warning"))
	assert.Contains(t, out, `msg="first line"`)
	assert.Contains(t, out, "msg=second")
	assert.Contains(t, out, "msg=third")
}
