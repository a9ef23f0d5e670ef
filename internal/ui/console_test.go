package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressDisabled(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleUIWithWriter("Sending", false, &buf)

	c.Begin("hello.txt", 12)
	c.Advance(5)
	c.Advance(7)
	c.Finish()

	assert.EqualValues(t, 12, c.Transferred())
	assert.Empty(t, buf.String(), "no bar is drawn when progress is off")

	c.ShowTransferSummary("Success", "/tmp/hello.txt")
	assert.Contains(t, buf.String(), "Sending hello.txt: Success")
	assert.Contains(t, buf.String(), "+ Total bytes: 12 B")
	assert.Contains(t, buf.String(), "+ Saved to: /tmp/hello.txt")
}

func TestProgressEnabled(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleUIWithWriter("Receiving", true, &buf)

	c.Begin("notes.tar.gz", -1)
	c.Advance(1 << 20)
	c.Finish()

	assert.EqualValues(t, 1<<20, c.Transferred())
	c.ShowTransferSummary("Success", "")
	assert.Contains(t, buf.String(), "+ Total bytes: 1.0 MiB")
	assert.NotContains(t, buf.String(), "Saved to")
}

func TestShowMessage(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleUIWithWriter("Sending", true, &buf).ShowMessage("Connecting to 10.0.0.2:8080")
	assert.Equal(t, "Connecting to 10.0.0.2:8080\n", buf.String())
}
