package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

// ConsoleUI shows transfer progress on a terminal
type ConsoleUI struct {
	out          io.Writer
	enabled      bool
	bar          *progressbar.ProgressBar
	operation    string // "Sending" or "Receiving"
	filename     string // Current file being transferred
	totalBytes   int64  // -1 when the size is not known in advance
	currentBytes int64  // Cumulative bytes transferred
	startTime    time.Time
}

// NewConsoleUI creates a console UI writing to os.Stderr. With progress
// disabled only messages and the final summary are printed.
func NewConsoleUI(operation string, progress bool) *ConsoleUI {
	return NewConsoleUIWithWriter(operation, progress, os.Stderr)
}

// NewConsoleUIWithWriter creates a console UI writing to w
func NewConsoleUIWithWriter(operation string, progress bool, w io.Writer) *ConsoleUI {
	return &ConsoleUI{
		out:        w,
		enabled:    progress,
		operation:  operation,
		totalBytes: -1,
	}
}

// ShowMessage displays a message to the user
func (c *ConsoleUI) ShowMessage(message string) {
	fmt.Fprintf(c.out, "%s\n", message)
}

// Begin starts tracking a transfer of name. A non-positive total shows a
// spinner, which is what receivers get since they learn the size only at
// end of stream.
func (c *ConsoleUI) Begin(name string, total int64) {
	c.filename = name
	c.totalBytes = -1
	if total > 0 {
		c.totalBytes = total
	}
	c.currentBytes = 0
	c.startTime = time.Now()

	if !c.enabled {
		return
	}
	c.bar = progressbar.NewOptions64(c.totalBytes,
		progressbar.OptionSetDescription(fmt.Sprintf("%s %s", c.operation, c.filename)),
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
}

// Advance records n more bytes moved. Its signature matches
// transport.ProgressFunc.
func (c *ConsoleUI) Advance(n int) {
	c.currentBytes += int64(n)
	if c.bar != nil {
		_ = c.bar.Add(n)
	}
}

// Transferred reports the bytes recorded since Begin
func (c *ConsoleUI) Transferred() int64 {
	return c.currentBytes
}

// Finish completes the progress bar
func (c *ConsoleUI) Finish() {
	if c.bar == nil {
		return
	}
	_ = c.bar.Finish()
	c.bar = nil
}

// ShowTransferSummary displays a summary of the finished transfer
func (c *ConsoleUI) ShowTransferSummary(outcome string, location string) {
	elapsed := time.Since(c.startTime)
	throughput := 0.0
	if elapsed.Seconds() > 0 {
		throughput = float64(c.currentBytes) / elapsed.Seconds()
	}

	fmt.Fprintf(c.out, "=============================================\n")
	fmt.Fprintf(c.out, "%s %s: %s\n", c.operation, c.filename, outcome)
	fmt.Fprintf(c.out, "+ Total bytes: %s\n", humanize.IBytes(uint64(c.currentBytes)))
	fmt.Fprintf(c.out, "+ Transfer time: %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(c.out, "+ Average throughput: %s/s\n", humanize.IBytes(uint64(throughput)))
	if location != "" {
		fmt.Fprintf(c.out, "+ Saved to: %s\n", location)
	}
	fmt.Fprintf(c.out, "=============================================\n")
}
