// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package ui

// ProgressUI defines the interface for transfer feedback
type ProgressUI interface {
	// ShowMessage displays a message to the user
	ShowMessage(message string)

	// Begin starts tracking a transfer; total is -1 when unknown
	Begin(name string, total int64)

	// Advance records bytes moved since the last call
	Advance(n int)

	// Transferred reports the bytes recorded since Begin
	Transferred() int64

	// Finish completes any progress display
	Finish()

	// ShowTransferSummary prints the outcome of the transfer
	ShowTransferSummary(outcome string, location string)
}

var _ ProgressUI = (*ConsoleUI)(nil)
