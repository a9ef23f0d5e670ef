// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package app

import "context"

// Sender defines the interface for sender application logic
type Sender interface {
	// Run prepares the given paths and sends them to one receiver
	Run(ctx context.Context, opts *SenderOptions) error
}

// Receiver defines the interface for receiver application logic
type Receiver interface {
	// Run accepts exactly one transfer and stores it
	Run(ctx context.Context, opts *ReceiverOptions) error
}

var (
	_ Sender   = (*SenderApp)(nil)
	_ Receiver = (*ReceiverApp)(nil)
)
