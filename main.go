// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// vimsicles transfers one verified file or folder between two hosts
package main

import "vimsicles/cmd"

func main() {
	cmd.Execute()
}
