// SPDX-License-Identifier: MPL-2.0

package main

import cmd "shdeps-cli/cmd/shdeps"

func main() {
	cmd.Execute()
}
