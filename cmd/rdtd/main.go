// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package main

import "github.com/rdtd/rdtd/cmd/rdtd/commands"

func main() {
	commands.Execute()
}
