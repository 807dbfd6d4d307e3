// Package main is the entry point for the qa-sync application
package main

import (
	"github.com/venturedive/qa-sync/cmd"
)

func main() {
	cmd.Execute()
}
