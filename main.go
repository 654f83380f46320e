package main

import (
	"github.com/luma/humlsp/cmd"
)

func main() {
	cmd.Execute()
}
