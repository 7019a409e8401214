package main

import (
	"fmt"

	"github.com/jumpstarter-dev/jumpstarter-go/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
