// ./main.go
package main

import (
	"github.com/xkilldash9x/domdex/cmd"
)

func main() {
	cmd.Execute()
}
