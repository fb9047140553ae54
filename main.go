package main

import "github.com/bcgov/bc-emli-pin-mgmt-etl/cmd"

func main() {
	cmd.Execute()
}
