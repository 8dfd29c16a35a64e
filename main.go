package main

import "github.com/secops-tools/falcon-report-diff/cmd"

func main() {
	cmd.Execute()
}
