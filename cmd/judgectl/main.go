package main

import "github.com/mcoot/judgeportal/internal/cli"

func main() {
	cli.Execute()
}
