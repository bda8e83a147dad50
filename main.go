package main

import "ai_content_agents/cli"

func main() {
	cli.Execute()
}
