package main

import "propdesk/internal/app"

func main() {
	app.Main()
}
