package main

import "github.com/bigbluebutton/bbb-frame-monitor/internal/app"

func main() {
	app.Main()
}
