// Command server runs the user authentication service.
package main

import (
	"github.com/patric-chuzhbe/userauth/internal/app"
	"github.com/patric-chuzhbe/userauth/internal/logger"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		panic(err)
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		logger.Log.Errorln("Error calling the `theApp.Run()`: ", err)
	}
}
