package main

import (
	"strings"

	"github.com/sirupsen/logrus"
)

func (a *App) initLogger() {
	a.Logger = logrus.New()
	a.Logger.SetLevel(logrus.InfoLevel)
}

// configureLogger applies LOG_LEVEL and LOG_FORMAT once the config is loaded.
func (a *App) configureLogger() {
	switch strings.ToUpper(a.Config.LogLevel) {
	case "DEBUG":
		a.Logger.SetLevel(logrus.DebugLevel)
	case "WARN", "WARNING":
		a.Logger.SetLevel(logrus.WarnLevel)
	case "ERROR":
		a.Logger.SetLevel(logrus.ErrorLevel)
	default:
		a.Logger.SetLevel(logrus.InfoLevel)
	}

	if strings.EqualFold(a.Config.LogFormat, "json") {
		a.Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		a.Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
