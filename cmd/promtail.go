package main

import (
	"os"

	"github.com/ic2hrmk/promtail"
	"github.com/sirupsen/logrus"
)

// initLoki ships log entries to LOKI_ADDR through a logrus hook.
func (a *App) initLoki() error {
	if a.Config.LokiAddr == "" {
		return nil
	}

	instance, _ := os.Hostname()
	identifiers := map[string]string{
		"app":        appName,
		"instanceId": instance,
	}

	promTail, err := promtail.NewJSONv1Client(a.Config.LokiAddr, identifiers)
	if err != nil {
		return err
	}

	a.PromTail = promTail
	a.Logger.AddHook(&lokiHook{client: promTail})

	return nil
}

type lokiHook struct {
	client promtail.Client
}

func (h *lokiHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
	}
}

func (h *lokiHook) Fire(entry *logrus.Entry) error {
	line, err := (&logrus.JSONFormatter{}).Format(entry)
	if err != nil {
		return err
	}

	switch entry.Level {
	case logrus.WarnLevel:
		h.client.Warnf("%s", line)
	case logrus.InfoLevel:
		h.client.Infof("%s", line)
	default:
		h.client.Errorf("%s", line)
	}

	return nil
}
