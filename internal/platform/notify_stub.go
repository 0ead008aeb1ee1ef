//go:build !linux && !darwin && !windows

package platform

import "github.com/sirupsen/logrus"

// Notify logs the message; there is no notification service to reach.
func Notify(title, body string, opts Options) error {
	logrus.WithFields(logrus.Fields{
		"function": "Notify",
		"app":      opts.app(),
		"title":    title,
	}).Info(body)
	return nil
}
