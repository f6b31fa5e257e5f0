// Package notify tells people about incident changes. A Dispatcher owns a
// small worker pool that hands each Notice to the configured notifiers (the
// application log and, when configured, a Slack channel).
package notify
