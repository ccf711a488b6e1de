// Package logger builds configured slog loggers and provides typed attribute
// helpers for the identifiers that recur across the notification pipeline
// (user, queue entry, delivery attempt, channel).
package logger
