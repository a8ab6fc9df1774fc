// Package logging builds the zap loggers used across docvec.
package logging
