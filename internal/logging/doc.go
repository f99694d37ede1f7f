// Package logging provides a simple leveled logging interface for the
// ASCIIer service.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (per-frame progress, codec calls)
//   - INFO: General operational messages
//   - WARN: Warning conditions (missing audio, failed deletes)
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// forced to debug with DEBUG=true. Conversion jobs log through a Job logger
// so every line carries the job id.
package logging
