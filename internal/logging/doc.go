// Package logging provides structured logging for the openzug tools.
//
// It wraps a global zap logger behind small convenience functions. By
// default logging is silent so command output stays parseable; set the
// OPENZUG_LOG_LEVEL environment variable (debug, info, warn, error) to
// see what the API client is doing, including per-attempt retry
// details and JSON repair events at debug level.
//
// Initialize logging once at startup:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// All logging functions are safe for concurrent use.
package logging
