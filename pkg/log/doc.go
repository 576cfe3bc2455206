// Package log provides the logging abstraction used across sr-transferencias.
//
// Components depend on the Logger interface rather than on a concrete
// library. The zerolog adapter is what the service binary uses; tests use
// the no-op logger.
//
// # Usage
//
//	logger, err := log.NewZerologAdapter(os.Stderr, "info")
//	if err != nil {
//	    return err
//	}
//	logger.Info("record stored", log.String("id", rec.ID))
//
// Or, when output is not wanted:
//
//	logger := log.NewNoopLogger()
package log
