package config

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/rmlstar/internal/ir"
	"github.com/roach88/rmlstar/internal/sink"
	"github.com/roach88/rmlstar/internal/source"
)

// OpenRouter opens every configured source and registers it under its
// name. On failure the connectors opened so far are closed.
func (c Config) OpenRouter(logger *slog.Logger) (*source.Router, error) {
	if logger == nil {
		logger = slog.Default()
	}
	router := source.NewRouter(
		source.WithPreprocessor(c.Preprocessor()),
		source.WithLogger(logger),
	)
	for _, name := range c.SourceNames() {
		conn, err := c.openConnector(c.Sources[name])
		if err != nil {
			router.Close()
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
		router.Register(name, conn)
		logger.Debug("source opened", "source", name, "type", conn.Type())
	}
	return router, nil
}

func (c Config) openConnector(sc SourceConfig) (source.Connector, error) {
	switch sc.Type {
	case ir.SourceRDB:
		return source.OpenSQLite(c.Resolve(sc.DSN))
	case ir.SourceJSON:
		return source.NewJSONFiles(c.Resolve(sc.Path)), nil
	case ir.SourceCSV:
		return source.NewCSVFiles(c.Resolve(sc.Path)), nil
	case ir.SourceMemory:
		m := source.NewMemory()
		for name, t := range sc.Tables {
			m.Put(name, t)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown source type %q", sc.Type)
}

// OpenSink creates the configured output sink. stdout receives statements
// for the stdout kind.
func (c Config) OpenSink(stdout io.Writer, logger *slog.Logger) (sink.Sink, error) {
	switch c.Output.Kind {
	case OutputFile:
		return sink.NewFiles(c.Resolve(c.Output.Dir), c.Output.Format, logger)
	case OutputNATS:
		return sink.ConnectNATS(sink.NATSConfig{
			URL:     c.Output.NATS.URL,
			Subject: c.Output.NATS.Subject,
			Batch:   c.Output.NATS.Batch,
			Format:  c.Output.Format,
		}, logger)
	case OutputStdout, "":
		return sink.NewWriter(stdout), nil
	}
	return nil, fmt.Errorf("unknown output kind %q", c.Output.Kind)
}
