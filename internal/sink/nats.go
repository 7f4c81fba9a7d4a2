package sink

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/roach88/rmlstar/internal/ir"
)

// Message headers set on every published batch.
const (
	HeaderPartition = "Rmlstar-Partition"
	HeaderBatch     = "Rmlstar-Batch"
	HeaderFormat    = "Rmlstar-Format"
)

// DefaultBatchSize is the number of statements per message.
const DefaultBatchSize = 500

// Publisher is the subset of *nats.Conn the sink needs.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
	Flush() error
}

// NATS publishes statements to a subject in batches. Each message body is
// a block of N-Triples or N-Quads lines; headers name the partition and the
// batch position ("3/7").
type NATS struct {
	pub     Publisher
	conn    *nats.Conn
	subject string
	batch   int
	format  ir.Format
	logger  *slog.Logger
}

// NATSConfig configures a NATS sink.
type NATSConfig struct {
	URL     string
	Subject string
	Batch   int
	Format  ir.Format
}

// ConnectNATS dials the server and returns a sink owning the connection.
func ConnectNATS(cfg NATSConfig, logger *slog.Logger) (*NATS, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("rmlstar"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	s := NewNATS(nc, cfg, logger)
	s.conn = nc
	return s, nil
}

// NewNATS creates a sink over an existing publisher. The publisher is not
// closed by Close.
func NewNATS(pub Publisher, cfg NATSConfig, logger *slog.Logger) *NATS {
	if cfg.Batch <= 0 {
		cfg.Batch = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATS{
		pub:     pub,
		subject: cfg.Subject,
		batch:   cfg.Batch,
		format:  cfg.Format,
		logger:  logger,
	}
}

// Write implements engine.Sink. Statements are published in lexical order.
func (s *NATS) Write(ctx context.Context, partition string, set *ir.StatementSet) error {
	lines := set.Sorted()
	total := (len(lines) + s.batch - 1) / s.batch
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled before publish: %w", err)
		}
		end := min((i+1)*s.batch, len(lines))
		var body strings.Builder
		for _, line := range lines[i*s.batch : end] {
			body.WriteString(line)
			body.WriteString(" .\n")
		}

		msg := nats.NewMsg(s.subject)
		msg.Header.Set(HeaderPartition, partition)
		msg.Header.Set(HeaderBatch, strconv.Itoa(i+1)+"/"+strconv.Itoa(total))
		msg.Header.Set(HeaderFormat, string(s.format))
		msg.Data = []byte(body.String())
		if err := s.pub.PublishMsg(msg); err != nil {
			return fmt.Errorf("publish partition %s batch %d: %w", partition, i+1, err)
		}
	}
	if err := s.pub.Flush(); err != nil {
		return fmt.Errorf("flush partition %s: %w", partition, err)
	}
	s.logger.Debug("partition published",
		"partition", partition,
		"subject", s.subject,
		"statements", len(lines),
		"messages", total,
	)
	return nil
}

// Close drains and closes the connection when the sink dialed it.
func (s *NATS) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
