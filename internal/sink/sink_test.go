package sink

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rmlstar/internal/ir"
)

func setOf(lines ...string) *ir.StatementSet {
	s := ir.NewStatementSet()
	for _, l := range lines {
		s.Add(l)
	}
	return s
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriter(&buf)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "b", setOf("<b> <p> <o>")))
	require.NoError(t, s.Write(ctx, "a", setOf("<a> <p> <o2>", "<a> <p> <o1>")))
	require.NoError(t, s.Close())

	assert.Equal(t, "<b> <p> <o> .\n<a> <p> <o1> .\n<a> <p> <o2> .\n", buf.String())
}

func TestWriter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewWriter(&bytes.Buffer{}).Write(ctx, "a", setOf("<a> <p> <o>"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewFiles(dir, ir.FormatNQuads, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "http://ex.org/TriplesMap1", setOf("<a> <p> <o> <g>")))
	require.NoError(t, s.Write(ctx, "people", setOf("<b> <p> <o>")))

	data, err := os.ReadFile(filepath.Join(dir, "http___ex.org_TriplesMap1.nq"))
	require.NoError(t, err)
	assert.Equal(t, "<a> <p> <o> <g> .\n", string(data))

	data, err = os.ReadFile(s.Path("people"))
	require.NoError(t, err)
	assert.Equal(t, "<b> <p> <o> .\n", string(data))
}

func TestFiles_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFiles(dir, ir.FormatNTriples, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "p", setOf("<a> <p> <1>", "<a> <p> <2>")))
	require.NoError(t, s.Write(ctx, "p", setOf("<a> <p> <3>")))

	data, err := os.ReadFile(filepath.Join(dir, "p.nt"))
	require.NoError(t, err)
	assert.Equal(t, "<a> <p> <3> .\n", string(data))
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"people", "people"},
		{"a/b c", "a_b_c"},
		{"..", "partition"},
		{"", "partition"},
		{"v1.2", "v1.2"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, safeName(tt.in))
		})
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".nt", Extension(ir.FormatNTriples))
	assert.Equal(t, ".nq", Extension(ir.FormatNQuads))
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "x", setOf("<a> <p> <o>", "<b> <p> <o>")))
	require.NoError(t, s.Write(ctx, "y", setOf("<a> <p> <o>", "<c> <p> <o>")))

	assert.Equal(t, []string{"<a> <p> <o>", "<b> <p> <o>", "<c> <p> <o>"}, s.Set().Sorted())
	assert.Equal(t, []string{"x", "y"}, s.Partitions())

	// Set returns a copy.
	s.Set().Add("<z> <p> <o>")
	assert.Equal(t, 3, s.Set().Len())
}

type fakePublisher struct {
	msgs    []*nats.Msg
	flushes int
	failAt  int
}

func (f *fakePublisher) PublishMsg(m *nats.Msg) error {
	if f.failAt > 0 && len(f.msgs)+1 == f.failAt {
		return errors.New("connection closed")
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakePublisher) Flush() error {
	f.flushes++
	return nil
}

func TestNATS_Batches(t *testing.T) {
	pub := &fakePublisher{}
	s := NewNATS(pub, NATSConfig{Subject: "rdf.out", Batch: 2, Format: ir.FormatNTriples}, nil)

	set := setOf("<a> <p> <1>", "<a> <p> <2>", "<a> <p> <3>")
	require.NoError(t, s.Write(context.Background(), "people", set))
	require.NoError(t, s.Close())

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, 1, pub.flushes)

	first := pub.msgs[0]
	assert.Equal(t, "rdf.out", first.Subject)
	assert.Equal(t, "people", first.Header.Get(HeaderPartition))
	assert.Equal(t, "1/2", first.Header.Get(HeaderBatch))
	assert.Equal(t, "ntriples", first.Header.Get(HeaderFormat))
	assert.Equal(t, "<a> <p> <1> .\n<a> <p> <2> .\n", string(first.Data))

	assert.Equal(t, "2/2", pub.msgs[1].Header.Get(HeaderBatch))
	assert.Equal(t, "<a> <p> <3> .\n", string(pub.msgs[1].Data))
}

func TestNATS_DefaultBatch(t *testing.T) {
	pub := &fakePublisher{}
	s := NewNATS(pub, NATSConfig{Subject: "rdf"}, nil)

	set := ir.NewStatementSet()
	for i := 0; i < DefaultBatchSize+1; i++ {
		set.Add("<s> <p> \"" + strings.Repeat("x", i) + "\"")
	}
	require.NoError(t, s.Write(context.Background(), "p", set))
	assert.Len(t, pub.msgs, 2)
}

func TestNATS_EmptyPartition(t *testing.T) {
	pub := &fakePublisher{}
	s := NewNATS(pub, NATSConfig{Subject: "rdf"}, nil)
	require.NoError(t, s.Write(context.Background(), "p", ir.NewStatementSet()))
	assert.Empty(t, pub.msgs)
}

func TestNATS_PublishError(t *testing.T) {
	pub := &fakePublisher{failAt: 2}
	s := NewNATS(pub, NATSConfig{Subject: "rdf", Batch: 1}, nil)

	err := s.Write(context.Background(), "p", setOf("<a> <p> <1>", "<a> <p> <2>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish partition p batch 2")
	assert.Len(t, pub.msgs, 1)
}

func TestNATS_Cancelled(t *testing.T) {
	pub := &fakePublisher{}
	s := NewNATS(pub, NATSConfig{Subject: "rdf"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Write(ctx, "p", setOf("<a> <p> <1>"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pub.msgs)
}
