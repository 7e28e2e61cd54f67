package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPahoLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paho.log")
	opts := NewOptions()
	opts.Format = FormatJSON
	opts.OutputPaths = []string{path}

	// Info level drops the library's debug tracing.
	quiet := NewPahoLogger(NewLogger(opts), "paho")
	quiet.Println("dropped")

	opts.Level = "debug"
	l := NewLogger(opts)
	p := NewPahoLogger(l, "autopaho")
	p.Printf("connecting to %s\n", "ws://b")
	p.Println("queue", 3)
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"message":"connecting to ws://b"`)
	assert.Contains(t, out, `"message":"queue 3"`)
	assert.Contains(t, out, `"source":"autopaho"`)
}
