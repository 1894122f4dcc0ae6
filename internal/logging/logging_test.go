package logging

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"stdout only", Config{Level: "info"}, false},
		{"file", Config{Level: "debug", File: "x.log", MaxSize: 10}, false},
		{"upper case level", Config{Level: "WARN"}, false},
		{"bad level", Config{Level: "verbose"}, true},
		{"file without size", Config{Level: "info", File: "x.log"}, true},
		{"negative backups", Config{Level: "info", MaxBackups: -1}, true},
		{"negative age", Config{Level: "info", MaxAge: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, LevelWarn)

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warn("warn %d", 3)
	l.Error("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "[WARN] warn 3")
	assert.Contains(t, out, "[ERROR] error 4")
}

func TestLogHTTPRequest_LevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, LevelWarn)

	l.LogHTTPRequest("req-1", "POST", "/api/messages", "10.0.0.1", 201, 10, "1ms")
	assert.Empty(t, buf.String())

	l.LogHTTPRequest("req-2", "POST", "/api/messages", "10.0.0.1", 500, 10, "1ms")
	assert.Contains(t, buf.String(), "req-2")
}

func TestNew_WritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "server.log")
	l, err := New(&Config{Level: LevelInfo, File: file, MaxSize: 1})
	require.NoError(t, err)
	defer l.Close()

	l.Info("hello")
	assert.FileExists(t, file)
}
