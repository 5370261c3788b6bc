package common

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStartupInfo(t *testing.T) {
	config := NewDefaultConfig()
	config.Provider.Type = "http"
	config.Provider.BaseURL = "https://data.example.com"

	info := NewStartupInfo(config, []string{"memory", "disk"}, nil)
	assert.Equal(t, "http https://data.example.com", info.Provider)
	assert.Equal(t, "http://0.0.0.0:8080", info.ServiceURL)
}

func TestWriteBanner(t *testing.T) {
	var buf bytes.Buffer
	WriteBanner(&buf, "test", StartupInfo{
		ServiceURL: "http://localhost:8080",
		Provider:   "file",
		CacheTiers: []string{"memory", "shared", "disk"},
	})

	out := buf.String()
	assert.Contains(t, out, "Fundamental Analysis Pipeline")
	assert.Contains(t, out, "memory > shared > disk")
	assert.Contains(t, out, "none (insights disabled)")
	assert.Contains(t, out, GetVersion())
}
