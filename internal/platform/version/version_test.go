package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestWithVCS_FillsUnsetFields(t *testing.T) {
	info := withVCS(Info{Version: "dev", Commit: "unknown", BuildTime: "unknown"}, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "abc123"},
		{Key: "vcs.time", Value: "2026-01-01T00:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	})

	assert.Equal(t, "abc123", info.Commit)
	assert.Equal(t, "2026-01-01T00:00:00Z", info.BuildTime)
	assert.True(t, info.Modified)
}

func TestWithVCS_KeepsLinkerValues(t *testing.T) {
	info := withVCS(Info{Commit: "fromldflags", BuildTime: "yesterday"}, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "abc123"},
		{Key: "vcs.time", Value: "2026-01-01T00:00:00Z"},
	})

	assert.Equal(t, "fromldflags", info.Commit)
	assert.Equal(t, "yesterday", info.BuildTime)
	assert.False(t, info.Modified)
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "v1.2.0", Commit: "abc123", BuildTime: "2026-01-01T00:00:00Z", GoVersion: "go1.24.0"}
	assert.Equal(t, "v1.2.0 (commit abc123, built 2026-01-01T00:00:00Z, go1.24.0)", info.String())

	info.Modified = true
	assert.Contains(t, info.String(), "abc123-dirty")
}
