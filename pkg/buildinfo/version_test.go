package buildinfo

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	old := [3]string{Version, Commit, Date}
	t.Cleanup(func() { Version, Commit, Date = old[0], old[1], old[2] })

	Version, Commit, Date = "v1.2.3", "abc123", "2026-01-01"
	info := Get()
	if info.Version != "v1.2.3" || info.Commit != "abc123" || info.Date != "2026-01-01" {
		t.Errorf("Get() = %+v", info)
	}
	if got := String(); got != "version: v1.2.3\ncommit: abc123\nbuilt: 2026-01-01" {
		t.Errorf("String() = %q", got)
	}
	if got := Template(); !strings.HasPrefix(got, "{{.Name}} version v1.2.3\n") {
		t.Errorf("Template() = %q", got)
	}
}
