package site

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sitekeeper/internal/content"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestKindForAndPageFor(t *testing.T) {
	s, err := Open(t.TempDir(), Pages{Members: "team.html"}, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		kind content.Kind
		ok   bool
	}{
		{"projects.html", content.Projects, true},
		{"team.html", content.Members, true},
		{"member.html", "", false},
		{"finances.html", content.Finances, true},
		{"edit.html", "", false},
	}
	for _, tt := range tests {
		kind, ok := s.KindFor(tt.name)
		if kind != tt.kind || ok != tt.ok {
			t.Fatalf("KindFor(%q) = %q, %v; want %q, %v", tt.name, kind, ok, tt.kind, tt.ok)
		}
	}
	require.Equal(t, "team.html", s.PageFor(content.Members))
}

func TestRead_RejectsEscapes(t *testing.T) {
	s, err := Open(t.TempDir(), Pages{}, nil)
	require.NoError(t, err)

	for _, name := range []string{"", "../etc/passwd", "a/../../b", "missing.html"} {
		_, err := s.Read(name)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("Read(%q): expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestEditPage_FallsBackToShell(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, Pages{}, nil)
	require.NoError(t, err)

	b, err := s.EditPage()
	require.NoError(t, err)
	require.Contains(t, string(b), `id="forms-root"`)

	writeFile(t, dir, "edit.html", "<p>custom</p>")
	b, err = s.EditPage()
	require.NoError(t, err)
	require.Equal(t, "<p>custom</p>", string(b))
}

func TestRead_CachesUntilInvalidated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "projects.html", "v1")
	s, err := Open(dir, Pages{}, nil)
	require.NoError(t, err)

	b, err := s.Read("projects.html")
	require.NoError(t, err)
	require.Equal(t, "v1", string(b))

	writeFile(t, dir, "projects.html", "v2")
	b, _ = s.Read("/projects.html")
	require.Equal(t, "v1", string(b), "unwatched reads stay cached")

	s.invalidate("projects.html")
	b, _ = s.Read("projects.html")
	require.Equal(t, "v2", string(b))
}

func TestRead_ChangeDuringReadIsNotCached(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "projects.html", "v1")
	s, err := Open(dir, Pages{}, nil)
	require.NoError(t, err)

	s.readFile = func(path string) ([]byte, error) {
		b, err := os.ReadFile(path)
		// The file changes after its old bytes were read.
		writeFile(t, dir, "projects.html", "v2")
		s.invalidate("projects.html")
		return b, err
	}
	b, err := s.Read("projects.html")
	require.NoError(t, err)
	require.Equal(t, "v1", string(b))

	s.readFile = os.ReadFile
	b, err = s.Read("projects.html")
	require.NoError(t, err)
	require.Equal(t, "v2", string(b), "bytes read across a change must not stay cached")
}

func TestWatch_InvalidatesAndNotifies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "edit.html", "v1")
	s, err := Open(dir, Pages{}, nil)
	require.NoError(t, err)

	changed := make(chan string, 16)
	s.OnChange(func(name string) {
		select {
		case changed <- name:
		default:
		}
	})
	require.NoError(t, s.Watch())
	require.NoError(t, s.Watch())
	defer s.Close()

	b, _ := s.Read("edit.html")
	require.Equal(t, "v1", string(b))

	writeFile(t, dir, "edit.html", "v2")
	require.Eventually(t, func() bool {
		b, _ := s.Read("edit.html")
		return string(b) == "v2"
	}, 5*time.Second, 20*time.Millisecond)
	require.Equal(t, "edit.html", <-changed)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
