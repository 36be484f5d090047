package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type store interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
	LastRole(ctx context.Context) (string, error)
	SetLastRole(ctx context.Context, role string) error
	LastVisitedPath(ctx context.Context, role string) (string, error)
	SetLastVisitedPath(ctx context.Context, role, path string) error
	ClearAllLastVisitedPaths(ctx context.Context) error
	Clear(ctx context.Context) error
}

func newRedisStoreTest(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedis(rdb, "tcred", "laptop", ttl), mr
}

func backends(t *testing.T) map[string]func(t *testing.T) store {
	t.Helper()
	return map[string]func(t *testing.T) store{
		"memory": func(t *testing.T) store { return NewMemory() },
		"file": func(t *testing.T) store {
			f, err := OpenFile(filepath.Join(t.TempDir(), "state", "credentials.json"))
			if err != nil {
				t.Fatalf("open file store: %v", err)
			}
			return f
		},
		"redis": func(t *testing.T) store {
			s, _ := newRedisStoreTest(t, 0)
			return s
		},
	}
}

func mustGet(t *testing.T, get func(context.Context) (string, error)) string {
	t.Helper()
	v, err := get(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return v
}

func TestStoreReadYourWrites(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			if got := mustGet(t, s.Token); got != "" {
				t.Fatalf("fresh store token = %q, want empty", got)
			}
			if err := s.SetToken(ctx, "tok-1"); err != nil {
				t.Fatalf("set token: %v", err)
			}
			if got := mustGet(t, s.Token); got != "tok-1" {
				t.Fatalf("token = %q, want tok-1", got)
			}
			if err := s.SetLastRole(ctx, "TEACHER"); err != nil {
				t.Fatalf("set role: %v", err)
			}
			if got := mustGet(t, s.LastRole); got != "TEACHER" {
				t.Fatalf("role = %q", got)
			}
			if err := s.SetLastVisitedPath(ctx, "TEACHER", "/dashboard/calendar"); err != nil {
				t.Fatalf("set path: %v", err)
			}
			path, err := s.LastVisitedPath(ctx, "TEACHER")
			if err != nil || path != "/dashboard/calendar" {
				t.Fatalf("path = %q err=%v", path, err)
			}
			other, err := s.LastVisitedPath(ctx, "STUDENT")
			if err != nil || other != "" {
				t.Fatalf("student path = %q err=%v, want empty", other, err)
			}

			if err := s.ClearToken(ctx); err != nil {
				t.Fatalf("clear token: %v", err)
			}
			if got := mustGet(t, s.Token); got != "" {
				t.Fatalf("token after clear = %q", got)
			}
			if got := mustGet(t, s.LastRole); got != "TEACHER" {
				t.Fatalf("ClearToken must keep role, got %q", got)
			}
		})
	}
}

func TestStoreClearAllLastVisitedPathsIdempotent(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			_ = s.SetToken(ctx, "tok")
			_ = s.SetLastVisitedPath(ctx, "TEACHER", "/dashboard/stats")
			_ = s.SetLastVisitedPath(ctx, "ADMIN", "/admin")

			for i := 0; i < 2; i++ {
				if err := s.ClearAllLastVisitedPaths(ctx); err != nil {
					t.Fatalf("clear paths #%d: %v", i+1, err)
				}
			}
			for _, role := range []string{"TEACHER", "ADMIN"} {
				p, err := s.LastVisitedPath(ctx, role)
				if err != nil || p != "" {
					t.Fatalf("%s path = %q err=%v, want empty", role, p, err)
				}
			}
			if got := mustGet(t, s.Token); got != "tok" {
				t.Fatalf("clearing paths must keep token, got %q", got)
			}
		})
	}
}

func TestStoreClearRemovesEverything(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			_ = s.SetToken(ctx, "tok")
			_ = s.SetLastRole(ctx, "TEACHER")
			_ = s.SetLastVisitedPath(ctx, "TEACHER", "/dashboard/students")

			if err := s.Clear(ctx); err != nil {
				t.Fatalf("clear: %v", err)
			}
			if err := s.Clear(ctx); err != nil {
				t.Fatalf("second clear: %v", err)
			}
			if got := mustGet(t, s.Token); got != "" {
				t.Fatalf("token = %q", got)
			}
			if got := mustGet(t, s.LastRole); got != "" {
				t.Fatalf("role = %q", got)
			}
			if p, _ := s.LastVisitedPath(ctx, "TEACHER"); p != "" {
				t.Fatalf("path = %q", p)
			}
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	ctx := context.Background()

	first, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = first.SetToken(ctx, "persisted")
	_ = first.SetLastRole(ctx, "TEACHER")
	_ = first.SetLastVisitedPath(ctx, "TEACHER", "/dashboard/calendar")

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != fileMode {
		t.Fatalf("file mode = %o, want %o", perm, fileMode)
	}

	second, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := mustGet(t, second.Token); got != "persisted" {
		t.Fatalf("token after reopen = %q", got)
	}
	if p, _ := second.LastVisitedPath(ctx, "TEACHER"); p != "/dashboard/calendar" {
		t.Fatalf("path after reopen = %q", p)
	}
}

func TestFileStoreCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := OpenFile(path)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}

func TestFileStoreEmptyPath(t *testing.T) {
	if _, err := OpenFile(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRedisStoreLayoutAndTTL(t *testing.T) {
	s, mr := newRedisStoreTest(t, time.Hour)
	ctx := context.Background()

	if s.Key() != "tcred:laptop" {
		t.Fatalf("key = %q", s.Key())
	}
	if err := s.SetToken(ctx, "tok"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	_ = s.SetLastVisitedPath(ctx, "TEACHER", "/dashboard")

	if got := mr.HGet("tcred:laptop", "token"); got != "tok" {
		t.Fatalf("hash token = %q", got)
	}
	if got := mr.HGet("tcred:laptop", "path:TEACHER"); got != "/dashboard" {
		t.Fatalf("hash path = %q", got)
	}
	if ttl := mr.TTL("tcred:laptop"); ttl != time.Hour {
		t.Fatalf("ttl = %v, want 1h", ttl)
	}
}

func TestRedisStoreOnlySetTokenRefreshesTTL(t *testing.T) {
	s, mr := newRedisStoreTest(t, time.Hour)
	ctx := context.Background()

	if err := s.SetToken(ctx, "tok"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	mr.FastForward(30 * time.Minute)

	if err := s.SetLastRole(ctx, "TEACHER"); err != nil {
		t.Fatalf("set role: %v", err)
	}
	if err := s.SetLastVisitedPath(ctx, "TEACHER", "/dashboard"); err != nil {
		t.Fatalf("set path: %v", err)
	}
	if ttl := mr.TTL("tcred:laptop"); ttl != 30*time.Minute {
		t.Fatalf("ttl after non-token writes = %v, want 30m", ttl)
	}

	if err := s.SetToken(ctx, "tok2"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if ttl := mr.TTL("tcred:laptop"); ttl != time.Hour {
		t.Fatalf("ttl after token write = %v, want 1h", ttl)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	s, mr := newRedisStoreTest(t, 0)
	mr.SetError("ERR store offline")

	_, err := s.Token(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if err := s.SetToken(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("set err = %v, want ErrUnavailable", err)
	}
}
