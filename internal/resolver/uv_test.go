package resolver

import (
	"slices"
	"strings"
	"testing"
)

func TestSyncArgs(t *testing.T) {
	tests := []struct {
		name string
		opts SyncOptions
		want []string
	}{
		{
			name: "defaults",
			opts: SyncOptions{},
			want: []string{"sync"},
		},
		{
			name: "frozen",
			opts: SyncOptions{Frozen: true},
			want: []string{"sync", "--frozen"},
		},
		{
			name: "dependencies only",
			opts: SyncOptions{Frozen: true, NoInstallProject: true},
			want: []string{"sync", "--frozen", "--no-install-project"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := syncArgs(tt.opts)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("args = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSyncEnv(t *testing.T) {
	base := []string{"PATH=/usr/bin", "HOME=/home/u"}

	env := syncEnv(base, SyncOptions{
		CacheDir:        "/var/cache/kiln",
		CompileBytecode: true,
		CopyLinkMode:    true,
	})

	want := []string{
		"UV_CACHE_DIR=/var/cache/kiln",
		"UV_COMPILE_BYTECODE=1",
		"UV_LINK_MODE=copy",
	}
	for _, entry := range want {
		if !slices.Contains(env, entry) {
			t.Errorf("env missing %q: %v", entry, env)
		}
	}

	// Base environment is inherited, not replaced.
	for _, entry := range base {
		if !slices.Contains(env, entry) {
			t.Errorf("env lost base entry %q", entry)
		}
	}
}

func TestSyncEnvDefaults(t *testing.T) {
	env := syncEnv([]string{"PATH=/usr/bin"}, SyncOptions{})

	for _, entry := range env {
		if strings.HasPrefix(entry, "UV_") {
			t.Fatalf("unexpected resolver variable %q with zero options", entry)
		}
	}
}

func TestSyncEnvDoesNotMutateBase(t *testing.T) {
	base := make([]string, 1, 4)
	base[0] = "PATH=/usr/bin"

	syncEnv(base, SyncOptions{CacheDir: "/c"})

	if len(base) != 1 || base[0] != "PATH=/usr/bin" {
		t.Fatalf("base mutated: %v", base)
	}
}
