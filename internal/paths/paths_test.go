package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withCwd points the working-directory lookup at dir for the test.
func withCwd(t *testing.T, dir string) {
	t.Helper()
	prev := platformDir.getwd
	platformDir.getwd = func() (string, error) { return dir, nil }
	t.Cleanup(func() { platformDir.getwd = prev })
}

func TestDefaultConfigDir_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}

	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-config/treesync", got)
	})

	t.Run("falls back to ~/.config when XDG unset", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "treesync"), got)
	})
}

func TestDefaultConfigDir_Darwin(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("darwin-only test")
	}

	got, err := DefaultConfigDir()
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Library", "Application Support", "treesync"), got)
}

func TestResolveConfigDir(t *testing.T) {
	withLocal := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(withLocal, DefaultConfigDirName), 0o755))
	withoutLocal := t.TempDir()

	tests := []struct {
		name    string
		cwd     string
		flag    string
		envVal  string
		wantSub string // substring the result must contain
	}{
		{name: "flag wins over env", cwd: withLocal, flag: "/explicit/config", envVal: "/env/config", wantSub: "/explicit/config"},
		{name: "env wins when flag empty", cwd: withLocal, envVal: "/env/config", wantSub: "/env/config"},
		{name: "project dir when present", cwd: withLocal, wantSub: filepath.Join(withLocal, DefaultConfigDirName)},
		{name: "platform default otherwise", cwd: withoutLocal, wantSub: "treesync"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withCwd(t, tt.cwd)
			t.Setenv(EnvConfigDir, tt.envVal)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Contains(t, got, tt.wantSub)
		})
	}
}

func TestLocalConfigDir(t *testing.T) {
	cwd := t.TempDir()
	withCwd(t, cwd)

	t.Setenv(EnvConfigDir, "")
	got, err := LocalConfigDir("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, DefaultConfigDirName), got)

	got, err = LocalConfigDir("/flag/config")
	require.NoError(t, err)
	assert.Equal(t, "/flag/config", got)
}

func TestResolveDataDir(t *testing.T) {
	cwd := t.TempDir()
	withCwd(t, cwd)

	tests := []struct {
		name          string
		flag          string
		configYAMLVal string
		envVal        string
		want          string
	}{
		{name: "flag wins over all", flag: "/flag/data", configYAMLVal: "/config/data", envVal: "/env/data", want: "/flag/data"},
		{name: "config wins over env", configYAMLVal: "/config/data", envVal: "/env/data", want: "/config/data"},
		{name: "env when nothing else", envVal: "/env/data", want: "/env/data"},
		{name: "cwd default", want: filepath.Join(cwd, DefaultDataDirName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.envVal)
			got, err := ResolveDataDir(tt.flag, tt.configYAMLVal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDataDir_AbsolutePath(t *testing.T) {
	t.Setenv(EnvDataDir, "")
	got, err := ResolveDataDir("relative/flag", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}
