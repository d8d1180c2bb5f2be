package dotenv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile_MissingFileIsNoop(t *testing.T) {
	t.Parallel()
	if err := LoadFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("LoadFile missing file error: %v", err)
	}
}

func TestLoadFile_LoadsValuesAndPreservesExisting(t *testing.T) {
	tempDir := t.TempDir()
	envPath := filepath.Join(tempDir, ".env")
	content := "" +
		"# comment\n" +
		"FROM_FILE=loaded\n" +
		"QUOTED=\"hello world\"\n" +
		"export EXPORTED=ok\n" +
		"EXISTING=from_file\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("EXISTING", "already_set")

	if err := LoadFile(envPath); err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	if got := os.Getenv("FROM_FILE"); got != "loaded" {
		t.Fatalf("FROM_FILE=%q, want %q", got, "loaded")
	}
	if got := os.Getenv("QUOTED"); got != "hello world" {
		t.Fatalf("QUOTED=%q, want %q", got, "hello world")
	}
	if got := os.Getenv("EXPORTED"); got != "ok" {
		t.Fatalf("EXPORTED=%q, want %q", got, "ok")
	}
	if got := os.Getenv("EXISTING"); got != "already_set" {
		t.Fatalf("EXISTING=%q, want existing value preserved", got)
	}
}

func TestLoadFile_InlineCommentsAndEscapes(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	content := "" +
		"PLAIN_WITH_COMMENT=value # trailing\n" +
		"QUOTED_HASH=\"a # b\"\n" +
		"ESCAPED=\"line1\\nline2\"\n" +
		"SINGLE='raw\\n'\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	for _, k := range []string{"PLAIN_WITH_COMMENT", "QUOTED_HASH", "ESCAPED", "SINGLE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	if err := LoadFile(envPath); err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	tests := map[string]string{
		"PLAIN_WITH_COMMENT": "value",
		"QUOTED_HASH":        "a # b",
		"ESCAPED":            "line1\nline2",
		"SINGLE":             `raw\n`,
	}
	for k, want := range tests {
		if got := os.Getenv(k); got != want {
			t.Fatalf("%s=%q, want %q", k, got, want)
		}
	}
}

func TestLoad_EarlierFilesWin(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, ".env.local")
	second := filepath.Join(dir, ".env")
	if err := os.WriteFile(first, []byte("BONCUK_DOTENV_ORDER=local\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(second, []byte("BONCUK_DOTENV_ORDER=shared\nBONCUK_DOTENV_ONLY_SHARED=yes\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, k := range []string{"BONCUK_DOTENV_ORDER", "BONCUK_DOTENV_ONLY_SHARED"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	if err := Load(first, "", filepath.Join(dir, "missing"), second); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got := os.Getenv("BONCUK_DOTENV_ORDER"); got != "local" {
		t.Fatalf("BONCUK_DOTENV_ORDER=%q, want local", got)
	}
	if got := os.Getenv("BONCUK_DOTENV_ONLY_SHARED"); got != "yes" {
		t.Fatalf("BONCUK_DOTENV_ONLY_SHARED=%q", got)
	}
}
