package ck3tokens

import (
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	data := `
0x002e save_game_version
0x1234 meta_data

# comments are not special-cased, but this file has none
002f gold
`
	// The loader doesn't special-case '#' comments, so a stray comment
	// line above would fail to parse as "<hex> <name>" -- keep fixtures
	// free of '#' lines.
	data = strings.ReplaceAll(data, "# comments are not special-cased, but this file has none\n", "")

	m, err := Load(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	name, ok := m.Resolve(0x002e)
	if !ok || name != "save_game_version" {
		t.Errorf("Resolve(0x2e) = %q, %v", name, ok)
	}
	name, ok = m.Resolve(0x002f)
	if !ok || name != "gold" {
		t.Errorf("Resolve(0x2f) = %q, %v", name, ok)
	}
	if _, ok := m.Resolve(0xffff); ok {
		t.Error("unknown id should not resolve")
	}
}

func TestLoadMalformed(t *testing.T) {
	if _, err := Load(strings.NewReader("notanumber foo\n")); err == nil {
		t.Fatal("expected error for non-hex id")
	}
	if _, err := Load(strings.NewReader("0x01\n")); err == nil {
		t.Fatal("expected error for missing identifier")
	}
}

func TestLoadFromEnvUnset(t *testing.T) {
	t.Setenv("CK3SAVE_TEST_DICT_UNSET", "")
	if _, err := LoadFromEnv("CK3SAVE_TEST_DICT_UNSET"); err == nil {
		t.Fatal("expected error when env var unset")
	}
}
