// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

package luac

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luavixen/rembulan-sub001/internal/luair"
)

func writeTempChunk(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk.lua")
	if err := os.WriteFile(path, []byte(source), 0o666); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCompileFile(t *testing.T) {
	path := writeTempChunk(t, "local x = 1\nreturn function() return x end\n")
	mod, err := compileFile(context.Background(), path, luair.CPUAccountingNone)
	if err != nil {
		t.Fatal(err)
	}
	if mod.Main == nil || mod.Main.Code == nil {
		t.Fatal("compiled module has no main code")
	}
	if len(mod.Functions) != 1 {
		t.Errorf("compiled module has %d nested functions; want 1", len(mod.Functions))
	}
}

func TestCompileFileSyntaxError(t *testing.T) {
	path := writeTempChunk(t, "if then end\n")
	if _, err := compileFile(context.Background(), path, luair.CPUAccountingNone); err == nil {
		t.Error("compiling a malformed chunk succeeded")
	}
}

func TestWriteModuleJSON(t *testing.T) {
	path := writeTempChunk(t, "return 1 + 2\n")
	mod, err := compileFile(context.Background(), path, luair.CPUAccountingEveryBasicBlock)
	if err != nil {
		t.Fatal(err)
	}
	sb := new(strings.Builder)
	if err := writeModuleJSON(sb, "chunk.lua", mod); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	for _, want := range []string{`"file":"chunk.lua"`, `"cpuAccounting":"every-basic-block"`, `"entry":"L0"`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON output %q does not contain %q", out, want)
		}
	}
}

func TestPrintModule(t *testing.T) {
	path := writeTempChunk(t, "return 1\n")
	mod, err := compileFile(context.Background(), path, luair.CPUAccountingNone)
	if err != nil {
		t.Fatal(err)
	}
	sb := new(strings.Builder)
	if err := printModule(sb, "chunk.lua", mod, true); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	for _, want := range []string{"main <chunk.lua:0>", "L0: (entry)", "ret r0"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing %q does not contain %q", out, want)
		}
	}
}
