package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skdltmxn/nettype-go/internal/mdtest"
	"github.com/skdltmxn/nettype-go/internal/sig"
	"github.com/skdltmxn/nettype-go/internal/tables"
	"github.com/skdltmxn/nettype-go/metadata"
	"github.com/skdltmxn/nettype-go/report"
)

const fooReport = `Ns.Foo:Count:is=field
Ns.Foo:Count:return=System.Int32
Ns.Foo:Make:is=method
Ns.Foo:Make:return=Ns.Foo
Ns.Foo:Make:arguments=
`

// isolate runs the command away from any user config.
func isolate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, key := range []string{"NETTYPE_DELIMITER", "NETTYPE_WORKERS", "NETTYPE_LOG"} {
		t.Setenv(key, "")
	}
	t.Chdir(dir)
	return dir
}

func writeSample(t *testing.T, dir string) string {
	t.Helper()

	b := mdtest.New()
	object := b.TypeRef("System", "Object")
	foo := b.BeginType(0, "Ns", "Foo", object)
	b.AddField(0, "Count", mdtest.FieldSig(mdtest.Elem(sig.ElemI4)))
	b.AddMethod(tables.MethodStatic, "Make", mdtest.MethodSig(false, mdtest.Class(b.TypeDefToken(foo))))

	path := filepath.Join(dir, "Sample.dll")
	require.NoError(t, os.WriteFile(path, b.PE(), 0o644))
	return path
}

func execute(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestScenario(t *testing.T) {
	dir := isolate(t)
	dll := writeSample(t, dir)

	code, stdout, stderr := execute("-a", dll, "-t", "@class", "-m", "@all")
	assert.Equal(t, exitOK, code, stderr)
	assert.Equal(t, fooReport, stdout)
}

func TestLongFlags(t *testing.T) {
	dir := isolate(t)
	dll := writeSample(t, dir)

	code, stdout, _ := execute("--assembly", dll, "--types", "Ns.Foo", "--members", "Count;Make", "--delimiter", ";", "--workers", "1")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, fooReport, stdout)
}

func TestDelimiterFromConfig(t *testing.T) {
	dir := isolate(t)
	dll := writeSample(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nettype.yaml"), []byte("delimiter: \",\"\n"), 0o644))

	code, stdout, _ := execute("-a", dll, "-t", "Ns.Foo", "-m", "Count,Make")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, fooReport, stdout)
}

func TestOutputFile(t *testing.T) {
	dir := isolate(t)
	dll := writeSample(t, dir)
	out := filepath.Join(dir, "report.txt")

	code, stdout, _ := execute("-a", dll, "-t", "@all", "-m", "@all", "-o", out)
	assert.Equal(t, exitOK, code)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, fooReport, string(data))
}

func TestOutputFileWriteFailure(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("no /dev/full on this system")
	}
	dir := isolate(t)
	dll := writeSample(t, dir)

	code, stdout, stderr := execute("-a", dll, "-t", "@all", "-m", "@all", "-o", "/dev/full")
	assert.Equal(t, exitMissingValue, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "failed to write output file")
}

func TestWorkersFromConfigAndFlag(t *testing.T) {
	dir := isolate(t)
	dll := writeSample(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nettype.yaml"), []byte("workers: -2\n"), 0o644))

	code, _, stderr := execute("-a", dll, "-t", "@all", "-m", "@all")
	assert.Equal(t, exitMissingValue, code)
	assert.Contains(t, stderr, "workers must not be negative")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "nettype.yaml"), []byte("workers: 2\n"), 0o644))
	code, _, stderr = execute("-a", dll, "-t", "@all", "-m", "@all", "-w", "-3")
	assert.Equal(t, exitMissingValue, code)
	assert.Contains(t, stderr, "invalid option: workers must not be negative, got: -3")

	code, stdout, _ := execute("-a", dll, "-t", "@all", "-m", "@all", "-w", "1")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, fooReport, stdout)
}

func TestManifestAssembly(t *testing.T) {
	dir := isolate(t)
	manifest := filepath.Join(dir, "Sample.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
types:
  - name: Ns.Foo
    members:
      - {name: Count, kind: field, type: System.Int32}
      - {name: Make, kind: method, type: Ns.Foo, static: true}
`), 0o644))

	code, stdout, _ := execute("-a", manifest, "-t", "@class", "-m", "@all")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, fooReport, stdout)
}

func TestEmptySelections(t *testing.T) {
	dir := isolate(t)
	dll := writeSample(t, dir)

	for _, args := range [][]string{
		{"-a", dll, "-t", "@@class", "-m", "@all"},
		{"-a", dll, "-t", "Ns.Missing", "-m", "@all"},
		{"-a", dll, "-t", "@all"},
		{"-a", dll},
	} {
		code, stdout, stderr := execute(args...)
		assert.Equal(t, exitOK, code, "%v", args)
		assert.Empty(t, stdout, "%v", args)
		assert.Empty(t, stderr, "%v", args)
	}
}

func TestHelpAndVersion(t *testing.T) {
	isolate(t)

	code, stdout, _ := execute()
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Usage:")
	assert.Contains(t, stdout, "@@reference")

	code, stdout, _ = execute("-h")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "--assembly")

	code, stdout, _ = execute("-v")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "nettype dev\n", stdout)

	code, stdout, _ = execute("--version")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "nettype dev\n", stdout)
}

func TestExitCodes(t *testing.T) {
	dir := isolate(t)
	dll := writeSample(t, dir)
	junk := filepath.Join(dir, "junk.dll")
	require.NoError(t, os.WriteFile(junk, []byte("MZ but nothing else"), 0o644))

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing assembly value", []string{"-a"}, exitMissingValue},
		{"missing types value", []string{"-a", dll, "--types"}, exitMissingValue},
		{"missing assembly option", []string{"-t", "@all"}, exitMissingValue},
		{"bad workers value", []string{"-a", dll, "-w", "many"}, exitMissingValue},
		{"empty delimiter", []string{"-a", dll, "-t", "@all", "-d", ""}, exitMissingValue},
		{"negative workers", []string{"-a", dll, "-t", "@all", "--workers=-1"}, exitMissingValue},
		{"unwritable output", []string{"-a", dll, "-t", "@all", "-m", "@all", "-o", filepath.Join(dir, "no", "such", "dir", "out.txt")}, exitMissingValue},
		{"unknown long flag", []string{"--bogus"}, exitUnknownOption},
		{"unknown short flag", []string{"-x"}, exitUnknownOption},
		{"positional argument", []string{"-a", dll, "extra"}, exitUnknownOption},
		{"assembly not found", []string{"-a", filepath.Join(dir, "Missing.dll"), "-t", "@all"}, exitLoadFailure},
		{"not an assembly", []string{"-a", junk, "-t", "@all"}, exitLoadFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := execute(tt.args...)
			assert.Equal(t, tt.want, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, "error:")
		})
	}
}

func TestExitCodeMapping(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitLoadFailure, exitCode(metadata.ErrAssemblyNotFound))
	assert.Equal(t, exitLoadFailure, exitCode(metadata.ErrAssemblyLoad))
	assert.Equal(t, exitUnsupportedKind, exitCode(&report.UnsupportedKindError{Type: "Ns.Foo", Member: "Changed", Kind: 7}))
	assert.Equal(t, exitUnknownOption, exitCode(&usageError{code: exitUnknownOption, err: errors.New("x")}))
	assert.Equal(t, exitMissingValue, exitCode(errors.New("anything else")))
}
