package relocate

import "testing"

func TestParseOtoolLSkipsHeaderAndSelf(t *testing.T) {
	output := `/tmp/Hello:
	/tmp/Hello (compatibility version 0.0.0, current version 0.0.0)
	/usr/lib/libSystem.B.dylib (compatibility version 1.0.0, current version 1292.0.0)
	@rpath/libExample.dylib (compatibility version 1.0.0, current version 1.0.0)`

	names := parseOtoolL(output)
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d: %v", len(names), names)
	}
	if names[1] != "@rpath/libExample.dylib" {
		t.Fatalf("unexpected name: %q", names[1])
	}
}

func TestIsDarwinSystemRecognizesBackDeployRuntime(t *testing.T) {
	if !isDarwinSystem(darwinBackDeployRuntime) {
		t.Fatal("expected back-deploy runtime to count as system")
	}
	if isDarwinSystem("@rpath/libExample.dylib") {
		t.Fatal("did not expect libExample to count as system")
	}
}

func TestParseLddLine(t *testing.T) {
	name, path, ok := parseLddLine("\tlibswiftCore.so.5 => /toolchain/usr/lib/libswiftCore.so.5 (0x00007f0000000000)")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if name != "libswiftCore.so.5" || path != "/toolchain/usr/lib/libswiftCore.so.5" {
		t.Fatalf("unexpected parse result: %q %q", name, path)
	}
}

func TestParseLddLineRejectsMalformed(t *testing.T) {
	if _, _, ok := parseLddLine("\tstatically linked"); ok {
		t.Fatal("expected malformed line to fail to parse")
	}
}

func TestParseDumpbinDependents(t *testing.T) {
	output := "Dump of file hello.exe\n\n" +
		"  Image has the following dependencies:\n\n" +
		"    swiftCore.dll\n" +
		"    KERNEL32.dll\n\n" +
		"  Summary\n"
	names := parseDumpbinDependents(output)
	if len(names) != 2 || names[0] != "swiftCore.dll" || names[1] != "KERNEL32.dll" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestWindowsAllowedMatchesPrefix(t *testing.T) {
	w := &Windows{}
	if !w.allowed("vcruntime140.dll") {
		t.Fatal("expected vcruntime140.dll to be allowed")
	}
	if w.allowed("user32.dll") {
		t.Fatal("did not expect user32.dll to be allowed")
	}
}

func TestHasUniversalRpathDetectsXcodeCase(t *testing.T) {
	output := `Load command 12
      cmd LC_RPATH
  cmdsize 32
     path @executable_path/../lib (offset 12)`
	if !hasUniversalRpath(output) {
		t.Fatal("expected @executable_path/../lib rpath to be detected")
	}
}

func TestHasUniversalRpathIgnoresPlainRpath(t *testing.T) {
	output := `Load command 12
      cmd LC_RPATH
  cmdsize 24
     path @executable_path (offset 12)`
	if hasUniversalRpath(output) {
		t.Fatal("did not expect plain @executable_path rpath to be detected")
	}
}
