// Package metadata implements MetadataInserter (spec §4.10): it encodes the
// app's identifier/version/extra metadata as a small Go source file holding
// a byte array and a lookup function, compiles it per architecture, and
// archives the result into a static library downstream build systems can
// link against.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/procrunner"
)

// Payload is the JSON document embedded into the generated source file.
type Payload struct {
	AppIdentifier      string            `json:"appIdentifier"`
	AppVersion         string            `json:"appVersion"`
	AdditionalMetadata map[string]string `json:"additionalMetadata"`
}

// LinkFlags is what a caller passes through to the downstream build system
// once CompileObject (and, for libraries, Archive) has produced the metadata
// output.
type LinkFlags struct {
	Flags []string
}

var sourceTemplate = template.Must(template.New("metadata").Parse(`package main

/*
Generated by the bundler's metadata inserter. Not meant to be edited.
*/

// #include <stddef.h>
import "C"

var metadataBytes = []byte{ {{range .Bytes}}{{.}},{{end}} }

//export _getSwiftBundlerMetadata
func _getSwiftBundlerMetadata() *byte {
	return &metadataBytes[0]
}

func main() {}
`))

// GenerateSource renders the Go source file embedding payload as a byte
// array, writing it to dstGoFile.
func GenerateSource(payload Payload, dstGoFile string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return berr.Wrap(berr.BinaryFormat, err, "encoding metadata payload")
	}

	strBytes := make([]string, len(data))
	for i, b := range data {
		strBytes[i] = fmt.Sprintf("%d", b)
	}

	var buf bytes.Buffer
	if err := sourceTemplate.Execute(&buf, struct{ Bytes []string }{strBytes}); err != nil {
		return berr.Wrap(berr.BinaryFormat, err, "rendering metadata source")
	}
	if err := os.MkdirAll(filepath.Dir(dstGoFile), 0o755); err != nil {
		return berr.Wrap(berr.Filesystem, err, "creating %s", filepath.Dir(dstGoFile)).With("path", dstGoFile)
	}
	if err := os.WriteFile(dstGoFile, buf.Bytes(), 0o644); err != nil {
		return berr.Wrap(berr.Filesystem, err, "writing %s", dstGoFile).With("path", dstGoFile)
	}
	return nil
}

// CompileObject compiles srcGoFile for the given GOOS/GOARCH pair with cgo
// and "go build -buildmode=c-archive", writing the result to dstObjFile. The
// output is a single-architecture C static archive, not a bare relocatable
// object file.
func CompileObject(runner *procrunner.Runner, srcGoFile, dstObjFile, goos, goarch string) error {
	env := append([]string{}, runner.Env...)
	env = append(env, "GOOS="+goos, "GOARCH="+goarch, "CGO_ENABLED=1")
	sub := &procrunner.Runner{Dir: runner.Dir, Env: env}
	_, err := sub.Run("go", "build", "-buildmode=c-archive", "-o", dstObjFile, srcGoFile)
	return err
}

// Archive turns a set of per-architecture object files into a single static
// library with "ar r", mirroring the spec's per-architecture archive step.
func Archive(runner *procrunner.Runner, objFiles []string, dstLib string) error {
	args := append([]string{"r", dstLib}, objFiles...)
	_, err := runner.Run("ar", args...)
	return err
}

// LipoCombine merges multiple architecture-specific static libraries into a
// single universal static library, used on Apple targets only.
func LipoCombine(runner *procrunner.Runner, libs []string, dstUniversal string) error {
	args := append([]string{"-create", "-output", dstUniversal}, libs...)
	_, err := runner.Run("lipo", args...)
	return err
}

// ObjectLinkFlags returns the flags a caller passes to its own linker when
// the metadata inserter short-circuited to a bare object file (the
// single-architecture, non-Apple case).
func ObjectLinkFlags(objFile string) LinkFlags {
	return LinkFlags{Flags: []string{"-Xlinker", objFile, "-DSWIFT_BUNDLER_METADATA"}}
}

// LibraryLinkFlags returns the flags for the archived-library case: a
// "-lmetadata" search against libDir, where libDir contains libmetadata.a.
func LibraryLinkFlags(libDir string) LinkFlags {
	return LinkFlags{Flags: []string{
		"-Xlinker", "-lmetadata",
		"-Xlinker", "-L" + libDir,
		"-DSWIFT_BUNDLER_METADATA",
	}}
}
