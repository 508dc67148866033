package bundlers

import (
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/bundle"
	"github.com/swiftbundler/bundler/internal/guid"
)

// MSIBundler wraps GenericWindowsBundler: enumerate the produced tree into
// a WXSFile XML model, derive a deterministic UpgradeCode, and run
// "wix build" (spec §4.9).
type MSIBundler struct {
	Generic *GenericWindowsBundler
}

func (m *MSIBundler) IntendedOutput(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	path := filepath.Join(ctx.OutputDirectory, ctx.AppName+".msi")
	return bundle.OutputStructure{Bundle: path}, nil
}

// wxsFile is the subset of the WiX source-file model this bundler renders:
// one Component per file discovered in the generic-bundle tree.
type wxsFile struct {
	Name        string
	UpgradeCode string
	Version     string
	Components  []wxsComponent
}

type wxsComponent struct {
	ID       string
	FilePath string
}

var wxsTemplate = template.Must(template.New("wxs").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<Wix xmlns="http://wixtoolset.org/schemas/v4/wxs">
  <Package Name="{{.Name}}" Version="{{.Version}}" Manufacturer="{{.Name}}" UpgradeCode="{{.UpgradeCode}}">
    <MediaTemplate EmbedCab="yes" />
    <StandardDirectory Id="ProgramFilesFolder">
      <Directory Id="INSTALLFOLDER" Name="{{.Name}}">
        <Component>
          {{range .Components}}
          <File Id="{{.ID}}" Source="{{.FilePath}}" />
          {{end}}
        </Component>
      </Directory>
    </StandardDirectory>
  </Package>
</Wix>
`))

func (m *MSIBundler) Bundle(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	genericOut, err := m.Generic.Bundle(ctx)
	if err != nil {
		return bundle.OutputStructure{}, err
	}

	var components []wxsComponent
	err = filepath.Walk(genericOut.Bundle, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(genericOut.Bundle, path)
		if relErr != nil {
			return relErr
		}
		id := "f" + strings.ReplaceAll(strings.ReplaceAll(rel, string(filepath.Separator), "_"), ".", "_")
		components = append(components, wxsComponent{ID: id, FilePath: path})
		return nil
	})
	if err != nil {
		return bundle.OutputStructure{}, berr.Wrap(berr.Filesystem, err, "enumerating %s", genericOut.Bundle).With("path", genericOut.Bundle)
	}

	model := wxsFile{
		Name:        ctx.AppName,
		UpgradeCode: guid.Random(ctx.Configuration.Identifier),
		Version:     normalizeMSIVersion(ctx.Configuration.Version),
		Components:  components,
	}

	wxsPath := filepath.Join(ctx.OutputDirectory, ctx.AppName+".wxs")
	f, err := os.Create(wxsPath)
	if err != nil {
		return bundle.OutputStructure{}, berr.Wrap(berr.Filesystem, err, "creating %s", wxsPath).With("path", wxsPath)
	}
	err = wxsTemplate.Execute(f, model)
	f.Close()
	if err != nil {
		return bundle.OutputStructure{}, berr.Wrap(berr.BinaryFormat, err, "rendering %s", wxsPath).With("path", wxsPath)
	}

	msiPath := filepath.Join(ctx.OutputDirectory, ctx.AppName+".msi")
	if _, err := m.Generic.runner().Run("wix", "build", "-b", genericOut.Bundle, "-o", msiPath, wxsPath); err != nil {
		return bundle.OutputStructure{}, berr.Wrap(berr.ToolFailed, err, "running wix build on %s", wxsPath).With("path", wxsPath)
	}

	return bundle.OutputStructure{Bundle: msiPath}, nil
}

// normalizeMSIVersion trims a version string down to MSI's required
// three-component numeric form, falling back to "1.0.0" when empty.
func normalizeMSIVersion(v string) string {
	if v == "" {
		return "1.0.0"
	}
	parts := strings.Split(v, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return strings.Join(parts[:3], ".")
}
