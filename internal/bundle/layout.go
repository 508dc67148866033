package bundle

import "path/filepath"

// DarwinAppLayout describes the Contents/-nested macOS bundle tree
// (spec §3, "Darwin macOS").
type DarwinAppLayout struct {
	AppDir     string
	Contents   string
	MacOS      string
	Resources  string
	Libraries  string
	Frameworks string
}

// NewDarwinAppLayout builds the full macOS .app skeleton paths rooted at
// outputDir/<name>.app.
func NewDarwinAppLayout(outputDir, name string) DarwinAppLayout {
	app := filepath.Join(outputDir, name+".app")
	contents := filepath.Join(app, "Contents")
	return DarwinAppLayout{
		AppDir:     app,
		Contents:   contents,
		MacOS:      filepath.Join(contents, "MacOS"),
		Resources:  filepath.Join(contents, "Resources"),
		Libraries:  filepath.Join(contents, "Libraries"),
		Frameworks: filepath.Join(contents, "Frameworks"),
	}
}

// DarwinEmbeddedLayout describes the flat iOS/tvOS/visionOS bundle tree
// (spec §3, "Darwin iOS/tvOS/visionOS").
type DarwinEmbeddedLayout struct {
	AppDir    string
	Resources string // same directory as AppDir; kept named for symmetry.
}

// NewDarwinEmbeddedLayout builds the flat embedded-Apple .app skeleton.
func NewDarwinEmbeddedLayout(outputDir, name string) DarwinEmbeddedLayout {
	app := filepath.Join(outputDir, name+".app")
	return DarwinEmbeddedLayout{AppDir: app, Resources: app}
}

// GenericLinuxLayout is the FHS-like tree (spec §3, "Generic Linux").
type GenericLinuxLayout struct {
	Root          string
	BinDir        string
	LibDir        string
	ApplicationsDir string
	IconsDir      string
	DBusServicesDir string
}

// NewGenericLinuxLayout builds the FHS-like tree rooted at root (e.g.
// "<out>/<Name>.generic" for the plain generic bundle, or the AppDir /
// rpmbuild BUILDROOT install path for the wrapping bundlers).
func NewGenericLinuxLayout(root string) GenericLinuxLayout {
	usr := filepath.Join(root, "usr")
	return GenericLinuxLayout{
		Root:            root,
		BinDir:          filepath.Join(usr, "bin"),
		LibDir:          filepath.Join(usr, "lib"),
		ApplicationsDir: filepath.Join(usr, "share", "applications"),
		IconsDir:        filepath.Join(usr, "share", "icons", "hicolor", "1024x1024", "apps"),
		DBusServicesDir: filepath.Join(usr, "share", "dbus-1", "services"),
	}
}

// AppImageLayout is the Generic-Linux tree renamed to <Name>.AppDir
// (spec §3, "AppImage").
type AppImageLayout struct {
	GenericLinuxLayout
	AppDir      string
	AppRun      string
	DirIcon     string
	DesktopLink string
}

// NewAppImageLayout builds the AppDir tree at outputDir/<name>.AppDir.
func NewAppImageLayout(outputDir, name string) AppImageLayout {
	appDir := filepath.Join(outputDir, name+".AppDir")
	return AppImageLayout{
		GenericLinuxLayout: NewGenericLinuxLayout(appDir),
		AppDir:             appDir,
		AppRun:             filepath.Join(appDir, "AppRun"),
		DirIcon:            filepath.Join(appDir, ".DirIcon"),
		DesktopLink:        filepath.Join(appDir, "top-level.desktop"),
	}
}

// RPMBuildLayout is the rpmbuild working tree (spec §3, "RPM").
type RPMBuildLayout struct {
	Root    string
	Build   string
	BuildRoot string
	RPMS    string
	Sources string
	Specs   string
	SRPMS   string
}

// NewRPMBuildLayout builds the rpmbuild/ tree rooted at outputDir/rpmbuild.
func NewRPMBuildLayout(outputDir string) RPMBuildLayout {
	root := filepath.Join(outputDir, "rpmbuild")
	return RPMBuildLayout{
		Root:      root,
		Build:     filepath.Join(root, "BUILD"),
		BuildRoot: filepath.Join(root, "BUILDROOT"),
		RPMS:      filepath.Join(root, "RPMS"),
		Sources:   filepath.Join(root, "SOURCES"),
		Specs:     filepath.Join(root, "SPECS"),
		SRPMS:     filepath.Join(root, "SRPMS"),
	}
}

// GenericWindowsLayout is the flat Windows tree (spec §3, "Generic Windows").
type GenericWindowsLayout struct {
	Root      string
	ModulesDir   string
	ResourcesDir string
}

// NewGenericWindowsLayout builds the bundle/ tree at outputDir/<name>.generic.
func NewGenericWindowsLayout(outputDir, name string) GenericWindowsLayout {
	root := filepath.Join(outputDir, name+".generic")
	return GenericWindowsLayout{
		Root:         root,
		ModulesDir:   filepath.Join(root, "modules"),
		ResourcesDir: filepath.Join(root, "resources"),
	}
}
