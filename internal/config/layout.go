package config

// Layout describes where the application keeps its files, which decides
// where the worker binary is searched for.
type Layout struct {
	// DevMode selects the development search order: a locally built binary
	// under DistDir, then a source build with cargo in ProjectDir.
	DevMode bool

	// ProjectDir is the root of the source tree containing the worker crate.
	ProjectDir string

	// DistDir holds development build output, searched as DistDir/bin.
	DistDir string

	// ResourcesDir is the packaged application's resources directory,
	// searched as ResourcesDir/bin.
	ResourcesDir string
}
