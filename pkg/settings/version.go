package settings

var version = "dev"

// InDevelop reports whether the gateway runs a development build.
func InDevelop() bool {
	return Current.Develop || version == "dev"
}
