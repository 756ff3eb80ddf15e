package models

import (
	"fmt"
	"strings"
)

// PackageType is the badge shown next to a variant. The set is closed.
type PackageType string

const (
	PackageTypeAPK    PackageType = "APK"
	PackageTypeBundle PackageType = "BUNDLE"
)

// ParsePackageType accepts exactly the badge texts the site uses.
func ParsePackageType(s string) (PackageType, error) {
	switch PackageType(s) {
	case PackageTypeAPK, PackageTypeBundle:
		return PackageType(s), nil
	}
	return "", fmt.Errorf("unknown package type %q (want APK or BUNDLE)", s)
}

// Extension maps the type to the output file extension.
func (t PackageType) Extension() (string, error) {
	switch t {
	case PackageTypeAPK:
		return "apk", nil
	case PackageTypeBundle:
		return "apkm", nil
	}
	return "", fmt.Errorf("unknown package type %q", string(t))
}

// VariantDescriptor is one downloadable row of a release's variant table.
type VariantDescriptor struct {
	Version      string      `json:"version" yaml:"version"` // label text of the download anchor
	Type         PackageType `json:"type" yaml:"type"`
	Architecture string      `json:"architecture" yaml:"architecture"`
	MinOSVersion string      `json:"min_os_version" yaml:"min_os_version"`
	ScreenDPI    string      `json:"screen_dpi" yaml:"screen_dpi"`
	DownloadLink string      `json:"download_link" yaml:"download_link"` // final binary URL
}

// Validate checks that every field has been filled in.
func (v VariantDescriptor) Validate() error {
	var missing []string
	if v.Version == "" {
		missing = append(missing, "version")
	}
	if v.Type == "" {
		missing = append(missing, "type")
	}
	if v.Architecture == "" {
		missing = append(missing, "architecture")
	}
	if v.MinOSVersion == "" {
		missing = append(missing, "min_os_version")
	}
	if v.ScreenDPI == "" {
		missing = append(missing, "screen_dpi")
	}
	if v.DownloadLink == "" {
		missing = append(missing, "download_link")
	}
	if len(missing) > 0 {
		return fmt.Errorf("variant is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func (v VariantDescriptor) String() string {
	return fmt.Sprintf("%s %s %s %s %s", v.Version, v.Type, v.Architecture, v.ScreenDPI, v.MinOSVersion)
}
