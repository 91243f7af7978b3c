// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package version

import (
	"bytes"
	"fmt"
)

var (
	// GitCommit is the git commit that was compiled, filled in by the
	// compiler via ldflags.
	GitCommit string

	// Version is the main version number that is being run at the moment.
	Version = "0.1.0"

	// VersionPrerelease is a pre-release marker. An empty string means a
	// final release; otherwise this is "dev", "beta", "rc1", etc.
	VersionPrerelease = "dev"
)

// VersionInfo describes a build.
type VersionInfo struct {
	Revision          string
	Version           string
	VersionPrerelease string
}

func GetVersion() *VersionInfo {
	return &VersionInfo{
		Revision:          GitCommit,
		Version:           Version,
		VersionPrerelease: VersionPrerelease,
	}
}

func (v *VersionInfo) VersionNumber() string {
	version := v.Version
	if v.VersionPrerelease != "" {
		version = fmt.Sprintf("%s-%s", version, v.VersionPrerelease)
	}
	return version
}

func (v *VersionInfo) FullVersionNumber(rev bool) string {
	var versionString bytes.Buffer

	fmt.Fprintf(&versionString, "Kinderfleet v%s", v.Version)
	if v.VersionPrerelease != "" {
		fmt.Fprintf(&versionString, "-%s", v.VersionPrerelease)
	}
	if rev && v.Revision != "" {
		fmt.Fprintf(&versionString, " (%s)", v.Revision)
	}

	return versionString.String()
}
