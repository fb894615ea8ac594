/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package build

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	tag      = "unknown" // tag of this build
	git      string      // git hash
	time     string      // build time
	platform = fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH)
)

// Info describes the running binary, the fields are injected by ldflags:
// -X github.com/radondb/xshard/build.tag=... (git, time likewise).
type Info struct {
	Tag       string
	Time      string
	Git       string
	GoVersion string
	Platform  string
}

// GetInfo returns the info.
func GetInfo() Info {
	return Info{
		GoVersion: runtime.Version(),
		Tag:       "XShard-" + tag,
		Time:      time,
		Git:       git,
		Platform:  platform,
	}
}

// String renders the info as space separated key=value pairs, empty fields are skipped.
func (i Info) String() string {
	pairs := []string{"tag=" + i.Tag}
	if i.Git != "" {
		pairs = append(pairs, "git="+i.Git)
	}
	if i.Time != "" {
		pairs = append(pairs, "time="+i.Time)
	}
	pairs = append(pairs, "go="+i.GoVersion, "platform="+strings.Replace(i.Platform, " ", "/", 1))
	return strings.Join(pairs, " ")
}
