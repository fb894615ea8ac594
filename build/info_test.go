/*
 * Radon
 *
 * Copyright 2018 The Radon Authors.
 * Code is licensed under the GPLv3.
 *
 */

package build

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoString(t *testing.T) {
	{
		info := Info{Tag: "XShard-v1", GoVersion: "go1.24", Platform: "linux amd64"}
		assert.Equal(t, "tag=XShard-v1 go=go1.24 platform=linux/amd64", info.String())
	}

	{
		info := Info{Tag: "XShard-v1", Git: "abc", Time: "2020", GoVersion: "go1.24", Platform: "linux amd64"}
		assert.Equal(t, "tag=XShard-v1 git=abc time=2020 go=go1.24 platform=linux/amd64", info.String())
	}

	{
		info := GetInfo()
		assert.Equal(t, "XShard-unknown", info.Tag)
		assert.Equal(t, runtime.Version(), info.GoVersion)
	}
}
