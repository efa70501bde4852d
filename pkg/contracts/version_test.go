package contracts

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, "v1", info.APIVersion)
}

func TestGetFullVersionString(t *testing.T) {
	s := GetFullVersionString()
	assert.Contains(t, s, "solarclean v"+Version)
	assert.Contains(t, s, runtime.GOOS+"/"+runtime.GOARCH)
}
