package versions

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionInfo(t *testing.T) {
	t.Parallel()

	noVCS := func() (string, string) { return "", "" }
	vcs := func() (string, string) { return "0123456789abcdef", "2025-03-04T05:06:07Z" }

	tests := []struct {
		name          string
		version       string
		commit        string
		buildDate     string
		vcs           func() (string, string)
		wantVersion   string
		wantCommit    string
		wantBuildDate string
	}{
		{
			name:          "release build",
			version:       "v1.2.3",
			commit:        "abc",
			buildDate:     "2025-01-15T10:30:00Z",
			vcs:           vcs,
			wantVersion:   "v1.2.3",
			wantCommit:    "abc",
			wantBuildDate: "2025-01-15 10:30:00 UTC",
		},
		{
			name:          "dev build reads vcs info",
			version:       "dev",
			commit:        unknown,
			buildDate:     unknown,
			vcs:           vcs,
			wantVersion:   "build-01234567",
			wantCommit:    "0123456789abcdef",
			wantBuildDate: "2025-03-04 05:06:07 UTC",
		},
		{
			name:          "dev build without vcs info",
			version:       "dev",
			commit:        unknown,
			buildDate:     unknown,
			vcs:           noVCS,
			wantVersion:   "build-unknown",
			wantCommit:    unknown,
			wantBuildDate: unknown,
		},
		{
			name:          "unparseable build date kept",
			version:       "v0.1.0",
			commit:        "abc",
			buildDate:     "yesterday",
			vcs:           noVCS,
			wantVersion:   "v0.1.0",
			wantCommit:    "abc",
			wantBuildDate: "yesterday",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := versionInfo(tt.version, tt.commit, tt.buildDate, tt.vcs)
			assert.Equal(t, tt.wantVersion, info.Version)
			assert.Equal(t, tt.wantCommit, info.Commit)
			assert.Equal(t, tt.wantBuildDate, info.BuildDate)
			assert.Equal(t, runtime.Version(), info.GoVersion)
			assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
		})
	}
}
