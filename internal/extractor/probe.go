package extractor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ProbeResult describes the installed extractor
type ProbeResult struct {
	Path    string
	Version string
}

// Probe checks that the binary is installed and reports its version
func (y *YTDLP) Probe(ctx context.Context) (ProbeResult, error) {
	path, err := exec.LookPath(y.binary)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("%w: %s: %v", ErrNotInstalled, y.binary, err)
	}

	res, err := y.command().Run(ctx, "--version")
	if err != nil {
		return ProbeResult{Path: path}, runError("version probe", ctx, res, err)
	}

	return ProbeResult{
		Path:    path,
		Version: firstLine(res.Stdout),
	}, nil
}

// String returns a log friendly description
func (p ProbeResult) String() string {
	if p.Version == "" {
		return p.Path
	}
	return strings.TrimSpace(p.Path + " " + p.Version)
}
