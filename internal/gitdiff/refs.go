package gitdiff

import (
	"context"
	"os/exec"
	"strings"

	cserr "github.com/changescribe/changescribe/internal/errors"
)

// ResolveRef resolves a ref name to a commit SHA.
// Fails with a RefNotFound error when the ref does not exist.
func ResolveRef(ctx context.Context, repoPath, ref string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--verify", ref+"^{commit}")
	cmd.Dir = repoPath

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", cserr.Timeout(ctx.Err())
		}
		return "", cserr.RefNotFound(ref, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// FindRepoRoot returns the root directory of the git repository
func FindRepoRoot(repoPath string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = repoPath
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}
