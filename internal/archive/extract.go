package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hadup-labs/hadup/internal/platform"
)

// Kind identifies the archive format of a stack artifact.
type Kind string

const (
	Tar Kind = "tar" // gzip-compressed tarball, delegated to the tar utility
	Zip Kind = "zip"
)

// Job describes one extraction. It is a stateless value with no lifecycle
// beyond the Extract call.
type Job struct {
	ArchivePath string
	TargetDir   string
	Kind        Kind
}

// ErrSourceMissing reports that the archive path does not exist. Callers
// treat it as a no-op rather than a failure, to tolerate re-runs after the
// operator cleaned up downloaded artifacts by hand.
var ErrSourceMissing = errors.New("archive source missing")

// ToolError reports that the external extraction utility failed or the
// archive stream is malformed. Fatal to the owning dependency's install.
type ToolError struct {
	Archive string
	Err     error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Archive, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Extract unpacks job.ArchivePath into job.TargetDir, creating the target
// directory if absent and overwriting existing files (last-write-wins per
// entry). Extraction is not content-addressed: invoking Extract always
// performs a full extraction.
func Extract(ctx context.Context, job Job) error {
	if _, err := os.Stat(job.ArchivePath); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrSourceMissing, job.ArchivePath)
	}

	if err := os.MkdirAll(job.TargetDir, 0755); err != nil {
		return &ToolError{Archive: job.ArchivePath, Err: err}
	}

	switch job.Kind {
	case Zip:
		return extractZip(job.ArchivePath, job.TargetDir)
	default:
		return extractTar(ctx, job.ArchivePath, job.TargetDir)
	}
}

// extractTar delegates to the external tar utility, which handles the gzip
// layer and long-path entries the stack tarballs are full of.
func extractTar(ctx context.Context, archivePath, targetDir string) error {
	tarBin, err := exec.LookPath("tar")
	if err != nil {
		return &ToolError{Archive: archivePath, Err: fmt.Errorf("tar utility not found: %w", err)}
	}

	cmd := exec.CommandContext(ctx, tarBin, "-xzf", archivePath, "-C", targetDir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return &ToolError{
			Archive: archivePath,
			Err:     fmt.Errorf("tar exited with error: %w (%s)", err, strings.TrimSpace(string(out))),
		}
	}
	return nil
}

// extractZip walks the archive entries and writes each to targetDir joined
// with the entry's stored relative path, truncating any existing file.
func extractZip(archivePath, targetDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return &ToolError{Archive: archivePath, Err: err}
	}
	defer r.Close()

	for _, f := range r.File {
		if err := extractZipEntry(f, targetDir); err != nil {
			return &ToolError{Archive: archivePath, Err: err}
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, targetDir string) error {
	rel := filepath.FromSlash(f.Name)
	// Reject entries that would escape the target directory.
	if strings.Contains(rel, "..") {
		return fmt.Errorf("entry %q escapes target directory", f.Name)
	}
	dest := filepath.Join(targetDir, rel)

	if f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	if mode := f.Mode(); mode&0111 != 0 {
		return platform.Chmod(dest, mode.Perm())
	}
	return nil
}
