// CLAUDE:SUMMARY Source retrieval: HTTP download with retries, ZIP member extraction, local path resolution.
package importer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var httpClient = &http.Client{Timeout: 10 * time.Minute}

// downloadFile downloads url to dest with retries and timeout.
func downloadFile(ctx context.Context, url, dest string) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * 250 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
			continue
		}

		f, err := os.Create(dest)
		if err != nil {
			resp.Body.Close()
			return fmt.Errorf("create file: %w", err)
		}

		_, copyErr := io.Copy(f, resp.Body)
		resp.Body.Close()
		closeErr := f.Close()

		if copyErr != nil {
			lastErr = copyErr
			continue
		}
		if closeErr != nil {
			return closeErr
		}
		return nil
	}
	return fmt.Errorf("download %s failed after 3 attempts: %w", url, lastErr)
}

// extractMember extracts one file from a ZIP archive into destDir. An empty
// member selects the archive's only file.
func extractMember(src, member, destDir string) (string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var files []*zip.File
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if member == "" || f.Name == member || path.Base(f.Name) == member {
			files = append(files, f)
		}
	}
	switch {
	case len(files) == 0 && member != "":
		return "", fmt.Errorf("zip member %q not found", member)
	case len(files) == 0:
		return "", fmt.Errorf("zip archive is empty")
	case len(files) > 1:
		return "", fmt.Errorf("zip archive has %d files, set member", len(files))
	}

	f := files[0]
	destPath := filepath.Join(destDir, filepath.Base(f.Name))
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", destPath, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return "", fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return destPath, nil
}

func isRemote(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// localize returns a local file path for spec, downloading and unzipping
// into workDir as needed.
func localize(ctx context.Context, spec *Spec, workDir string) (string, error) {
	local := spec.Path
	if isRemote(spec.Path) {
		name := path.Base(strings.SplitN(spec.Path, "?", 2)[0])
		if name == "" || name == "/" || name == "." {
			name = "source"
		}
		local = filepath.Join(workDir, name)
		if err := downloadFile(ctx, spec.Path, local); err != nil {
			return "", fmt.Errorf("download: %w", err)
		}
	}
	if strings.EqualFold(filepath.Ext(local), ".zip") {
		extracted, err := extractMember(local, spec.Member, workDir)
		if err != nil {
			return "", fmt.Errorf("unzip: %w", err)
		}
		local = extracted
	}
	return local, nil
}
