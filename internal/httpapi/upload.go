// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/sessiond/sessiond/internal/apperror"
)

// UploadField is the multipart form field carrying the file.
const UploadField = "file"

type uploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

// Uploader stores multipart uploads as <unix-millis>-<basename> in Dir.
type Uploader struct {
	Dir      string
	MaxBytes int64
	Logger   *slog.Logger

	now func() time.Time
}

func (u *Uploader) clock() time.Time {
	if u.now != nil {
		return u.now()
	}
	return time.Now()
}

// ServeHTTP handles POST /upload.
func (u *Uploader) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, u.MaxBytes)

	src, header, err := r.FormFile(UploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rec := apperror.BadUserInput(UploadField).WithMessage("File exceeds the maximum upload size").Record()
			writeRecord(w, http.StatusRequestEntityTooLarge, rec)
			return
		}
		writeError(w, apperror.BadUserInput(UploadField).WithMessage("No file uploaded"))
		return
	}
	defer src.Close()

	base := sanitizeFilename(header.Filename)
	if base == "" {
		writeError(w, apperror.BadUserInput(UploadField).WithMessage("No file uploaded"))
		return
	}
	name := strconv.FormatInt(u.clock().UnixMilli(), 10) + "-" + base

	if err := u.save(name, src); err != nil {
		u.logger().ErrorContext(r.Context(), "upload failed", "filename", name, "error", err)
		writeError(w, apperror.Internal(err))
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{Message: "File Uploaded Successfully", Filename: name})
}

func (u *Uploader) save(name string, src io.Reader) error {
	if err := os.MkdirAll(u.Dir, 0o750); err != nil {
		return oops.Code("UPLOAD_DIR_FAILED").With("dir", u.Dir).Wrap(err)
	}

	path := filepath.Join(u.Dir, name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640) //nolint:gosec // name is sanitized
	if err != nil {
		return oops.Code("UPLOAD_CREATE_FAILED").With("path", path).Wrap(err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return oops.Code("UPLOAD_WRITE_FAILED").With("path", path).Wrap(err)
	}
	if err := dst.Close(); err != nil {
		return oops.Code("UPLOAD_WRITE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func (u *Uploader) logger() *slog.Logger {
	if u.Logger != nil {
		return u.Logger
	}
	return slog.Default()
}

// sanitizeFilename keeps only the final path element of a client-supplied
// name. Names that resolve to a directory come back empty.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == ".." {
		return ""
	}
	return base
}
