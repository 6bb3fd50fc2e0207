// internal/server/upload.go
package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	errordefs "github.com/vidshare/vidshare-api-go/internal/errors"
)

const maxFormValue = 64 << 10

// upload is a parsed multipart request: text fields plus the local paths
// of spooled file parts. The caller owns the files.
type upload struct {
	fields map[string]string
	files  map[string]string // Form field name to temp file path
}

// cleanup removes every spooled file.
func (u *upload) cleanup() {
	for _, p := range u.files {
		_ = os.Remove(p)
	}
}

// tooLarge maps a MaxBytesReader failure; other errors become bad requests.
func tooLarge(err error, message string) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return errordefs.Wrap(errordefs.VS_PAYLOAD_TOO_LARGE, "Request body too large", err)
	}
	return errordefs.Wrap(errordefs.VS_BAD_REQUEST, message, err)
}

// readBody reads a bounded request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return nil, tooLarge(err, "Invalid request body")
	}
	return body, nil
}

// readUpload streams a multipart body to disk. Only the named file fields
// are kept; other file parts are discarded. Nothing stays on disk when an
// error is returned.
func (m *Mux) readUpload(w http.ResponseWriter, r *http.Request, fileFields ...string) (*upload, error) {
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct != "multipart/form-data" {
		return nil, errordefs.New(errordefs.VS_BAD_REQUEST, "Expected multipart/form-data body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, m.opts.MaxUploadSize)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errordefs.Wrap(errordefs.VS_BAD_REQUEST, "Invalid multipart body", err)
	}

	wanted := make(map[string]bool, len(fileFields))
	for _, f := range fileFields {
		wanted[f] = true
	}
	up := &upload{fields: map[string]string{}, files: map[string]string{}}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return up, nil
		}
		if err != nil {
			up.cleanup()
			return nil, tooLarge(err, "Invalid multipart body")
		}

		name := part.FormName()
		switch {
		case part.FileName() == "":
			b, err := io.ReadAll(io.LimitReader(part, maxFormValue))
			if err != nil {
				up.cleanup()
				return nil, tooLarge(err, "Invalid multipart body")
			}
			up.fields[name] = string(b)
		case wanted[name] && up.files[name] == "":
			p, err := m.spool(part, part.FileName())
			if err != nil {
				up.cleanup()
				return nil, err
			}
			up.files[name] = p
		default:
			if _, err := io.Copy(io.Discard, part); err != nil {
				up.cleanup()
				return nil, tooLarge(err, "Invalid multipart body")
			}
		}
		part.Close()
	}
}

// spool copies one file part into the upload directory.
func (m *Mux) spool(src io.Reader, clientName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(clientName)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	f, err := os.CreateTemp(m.opts.UploadDir, "upload-*"+ext)
	if err != nil {
		return "", errordefs.Wrap(errordefs.VS_INTERNAL, "Internal server error", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", tooLarge(err, "Invalid multipart body")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", errordefs.Wrap(errordefs.VS_INTERNAL, "Internal server error", err)
	}
	return f.Name(), nil
}
