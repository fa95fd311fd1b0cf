package api_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/api"
	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/mocks"
	"github.com/phrazzld/taskhub/internal/platform/media"
	"github.com/phrazzld/taskhub/internal/service"
)

type fileFixture struct {
	root  string
	files *mocks.MockRepository[domain.ProjectFile, *domain.ProjectFile]
	srv   http.Handler
}

func newFileFixture(t *testing.T, p *shared.Principal) *fileFixture {
	t.Helper()
	f := &fileFixture{
		root:  t.TempDir(),
		files: mocks.NewMockRepository[domain.ProjectFile]("project file"),
	}
	svc := service.NewResource[domain.ProjectFile](f.files, nil)
	h := api.NewFileHandler(svc, media.New(f.root), nameSchema, 10, nil)
	f.srv = mount("/api/project-files", p, h.Routes)
	return f
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func (f *fileFixture) upload(t *testing.T, fields map[string]string, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, ctype := multipartBody(t, fields, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/project-files", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func TestFileHandler_Upload(t *testing.T) {
	t.Run("stores file and record", func(t *testing.T) {
		f := newFileFixture(t, alice)
		rec := f.upload(t, nil, "plan.txt", "step one")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		got := decode[domain.ProjectFile](t, rec)
		assert.Equal(t, "plan.txt", got.Name)
		assert.Equal(t, int64(8), got.Size)
		assert.Regexp(t, `^projects/[0-9a-f]{8}_plan\.txt$`, got.Path)

		raw, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(got.Path)))
		require.NoError(t, err)
		assert.Equal(t, "step one", string(raw))
		assert.Equal(t, 1, f.files.Len())
	})

	t.Run("double dot in file name", func(t *testing.T) {
		f := newFileFixture(t, alice)
		rec := f.upload(t, nil, "report..v2.pdf", "v2")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Regexp(t, `^projects/[0-9a-f]{8}_report\.\.v2\.pdf$`, decode[domain.ProjectFile](t, rec).Path)
	})

	t.Run("explicit name", func(t *testing.T) {
		f := newFileFixture(t, alice)
		rec := f.upload(t, map[string]string{"name": " Roadmap "}, "r.md", "# roadmap")
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "Roadmap", decode[domain.ProjectFile](t, rec).Name)
	})

	t.Run("missing file part", func(t *testing.T) {
		f := newFileFixture(t, alice)
		rec := f.upload(t, map[string]string{"name": "x"}, "", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{"No file was submitted."}, decode[shared.ErrorResponse](t, rec).Fields["file"])
	})

	t.Run("not multipart", func(t *testing.T) {
		f := newFileFixture(t, alice)
		rec := do(t, f.srv, http.MethodPost, "/api/project-files", map[string]string{"name": "x"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{"The submitted data was not a file."}, decode[shared.ErrorResponse](t, rec).Fields["file"])
	})

	t.Run("failed create removes the stored file", func(t *testing.T) {
		f := newFileFixture(t, alice)
		f.files.CreateFn = func(context.Context, *domain.ProjectFile) error { return errors.New("insert failed") }

		rec := f.upload(t, nil, "plan.txt", "step one")
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		entries, err := os.ReadDir(filepath.Join(f.root, "projects"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("requires authentication", func(t *testing.T) {
		f := newFileFixture(t, nil)
		rec := f.upload(t, nil, "plan.txt", "step one")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestFileHandler_DownloadAndDelete(t *testing.T) {
	f := newFileFixture(t, bob)
	rec := f.upload(t, nil, "notes.txt", "remember the milk")
	require.Equal(t, http.StatusCreated, rec.Code)
	stored := decode[domain.ProjectFile](t, rec)

	rec = do(t, f.srv, http.MethodGet, "/api/project-files/1/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "remember the milk", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "notes.txt")

	rec = do(t, f.srv, http.MethodDelete, "/api/project-files/1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, err := os.Stat(filepath.Join(f.root, filepath.FromSlash(stored.Path)))
	assert.True(t, os.IsNotExist(err))

	rec = do(t, f.srv, http.MethodGet, "/api/project-files/1/download", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFileHandler_DownloadMissingContent(t *testing.T) {
	f := newFileFixture(t, alice)
	rec := f.upload(t, nil, "gone.txt", "x")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, os.RemoveAll(filepath.Join(f.root, "projects")))

	rec = do(t, f.srv, http.MethodGet, "/api/project-files/1/download", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "File is missing from storage", decode[shared.ErrorResponse](t, rec).Error)
}
