package storage

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "my_poster__1_.png", SanitizeName("my poster (1).png"))
	assert.Equal(t, "evil.png", SanitizeName("../../evil.png"))
	assert.Equal(t, "a.jpg", SanitizeName(`C:\tmp\a.jpg`))
	assert.Equal(t, "file", SanitizeName(""))
}

func fileHeader(t *testing.T, name, contentType string, body []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestSaveImage(t *testing.T) {
	s := New(t.TempDir())
	url, err := s.Save("movies", fileHeader(t, "poster one.png", "image/png", []byte("png-bytes")))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "/uploads/movies/"))
	assert.True(t, strings.HasSuffix(url, "-poster_one.png"))

	data, err := os.ReadFile(filepath.Join(s.Root, "movies", filepath.Base(url)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestSaveRejectsNonImage(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Save("movies", fileHeader(t, "notes.txt", "text/plain", []byte("hi")))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = s.Save("movies", fileHeader(t, "empty.png", "image/png", nil))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestPathStaysInsideRoot(t *testing.T) {
	s := New("/srv/uploads")
	assert.Equal(t, "/srv/uploads/qrcodes/x.png", s.Path("qrcodes", "x.png"))
	assert.Equal(t, "/srv/uploads/etc/x.png", s.Path("../../etc", "x.png"))
	assert.Equal(t, "/uploads/qrcodes/x.png", s.URL("qrcodes", "x.png"))
}
