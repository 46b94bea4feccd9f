package stubapi

import (
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/ad/go-scholar-wizard/internal/apiclient"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxUploadSize matches the limit documented for the upload endpoint.
const maxUploadSize = 10 << 20

type storedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

func (s *Server) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Bad Request", "multipart field \"file\" is required")
		return
	}
	if fh.Size > maxUploadSize {
		s.fail(c, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "file exceeds 10MB")
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	id := uuid.NewString()
	name := path.Base(fh.Filename)
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}

	s.mu.Lock()
	s.files[id] = storedFile{Name: name, ContentType: ct, Data: data}
	s.mu.Unlock()

	s.logger.Debug("file stored", zap.String("id", id), zap.String("name", name), zap.Int("bytes", len(data)))
	c.JSON(http.StatusCreated, apiclient.UploadResponse{URL: s.baseURL + "/files/" + id + "/" + url.PathEscape(name)})
}

func (s *Server) serveFile(c *gin.Context) {
	s.mu.Lock()
	f, ok := s.files[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		s.fail(c, http.StatusNotFound, "Not Found", "file not found")
		return
	}
	c.Data(http.StatusOK, f.ContentType, f.Data)
}
