package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// FileGetter resolves Telegram file ids to downloadable links.
type FileGetter interface {
	GetFile(ctx context.Context, params *bot.GetFileParams) (*tgmodels.File, error)
	FileDownloadLink(f *tgmodels.File) string
}

// TelegramFiles opens pending files whose Source is a Telegram file id.
type TelegramFiles struct {
	bot  FileGetter
	http *http.Client
}

func NewTelegramFiles(b FileGetter, timeout time.Duration) *TelegramFiles {
	return &TelegramFiles{bot: b, http: &http.Client{Timeout: timeout}}
}

func (t *TelegramFiles) Open(ctx context.Context, f models.PendingFile) (io.ReadCloser, error) {
	file, err := t.bot.GetFile(ctx, &bot.GetFileParams{FileID: f.Source})
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", f.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.bot.FileDownloadLink(file), nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", f.Name, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download %s: %s", f.Name, resp.Status)
	}
	return resp.Body, nil
}
