package controllers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"healthbot/healthbot/types"
	"healthbot/healthbot/utils/inflight"
	"healthbot/healthbot/utils/logging"

	"github.com/dustin/go-humanize"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

const promptDeleteDocument = "Delete this document? It will no longer be used for answers."

var ErrNotPDF = errors.New("only PDF files are allowed")

func (c *ChatController) LoadDocuments(ctx context.Context) error {
	err := inflight.Latest(&c.group, ctx, keyDocuments, c.api.ListDocuments, func(list []types.Document) {
		c.mu.Lock()
		c.view.Documents = list
		c.mu.Unlock()
	})
	if errors.Is(err, inflight.ErrSuperseded) {
		return nil
	}
	if err != nil {
		return c.failed(err, "load documents", "❌ Could not load documents: ")
	}
	c.ui.Refresh(PanelDocuments)
	return nil
}

// UploadDocument sends a PDF to be indexed. Only the extension is checked
// locally; the backend decides whether the content is usable.
func (c *ChatController) UploadDocument(ctx context.Context, name string, data []byte) error {
	defer logging.LogDuration(ctx, "ChatController.UploadDocument")()
	name = filepath.Base(name)

	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		c.ui.Notify(Notice{Level: LevelError, Text: "❌ Upload failed: Only PDF files are allowed"})
		return fmt.Errorf("%w: %s", ErrNotPDF, name)
	}
	pages := countPages(name, data)

	c.mu.Lock()
	if c.view.Uploading != "" {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	c.view.Uploading = name
	c.mu.Unlock()
	c.ui.Refresh(PanelDocuments)

	logging.AppLogger.Info("uploading document",
		zap.String("filename", name),
		zap.Int("pages", pages),
		zap.String("size", humanize.Bytes(uint64(len(data)))))

	res, err := c.api.UploadDocument(ctx, name, bytes.NewReader(data))

	c.mu.Lock()
	c.view.Uploading = ""
	c.mu.Unlock()
	c.ui.Refresh(PanelDocuments)

	if err != nil {
		if c.auth.handle(err) {
			return err
		}
		logging.AppLogger.Warn("upload failed", zap.String("filename", name), zap.Error(err))
		c.ui.Notify(Notice{Level: LevelError, Text: "❌ Upload failed: " + userMessage(err)})
		return err
	}

	c.ui.Notify(Notice{
		Level: LevelSuccess,
		Text:  fmt.Sprintf("✅ %s uploaded! Processed %d chunks.", res.Filename, res.ChunksCount),
	})
	return c.LoadDocuments(ctx)
}

func (c *ChatController) DeleteDocument(ctx context.Context, id string) error {
	if !c.ui.Confirm(promptDeleteDocument) {
		return nil
	}
	err := c.group.Exclusive("delete-document:"+id, func() error {
		return c.api.DeleteDocument(ctx, id)
	})
	if err != nil {
		return c.failed(err, "delete document", "❌ Delete failed: ")
	}
	return c.LoadDocuments(ctx)
}

// countPages returns the page count of data, or 0 when the local reader
// cannot open it.
func countPages(name string, data []byte) (pages int) {
	defer func() {
		if r := recover(); r != nil {
			logging.AppLogger.Info("pdf reader panicked", zap.String("filename", name), zap.Any("panic", r))
			pages = 0
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logging.AppLogger.Info("pdf not readable locally", zap.String("filename", name), zap.Error(err))
		return 0
	}
	return r.NumPage()
}
