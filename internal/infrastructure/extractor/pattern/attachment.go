package pattern

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// readAttachments pulls each stored attachment and extracts its text: PDFs
// through the pdf reader, everything else as UTF-8 plain text.
func (e *Extractor) readAttachments(ctx context.Context, refs []string) (string, error) {
	var parts []string
	for _, ref := range refs {
		text, err := e.readAttachment(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("attachment %s: %w", ref, err)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

func (e *Extractor) readAttachment(ctx context.Context, ref string) (string, error) {
	reader, err := e.storage.Open(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("open attachment: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}

	if bytes.HasPrefix(raw, []byte("%PDF")) {
		return extractPDFText(raw)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("unsupported binary attachment format")
	}
	return strings.TrimSpace(string(raw)), nil
}

func extractPDFText(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	text, err := io.ReadAll(textReader)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(string(text)), nil
}
