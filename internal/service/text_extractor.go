package service

import (
	"bytes"
	"context"
	"io"
	"strings"

	"adjunct-search-go/pkg/log"
	"adjunct-search-go/pkg/pdftext"
)

// TikaClient 是 Tika 服务的抽象，*tika.Client 满足它。
type TikaClient interface {
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// TextExtractor 从上传文件中提取纯文本。失败时返回空串，不中断提交流程。
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, fileName string) string
}

type textExtractor struct {
	tika     TikaClient
	localPDF func(data []byte) (string, error)
}

// NewTextExtractor 优先调用 Tika（可为 nil），失败或结果为空时使用本地 PDF 解析。
func NewTextExtractor(tika TikaClient) TextExtractor {
	return &textExtractor{tika: tika, localPDF: pdftext.Extract}
}

func (e *textExtractor) Extract(ctx context.Context, data []byte, fileName string) string {
	if len(data) == 0 {
		return ""
	}
	if e.tika != nil {
		text, err := e.tika.ExtractText(ctx, bytes.NewReader(data), fileName)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		if err != nil {
			log.FromContext(ctx).Warnw("Tika 提取失败, 改用本地解析", "component", "extractor", "file", fileName, "error", err)
		}
	}
	text, err := e.localPDF(data)
	if err != nil {
		log.FromContext(ctx).Warnw("本地 PDF 解析失败", "component", "extractor", "file", fileName, "error", err)
		return ""
	}
	return text
}
