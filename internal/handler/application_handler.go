// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"adjunct-search-go/internal/repository"
	"adjunct-search-go/internal/service"
	"adjunct-search-go/pkg/log"
)

// uploadError 是上传校验失败时原样返回给客户端的提示。
type uploadError string

func (e uploadError) Error() string { return string(e) }

const (
	errNotPDF   uploadError = "Only PDF files are allowed"
	errTooLarge uploadError = "File exceeds the maximum allowed size"
)

// ApplicationHandler 负责申请提交和协调人查看申请的接口。
type ApplicationHandler struct {
	applicationService service.ApplicationService
	maxFileBytes       int64
}

// NewApplicationHandler 创建一个新的 ApplicationHandler 实例。
func NewApplicationHandler(applicationService service.ApplicationService, maxFileBytes int64) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService, maxFileBytes: maxFileBytes}
}

// Submit 处理申请表单提交 (multipart/form-data)。
func (h *ApplicationHandler) Submit(c *gin.Context) {
	in := service.ApplicationInput{
		FullName: c.PostForm("fullName"),
		Email:    c.PostForm("email"),
		Phone:    c.PostForm("phone"),
		Notes:    c.PostForm("notes"),
	}

	resumeHeader, err := c.FormFile("resume")
	if err != nil || strings.TrimSpace(in.FullName) == "" || strings.TrimSpace(in.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, email, and resume are required"})
		return
	}
	resume, err := h.readPDF(resumeHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in.Resume = *resume

	if coverHeader, err := c.FormFile("coverLetter"); err == nil {
		cover, err := h.readPDF(coverHeader)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		in.CoverLetter = cover
	}

	result, err := h.applicationService.Submit(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, service.ErrInvalidApplication) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name, email, and resume are required"})
			return
		}
		log.Error("[ApplicationHandler] 提交申请失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit application", "details": err.Error()})
		return
	}

	message := "Application submitted successfully"
	if result.IsUpdate {
		message = "Application updated successfully"
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":             true,
		"message":             message,
		"applicantId":         result.ApplicantID,
		"isUpdate":            result.IsUpdate,
		"extractedTextLength": result.ExtractedTextLength,
	})
}

// readPDF 读取一个上传文件，只接受不超过上限的 PDF。
func (h *ApplicationHandler) readPDF(header *multipart.FileHeader) (*service.UploadedFile, error) {
	if h.maxFileBytes > 0 && header.Size > h.maxFileBytes {
		return nil, errTooLarge
	}
	contentType := header.Header.Get("Content-Type")
	if contentType != "application/pdf" && !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		return nil, errNotPDF
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if !strings.HasPrefix(string(data[:min(len(data), 5)]), "%PDF") {
		return nil, errNotPDF
	}
	return &service.UploadedFile{FileName: header.Filename, ContentType: "application/pdf", Data: data}, nil
}

// List 返回全部申请。
func (h *ApplicationHandler) List(c *gin.Context) {
	apps, err := h.applicationService.List(c.Request.Context())
	if err != nil {
		log.Error("[ApplicationHandler] 查询申请列表失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch applications", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "applications": apps})
}

// Get 返回单个申请，包含提取的文本。
func (h *ApplicationHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application id"})
		return
	}
	app, err := h.applicationService.Get(c.Request.Context(), uint(id))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}
	if err != nil {
		log.Error("[ApplicationHandler] 查询申请失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch application", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "application": app})
}
