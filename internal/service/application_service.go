package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"adjunct-search-go/internal/model"
	"adjunct-search-go/internal/repository"
	"adjunct-search-go/pkg/log"
	"adjunct-search-go/pkg/storage"
	"adjunct-search-go/pkg/tasks"
)

// CoverLetterSeparator 连接简历文本与求职信文本。
const CoverLetterSeparator = "\n\n--- COVER LETTER ---\n\n"

// ErrInvalidApplication 表示提交内容缺少必填字段。
var ErrInvalidApplication = errors.New("invalid application")

// Embedder 生成文档向量。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// EmbeddingQueue 接收稍后重试的向量任务。
type EmbeddingQueue interface {
	Enqueue(ctx context.Context, task tasks.EmbeddingTask) error
}

// ResumeIndex 是可选的外部向量索引（Elasticsearch）。
type ResumeIndex interface {
	IndexResume(ctx context.Context, doc model.ResumeDocument) error
	DeleteResume(ctx context.Context, applicantID uint) error
}

// UploadedFile 是一份已读入内存的上传文件。
type UploadedFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ApplicationInput 是一次申请提交的全部内容。
type ApplicationInput struct {
	FullName    string
	Email       string
	Phone       string
	Notes       string
	Resume      UploadedFile
	CoverLetter *UploadedFile
}

// ApplicationService 负责申请提交（简历入库）以及申请的查询。
type ApplicationService interface {
	Submit(ctx context.Context, in ApplicationInput) (*model.ApplicationResult, error)
	List(ctx context.Context) ([]model.ApplicationView, error)
	Get(ctx context.Context, applicantID uint) (*model.ApplicationView, error)
}

type applicationService struct {
	applicantRepo repository.ApplicantRepository
	extractor     TextExtractor
	embedder      Embedder
	store         storage.Store
	links         LinkResolver
	queue         EmbeddingQueue
	index         ResumeIndex
}

// NewApplicationService 创建一个新的 ApplicationService 实例。queue 和 index 可以为 nil。
func NewApplicationService(
	applicantRepo repository.ApplicantRepository,
	extractor TextExtractor,
	embedder Embedder,
	store storage.Store,
	links LinkResolver,
	queue EmbeddingQueue,
	index ResumeIndex,
) ApplicationService {
	return &applicationService{
		applicantRepo: applicantRepo,
		extractor:     extractor,
		embedder:      embedder,
		store:         store,
		links:         links,
		queue:         queue,
		index:         index,
	}
}

// Submit 提取文本、生成向量，并在一个事务中替换同邮箱的旧申请。
// 文本提取和向量生成失败不会中断提交；上传或写库失败时整体回滚。
func (s *applicationService) Submit(ctx context.Context, in ApplicationInput) (*model.ApplicationResult, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	if in.FullName == "" || in.Email == "" || len(in.Resume.Data) == 0 {
		return nil, fmt.Errorf("%w: Name, email, and resume are required", ErrInvalidApplication)
	}
	logger := log.FromContext(ctx).With("component", "indexer", "email", in.Email)
	logger.Infow("收到申请", "hasCoverLetter", in.CoverLetter != nil)

	// 1. 提取文本
	text := s.extractor.Extract(ctx, in.Resume.Data, in.Resume.FileName)
	if in.CoverLetter != nil {
		coverText := s.extractor.Extract(ctx, in.CoverLetter.Data, in.CoverLetter.FileName)
		if coverText != "" {
			text = text + CoverLetterSeparator + coverText
		}
	}
	logger.Infow("文本提取完成", "chars", utf8.RuneCountInString(text))

	// 2. 生成向量（失败时写入空向量，稍后重试）
	resume := &model.Resume{ExtractedText: text}
	needsRetry := false
	var vector []float32
	if strings.TrimSpace(text) != "" {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			logger.Warnw("向量生成失败, 以空向量入库", "error", err)
			needsRetry = true
		} else {
			vector = vec
			v := pgvector.NewVector(vec)
			resume.Embedding = &v
			resume.ModelVersion = s.embedder.Model()
		}
	}

	applicant := &model.Applicant{
		Name:  in.FullName,
		Email: in.Email,
		Note:  in.Notes,
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		applicant.Phone = &phone
	}

	// 3. 事务：删除旧申请 -> 插入申请人 -> 上传文件 -> 插入简历
	var uploaded []string
	upload := func(ctx context.Context) error {
		prefix := "applicants/" + uuid.NewString() + "/"

		key := prefix + SanitizeFileName(in.Resume.FileName)
		ref, err := s.store.Upload(ctx, key, bytes.NewReader(in.Resume.Data), int64(len(in.Resume.Data)), in.Resume.ContentType)
		if err != nil {
			return err
		}
		uploaded = append(uploaded, key)
		resume.ResumeFile = ref

		if in.CoverLetter != nil {
			key := prefix + "cover-" + SanitizeFileName(in.CoverLetter.FileName)
			ref, err := s.store.Upload(ctx, key, bytes.NewReader(in.CoverLetter.Data), int64(len(in.CoverLetter.Data)), in.CoverLetter.ContentType)
			if err != nil {
				return err
			}
			uploaded = append(uploaded, key)
			resume.CoverLetterFile = &ref
		}
		return nil
	}

	previousID, err := s.applicantRepo.ReplaceByEmail(ctx, applicant, resume, upload)
	if err != nil {
		s.removeUploaded(ctx, logger, uploaded)
		logger.Errorw("保存申请失败, 已回滚", "error", err)
		return nil, fmt.Errorf("failed to save application: %w", err)
	}
	isUpdate := previousID != 0
	logger = logger.With("applicantID", applicant.ID)
	logger.Infow("申请已保存", "isUpdate", isUpdate)

	// 4. 提交后的附加工作，失败只记录日志
	if isUpdate && s.index != nil {
		if err := s.index.DeleteResume(ctx, previousID); err != nil {
			logger.Warnw("删除旧向量索引失败", "previousID", previousID, "error", err)
		}
	}
	if vector != nil && s.index != nil {
		doc := model.ResumeDocument{ApplicantID: applicant.ID, Email: applicant.Email, Vector: vector, ModelVersion: resume.ModelVersion}
		if err := s.index.IndexResume(ctx, doc); err != nil {
			logger.Warnw("写入向量索引失败", "error", err)
		}
	}
	if needsRetry && s.queue != nil {
		task := tasks.EmbeddingTask{ResumeID: resume.ID, ApplicantID: applicant.ID, Email: applicant.Email, Reason: tasks.ReasonSubmissionFailed}
		if err := s.queue.Enqueue(ctx, task); err != nil {
			logger.Warnw("投递向量重试任务失败", "resumeID", resume.ID, "error", err)
		}
	}

	return &model.ApplicationResult{
		ApplicantID:         applicant.ID,
		IsUpdate:            isUpdate,
		ExtractedTextLength: utf8.RuneCountInString(text),
	}, nil
}

func (s *applicationService) removeUploaded(ctx context.Context, logger *zap.SugaredLogger, keys []string) {
	cleanupCtx := context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.store.Remove(cleanupCtx, key); err != nil {
			logger.Warnw("回滚时删除已上传对象失败", "key", key, "error", err)
		}
	}
}

// List 返回全部申请，文件引用替换为限时链接。
func (s *applicationService) List(ctx context.Context) ([]model.ApplicationView, error) {
	apps, err := s.applicantRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range apps {
		s.resolveFiles(ctx, &apps[i])
	}
	return apps, nil
}

// Get 返回单个申请的详情。
func (s *applicationService) Get(ctx context.Context, applicantID uint) (*model.ApplicationView, error) {
	app, err := s.applicantRepo.FindByID(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	s.resolveFiles(ctx, app)
	return app, nil
}

func (s *applicationService) resolveFiles(ctx context.Context, app *model.ApplicationView) {
	if app.ResumeFile != nil {
		link := s.links.Resolve(ctx, *app.ResumeFile)
		app.ResumeFile = &link
	}
	if app.CoverLetterFile != nil {
		link := s.links.Resolve(ctx, *app.CoverLetterFile)
		app.CoverLetterFile = &link
	}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFileName 去掉路径并把不安全字符替换为下划线。
func SanitizeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Trim(unsafeFileChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		return "file.pdf"
	}
	return base
}
