package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"adjunct-search-go/internal/model"
	"adjunct-search-go/internal/service"
	"adjunct-search-go/pkg/llm"
	"adjunct-search-go/pkg/log"
)

// SearchHandler 结构体定义了候选人检索的处理器。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// AISearch 按课程检索并打分候选人。
func (h *SearchHandler) AISearch(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Course) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Course is required"})
		return
	}
	log.Infof("[SearchHandler] 收到检索请求, course: %s", req.Course)

	resp, err := h.searchService.Search(c.Request.Context(), req)
	if err != nil {
		var scoringErr *service.ScoringError
		if errors.As(err, &scoringErr) {
			status, code := scoringStatus(scoringErr.Kind)
			log.Errorf("[SearchHandler] 所有打分批次失败, kind: %s, error: %v", scoringErr.Kind, err)
			c.JSON(status, gin.H{"error": "Candidate scoring failed", "code": code, "details": err.Error()})
			return
		}
		log.Errorf("[SearchHandler] 检索失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed", "details": err.Error()})
		return
	}

	log.Infof("[SearchHandler] 检索成功, course: '%s', 返回 %d 名候选人", req.Course, resp.TotalFound)
	c.JSON(http.StatusOK, resp)
}

func scoringStatus(kind llm.ErrorKind) (int, string) {
	switch kind {
	case llm.KindAuth:
		return http.StatusBadGateway, "scoring_auth_failed"
	case llm.KindRateLimit:
		return http.StatusTooManyRequests, "scoring_rate_limited"
	default:
		return http.StatusBadGateway, "scoring_unavailable"
	}
}
