// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"adjunct-search-go/internal/config"
	"adjunct-search-go/internal/model"
	"adjunct-search-go/pkg/log"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端，并按向量维度创建简历索引。
func InitES(esCfg config.ElasticsearchConfig, dims int) error {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	return createIndexIfNotExists(esCfg.IndexName, dims)
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(indexName string, dims int) error {
	res, err := ESClient.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	defer res.Body.Close()
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	created, err := ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithBody(strings.NewReader(indexMapping(dims))),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	defer created.Body.Close()
	if created.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, created.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// indexMapping 返回简历向量索引的 mapping，向量使用 cosine 相似度。
func indexMapping(dims int) string {
	return fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"applicant_id": { "type": "long" },
				"email": { "type": "keyword" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"model_version": { "type": "keyword" }
			}
		}
	}`, dims)
}

// IndexResume 写入（或覆盖）一个申请人的简历向量。
func IndexResume(ctx context.Context, indexName string, doc model.ResumeDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: strconv.FormatUint(uint64(doc.ApplicantID), 10),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引简历到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index resume")
	}
	return nil
}

// DeleteResume 删除一个申请人的简历向量，文档不存在时不报错。
func DeleteResume(ctx context.Context, indexName string, applicantID uint) error {
	req := esapi.DeleteRequest{
		Index:      indexName,
		DocumentID: strconv.FormatUint(uint64(applicantID), 10),
	}
	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("删除简历向量失败: %s", res.String())
	}
	return nil
}

// Hit 是 kNN 查询命中的一条记录。
type Hit struct {
	ApplicantID uint
	Score       float64
}

type knnResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64 `json:"_score"`
			Source struct {
				ApplicantID uint `json:"applicant_id"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// KnnQuery 构造只匹配指定模型版本的 kNN 查询体。
func KnnQuery(vector []float32, k int, modelVersion string) map[string]any {
	numCandidates := k * 2
	if numCandidates < 100 {
		numCandidates = 100
	}
	if numCandidates > 10000 {
		numCandidates = 10000
	}
	return map[string]any{
		"knn": map[string]any{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": numCandidates,
			"filter": map[string]any{
				"term": map[string]any{"model_version": modelVersion},
			},
		},
		"_source": []string{"applicant_id"},
		"size":    k,
	}
}

// SearchNearest 返回与 vector 最相近的 k 个申请人，按得分降序。
func SearchNearest(ctx context.Context, indexName string, vector []float32, k int, modelVersion string) ([]Hit, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(KnnQuery(vector, k, modelVersion)); err != nil {
		return nil, fmt.Errorf("failed to encode knn query: %w", err)
	}

	res, err := ESClient.Search(
		ESClient.Search.WithContext(ctx),
		ESClient.Search.WithIndex(indexName),
		ESClient.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("knn search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("knn search returned error: %s", res.String())
	}

	var parsed knnResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode knn response: %w", err)
	}
	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{ApplicantID: h.Source.ApplicantID, Score: h.Score})
	}
	return hits, nil
}
