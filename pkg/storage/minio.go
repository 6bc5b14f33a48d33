// Package storage提供了与对象存储服务（MinIO 或 AWS S3）交互的功能。
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"adjunct-search-go/internal/config"
	"adjunct-search-go/pkg/log"
)

// MaxPresignExpiry 是 SigV4 预签名链接允许的最长有效期。
const MaxPresignExpiry = 7 * 24 * time.Hour

// MinioClient 是一个全局的对象存储客户端实例。
var MinioClient *minio.Client

// NewClient 根据配置创建对象存储客户端，不做任何网络调用。
func NewClient(cfg config.MinIOConfig) (*minio.Client, error) {
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
}

// InitMinIO 初始化对象存储客户端并确保指定的存储桶存在。
func InitMinIO(cfg config.MinIOConfig) {
	var err error

	// 1. 初始化客户端
	MinioClient, err = NewClient(cfg)
	if err != nil {
		log.Fatal("初始化对象存储客户端失败", err)
	}
	log.Info("对象存储客户端初始化成功")

	// 2. 检查存储桶 (Bucket) 是否存在，如果不存在则创建
	ctx := context.Background()
	bucketName := cfg.BucketName
	exists, err := MinioClient.BucketExists(ctx, bucketName)
	if err != nil {
		// 受限的 IAM 凭证可能没有 ListBucket 权限，上传时再暴露错误
		log.Warnf("检查存储桶 '%s' 失败: %v", bucketName, err)
		return
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", bucketName)
		err = MinioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			log.Fatal("创建存储桶失败", err)
		}
		log.Infof("存储桶 '%s' 创建成功", bucketName)
	} else {
		log.Infof("存储桶 '%s' 已存在", bucketName)
	}
}

// Store 封装了申请材料需要的对象存储操作，便于在服务层替换为测试实现。
type Store interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

type minioStore struct {
	client *minio.Client
	bucket string
	cfg    config.MinIOConfig
}

// NewStore 返回绑定到单个存储桶的 Store。
func NewStore(client *minio.Client, cfg config.MinIOConfig) Store {
	return &minioStore{client: client, bucket: cfg.BucketName, cfg: cfg}
}

// Upload 上传对象并返回它的 s3:// 引用。
func (s *minioStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("上传对象 %s 失败: %w", key, err)
	}
	return ObjectRef(s.bucket, key), nil
}

func (s *minioStore) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// ObjectRef 构造存入数据库的对象引用。
func ObjectRef(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}
