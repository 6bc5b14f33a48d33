package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"adjunct-search-go/internal/config"
	"adjunct-search-go/pkg/log"
	"adjunct-search-go/pkg/storage"
)

// Presigner 是生成预签名下载链接所需的最小接口，*minio.Client 满足它。
type Presigner interface {
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// LinkResolver 把数据库中保存的文件引用转换为限时访问链接。
type LinkResolver interface {
	Resolve(ctx context.Context, ref string) string
}

type linkResolver struct {
	presigner     Presigner
	defaultBucket string
	endpointHost  string
	expiry        time.Duration
}

// NewLinkResolver 创建一个 LinkResolver。有效期超过 7 天时按 7 天处理。
func NewLinkResolver(presigner Presigner, cfg config.MinIOConfig) LinkResolver {
	expiry := cfg.PresignExpiry
	if expiry <= 0 || expiry > storage.MaxPresignExpiry {
		expiry = storage.MaxPresignExpiry
	}
	return &linkResolver{
		presigner:     presigner,
		defaultBucket: cfg.BucketName,
		endpointHost:  hostOnly(cfg.Endpoint),
		expiry:        expiry,
	}
}

// Resolve 返回预签名链接；引用无法解析或签名失败时原样返回，空引用返回空串。
func (r *linkResolver) Resolve(ctx context.Context, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	bucket, key, ok := ParseObjectRef(ref, r.defaultBucket, r.endpointHost)
	if !ok {
		log.FromContext(ctx).Warnw("无法解析文件引用, 原样返回", "component", "links", "ref", ref)
		return ref
	}
	u, err := r.presigner.PresignedGetObject(ctx, bucket, key, r.expiry, url.Values{})
	if err != nil {
		log.FromContext(ctx).Warnw("生成预签名链接失败", "component", "links", "bucket", bucket, "key", key, "error", err)
		return ref
	}
	return u.String()
}

// ParseObjectRef 识别以下几种引用形式:
//
//	s3://bucket/key
//	https://bucket.s3.region.amazonaws.com/key
//	https://<endpoint>/bucket/key
//	key                      (defaultBucket)
func ParseObjectRef(ref, defaultBucket, endpointHost string) (bucket, key string, ok bool) {
	if rest, found := strings.CutPrefix(ref, "s3://"); found {
		bucket, key, _ = strings.Cut(rest, "/")
		return bucket, key, bucket != "" && key != ""
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", "", false
		}
		host := u.Hostname()
		path := strings.TrimPrefix(u.Path, "/")

		// 虚拟主机风格: bucket.s3.region.amazonaws.com 或 bucket.s3.amazonaws.com
		if i := strings.Index(host, ".s3."); i > 0 && strings.HasSuffix(host, ".amazonaws.com") {
			return host[:i], path, path != ""
		}
		if i := strings.Index(host, ".s3-"); i > 0 && strings.HasSuffix(host, ".amazonaws.com") {
			return host[:i], path, path != ""
		}

		// 路径风格: endpoint/bucket/key
		if (endpointHost != "" && host == endpointHost) || strings.HasPrefix(host, "s3.") || strings.HasPrefix(host, "s3-") {
			bucket, key, _ = strings.Cut(path, "/")
			return bucket, key, bucket != "" && key != ""
		}
		return "", "", false
	}

	if strings.Contains(ref, "://") || defaultBucket == "" {
		return "", "", false
	}
	key = strings.TrimPrefix(ref, "/")
	return defaultBucket, key, key != ""
}

func hostOnly(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		return u.Hostname()
	}
	host, _, _ := strings.Cut(endpoint, ":")
	return host
}
