// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Search        SearchConfig        `mapstructure:"search"`
	Upload        UploadConfig        `mapstructure:"upload"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig 存储 PostgreSQL (pgvector) 数据库的配置。
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。令牌由外部认证服务签发，这里只做校验。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers     string `mapstructure:"brokers"`
	Topic       string `mapstructure:"topic"`
	GroupID     string `mapstructure:"group_id"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
// 只有 search.retriever 为 elasticsearch 时才会初始化。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储对象存储的配置（MinIO 或 AWS S3）。
type MinIOConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	BucketName      string        `mapstructure:"bucket_name"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	Dimensions    int           `mapstructure:"dimensions"`
	MaxInputChars int           `mapstructure:"max_input_chars"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// LLMConfig 存储打分用大语言模型的配置。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// SearchConfig 汇总了候选人检索与打分流程的全部阈值。
// 它在启动时读取一次，并显式传入 SearchService。
type SearchConfig struct {
	Limit           int           `mapstructure:"limit"`
	BatchSize       int           `mapstructure:"batch_size"`
	MaxResumeChars  int           `mapstructure:"max_resume_chars"`
	ConfidenceFloor int           `mapstructure:"confidence_floor"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	Retriever       string        `mapstructure:"retriever"` // pgvector | elasticsearch
}

// UploadConfig 存储申请材料上传相关的限制。
type UploadConfig struct {
	MaxFileBytes int64 `mapstructure:"max_file_bytes"`
}

// DefaultSearchConfig 返回检索流程的默认参数。
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Limit:           200,
		BatchSize:       15,
		MaxResumeChars:  15000,
		ConfidenceFloor: 4,
		MaxConcurrency:  0,
		BatchTimeout:    60 * time.Second,
		Retriever:       "pgvector",
	}
}

// setDefaults 注册所有带默认值的配置项。
func setDefaults(v *viper.Viper) {
	d := DefaultSearchConfig()
	v.SetDefault("server.port", "4000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "resume-embedding")
	v.SetDefault("kafka.group_id", "adjunct-search-go-consumer")
	v.SetDefault("kafka.max_attempts", 3)
	v.SetDefault("elasticsearch.index_name", "applicant_resumes")
	v.SetDefault("minio.endpoint", "s3.amazonaws.com")
	v.SetDefault("minio.region", "us-east-2")
	v.SetDefault("minio.use_ssl", true)
	v.SetDefault("minio.presign_expiry", 7*24*time.Hour)
	v.SetDefault("embedding.model", "sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("embedding.dimensions", 384)
	v.SetDefault("embedding.max_input_chars", 5000)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.cache_ttl", 24*time.Hour)
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.generation.temperature", 0)
	v.SetDefault("llm.generation.max_tokens", 1500)
	v.SetDefault("search.limit", d.Limit)
	v.SetDefault("search.batch_size", d.BatchSize)
	v.SetDefault("search.max_resume_chars", d.MaxResumeChars)
	v.SetDefault("search.confidence_floor", d.ConfidenceFloor)
	v.SetDefault("search.max_concurrency", d.MaxConcurrency)
	v.SetDefault("search.batch_timeout", d.BatchTimeout)
	v.SetDefault("search.retriever", d.Retriever)
	v.SetDefault("upload.max_file_bytes", 10*1024*1024)
}

// bindEnv 将部署环境中沿用的环境变量名映射到配置项上。
func bindEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("search.limit", "SEARCH_LIMIT")
	_ = v.BindEnv("database.postgres.dsn", "DATABASE_URL")
	_ = v.BindEnv("minio.bucket_name", "S3_BUCKET_NAME")
	_ = v.BindEnv("minio.region", "AWS_REGION")
	_ = v.BindEnv("minio.access_key_id", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("minio.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("llm.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("embedding.api_key", "EMBEDDING_API_KEY")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("server.port", "PORT")
}

// Load 从指定路径读取 YAML 配置并叠加环境变量，返回解析后的配置。
// 配置文件不存在时只使用默认值和环境变量。
func Load(configPath string) (Config, error) {
	// .env 文件是可选的
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return cfg, nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
