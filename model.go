package docuchat

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/docuchat/docuchat/vector"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid request")
	ErrExtraction     = errors.New("extraction failed")
	ErrEmbedding      = errors.New("embedding provider failed")
	ErrRetrieval      = errors.New("retrieval failed")
	ErrGeneration     = errors.New("generation failed")
	ErrJobNotFound    = errors.New("no ingestion job for collection")
	ErrMissingAPIKey  = errors.New("ai api key is required")
	ErrMissingToken   = errors.New("auth token is required")
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is a single conversational exchange. The server is stateless per
// request: history lives client-side and only the latest question plus fresh
// retrieval shape the answer.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Question     string `json:"question"`
	UserID       string `json:"userId"`
	CollectionID string `json:"id"`
}

func (req ChatRequest) Validate() error {
	if req.Question == "" {
		return fmt.Errorf("%w: question is required", ErrInvalidRequest)
	}

	if req.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}

	if req.CollectionID == "" {
		return fmt.Errorf("%w: collection id is required", ErrInvalidRequest)
	}

	return nil
}

type JobState string

const (
	JobStateReceived   JobState = "received"
	JobStateExtracting JobState = "extracting"
	JobStateEmbedding  JobState = "embedding"
	JobStateStoring    JobState = "storing"
	JobStateDone       JobState = "done"
	JobStateFailed     JobState = "failed"
)

// JobStatus is the user-visible ingestion state for a collection, so a client
// can tell "still processing" from "failed" from "ready".
type JobStatus struct {
	CollectionID string    `json:"collection_id"`
	State        JobState  `json:"state"`
	Error        string    `json:"error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() ([]byte, error) {
	str := d.Duration().String()
	return yaml.Marshal(str)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

type Config struct {
	Queue  QueueConfig   `yaml:"queue"`
	Vector vector.Config `yaml:"vector"`
	AI     AIConfig      `yaml:"ai"`
	Ingest IngestConfig  `yaml:"ingest"`
	Chat   ChatConfig    `yaml:"chat"`
	Auth   AuthConfig    `yaml:"auth"`
}

type QueueDriver string

const (
	QueueDriverJetStream QueueDriver = "jetstream"
	QueueDriverMemory    QueueDriver = "memory"
)

type QueueConfig struct {
	Driver      QueueDriver `yaml:"driver"`
	Stream      string      `yaml:"stream"`
	Subject     string      `yaml:"subject"`
	Consumer    string      `yaml:"consumer"`
	MaxDeliver  int         `yaml:"maxDeliver"`
	AckWait     Duration    `yaml:"ackWait"`
	Concurrency int         `yaml:"concurrency"`
}

type AIConfig struct {
	// APIKey comes from the environment, never the config file.
	APIKey string `yaml:"-"`

	EmbeddingModel string   `yaml:"embeddingModel"`
	ChatModel      string   `yaml:"chatModel"`
	MaxAttempts    int      `yaml:"maxAttempts"`
	RetryBaseDelay Duration `yaml:"retryBaseDelay"`
}

type IngestConfig struct {
	UploadDir       string   `yaml:"uploadDir"`
	JobTimeout      Duration `yaml:"jobTimeout"`
	MaxSegmentChars int      `yaml:"maxSegmentChars"`
	TranscriptURL   string   `yaml:"transcriptURL"`
}

type ChatConfig struct {
	TopK            int      `yaml:"topK"`
	MaxContextChars int      `yaml:"maxContextChars"`
	RequestTimeout  Duration `yaml:"requestTimeout"`
}

type AuthConfig struct {
	Token  string `yaml:"token"`
	UserID string `yaml:"userId"`
}

// Validate applies defaults and rejects configurations that must fail at
// startup rather than at first request.
func (cfg *Config) Validate() error {
	if cfg.Queue.Driver == "" {
		cfg.Queue.Driver = QueueDriverJetStream
	}

	switch cfg.Queue.Driver {
	case QueueDriverJetStream, QueueDriverMemory:
	default:
		return fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}

	if cfg.Queue.Stream == "" {
		cfg.Queue.Stream = "INGEST"
	}

	if cfg.Queue.Subject == "" {
		cfg.Queue.Subject = "ingest.jobs"
	}

	if cfg.Queue.Consumer == "" {
		cfg.Queue.Consumer = "ingest-worker"
	}

	if cfg.Queue.MaxDeliver < 1 {
		cfg.Queue.MaxDeliver = 3
	}

	if cfg.Queue.AckWait <= 0 {
		cfg.Queue.AckWait = Duration(2 * time.Minute)
	}

	if cfg.Queue.Concurrency < 1 {
		cfg.Queue.Concurrency = 1
	}

	if cfg.AI.APIKey == "" {
		return ErrMissingAPIKey
	}

	if cfg.Ingest.UploadDir == "" {
		cfg.Ingest.UploadDir = "uploads"
	}

	if cfg.Ingest.JobTimeout <= 0 {
		cfg.Ingest.JobTimeout = Duration(5 * time.Minute)
	}

	if cfg.Ingest.MaxSegmentChars < 1 {
		cfg.Ingest.MaxSegmentChars = 2000
	}

	if cfg.Chat.TopK < 1 {
		cfg.Chat.TopK = 2
	}

	if cfg.Chat.MaxContextChars < 1 {
		cfg.Chat.MaxContextChars = 8000
	}

	if cfg.Chat.RequestTimeout <= 0 {
		cfg.Chat.RequestTimeout = Duration(60 * time.Second)
	}

	if cfg.Auth.Token == "" {
		return ErrMissingToken
	}

	if cfg.Auth.UserID == "" {
		cfg.Auth.UserID = "local"
	}

	return nil
}

// segmentDocumentID derives a stable document ID from the segment's identity,
// so redelivered jobs overwrite their own entries instead of duplicating
// them.
func segmentDocumentID(collectionID, sourceRef string, index int, content string) string {
	data := fmt.Sprintf("%s|%s|%d|%s", collectionID, sourceRef, index, content)

	hash := sha256.Sum256([]byte(data))
	return "seg_" + hex.EncodeToString(hash[:12])
}
