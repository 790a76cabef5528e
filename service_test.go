package docuchat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/docuchat/docuchat/ai/mock"
	"github.com/docuchat/docuchat/extract"
	"github.com/docuchat/docuchat/persistence/chromem"
	"github.com/docuchat/docuchat/queue"
	"github.com/docuchat/docuchat/vector"

	memoryQ "github.com/docuchat/docuchat/queue/memory"
)

type docuchatTestSuite struct {
	suite.Suite
	ctx       context.Context
	svc       Service
	q         *memoryQ.Queue
	store     vector.Store
	embedder  *mock.Embedder
	generator *mock.Generator
	dir       string
}

func (suite *docuchatTestSuite) SetupTest() {
	ctx := context.Background()

	cfg := Config{
		Queue: QueueConfig{
			Driver:     QueueDriverMemory,
			MaxDeliver: 2,
		},
		AI: AIConfig{
			APIKey: "test-key",
		},
		Auth: AuthConfig{
			Token: "test-token",
		},
	}

	if err := cfg.Validate(); err != nil {
		suite.FailNow(err.Error())
		return
	}

	store, err := chromem.NewChromemStore(vector.Config{})
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	q := memoryQ.NewQueue(memoryQ.Config{
		MaxDeliver: cfg.Queue.MaxDeliver,
	})

	embedder := &mock.Embedder{}

	// The mock echoes the composed instruction, so tests can assert on the
	// grounding context that reached the model.
	generator := &mock.Generator{
		Respond: func(instruction, question string) string {
			return instruction
		},
	}

	extractors := extract.NewRegistry()
	extractors.Register(queue.SourceKindFile, &extract.FileExtractor{
		MaxSegmentChars: 64,
	})

	svc, err := NewService(ctx, cfg, Dependencies{
		Queue:      q,
		Store:      store,
		Embedder:   embedder,
		Generator:  generator,
		Extractors: extractors,
	})

	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.ctx = ctx
	suite.svc = svc
	suite.q = q
	suite.store = store
	suite.embedder = embedder
	suite.generator = generator
	suite.dir = suite.T().TempDir()
}

func (suite *docuchatTestSuite) TearDownTest() {
	if suite.svc != nil {
		suite.svc.Close()
	}
}

func (suite *docuchatTestSuite) writeSource(name, content string) string {
	path := filepath.Join(suite.dir, name)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		suite.FailNow(err.Error())
	}

	return path
}

func (suite *docuchatTestSuite) submit(collectionID, path string) {
	job := queue.Job{
		Kind:         queue.SourceKindFile,
		SourceRef:    path,
		OwnerID:      "user-1",
		CollectionID: collectionID,
	}

	if err := suite.svc.SubmitIngestion(suite.ctx, job); err != nil {
		suite.FailNow(err.Error())
	}
}

func (suite *docuchatTestSuite) waitForState(collectionID string, want JobState) {
	suite.Require().Eventually(func() bool {
		status, err := suite.svc.IngestionStatus(suite.ctx, collectionID)
		return err == nil && status.State == want
	}, 5*time.Second, 10*time.Millisecond, "collection %s never reached state %s", collectionID, want)
}

func (suite *docuchatTestSuite) TestChatGroundedInUploadedDocument() {
	path := suite.writeSource("sky.txt", "The sky is blue.")

	suite.submit("abc-1", path)
	suite.waitForState("abc-1", JobStateDone)

	turn, err := suite.svc.Chat(suite.ctx, ChatRequest{
		Question:     "What color is the sky?",
		UserID:       "user-1",
		CollectionID: "abc-1",
	})

	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.Equal(RoleAssistant, turn.Role)
	suite.Contains(turn.Content, "The sky is blue.")

	calls := suite.generator.Calls()
	suite.Len(calls, 1)
	suite.Equal("What color is the sky?", calls[0].Question)
	suite.Contains(calls[0].Instruction, "sky is blue")
}

func (suite *docuchatTestSuite) TestChatUnknownCollection() {
	_, err := suite.svc.Chat(suite.ctx, ChatRequest{
		Question:     "What color is the sky?",
		UserID:       "user-1",
		CollectionID: "unknown-99",
	})

	suite.ErrorIs(err, ErrRetrieval)
	suite.ErrorIs(err, vector.ErrCollectionNotFound)
	suite.Empty(suite.generator.Calls(), "no model call on retrieval failure")
}

func (suite *docuchatTestSuite) TestUnreadableSourceDeadLetters() {
	path := filepath.Join(suite.dir, "missing.txt")

	suite.submit("broken-1", path)
	suite.waitForState("broken-1", JobStateFailed)

	suite.Require().Eventually(func() bool {
		return len(suite.q.DeadLetters()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	status, err := suite.svc.IngestionStatus(suite.ctx, "broken-1")
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.Equal(JobStateFailed, status.State)
	suite.NotEmpty(status.Error)

	_, err = suite.svc.Chat(suite.ctx, ChatRequest{
		Question:     "anything?",
		UserID:       "user-1",
		CollectionID: "broken-1",
	})

	suite.ErrorIs(err, vector.ErrCollectionNotFound)
	suite.Empty(suite.generator.Calls())
}

func (suite *docuchatTestSuite) TestPartitionIsolation() {
	ocean := suite.writeSource("ocean.txt", "The ocean is deep and salty.")
	desert := suite.writeSource("desert.txt", "The desert is dry and hot.")

	suite.submit("ocean-1", ocean)
	suite.submit("desert-1", desert)
	suite.waitForState("ocean-1", JobStateDone)
	suite.waitForState("desert-1", JobStateDone)

	turn, err := suite.svc.Chat(suite.ctx, ChatRequest{
		Question:     "What is the ocean like?",
		UserID:       "user-1",
		CollectionID: "ocean-1",
	})

	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.Contains(turn.Content, "ocean is deep")
	suite.NotContains(turn.Content, "desert is dry")

	turn, err = suite.svc.Chat(suite.ctx, ChatRequest{
		Question:     "What is the desert like?",
		UserID:       "user-1",
		CollectionID: "desert-1",
	})

	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.Contains(turn.Content, "desert is dry")
	suite.NotContains(turn.Content, "ocean is deep")
}

func (suite *docuchatTestSuite) TestIngestionIdempotent() {
	path := suite.writeSource("sky.txt", "The sky is blue.")

	suite.submit("dup-1", path)
	suite.waitForState("dup-1", JobStateDone)

	first, err := suite.svc.IngestionStatus(suite.ctx, "dup-1")
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.submit("dup-1", path)
	suite.Require().Eventually(func() bool {
		status, err := suite.svc.IngestionStatus(suite.ctx, "dup-1")
		return err == nil && status.State == JobStateDone && status.UpdatedAt.After(first.UpdatedAt)
	}, 5*time.Second, 10*time.Millisecond)

	results, err := suite.store.Query(suite.ctx, "dup-1", mock.Embedding("sky"), 10)
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.Len(results, 1, "redelivered segments must overwrite, not duplicate")
}

func (suite *docuchatTestSuite) TestRetrievalReturnsAtMostTopK() {
	content := "The sky is blue on clear days.\n\n" +
		"Rain falls mostly in autumn here.\n\n" +
		"Mountains rise far to the north."

	path := suite.writeSource("weather.txt", content)

	suite.submit("weather-1", path)
	suite.waitForState("weather-1", JobStateDone)

	results, err := suite.store.Query(suite.ctx, "weather-1", mock.Embedding("What color is the sky?"), 2)
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.Require().Len(results, 2)
	suite.GreaterOrEqual(results[0].Similarity, results[1].Similarity)
	suite.Contains(results[0].Content, "sky is blue")
}

func (suite *docuchatTestSuite) TestConcurrentChatsAreIsolated() {
	ocean := suite.writeSource("ocean.txt", "The ocean is deep and salty.")
	desert := suite.writeSource("desert.txt", "The desert is dry and hot.")

	suite.submit("ocean-2", ocean)
	suite.submit("desert-2", desert)
	suite.waitForState("ocean-2", JobStateDone)
	suite.waitForState("desert-2", JobStateDone)

	var (
		wg      sync.WaitGroup
		answers [2]ChatTurn
		errs    [2]error
	)

	requests := []ChatRequest{
		{Question: "What is the ocean like?", UserID: "user-1", CollectionID: "ocean-2"},
		{Question: "What is the desert like?", UserID: "user-2", CollectionID: "desert-2"},
	}

	for i, req := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			answers[i], errs[i] = suite.svc.Chat(suite.ctx, req)
		}()
	}

	wg.Wait()

	suite.Require().NoError(errs[0])
	suite.Require().NoError(errs[1])

	suite.Contains(answers[0].Content, "ocean is deep")
	suite.NotContains(answers[0].Content, "desert is dry")

	suite.Contains(answers[1].Content, "desert is dry")
	suite.NotContains(answers[1].Content, "ocean is deep")
}

func (suite *docuchatTestSuite) TestGenerationFailureSurfaces() {
	path := suite.writeSource("sky.txt", "The sky is blue.")

	suite.submit("gen-1", path)
	suite.waitForState("gen-1", JobStateDone)

	suite.generator.Err = errors.New("model is down")

	_, err := suite.svc.Chat(suite.ctx, ChatRequest{
		Question:     "What color is the sky?",
		UserID:       "user-1",
		CollectionID: "gen-1",
	})

	suite.ErrorIs(err, ErrGeneration)
}

func (suite *docuchatTestSuite) TestChatValidation() {
	_, err := suite.svc.Chat(suite.ctx, ChatRequest{
		UserID:       "user-1",
		CollectionID: "abc-1",
	})

	suite.ErrorIs(err, ErrInvalidRequest)

	_, err = suite.svc.Chat(suite.ctx, ChatRequest{
		Question:     "What color is the sky?",
		CollectionID: "abc-1",
	})

	suite.ErrorIs(err, ErrInvalidRequest)
}

func (suite *docuchatTestSuite) TestSubmitUnsupportedKindRejected() {
	job := queue.Job{
		Kind:         queue.SourceKindURL,
		SourceRef:    "https://youtu.be/abc",
		OwnerID:      "user-1",
		CollectionID: "vid-1",
	}

	err := suite.svc.SubmitIngestion(suite.ctx, job)
	suite.ErrorIs(err, ErrInvalidRequest)

	_, err = suite.svc.IngestionStatus(suite.ctx, "vid-1")
	suite.ErrorIs(err, ErrJobNotFound, "rejected job must not leave a status entry")
}

func (suite *docuchatTestSuite) TestStatusUnknownCollection() {
	_, err := suite.svc.IngestionStatus(suite.ctx, "never-submitted")
	suite.ErrorIs(err, ErrJobNotFound)
}

func TestDocuchatTestSuite(t *testing.T) {
	suite.Run(t, new(docuchatTestSuite))
}
