package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stackpile/noteforge/internal/domain"
)

// MockMigrationJobRepository is a mock implementation of MigrationJobRepositoryInterface
type MockMigrationJobRepository struct {
	mock.Mock
}

func (m *MockMigrationJobRepository) Create(ctx context.Context, job *domain.MigrationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockMigrationJobRepository) GetByID(ctx context.Context, id string) (*domain.MigrationJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MigrationJob), args.Error(1)
}

func (m *MockMigrationJobRepository) SetRunning(ctx context.Context, id string, totalItems int) error {
	args := m.Called(ctx, id, totalItems)
	return args.Error(0)
}

func (m *MockMigrationJobRepository) Checkpoint(ctx context.Context, id string, processed, failed int, errorLog []domain.MigrationError, at time.Time) error {
	args := m.Called(ctx, id, processed, failed, errorLog, at)
	return args.Error(0)
}

func (m *MockMigrationJobRepository) Finish(ctx context.Context, id string, status domain.MigrationStatus, errorLog []domain.MigrationError, at time.Time) error {
	args := m.Called(ctx, id, status, errorLog, at)
	return args.Error(0)
}

// MockDocumentRepository is a mock implementation of DocumentRepositoryInterface
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Upsert(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

// MockAttachmentRepository is a mock implementation of AttachmentRepositoryInterface
type MockAttachmentRepository struct {
	mock.Mock
}

func (m *MockAttachmentRepository) Create(ctx context.Context, a *domain.Attachment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAttachmentRepository) DeleteByDocument(ctx context.Context, documentID int64) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

// MockQueueRepository is a mock implementation of EmbeddingQueueRepositoryInterface
type MockQueueRepository struct {
	mock.Mock
}

func (m *MockQueueRepository) Enqueue(ctx context.Context, documentID int64, priority int) error {
	args := m.Called(ctx, documentID, priority)
	return args.Error(0)
}

// MockBlobStore is a mock implementation of BlobStore
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	args := m.Called(ctx, key, contentType, data)
	return args.Error(0)
}

// MockUUIDGenerator is a mock UUID generator for deterministic tests
type MockUUIDGenerator struct {
	mock.Mock
}

func (m *MockUUIDGenerator) NewString() string {
	args := m.Called()
	return args.String(0)
}

// stubTxRunner runs the transaction function directly against the mocks.
type stubTxRunner struct {
	docs  *MockDocumentRepository
	atts  *MockAttachmentRepository
	queue *MockQueueRepository
	err   error
}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(TxRepositories) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(s)
}

func (s *stubTxRunner) Documents() DocumentRepositoryInterface       { return s.docs }
func (s *stubTxRunner) Attachments() AttachmentRepositoryInterface   { return s.atts }
func (s *stubTxRunner) Queue() EmbeddingQueueRepositoryInterface     { return s.queue }

func newStubTxRunner() *stubTxRunner {
	return &stubTxRunner{
		docs:  new(MockDocumentRepository),
		atts:  new(MockAttachmentRepository),
		queue: new(MockQueueRepository),
	}
}

func buildExport(notes ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<en-export export-date="20230615T140000Z" application="Evernote">` + "\n")
	for _, n := range notes {
		sb.WriteString(n)
		sb.WriteString("\n")
	}
	sb.WriteString(`</en-export>`)
	return sb.String()
}

func simpleNote(title string) string {
	return fmt.Sprintf(
		`<note><title>%s</title><content><![CDATA[<?xml version="1.0"?><en-note>Body of %s</en-note>]]></content><created>20230615T140000Z</created></note>`,
		title, title)
}

func TestMigrationService_Run_PartialFailure(t *testing.T) {
	notes := make([]string, 0, 10)
	for i := 1; i <= 10; i++ {
		if i == 4 {
			// A note with neither title nor content fails normalization.
			notes = append(notes, `<note></note>`)
			continue
		}
		notes = append(notes, simpleNote(fmt.Sprintf("Note %d", i)))
	}
	export := buildExport(notes...)

	jobs := new(MockMigrationJobRepository)
	tx := newStubTxRunner()

	tx.docs.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	tx.atts.On("DeleteByDocument", mock.Anything, mock.Anything).Return(nil)
	tx.queue.On("Enqueue", mock.Anything, mock.Anything, 0).Return(nil)

	jobs.On("SetRunning", mock.Anything, "job-1", 10).Return(nil)

	var checkpointProcessed, checkpointFailed int
	var checkpointLog []domain.MigrationError
	jobs.On("Checkpoint", mock.Anything, "job-1", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			checkpointProcessed = args.Int(2)
			checkpointFailed = args.Int(3)
			checkpointLog, _ = args.Get(4).([]domain.MigrationError)
		}).Return(nil)

	jobs.On("Finish", mock.Anything, "job-1", domain.MigrationStatusCompleted, mock.Anything, mock.Anything).Return(nil)

	svc := NewMigrationService(jobs, tx, nil, 10)
	err := svc.Run(context.Background(), "job-1", []byte(export))
	require.NoError(t, err)

	assert.Equal(t, 9, checkpointProcessed)
	assert.Equal(t, 1, checkpointFailed)
	require.Len(t, checkpointLog, 1)
	assert.Equal(t, "note #4", checkpointLog[0].Item)
	assert.NotEmpty(t, checkpointLog[0].Message)

	tx.docs.AssertNumberOfCalls(t, "Upsert", 9)
	tx.queue.AssertNumberOfCalls(t, "Enqueue", 9)
	jobs.AssertNumberOfCalls(t, "Checkpoint", 1)
	jobs.AssertExpectations(t)
}

func TestMigrationService_Run_CheckpointPerBatch(t *testing.T) {
	notes := make([]string, 0, 25)
	for i := 1; i <= 25; i++ {
		notes = append(notes, simpleNote(fmt.Sprintf("Note %d", i)))
	}
	export := buildExport(notes...)

	jobs := new(MockMigrationJobRepository)
	tx := newStubTxRunner()

	tx.docs.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	tx.atts.On("DeleteByDocument", mock.Anything, mock.Anything).Return(nil)
	tx.queue.On("Enqueue", mock.Anything, mock.Anything, 0).Return(nil)

	jobs.On("SetRunning", mock.Anything, "job-2", 25).Return(nil)

	var processedAtCheckpoint []int
	jobs.On("Checkpoint", mock.Anything, "job-2", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			processedAtCheckpoint = append(processedAtCheckpoint, args.Int(2))
		}).Return(nil)

	jobs.On("Finish", mock.Anything, "job-2", domain.MigrationStatusCompleted, mock.Anything, mock.Anything).Return(nil)

	svc := NewMigrationService(jobs, tx, nil, 10)
	err := svc.Run(context.Background(), "job-2", []byte(export))
	require.NoError(t, err)

	// Batches of 10, 10 and 5; progress is durable after each.
	assert.Equal(t, []int{10, 20, 25}, processedAtCheckpoint)
}

func TestMigrationService_Run_EmptyExport(t *testing.T) {
	export := buildExport()

	jobs := new(MockMigrationJobRepository)
	tx := newStubTxRunner()

	jobs.On("SetRunning", mock.Anything, "job-3", 0).Return(nil)
	jobs.On("Finish", mock.Anything, "job-3", domain.MigrationStatusCompleted, mock.Anything, mock.Anything).Return(nil)

	svc := NewMigrationService(jobs, tx, nil, 10)
	err := svc.Run(context.Background(), "job-3", []byte(export))
	require.NoError(t, err)

	jobs.AssertNotCalled(t, "Checkpoint", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	jobs.AssertExpectations(t)
}

func TestMigrationService_Run_MalformedExport(t *testing.T) {
	jobs := new(MockMigrationJobRepository)
	tx := newStubTxRunner()

	var failureLog []domain.MigrationError
	jobs.On("Finish", mock.Anything, "job-4", domain.MigrationStatusFailed, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			failureLog, _ = args.Get(3).([]domain.MigrationError)
		}).Return(nil)

	svc := NewMigrationService(jobs, tx, nil, 10)
	err := svc.Run(context.Background(), "job-4", []byte(`<en-export><note><title>broken`))
	require.Error(t, err)

	jobs.AssertNotCalled(t, "SetRunning", mock.Anything, mock.Anything, mock.Anything)
	require.Len(t, failureLog, 1)
	assert.Equal(t, "export", failureLog[0].Item)
}

func TestMigrationService_Run_NoteFailureDoesNotStopBatch(t *testing.T) {
	export := buildExport(simpleNote("Alpha"), simpleNote("Beta"))

	jobs := new(MockMigrationJobRepository)
	tx := newStubTxRunner()

	storeErr := errors.New("connection reset")
	tx.docs.On("Upsert", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Title == "Alpha"
	})).Return(storeErr)
	tx.docs.On("Upsert", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Title == "Beta"
	})).Return(nil)
	tx.atts.On("DeleteByDocument", mock.Anything, mock.Anything).Return(nil)
	tx.queue.On("Enqueue", mock.Anything, mock.Anything, 0).Return(nil)

	jobs.On("SetRunning", mock.Anything, "job-5", 2).Return(nil)

	var checkpointLog []domain.MigrationError
	jobs.On("Checkpoint", mock.Anything, "job-5", 1, 1, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			checkpointLog, _ = args.Get(4).([]domain.MigrationError)
		}).Return(nil)
	jobs.On("Finish", mock.Anything, "job-5", domain.MigrationStatusCompleted, mock.Anything, mock.Anything).Return(nil)

	svc := NewMigrationService(jobs, tx, nil, 10)
	err := svc.Run(context.Background(), "job-5", []byte(export))
	require.NoError(t, err)

	require.Len(t, checkpointLog, 1)
	assert.Equal(t, "Alpha", checkpointLog[0].Item)
	assert.Contains(t, checkpointLog[0].Message, "connection reset")
	jobs.AssertExpectations(t)
}

func TestMigrationService_Run_AttachmentsReplacedAndUploaded(t *testing.T) {
	// "aGVsbG8=" decodes to "hello".
	note := `<note><title>With file</title>` +
		`<content><![CDATA[<?xml version="1.0"?><en-note>See attachment</en-note>]]></content>` +
		`<created>20230615T140000Z</created>` +
		`<resource><data encoding="base64">aGVsbG8=</data><mime>text/plain</mime>` +
		`<resource-attributes><file-name>hello.txt</file-name></resource-attributes></resource>` +
		`</note>`
	export := buildExport(note)

	jobs := new(MockMigrationJobRepository)
	tx := newStubTxRunner()
	blobs := new(MockBlobStore)

	tx.docs.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	tx.atts.On("DeleteByDocument", mock.Anything, mock.Anything).Return(nil)
	tx.atts.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Attachment) bool {
		return a.Filename == "hello.txt" && a.MimeType == "text/plain" && a.ByteSize == 5
	})).Return(nil)
	tx.queue.On("Enqueue", mock.Anything, mock.Anything, 0).Return(nil)
	blobs.On("Put", mock.Anything, mock.Anything, "text/plain", []byte("hello")).Return(nil)

	jobs.On("SetRunning", mock.Anything, "job-6", 1).Return(nil)
	jobs.On("Checkpoint", mock.Anything, "job-6", 1, 0, mock.Anything, mock.Anything).Return(nil)
	jobs.On("Finish", mock.Anything, "job-6", domain.MigrationStatusCompleted, mock.Anything, mock.Anything).Return(nil)

	svc := NewMigrationService(jobs, tx, blobs, 10)
	err := svc.Run(context.Background(), "job-6", []byte(export))
	require.NoError(t, err)

	tx.atts.AssertExpectations(t)
	blobs.AssertExpectations(t)
}

func TestMigrationService_Start(t *testing.T) {
	jobs := new(MockMigrationJobRepository)
	tx := newStubTxRunner()
	uuidGen := new(MockUUIDGenerator)
	uuidGen.On("NewString").Return("11111111-2222-3333-4444-555555555555")

	jobs.On("Create", mock.Anything, mock.MatchedBy(func(j *domain.MigrationJob) bool {
		return j.ID == "11111111-2222-3333-4444-555555555555" && j.Status == domain.MigrationStatusPending
	})).Return(nil)
	// The background run may or may not land before the test ends.
	jobs.On("SetRunning", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	jobs.On("Finish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	svc := NewMigrationServiceWithUUIDGen(jobs, tx, nil, 10, uuidGen)
	jobID, err := svc.Start(context.Background(), []byte(buildExport()))
	require.NoError(t, err)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", jobID)
}

func TestMigrationService_Start_CreateFails(t *testing.T) {
	jobs := new(MockMigrationJobRepository)
	tx := newStubTxRunner()
	uuidGen := new(MockUUIDGenerator)
	uuidGen.On("NewString").Return("job-err")

	jobs.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	svc := NewMigrationServiceWithUUIDGen(jobs, tx, nil, 10, uuidGen)
	_, err := svc.Start(context.Background(), []byte(buildExport()))
	assert.Error(t, err)
}

func TestMigrationService_Status(t *testing.T) {
	jobs := new(MockMigrationJobRepository)
	tx := newStubTxRunner()

	want := &domain.MigrationJob{ID: "job-7", Status: domain.MigrationStatusRunning, TotalItems: 40, ProcessedItems: 20}
	jobs.On("GetByID", mock.Anything, "job-7").Return(want, nil)

	svc := NewMigrationService(jobs, tx, nil, 10)
	got, err := svc.Status(context.Background(), "job-7")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	jobs.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrMigrationJobNotFound)
	_, err = svc.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrMigrationJobNotFound)
}
