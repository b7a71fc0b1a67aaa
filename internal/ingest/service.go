package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"casedocs/internal/audit"
	"casedocs/internal/model"
	"casedocs/internal/repository"
	"casedocs/internal/storage"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("document not found")
)

// IngestRequest is the full input of one ingestion attempt.
type IngestRequest struct {
	Content         []byte
	OriginalName    string
	DeclaredMime    string
	DeclaredSize    int64
	OwnerID         string
	UploaderID      string
	Type            model.DocumentType
	CaseID          *string
	PendingItemID   *string
	UploadSessionID *string
	Description     *string
	Reusable        bool
	Metadata        map[string]string
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// Service defines the use cases for handling case documents.
type Service interface {
	// Ingest runs the full pipeline: validate, classify, hash, reuse-check,
	// store, persist. It returns a fully hydrated document record or a
	// structured *Error with a machine-distinguishable category.
	Ingest(ctx context.Context, req IngestRequest) (*model.DocumentWithRelations, error)

	// Get returns a single non-deleted document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// List returns documents using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// SoftDelete marks a document deleted. Bytes stay in storage; hard
	// deletion is owned by a higher layer.
	SoftDelete(ctx context.Context, id string) error

	// FileURL returns a time-limited download URL for the document's bytes.
	FileURL(ctx context.Context, id string) (string, error)
}

// service is a concrete implementation of Service. Each ingest attempt is a
// stateless unit of work; the struct holds only wiring, never per-attempt
// state, so unlimited concurrent attempts are safe.
type service struct {
	validator  *Validator
	classifier *Classifier
	resolver   *ReuseResolver
	store      storage.Backend
	repo       repository.DocumentRepository
	sink       audit.Sink
	log        *slog.Logger
	urlExpiry  time.Duration

	now   func() time.Time
	newID func() string
}

// NewService constructs the ingestion service. It fails fast when the storage
// wiring is incomplete.
func NewService(
	validator *Validator,
	classifier *Classifier,
	resolver *ReuseResolver,
	store storage.Backend,
	repo repository.DocumentRepository,
	sink audit.Sink,
	log *slog.Logger,
	urlExpiry time.Duration,
) (Service, error) {
	if err := CheckWiring(store); err != nil {
		return nil, err
	}
	return &service{
		validator:  validator,
		classifier: classifier,
		resolver:   resolver,
		store:      store,
		repo:       repo,
		sink:       sink,
		log:        log,
		urlExpiry:  urlExpiry,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

func (s *service) emit(ctx context.Context, req IngestRequest, correlationID string, stage audit.Stage, outcome audit.Outcome, severity audit.Severity, details map[string]any) {
	s.sink.Emit(ctx, audit.Event{
		CorrelationID: correlationID,
		OwnerID:       req.OwnerID,
		UploaderID:    req.UploaderID,
		Stage:         stage,
		Outcome:       outcome,
		Severity:      severity,
		Details:       details,
	})
}

var tracer = otel.Tracer("casedocs/internal/ingest")

func (s *service) Ingest(ctx context.Context, req IngestRequest) (res *model.DocumentWithRelations, err error) {
	correlationID := s.newID()

	ctx, span := tracer.Start(ctx, "ingest.pipeline", trace.WithAttributes(
		attribute.String("ingest.correlation_id", correlationID),
		attribute.String("document.type", string(req.Type)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(CategoryOf(err)))
		}
		span.End()
	}()

	// Stage 1: structural validation, complete reason list.
	vr := s.validator.Validate(req, correlationID)
	if !vr.IsValid {
		s.emit(ctx, req, correlationID, audit.StageValidation, audit.OutcomeRejected, audit.SeverityInfo,
			map[string]any{"reasons": vr.Reasons})
		return nil, NewValidationError(vr.Reasons)
	}
	s.emit(ctx, req, correlationID, audit.StageValidation, audit.OutcomeSuccess, audit.SeverityInfo, nil)

	// Stage 2: content-security classification.
	cls, err := s.classifier.Classify(req.Content, req.DeclaredMime, req.OriginalName, req.DeclaredSize)
	if err != nil {
		s.emit(ctx, req, correlationID, audit.StageClassification, audit.OutcomeFailure, audit.SeverityError,
			map[string]any{"error": err.Error()})
		return nil, NewInvariantError("signature inspection failed", err)
	}
	if !cls.Accepted {
		s.emit(ctx, req, correlationID, audit.StageClassification, audit.OutcomeRejected, audit.SeverityWarn,
			map[string]any{
				"message":        cls.Message,
				"security_flags": cls.SecurityFlags,
				"detected_mime":  cls.DetectedMime,
			})
		return nil, NewSecurityError(cls.Message, cls.SecurityFlags)
	}
	s.emit(ctx, req, correlationID, audit.StageClassification, audit.OutcomeSuccess, audit.SeverityInfo,
		map[string]any{
			"detected_mime":  cls.DetectedMime,
			"security_flags": cls.SecurityFlags,
		})

	// Stage 3: content hash + generated storage name.
	pr := Process(req.Content, req.OriginalName, correlationID)

	// Stage 4: dedup lookup; an accepted prior copy skips the storage write.
	docType := req.Type
	decision, err := s.resolver.Resolve(ctx, pr.ContentHash, req.OwnerID, &docType)
	if err != nil {
		s.emit(ctx, req, correlationID, audit.StageReuse, audit.OutcomeFailure, audit.SeverityError,
			map[string]any{"error": err.Error()})
		return nil, NewTransientError("reuse lookup failed", err)
	}
	reuseDetails := map[string]any{"can_reuse": decision.CanReuse, "reason": decision.Reason}
	if decision.Existing != nil {
		reuseDetails["existing_document_id"] = decision.Existing.ID
	}
	s.emit(ctx, req, correlationID, audit.StageReuse, audit.OutcomeSuccess, audit.SeverityInfo, reuseDetails)

	if decision.CanReuse {
		hydrated, err := s.repo.FindByIDWithRelations(ctx, decision.Existing.ID)
		if err != nil {
			// The candidate was just read; its disappearance breaks a contract.
			return nil, NewInvariantError("reusable document vanished after lookup", err)
		}
		return hydrated, nil
	}

	// Stage 5: storage write under a date-bucketed hierarchical key.
	key := storage.BuildKey(s.now(), req.OwnerID, req.Type, pr.StoredFilename)
	finalKey, err := s.store.Save(ctx, key, bytes.NewReader(req.Content), storage.SaveOptions{
		Size:        int64(len(req.Content)),
		ContentType: cls.DetectedMime,
		Metadata: map[string]string{
			"original-filename": req.OriginalName,
			"content-hash":      pr.ContentHash,
			"correlation-id":    correlationID,
		},
	})
	if err != nil {
		s.emit(ctx, req, correlationID, audit.StageStorage, audit.OutcomeFailure, audit.SeverityError,
			map[string]any{"backend": s.store.Name(), "error": err.Error()})
		return nil, NewTransientError("storage write failed", err)
	}
	s.emit(ctx, req, correlationID, audit.StageStorage, audit.OutcomeSuccess, audit.SeverityInfo,
		map[string]any{"backend": s.store.Name(), "storage_key": finalKey})

	// Stage 6: transactional persistence. Any failure from here on must
	// compensate the already-written object; no transaction spans both
	// systems.
	hydrated, err := s.persist(ctx, req, pr, cls, finalKey, correlationID)
	if err != nil {
		storage.Cleanup(ctx, s.store, finalKey, s.log)
		s.emit(ctx, req, correlationID, audit.StagePersistence, audit.OutcomeFailure, audit.SeverityError,
			map[string]any{"storage_key": finalKey, "error": err.Error()})
		return nil, err
	}
	s.emit(ctx, req, correlationID, audit.StagePersistence, audit.OutcomeSuccess, audit.SeverityInfo,
		map[string]any{"document_id": hydrated.ID, "storage_key": finalKey})

	return hydrated, nil
}

// persist builds, validates and saves the document record, then attaches a
// best-effort public URL and loads the hydrated result. The caller owns the
// compensating storage cleanup when this fails.
func (s *service) persist(ctx context.Context, req IngestRequest, pr ProcessResult, cls Classification, storageKey, correlationID string) (*model.DocumentWithRelations, error) {
	metadata := make(map[string]string, len(req.Metadata)+3)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["correlation-id"] = correlationID
	metadata["requires-encryption"] = fmt.Sprintf("%t", s.classifier.RequiresEncryption(cls.DetectedMime))
	metadata["thumbnail-allowed"] = fmt.Sprintf("%t", s.classifier.ThumbnailAllowed(cls.DetectedMime))

	doc := &model.Document{
		ID:               s.newID(),
		OwnerID:          req.OwnerID,
		CaseID:           req.CaseID,
		PendingItemID:    req.PendingItemID,
		UploadSessionID:  req.UploadSessionID,
		Type:             req.Type,
		UploaderID:       req.UploaderID,
		StoredFilename:   pr.StoredFilename,
		OriginalFilename: req.OriginalName,
		StorageKey:       storageKey,
		Size:             int64(len(req.Content)),
		MimeType:         cls.DetectedMime,
		ContentHash:      pr.ContentHash,
		Description:      req.Description,
		Reusable:         req.Reusable,
		Metadata:         metadata,
		CreatedAt:        s.now().UTC(),
	}

	// Reject before any write when the built record breaks shape invariants.
	if err := validateRecord(doc); err != nil {
		return nil, NewInvariantError("document record failed validation", err)
	}

	created, err := s.repo.Create(ctx, doc)
	if err != nil {
		return nil, NewTransientError("record store write failed", err)
	}

	// Best-effort public URL: failure downgrades to a warning, the document
	// is still successfully persisted.
	if url, err := s.store.PresignGet(ctx, storageKey, s.urlExpiry); err != nil {
		s.log.WarnContext(ctx, "public url generation failed",
			"document_id", created.ID, "error", err.Error())
	} else if err := s.repo.AttachPublicURL(ctx, created.ID, url); err != nil {
		s.log.WarnContext(ctx, "public url attach failed",
			"document_id", created.ID, "error", err.Error())
	}

	// The contract requires a fully hydrated result; failure here fails the
	// whole operation even though the row was inserted.
	hydrated, err := s.repo.FindByIDWithRelations(ctx, created.ID)
	if err != nil {
		return nil, NewInvariantError("persisted document could not be hydrated", err)
	}
	return hydrated, nil
}

var mimePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9!#$&^_.+-]*/[a-z0-9][a-z0-9!#$&^_.+-]*$`)

// validateRecord enforces the record's shape invariants before any write.
func validateRecord(d *model.Document) error {
	switch {
	case d.ID == "":
		return errors.New("id is empty")
	case d.OwnerID == "":
		return errors.New("owner id is empty")
	case d.UploaderID == "":
		return errors.New("uploader id is empty")
	case d.StoredFilename == "":
		return errors.New("stored filename is empty")
	case d.StorageKey == "":
		return errors.New("storage key is empty")
	case d.Size <= 0:
		return errors.New("size must be strictly positive")
	case !mimePattern.MatchString(d.MimeType):
		return fmt.Errorf("mime type %q is not type/subtype", d.MimeType)
	case !ValidHash(d.ContentHash):
		return errors.New("content hash has wrong length or charset")
	}
	return nil
}

// Get returns a document by ID.
func (s *service) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// List returns paginated documents without exposing repository types.
func (s *service) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// SoftDelete marks the record deleted. Storage bytes are intentionally kept;
// un-delete and hard deletion belong to a higher layer.
func (s *service) SoftDelete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if isNoRows(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// FileURL returns a presigned download URL for the document's stored bytes.
func (s *service) FileURL(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return s.store.PresignGet(ctx, doc.StorageKey, s.urlExpiry)
}
