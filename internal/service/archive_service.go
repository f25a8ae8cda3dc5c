package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"veritas/internal/domain"
	"veritas/internal/logging"
	"veritas/internal/scraper"
	"veritas/internal/service/cas"
)

// CompanyReader is the registry lookup the archiver needs.
type CompanyReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Company, error)
}

// ArchiveWriter persists a snapshot together with its version entry.
type ArchiveWriter interface {
	Record(ctx context.Context, snapshot *domain.Snapshot, checksum string) (*domain.ArchiveEntry, error)
}

type ArchiveOptions struct {
	// Concurrency bounds how many URLs are archived at once. 1 is sequential.
	Concurrency int
	// AutoPin asks the store to retain content after it is recorded.
	AutoPin bool
}

// ArchiveService runs fetch, extract, store and persist for each document of a company.
type ArchiveService struct {
	companies CompanyReader
	fetcher   scraper.Fetcher
	store     cas.Store
	writer    ArchiveWriter
	opts      ArchiveOptions
	logger    *zap.Logger
	now       func() time.Time
}

func NewArchiveService(
	companies CompanyReader,
	fetcher scraper.Fetcher,
	store cas.Store,
	writer ArchiveWriter,
	opts ArchiveOptions,
	logger *zap.Logger,
) *ArchiveService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &ArchiveService{
		companies: companies,
		fetcher:   fetcher,
		store:     store,
		writer:    writer,
		opts:      opts,
		logger:    logging.OrNop(logger),
		now:       utcNow,
	}
}

type workItem struct {
	index   int
	docType domain.DocumentType
	url     string
}

// ArchiveAll archives every configured document of the company. The error is
// non-nil only when the company cannot be loaded; item failures are reported
// in the result.
func (s *ArchiveService) ArchiveAll(ctx context.Context, companyID int64) (*domain.AggregateResult, error) {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company %d: %w", companyID, err)
	}
	return s.ArchiveCompany(ctx, company), nil
}

func (s *ArchiveService) ArchiveCompany(ctx context.Context, company *domain.Company) *domain.AggregateResult {
	items := workList(company)
	results := make([]domain.ItemResult, len(items))

	g := new(errgroup.Group)
	g.SetLimit(s.opts.Concurrency)
	for _, group := range groupByURL(items) {
		g.Go(func() error {
			for _, item := range group {
				results[item.index] = s.archiveItem(ctx, company, item)
			}
			return nil
		})
	}
	_ = g.Wait()

	agg := domain.NewAggregateResult(results)
	s.logger.Info("archive run finished",
		zap.Int64("company_id", company.ID),
		zap.Int("items", len(results)),
		zap.Int("failed", len(agg.Errors)),
		zap.Bool("success", agg.OverallSuccess))
	return agg
}

// workList is terms, then privacy. Without a terms URL there is nothing to do.
func workList(c *domain.Company) []workItem {
	if c.TermsURL == "" {
		return nil
	}
	items := []workItem{{index: 0, docType: domain.DocumentTerms, url: c.TermsURL}}
	if u := c.PrivacyURLValue(); u != "" {
		items = append(items, workItem{index: 1, docType: domain.DocumentPrivacy, url: u})
	}
	return items
}

// groupByURL keeps items that share a URL in one ordered group so their
// versions are assigned in work-list order.
func groupByURL(items []workItem) [][]workItem {
	var groups [][]workItem
	pos := map[string]int{}
	for _, item := range items {
		if i, ok := pos[item.url]; ok {
			groups[i] = append(groups[i], item)
			continue
		}
		pos[item.url] = len(groups)
		groups = append(groups, []workItem{item})
	}
	return groups
}

func (s *ArchiveService) archiveItem(ctx context.Context, company *domain.Company, item workItem) (res domain.ItemResult) {
	logger := s.logger.With(
		zap.Int64("company_id", company.ID),
		zap.String("document_type", string(item.docType)),
		zap.String("url", item.url))

	res = domain.ItemResult{DocumentType: item.docType, URL: item.url, State: domain.StatePending}

	fail := func(prefix string, err error) domain.ItemResult {
		msg := fmt.Sprintf("%s %s: %s", prefix, item.docType, err.Error())
		logger.Warn("archive item failed", zap.String("stage", string(res.State)), zap.Error(err))
		res.Failure = &domain.ItemFailure{Stage: res.State, Message: msg, Err: err}
		res.State = domain.StateFailed
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			res = fail("Unexpected error archiving", fmt.Errorf("%v", r))
		}
	}()

	res.State = domain.StateFetching
	resp, err := s.fetcher.Fetch(ctx, item.url)
	if err != nil {
		return fail("Failed to scrape", err)
	}
	if resp.FinalURL != "" && resp.FinalURL != item.url {
		logger.Debug("redirected", zap.String("final_url", resp.FinalURL))
	}

	res.State = domain.StateExtracting
	content := scraper.Extract(resp.Body)
	checksum := scraper.Checksum(content.Text)

	res.State = domain.StateStoring
	capturedAt := s.now()
	put, err := s.store.Put(ctx, []byte(content.Text), storedName(company, item.docType, capturedAt))
	if err != nil {
		return fail("Failed to store", err)
	}

	res.State = domain.StatePersisting
	snapshot := &domain.Snapshot{
		CompanyID:    company.ID,
		URL:          item.url,
		DocumentType: item.docType,
		Title:        domain.SnapshotTitle(company.Name, item.docType),
		PageTitle:    content.Title,
		Content:      content.Text,
		ContentID:    put.ContentID,
		SizeBytes:    put.Size,
		CapturedAt:   capturedAt,
	}
	entry, err := s.writer.Record(ctx, snapshot, checksum)
	if err != nil {
		return fail("Failed to save", err)
	}

	if s.opts.AutoPin {
		if err := s.store.Pin(ctx, put.ContentID); err != nil {
			logger.Warn("pin failed", zap.String("content_id", put.ContentID), zap.Error(err))
		}
	}

	res.State = domain.StateArchived
	res.Archived = &domain.ArchivedItem{
		SnapshotID:   snapshot.ID,
		SnapshotUUID: snapshot.UUID,
		EntryID:      entry.ID,
		Version:      entry.Version,
		ContentID:    put.ContentID,
		TextLength:   utf8.RuneCountInString(content.Text),
	}

	logger.Info("document archived",
		zap.String("content_id", put.ContentID),
		zap.Int("version", entry.Version),
		zap.Int("text_length", res.Archived.TextLength))
	return res
}

// storedName is the object name recorded with the content, e.g. "acme.example_terms_1700000000.txt".
func storedName(company *domain.Company, docType domain.DocumentType, at time.Time) string {
	d := company.Domain
	if d == "" {
		d = strings.ToLower(strings.Join(strings.Fields(company.Name), "-"))
	}
	return fmt.Sprintf("%s_%s_%d.txt", d, docType, at.Unix())
}
