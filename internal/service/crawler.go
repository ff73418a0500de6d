package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/codingthefuturewithai/rag-memory-sub001/internal/crawl"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/metrics"
	"github.com/codingthefuturewithai/rag-memory-sub001/internal/models"
)

// CrawlerDocumentStore is the data-access interface Crawler depends on beyond
// what the Mediator already covers.
type CrawlerDocumentStore interface {
	ListByCrawlRoot(ctx context.Context, collectionID uuid.UUID, rootURL string) ([]models.SourceDocument, error)
}

// CrawlRequest describes one URL ingestion.
type CrawlRequest struct {
	RootURL     string
	Collection  string
	Mode        models.IngestMode
	FollowLinks bool
	MaxDepth    int
	MaxPages    int
	Metadata    models.Metadata
}

// Crawler tracks crawl sessions: it fetches pages breadth-first from a root
// URL, ingests each through the Mediator, and stamps every page with lineage
// metadata (root URL, session id, depth, parent) so a later reingest can
// replace exactly the pages belonging to this root in this collection.
type Crawler struct {
	collections CollectionResolver
	documents   CrawlerDocumentStore
	mediator    *Mediator
	deleter     *Deleter
	fetcher     crawl.Fetcher
	concurrency int
	maxPages    int
	log         *logrus.Logger
}

// NewCrawler creates a Crawler. concurrency bounds parallel page fetches and
// maxPages caps how many pages one session may ingest.
func NewCrawler(
	collections CollectionResolver,
	documents CrawlerDocumentStore,
	mediator *Mediator,
	deleter *Deleter,
	fetcher crawl.Fetcher,
	concurrency, maxPages int,
	log *logrus.Logger,
) *Crawler {
	if concurrency <= 0 {
		concurrency = 4
	}

	if maxPages <= 0 {
		maxPages = 100
	}

	return &Crawler{
		collections: collections,
		documents:   documents,
		mediator:    mediator,
		deleter:     deleter,
		fetcher:     fetcher,
		concurrency: concurrency,
		maxPages:    maxPages,
		log:         log,
	}
}

// IngestURL runs one crawl session.
//
// With mode=ingest, any page already recorded under the same root URL in the
// target collection fails the call with DuplicateCrawl before anything is
// fetched. With mode=reingest, exactly the documents whose crawl_root_url
// matches in this collection are deleted through the centralized procedure,
// one by one, before the fresh crawl starts. Pages under the same root in
// other collections are never touched. If any deletion fails the whole call
// aborts with ReingestAborted and no new pages are created.
//
// Fetch failures after that point are partial: fetched pages stay ingested,
// failed ones are counted, and nothing rolls back.
func (c *Crawler) IngestURL(ctx context.Context, req CrawlRequest) (*models.CrawlResult, error) {
	if req.RootURL == "" {
		return nil, models.ErrMissingKey
	}

	if !req.Mode.Valid() {
		return nil, models.ErrInvalidMode
	}

	if req.MaxPages <= 0 || req.MaxPages > c.maxPages {
		req.MaxPages = c.maxPages
	}

	col, err := c.collections.GetByName(ctx, req.Collection)
	if err != nil {
		return nil, err
	}

	existing, err := c.documents.ListByCrawlRoot(ctx, col.ID, req.RootURL)
	if err != nil {
		return nil, err
	}

	if len(existing) > 0 {
		if req.Mode == models.ModeIngest {
			return nil, &models.DuplicateCrawlError{Collection: col.Name, RootURL: req.RootURL}
		}

		if err := c.deleteExisting(ctx, col.Name, req.RootURL, existing); err != nil {
			return nil, err
		}
	}

	session := uuid.New()
	result := &models.CrawlResult{SessionID: session, RootURL: req.RootURL}

	c.log.WithFields(logrus.Fields{
		"session_id": session,
		"root_url":   req.RootURL,
		"collection": col.Name,
		"max_depth":  req.MaxDepth,
	}).Info("crawler.session_started")

	c.traverse(ctx, req, session, result)

	c.log.WithFields(logrus.Fields{
		"session_id": session,
		"succeeded":  result.Succeeded,
		"failed":     result.Failed,
	}).Info("crawler.session_finished")

	return result, nil
}

// deleteExisting removes prior pages of this root sequentially through the
// centralized deletion procedure. The first failure aborts the whole reingest.
func (c *Crawler) deleteExisting(ctx context.Context, collection, rootURL string, docs []models.SourceDocument) error {
	for i := range docs {
		if err := c.deleter.Delete(ctx, &docs[i]); err != nil {
			return &models.ReingestAbortedError{
				Collection:     collection,
				IdentifyingKey: rootURL,
				Err:            err,
			}
		}
	}

	return nil
}

// crawlTarget is one queued page with its discovery lineage.
type crawlTarget struct {
	url    string
	depth  int
	parent string
}

// traverse walks the link graph breadth-first. Fetching and ingestion run in
// parallel within a depth level, bounded by the configured concurrency; each
// discovered URL is fetched at most once per session.
func (c *Crawler) traverse(ctx context.Context, req CrawlRequest, session uuid.UUID, result *models.CrawlResult) {
	visited := map[string]bool{req.RootURL: true}
	frontier := []crawlTarget{{url: req.RootURL, depth: 0}}
	pages := 0

	var mu sync.Mutex

	for len(frontier) > 0 {
		var next []crawlTarget

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)

		for _, target := range frontier {
			target := target
			mu.Lock()
			capped := req.MaxPages > 0 && pages >= req.MaxPages
			if !capped {
				pages++
			}
			mu.Unlock()

			if capped {
				break
			}

			g.Go(func() error {
				page, res, err := c.fetchAndIngest(gctx, req, session, target)

				mu.Lock()
				defer mu.Unlock()

				if err != nil {
					metrics.CrawlPagesFetched.WithLabelValues("error").Inc()
					result.Failed++
					c.log.WithFields(logrus.Fields{
						"session_id": session,
						"url":        target.url,
					}).WithError(err).Warn("crawler.page_failed")

					return nil
				}

				metrics.CrawlPagesFetched.WithLabelValues("success").Inc()
				result.Succeeded++
				result.Pages = append(result.Pages, *res)

				if req.FollowLinks && target.depth < req.MaxDepth {
					for _, link := range page.Links {
						if !visited[link] {
							visited[link] = true
							next = append(next, crawlTarget{url: link, depth: target.depth + 1, parent: target.url})
						}
					}
				}

				return nil
			})
		}

		// Goroutines only return nil; Wait just joins the level.
		g.Wait() //nolint:errcheck

		if ctx.Err() != nil {
			return
		}

		frontier = next
	}
}

// fetchAndIngest retrieves one page and feeds it through the Mediator with
// crawl lineage stamped into its metadata.
func (c *Crawler) fetchAndIngest(ctx context.Context, req CrawlRequest, session uuid.UUID, target crawlTarget) (*crawl.Page, *models.IngestResult, error) {
	page, err := c.fetcher.Fetch(ctx, target.url)
	if err != nil {
		return nil, nil, err
	}

	md := req.Metadata.Clone()
	md[models.MetaKeyCrawlRootURL] = models.String(req.RootURL)
	md[models.MetaKeyCrawlSession] = models.String(session.String())
	md[models.MetaKeyCrawlDepth] = models.Number(float64(target.depth))

	if target.parent != "" {
		md[models.MetaKeyParentURL] = models.String(target.parent)
	}

	title := page.Title
	if title == "" {
		title = target.url
	}

	res, err := c.mediator.Ingest(ctx, IngestRequest{
		Collection:     req.Collection,
		IdentifyingKey: target.url,
		Title:          title,
		Content:        page.Text,
		SourceType:     models.SourceURL,
		Mode:           req.Mode,
		Metadata:       md,
	})
	if err != nil {
		return nil, nil, err
	}

	return page, res, nil
}
