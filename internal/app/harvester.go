package app

import (
	"context"
	"fmt"
	"time"

	"github.com/setek-hq/coupon-harvester/internal/config"
	"github.com/setek-hq/coupon-harvester/internal/importer"
	"github.com/setek-hq/coupon-harvester/internal/logger"
	"github.com/setek-hq/coupon-harvester/internal/moderation"
	"github.com/setek-hq/coupon-harvester/internal/rewrite"
	"github.com/setek-hq/coupon-harvester/internal/storage"
	"github.com/setek-hq/coupon-harvester/pkg/providers"
	"github.com/setek-hq/coupon-harvester/pkg/publishers"
)

// Harvester represents the coupon harvester runtime. It manages the import
// loop and the publication loop, coordinating between provider adapters, the
// record store, the rewrite gate and the downstream publishers.
type Harvester struct {
	cfg             *config.Config
	providerReg     *providers.Registry
	fanout          *publishers.Fanout
	importService   *importer.Service
	moderation      *moderation.Service
	importInterval  time.Duration
	publishInterval time.Duration
	log             logger.Logger
	store           storage.Store
}

// NewHarvester builds a harvester runtime from config files.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	providerReg, err := providers.LoadRegistry(cfg.ProvidersFile)
	if err != nil {
		return nil, fmt.Errorf("load providers registry: %w", err)
	}
	providerList := providerReg.All()
	providerNames := make([]string, 0, len(providerList))
	for _, p := range providerList {
		providerNames = append(providerNames, p.Provider)
	}
	log.InfoObj("providers registry loaded", "providers_meta", map[string]any{
		"count":     len(providerNames),
		"providers": providerNames,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubRegistry := publishers.DefaultRegistry()
	pubClients, err := publishers.BuildAll(ctx, pubRegistry, enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.BBoltPath,
	})

	fetchers := providers.NewFetcherSet(providers.DefaultHTTPClient(), log)
	importService := importer.NewService(fetchers, store, log)

	gate := rewrite.NewGate(rewrite.Config{
		Enabled:      cfg.AIRewriteEnabled,
		Provider:     cfg.AIProvider,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OpenAIModel:  cfg.OpenAIModel,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
	}, nil, log)

	moderationService := moderation.NewService(store, gate, fanout, moderation.Policy{
		AutoPublish:      cfg.AutoPublish,
		AutoPublishLimit: cfg.AutoPublishLimit,
		RequireApproval:  cfg.RequireApproval,
		DeleteOnPublish:  cfg.DeleteOnPublish,
	}, log)

	return &Harvester{
		cfg:             cfg,
		providerReg:     providerReg,
		fanout:          fanout,
		importService:   importService,
		moderation:      moderationService,
		importInterval:  cfg.ImportInterval,
		publishInterval: cfg.PublishInterval,
		log:             log,
		store:           store,
	}, nil
}

// Moderation exposes the moderation service for management tooling.
func (h *Harvester) Moderation() *moderation.Service { return h.moderation }

// Store exposes the record store for management tooling.
func (h *Harvester) Store() storage.Store { return h.store }

// Fetchers exposes the provider adapters for management tooling.
func (h *Harvester) Fetchers() providers.FetcherSet {
	return providers.NewFetcherSet(providers.DefaultHTTPClient(), h.log)
}

// Providers exposes the configured provider settings.
func (h *Harvester) Providers() *providers.Registry { return h.providerReg }

// Run starts the import and publication loops until the context is cancelled.
func (h *Harvester) Run(ctx context.Context) error {
	if h == nil || h.importService == nil {
		return fmt.Errorf("harvester is not initialized")
	}
	defer h.closeStore()

	settings := h.providerReg.All()
	if len(settings) == 0 {
		h.log.WarnObj("no providers configured; harvester idle", "providers_file", h.cfg.ProvidersFile)
		<-ctx.Done()
		return ctx.Err()
	}

	h.log.InfoObj("harvester loop starting", "harvester_state", map[string]any{
		"providers_count":  len(settings),
		"publishers_count": h.fanout.Size(),
		"import_interval":  h.importInterval.String(),
		"publish_interval": h.publishInterval.String(),
		"auto_publish":     h.cfg.AutoPublish,
	})

	h.importOnce(ctx, settings)

	importTicker := time.NewTicker(h.importInterval)
	defer importTicker.Stop()
	publishTicker := time.NewTicker(h.publishInterval)
	defer publishTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.InfoObj("harvester loop exiting", "reason", ctx.Err())
			return nil
		case <-importTicker.C:
			h.importOnce(ctx, settings)
		case <-publishTicker.C:
			if err := h.moderation.AutoPublishCycle(ctx); err != nil {
				h.log.ErrorObj("auto publish cycle failed", "error", err.Error())
			}
		}
	}
}

// importOnce performs a single import pass across all providers.
func (h *Harvester) importOnce(ctx context.Context, settings []providers.Settings) {
	start := time.Now()
	h.log.InfoObj("import started", "import_meta", map[string]any{
		"providers_count": len(settings),
		"started_at":      start.UTC(),
	})
	if err := h.importService.RunOnce(ctx, settings); err != nil {
		h.log.ErrorObj("import pass finished with errors", "error", err.Error())
	}
	h.log.InfoObj("import completed", "import_meta", map[string]any{
		"providers_count": len(settings),
		"elapsed_ms":      time.Since(start).Milliseconds(),
	})
}

// closeStore safely closes the storage backend, logging any errors encountered.
func (h *Harvester) closeStore() {
	if h == nil || h.store == nil {
		return
	}
	if err := h.store.Close(); err != nil {
		h.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
