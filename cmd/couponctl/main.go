package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/setek-hq/coupon-harvester/internal/config"
	"github.com/setek-hq/coupon-harvester/internal/domain"
	"github.com/setek-hq/coupon-harvester/internal/logger"
	"github.com/setek-hq/coupon-harvester/internal/moderation"
	"github.com/setek-hq/coupon-harvester/internal/rewrite"
	"github.com/setek-hq/coupon-harvester/internal/storage"
	"github.com/setek-hq/coupon-harvester/pkg/providers"
	"github.com/setek-hq/coupon-harvester/pkg/publishers"
)

const usage = `Usage: couponctl <command> [arguments]

Commands:
  list [status]              list stored coupons, optionally filtered by status
  approve <external-id>      approve a pending coupon
  reject <external-id>       reject a pending coupon
  ignore <external-id>       ignore a pending coupon
  publish <external-id>      publish an approved coupon downstream
  purge-expired              delete coupons past their expiration date
  purge-duplicates           delete repeated coupons, keeping the oldest
  test-connection <provider> verify provider API credentials
  advertisers <provider>     list joined advertisers for a provider
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "couponctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init("warn")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	command := args[0]
	switch command {
	case "list":
		status := ""
		if len(args) > 1 {
			status = args[1]
		}
		return listCoupons(store, status)
	case "approve", "reject", "ignore", "publish":
		if len(args) < 2 {
			return fmt.Errorf("%s requires an external id", command)
		}
		svc := moderationService(ctx, cfg, store, log, command == "publish")
		return applyDecision(ctx, svc, command, args[1])
	case "purge-expired":
		svc := moderationService(ctx, cfg, store, log, false)
		deleted, err := svc.PurgeExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d expired coupons\n", deleted)
		return nil
	case "purge-duplicates":
		svc := moderationService(ctx, cfg, store, log, false)
		deleted, err := svc.PurgeDuplicates(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d duplicate coupons\n", deleted)
		return nil
	case "test-connection":
		if len(args) < 2 {
			return fmt.Errorf("test-connection requires a provider name")
		}
		return testConnection(ctx, cfg, log, args[1])
	case "advertisers":
		if len(args) < 2 {
			return fmt.Errorf("advertisers requires a provider name")
		}
		return listAdvertisers(ctx, cfg, log, args[1])
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// moderationService wires a moderation service for one-shot commands. The
// publisher fanout and rewrite gate are only built for publish, so read-only
// commands work without publisher configuration.
func moderationService(ctx context.Context, cfg *config.Config, store storage.Store, log logger.Logger, forPublish bool) *moderation.Service {
	var fanout *publishers.Fanout
	var gate *rewrite.Gate

	if forPublish {
		if reg, err := publishers.LoadRegistry(cfg.PublishersFile); err == nil {
			if pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), reg.Enabled(), log); err == nil {
				fanout = publishers.NewFanout(pubs)
			} else {
				log.WarnObj("publishers unavailable, publishing without fanout", "error", err.Error())
			}
		} else {
			log.WarnObj("publishers unavailable, publishing without fanout", "error", err.Error())
		}
		gate = rewrite.NewGate(rewrite.Config{
			Enabled:      cfg.AIRewriteEnabled,
			Provider:     cfg.AIProvider,
			OpenAIAPIKey: cfg.OpenAIAPIKey,
			OpenAIModel:  cfg.OpenAIModel,
			GeminiAPIKey: cfg.GeminiAPIKey,
			GeminiModel:  cfg.GeminiModel,
		}, nil, log)
	}

	return moderation.NewService(store, gate, fanout, moderation.Policy{
		DeleteOnPublish: cfg.DeleteOnPublish,
	}, log)
}

func applyDecision(ctx context.Context, svc *moderation.Service, command, externalID string) error {
	var err error
	switch command {
	case "approve":
		err = svc.Approve(ctx, externalID)
	case "reject":
		err = svc.Reject(ctx, externalID)
	case "ignore":
		err = svc.Ignore(ctx, externalID)
	case "publish":
		err = svc.Publish(ctx, externalID)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", command, externalID)
	return nil
}

func listCoupons(store storage.Store, status string) error {
	var (
		records []domain.Record
		err     error
	)
	if status == "" {
		records, err = store.All()
	} else {
		st := domain.Status(status)
		if !st.Known() {
			return fmt.Errorf("unknown status %q", status)
		}
		records, err = store.ListByStatus(st, 0)
	}
	if err != nil {
		return fmt.Errorf("list coupons: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EXTERNAL ID\tPROVIDER\tSTATUS\tADVERTISER\tTITLE")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rec.ExternalID, rec.Provider, rec.Status, rec.Advertiser, rec.Title)
	}
	return w.Flush()
}

func testConnection(ctx context.Context, cfg *config.Config, log logger.Logger, provider string) error {
	reg, err := providers.LoadRegistry(cfg.ProvidersFile)
	if err != nil {
		return fmt.Errorf("load providers registry: %w", err)
	}
	st, ok := reg.ByProvider(provider)
	if !ok {
		return fmt.Errorf("provider %q is not configured", provider)
	}

	fetchers := providers.NewFetcherSet(providers.DefaultHTTPClient(), log)
	fetcher, err := fetchers.For(provider)
	if err != nil {
		return err
	}
	if err := fetcher.TestConnection(ctx, st); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	fmt.Printf("%s: connection ok\n", provider)
	return nil
}

func listAdvertisers(ctx context.Context, cfg *config.Config, log logger.Logger, provider string) error {
	reg, err := providers.LoadRegistry(cfg.ProvidersFile)
	if err != nil {
		return fmt.Errorf("load providers registry: %w", err)
	}
	st, ok := reg.ByProvider(provider)
	if !ok {
		return fmt.Errorf("provider %q is not configured", provider)
	}

	fetchers := providers.NewFetcherSet(providers.DefaultHTTPClient(), log)
	fetcher, err := fetchers.For(provider)
	if err != nil {
		return err
	}
	lister, ok := fetcher.(providers.AdvertiserLister)
	if !ok {
		return fmt.Errorf("provider %q does not list advertisers", provider)
	}

	advertisers, err := lister.Advertisers(ctx, st)
	if err != nil {
		return fmt.Errorf("list advertisers: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, a := range advertisers {
		fmt.Fprintf(w, "%s\t%s\n", a.ID, a.Name)
	}
	return w.Flush()
}
