package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/catalog-qa/internal/config"
	"github.com/kirillkom/catalog-qa/internal/core/ports"
	"github.com/kirillkom/catalog-qa/internal/core/usecase"
	"github.com/kirillkom/catalog-qa/internal/infrastructure/catalog/xlsx"
	"github.com/kirillkom/catalog-qa/internal/infrastructure/llm/mistral"
	"github.com/kirillkom/catalog-qa/internal/infrastructure/queue/nats"
	"github.com/kirillkom/catalog-qa/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/catalog-qa/internal/infrastructure/reranker/crossencoder"
	"github.com/kirillkom/catalog-qa/internal/infrastructure/resilience"
	"github.com/kirillkom/catalog-qa/internal/infrastructure/rules"
	"github.com/kirillkom/catalog-qa/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/catalog-qa/internal/infrastructure/vector/qdrant"
)

// App wires configuration into the adapters and use cases shared by the
// api and worker binaries.
type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Products ports.ProductReader

	ResolveUC ports.QueryResolver
	ImportUC  ports.CatalogImporter
	LoadUC    ports.CatalogLoader

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewProductRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	mistralClient := mistral.New(cfg.MistralURL, cfg.MistralAPIKey, cfg.MistralChatModel, cfg.MistralEmbedModel, executor)
	embedder := mistral.NewEmbedder(mistralClient)
	intentModel := mistral.NewIntentModel(mistralClient)
	generator := mistral.NewGenerator(mistralClient)
	translator := mistral.NewTranslator(mistralClient, cfg.WorkingLanguage)

	vectors := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	scorer := crossencoder.New(cfg.RerankerURL, cfg.RerankerModel, executor)

	ruleSpec, err := rules.Load(cfg.RulesPath)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load classifier rules: %w", err)
	}
	classifier, err := usecase.NewClassifier(ruleSpec, intentModel)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	retriever := usecase.NewRetriever(repo, vectors, embedder, cfg.LookupTimeout, cfg.RetrievalCandidates)
	reranker := usecase.NewReranker(scorer, cfg.MaxFusionCandidates)
	validator := usecase.NewValidator(cfg.ConsistencyThreshold, cfg.ClaimOverlapThreshold)

	resolveUC := usecase.NewResolveQueryUseCase(
		classifier,
		retriever,
		reranker,
		validator,
		generator,
		translator,
		usecase.FusionConfig{
			RRFK:           cfg.FusionRRFK,
			ExactWeight:    cfg.FusionExactWeight,
			SemanticWeight: cfg.FusionSemanticWeight,
			MaxCandidates:  cfg.MaxFusionCandidates,
		},
		cfg.WorkingLanguage,
		cfg.FinalTopK,
	)
	importUC := usecase.NewImportCatalogUseCase(storage, queue)
	loadUC := usecase.NewLoadCatalogUseCase(storage, xlsx.NewReader(), repo, embedder, vectors)
	productUC := usecase.NewGetProductUseCase(repo)

	return &App{
		Config: cfg,

		Queue:    queue,
		Products: productUC,

		ResolveUC: resolveUC,
		ImportUC:  importUC,
		LoadUC:    loadUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
