package config

import (
	"context"

	gfs "cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/service/vectorstore"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// VectorStore selects where user memories are indexed
type VectorStore struct {
	backend    string
	url        string
	apiKey     string `masq:"secret"`
	collection string
}

func (x *VectorStore) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "vector-store-backend",
			Usage:       "Vector store backend (none, memory, qdrant or firestore)",
			Category:    "Vector Store",
			Value:       "memory",
			Sources:     cli.EnvVars("NUTRISHA_VECTOR_STORE_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "qdrant-url",
			Usage:       "Qdrant REST endpoint, e.g. http://localhost:6333",
			Category:    "Vector Store",
			Sources:     cli.EnvVars("NUTRISHA_QDRANT_URL"),
			Destination: &x.url,
		},
		&cli.StringFlag{
			Name:        "qdrant-api-key",
			Usage:       "Qdrant API key",
			Category:    "Vector Store",
			Sources:     cli.EnvVars("NUTRISHA_QDRANT_API_KEY"),
			Destination: &x.apiKey,
		},
		&cli.StringFlag{
			Name:        "vector-collection",
			Usage:       "Collection holding memory vectors",
			Category:    "Vector Store",
			Value:       vectorstore.DefaultCollection,
			Sources:     cli.EnvVars("NUTRISHA_VECTOR_COLLECTION"),
			Destination: &x.collection,
		},
	}
}

// Backend returns the configured backend type
func (x *VectorStore) Backend() string {
	return x.backend
}

// Collection returns the configured collection name
func (x *VectorStore) Collection() string {
	return x.collection
}

// FirestoreClientProvider is implemented by the Firestore repository
type FirestoreClientProvider interface {
	Client() *gfs.Client
}

// Configure returns the vector store, or nil when memories are disabled. The
// firestore backend reuses the repository's client.
func (x *VectorStore) Configure(ctx context.Context, repo interfaces.Repository) (interfaces.MemoryVectorStore, error) {
	switch x.backend {
	case "none", "":
		logging.Default().Info("Vector store disabled, memories are not recorded")
		return nil, nil

	case "memory":
		logging.Default().Info("Using in-memory vector store (development mode)")
		return vectorstore.NewMemory(), nil

	case "qdrant":
		if x.url == "" {
			return nil, goerr.Wrap(ErrMissingValue, "qdrant-url is required when using qdrant backend",
				goerr.V(FlagKey, "qdrant-url"))
		}
		opts := []vectorstore.QdrantOption{vectorstore.WithCollection(x.collection)}
		if x.apiKey != "" {
			opts = append(opts, vectorstore.WithAPIKey(x.apiKey))
		}
		store, err := vectorstore.NewQdrant(x.url, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize qdrant vector store")
		}
		logging.Default().Info("Using Qdrant vector store", "url", x.url, "collection", x.collection)
		return store, nil

	case "firestore":
		p, ok := repo.(FirestoreClientProvider)
		if !ok {
			return nil, goerr.Wrap(ErrInvalidConfig, "firestore vector store requires the firestore repository backend")
		}
		logging.Default().Info("Using Firestore vector store", "collection", x.collection)
		return vectorstore.NewFirestore(p.Client(), vectorstore.WithFirestoreCollection(x.collection)), nil

	default:
		return nil, goerr.Wrap(ErrInvalidBackend, "invalid vector store backend", goerr.V(BackendKey, x.backend))
	}
}
