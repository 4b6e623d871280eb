// Package thoughtweave assembles the knowledge-engine service: capture,
// asynchronous indexing, hybrid retrieval, grounded synthesis, encrypted
// conversations, theme graphs, and incremental export, behind one HTTP
// binary plus a separately scalable indexer worker binary.
package thoughtweave

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	pgcomponent "github.com/kart-io/thoughtweave/pkg/component/postgres"
	rediscomponent "github.com/kart-io/thoughtweave/pkg/component/redis"
	serveropts "github.com/kart-io/thoughtweave/pkg/infra/server"
	appcli "github.com/kart-io/thoughtweave/pkg/options/app"
	cacheopts "github.com/kart-io/thoughtweave/pkg/options/cache"
	llmopts "github.com/kart-io/thoughtweave/pkg/options/llm"
	logopts "github.com/kart-io/thoughtweave/pkg/options/logger"
	natsopts "github.com/kart-io/thoughtweave/pkg/options/nats"
	qdrantopts "github.com/kart-io/thoughtweave/pkg/options/qdrant"
	"github.com/spf13/pflag"
)

// masterKeyEnv is where the envelope-encryption master key is read from.
// The key is provisioned by an external secret manager; it never appears
// in flags or config files.
const masterKeyEnv = "THOUGHTWEAVE_MASTER_KEY"

// RawStoreOptions configures the durable raw-thought blob store.
type RawStoreOptions struct {
	// Dir is the root directory blobs are written under; it may be a
	// local disk or an NFS mount.
	Dir string `json:"dir" mapstructure:"dir"`
}

// NewRawStoreOptions creates default raw-store options.
func NewRawStoreOptions() *RawStoreOptions {
	return &RawStoreOptions{Dir: "_output/rawstore"}
}

// AddFlags adds raw-store flags.
func (o *RawStoreOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Dir, "rawstore.dir", o.Dir, "Directory the raw thought blobs are written under.")
}

// EncryptionOptions carries the envelope-encryption master key, decoded
// from the environment during Complete.
type EncryptionOptions struct {
	masterKey []byte
}

// MasterKey returns the decoded 32-byte master key.
func (o *EncryptionOptions) MasterKey() []byte { return o.masterKey }

// Complete reads and decodes the master key from the environment.
func (o *EncryptionOptions) Complete() error {
	raw := os.Getenv(masterKeyEnv)
	if raw == "" {
		return nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("%s must be base64: %w", masterKeyEnv, err)
	}
	o.masterKey = key
	return nil
}

// Validate rejects a missing or mis-sized key.
func (o *EncryptionOptions) Validate() error {
	if len(o.masterKey) != 32 {
		return fmt.Errorf("%s must decode to 32 bytes, got %d", masterKeyEnv, len(o.masterKey))
	}
	return nil
}

// EngineOptions tunes the retrieval engine.
type EngineOptions struct {
	// ThoughtLimit caps the thought result list (default 25).
	ThoughtLimit int `json:"thought-limit" mapstructure:"thought-limit"`
	// ConversationLimit caps the conversation result list (default 3).
	ConversationLimit int `json:"conversation-limit" mapstructure:"conversation-limit"`
	// EnableQueryRewrite turns on the LLM query-rewrite enhancement.
	EnableQueryRewrite bool `json:"enable-query-rewrite" mapstructure:"enable-query-rewrite"`
	// EnableHyDE turns on hypothetical-document embeddings.
	EnableHyDE bool `json:"enable-hyde" mapstructure:"enable-hyde"`
}

// NewEngineOptions creates default engine options.
func NewEngineOptions() *EngineOptions {
	return &EngineOptions{ThoughtLimit: 25, ConversationLimit: 3}
}

// AddFlags adds retrieval engine flags.
func (o *EngineOptions) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.ThoughtLimit, "engine.thought-limit", o.ThoughtLimit, "Maximum thought results per retrieval.")
	fs.IntVar(&o.ConversationLimit, "engine.conversation-limit", o.ConversationLimit, "Maximum conversation results per retrieval.")
	fs.BoolVar(&o.EnableQueryRewrite, "engine.enable-query-rewrite", o.EnableQueryRewrite, "Rewrite queries with the chat LLM before embedding.")
	fs.BoolVar(&o.EnableHyDE, "engine.enable-hyde", o.EnableHyDE, "Blend a hypothetical-document embedding into the query vector.")
}

// IndexerOptions tunes the indexer worker loop.
type IndexerOptions struct {
	// BatchSize is the maximum messages pulled per queue fetch.
	BatchSize int `json:"batch-size" mapstructure:"batch-size"`
	// Wait is how long a fetch blocks waiting for at least one message.
	Wait time.Duration `json:"wait" mapstructure:"wait"`
}

// NewIndexerOptions creates default indexer options.
func NewIndexerOptions() *IndexerOptions {
	return &IndexerOptions{BatchSize: 10, Wait: 5 * time.Second}
}

// AddFlags adds indexer worker flags.
func (o *IndexerOptions) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.BatchSize, "indexer.batch-size", o.BatchSize, "Maximum queue messages pulled per fetch.")
	fs.DurationVar(&o.Wait, "indexer.wait", o.Wait, "Maximum wait for a queue fetch to return at least one message.")
}

// Options contains every configurable concern of the ThoughtWeave service.
type Options struct {
	Server     *serveropts.Options      `json:"server" mapstructure:"server"`
	Log        *logopts.Options         `json:"log" mapstructure:"log"`
	Postgres   *pgcomponent.Options     `json:"postgres" mapstructure:"postgres"`
	Redis      *rediscomponent.Options  `json:"redis" mapstructure:"redis"`
	Qdrant     *qdrantopts.Options      `json:"qdrant" mapstructure:"qdrant"`
	NATS       *natsopts.Options        `json:"nats" mapstructure:"nats"`
	Embedding  *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`
	Chat       *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`
	Cache      *cacheopts.Options       `json:"cache" mapstructure:"cache"`
	RawStore   *RawStoreOptions         `json:"rawstore" mapstructure:"rawstore"`
	Engine     *EngineOptions           `json:"engine" mapstructure:"engine"`
	Indexer    *IndexerOptions          `json:"indexer" mapstructure:"indexer"`
	Encryption *EncryptionOptions       `json:"-" mapstructure:"-"`
}

var _ appcli.CliOptions = (*Options)(nil)

// NewOptions creates the full default option set.
func NewOptions() *Options {
	serverOpts := serveropts.NewOptions()
	serverOpts.Mode = serveropts.ModeHTTPOnly
	serverOpts.ModeString = "http"
	serverOpts.HTTP.Addr = ":8087"

	cache := cacheopts.NewOptions()
	cache.KeyPrefix = "thoughtweave:"

	embedding := llmopts.NewEmbeddingOptions()
	chat := llmopts.NewChatOptions()

	return &Options{
		Server:     serverOpts,
		Log:        logopts.NewOptions(),
		Postgres:   pgcomponent.NewOptions(),
		Redis:      rediscomponent.NewOptions(),
		Qdrant:     qdrantopts.NewOptions(),
		NATS:       natsopts.NewOptions(),
		Embedding:  embedding,
		Chat:       chat,
		Cache:      cache,
		RawStore:   NewRawStoreOptions(),
		Engine:     NewEngineOptions(),
		Indexer:    NewIndexerOptions(),
		Encryption: &EncryptionOptions{},
	}
}

// Flags groups the option flags by concern for --help output.
func (o *Options) Flags() appcli.NamedFlagSets {
	var fss appcli.NamedFlagSets

	o.Server.AddFlags(fss.FlagSet("server"))
	o.Log.AddFlags(fss.FlagSet("log"))
	o.Postgres.AddFlags(fss.FlagSet("postgres"), "postgres.")
	o.Redis.AddFlags(fss.FlagSet("redis"), "redis.")
	o.Qdrant.AddFlags(fss.FlagSet("qdrant"))
	o.NATS.AddFlags(fss.FlagSet("nats"))
	o.Embedding.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.Chat.AddFlags(fss.FlagSet("chat"), "chat")
	o.Cache.AddFlags(fss.FlagSet("cache"))
	o.RawStore.AddFlags(fss.FlagSet("rawstore"))
	o.Engine.AddFlags(fss.FlagSet("engine"))
	o.Indexer.AddFlags(fss.FlagSet("indexer"))

	return fss
}

// Complete derives defaults that depend on the environment or on other
// options.
func (o *Options) Complete() error {
	if err := o.Server.Complete(); err != nil {
		return err
	}
	if err := o.Log.Complete(); err != nil {
		return err
	}
	if err := o.Postgres.Complete(); err != nil {
		return err
	}
	if err := o.Redis.Complete(); err != nil {
		return err
	}
	if err := o.Qdrant.Complete(); err != nil {
		return err
	}
	if err := o.NATS.Complete(); err != nil {
		return err
	}
	return o.Encryption.Complete()
}

// Validate rejects invalid configuration before anything is constructed.
func (o *Options) Validate() error {
	if err := o.Server.Validate(); err != nil {
		return err
	}
	if errs := o.Log.Validate(); len(errs) > 0 {
		return fmt.Errorf("log options invalid: %v", errs)
	}
	if err := o.Postgres.Validate(); err != nil {
		return err
	}
	if err := o.Redis.Validate(); err != nil {
		return err
	}
	if errs := o.Qdrant.Validate(); len(errs) > 0 {
		return fmt.Errorf("qdrant options invalid: %v", errs)
	}
	if errs := o.NATS.Validate(); len(errs) > 0 {
		return fmt.Errorf("nats options invalid: %v", errs)
	}
	if o.Embedding.Provider == "" || o.Embedding.Model == "" {
		return fmt.Errorf("embedding.provider and embedding.model are required")
	}
	if o.Chat.Provider == "" || o.Chat.Model == "" {
		return fmt.Errorf("chat.provider and chat.model are required")
	}
	if o.Engine.ThoughtLimit <= 0 || o.Engine.ConversationLimit <= 0 {
		return fmt.Errorf("engine limits must be positive")
	}
	if o.Indexer.BatchSize <= 0 {
		return fmt.Errorf("indexer.batch-size must be positive")
	}
	return o.Encryption.Validate()
}
