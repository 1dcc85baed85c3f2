package toolset

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	flag "github.com/spf13/pflag"

	"github.com/iotaledger/hive.go/app/configuration"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/ledger-ipfs/pkg/content"
	"github.com/iotaledger/ledger-ipfs/pkg/ledger/rpcledger"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
	"github.com/iotaledger/ledger-ipfs/pkg/objectstore/kubo"
	"github.com/iotaledger/ledger-ipfs/pkg/wallet"
)

// ParametersLedger contains the definition of the parameters used to connect to the ledger node.
type ParametersLedger struct {
	// Host is the host:port of the JSON-RPC server of the node.
	Host string `default:"127.0.0.1:18443" usage:"host:port of the JSON-RPC server of the ledger node"`
	// User is the JSON-RPC user.
	User string `default:"" usage:"the JSON-RPC user"`
	// Password is the JSON-RPC password.
	Password string `default:"" usage:"the JSON-RPC password"`
	// Network is the name of the chain the node runs.
	Network string `default:"regtest" usage:"the network of the node (mainnet, testnet3, regtest, simnet)"`
	// ConfTarget is the number of blocks the fee estimation targets.
	ConfTarget int64 `default:"6" usage:"the number of blocks the fee estimation targets"`
	// FallbackFee is the fee per kB in satoshi used if the node cannot estimate one.
	FallbackFee int64 `default:"1000" usage:"the fee per kB in satoshi used if the node cannot estimate one"`
	// MinConfirmations is the number of confirmations an output needs to be spent.
	MinConfirmations int `default:"0" usage:"the number of confirmations an output needs to be spent"`
}

// ParametersObjectStore contains the definition of the parameters used to connect to the object store.
type ParametersObjectStore struct {
	// APIAddress is the address of the Kubo RPC API.
	APIAddress string `default:"127.0.0.1:5001" usage:"the address of the Kubo RPC API"`
	// RequestTimeout bounds every request to the API, zero disables it.
	RequestTimeout time.Duration `default:"0s" usage:"the timeout of requests to the Kubo RPC API, zero disables it"`
	// Pin defines whether added content is pinned.
	Pin bool `default:"true" usage:"whether added content is pinned"`
}

// ParametersContent contains the definition of the parameters used by the content manager.
type ParametersContent struct {
	// RootDir holds the plain, crypt and tmp directories.
	RootDir string `default:"content" usage:"the directory holding the plain and encrypted files"`
	// FetchTimeout is the default timeout of object store fetches.
	FetchTimeout time.Duration `default:"5s" usage:"the default timeout of object store fetches"`
	// WorkerCount is the number of concurrent object store reads.
	WorkerCount int `default:"12" usage:"the number of concurrent object store reads"`
	// MaxFetchAttempts bounds the attempts of a background fetch.
	MaxFetchAttempts int `default:"5" usage:"the attempts of a background fetch before it gives up"`
	// ReplaceExisting defines whether existing plain files are overwritten.
	ReplaceExisting bool `default:"true" usage:"whether existing plain files are overwritten"`
}

var networks = map[string]*chaincfg.Params{
	chaincfg.MainNetParams.Name:       &chaincfg.MainNetParams,
	chaincfg.TestNet3Params.Name:      &chaincfg.TestNet3Params,
	chaincfg.RegressionNetParams.Name: &chaincfg.RegressionNetParams,
	chaincfg.SimNetParams.Name:        &chaincfg.SimNetParams,
}

// parameters are the parameters of the environment a tool runs in.
type parameters struct {
	Ledger      *ParametersLedger
	ObjectStore *ParametersObjectStore
	Content     *ParametersContent

	config     *configuration.Configuration
	configFile *string
}

// bindParameters adds the environment flags and the config file flag to fs.
func bindParameters(fs *flag.FlagSet) *parameters {
	p := &parameters{
		Ledger:      &ParametersLedger{},
		ObjectStore: &ParametersObjectStore{},
		Content:     &ParametersContent{},
		config:      configuration.New(),
		configFile:  fs.String(FlagToolConfigFile, "", "the path of a JSON config file with the ledger, objectStore and content parameters"),
	}

	for namespace, pointerToStruct := range map[string]any{
		"ledger":      p.Ledger,
		"objectStore": p.ObjectStore,
		"content":     p.Content,
	} {
		p.config.BindParameters(fs, namespace, pointerToStruct)
	}

	return p
}

// load must be called after fs was parsed.
func (p *parameters) load(fs *flag.FlagSet) error {
	return loadConfig(p.config, fs, *p.configFile)
}

// environment holds the connected collaborators and the content manager a tool works with.
type environment struct {
	logger  log.Logger
	ledger  *rpcledger.Ledger
	wallet  *wallet.Wallet
	store   *kubo.Store
	manager *content.Manager
}

func newEnvironment(p *parameters) (*environment, error) {
	params, exists := networks[p.Ledger.Network]
	if !exists {
		return nil, ierrors.Errorf("unknown network %q", p.Ledger.Network)
	}

	logger := log.NewLogger()

	ledgerClient, err := rpcledger.New(p.Ledger.Host, p.Ledger.User, p.Ledger.Password,
		rpcledger.WithParams(params),
		rpcledger.WithConfTarget(p.Ledger.ConfTarget),
		rpcledger.WithFallbackFee(btcutil.Amount(p.Ledger.FallbackFee)),
	)
	if err != nil {
		return nil, err
	}

	w := wallet.New(ledgerClient, logger.NewChildLogger("Wallet"), wallet.WithMinConfirmations(p.Ledger.MinConfirmations))

	store := kubo.New(p.ObjectStore.APIAddress,
		kubo.WithRequestTimeout(p.ObjectStore.RequestTimeout),
		kubo.WithPin(p.ObjectStore.Pin),
	)

	manager, err := content.New(w, store, content.Config{
		RootDir:          p.Content.RootDir,
		FetchTimeout:     p.Content.FetchTimeout,
		WorkerCount:      p.Content.WorkerCount,
		MaxFetchAttempts: p.Content.MaxFetchAttempts,
		ReplaceExisting:  p.Content.ReplaceExisting,
	}, content.WithLogger(logger.NewChildLogger("Content")))
	if err != nil {
		ledgerClient.Shutdown()

		return nil, err
	}

	return &environment{
		logger:  logger,
		ledger:  ledgerClient,
		wallet:  w,
		store:   store,
		manager: manager,
	}, nil
}

func (e *environment) shutdown() {
	e.manager.Shutdown()
	e.ledger.Shutdown()
}

// address resolves the address given by its encoding or, if encoded is empty, the first address with label.
func (e *environment) address(ctx context.Context, encoded string, label string) (*model.Address, error) {
	if encoded != "" {
		return e.wallet.FindAddress(ctx, encoded)
	}

	if label == "" {
		return nil, ierrors.Errorf("either --%s or --%s is required", FlagToolAddress, FlagToolLabel)
	}

	addresses, err := e.wallet.Addresses(ctx, label)
	if err != nil {
		return nil, err
	}

	if len(addresses) == 0 {
		return nil, ierrors.Errorf("no address with label %q", label)
	}

	return addresses[0], nil
}
