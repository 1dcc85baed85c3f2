package toolset

import (
	"context"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/iotaledger/hive.go/app/configuration"
)

type nodeInfoResult struct {
	Network          string `json:"network"`
	FeePerKB         int64  `json:"feePerKB"`
	DustThreshold    int64  `json:"dustThreshold"`
	MinTxFee         int64  `json:"minTxFee"`
	DataAmount       int64  `json:"dataAmount"`
	StoreUp          bool   `json:"storeUp"`
	StoreVersion     string `json:"storeVersion,omitempty"`
	ContentDirectory string `json:"contentDirectory"`
}

func nodeInfo(args []string) error {
	fs := configuration.NewUnsortedFlagSet("", flag.ContinueOnError)
	p := bindParameters(fs)
	timeoutFlag := fs.Duration(FlagToolTimeout, 10*time.Second, "the timeout of the queries")
	outputJSONFlag := fs.Bool(FlagToolOutputJSON, false, FlagToolDescriptionOutputJSON)

	fs.Usage = usage(fs, ToolNodeInfo, fmt.Sprintf("--%s %s", "ledger.host", "127.0.0.1:18443"))

	if err := parseFlagSet(fs, args); err != nil {
		return err
	}

	if err := p.load(fs); err != nil {
		return err
	}

	env, err := newEnvironment(p)
	if err != nil {
		return err
	}
	defer env.shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	feePerKB, err := env.ledger.EstimateFee(ctx)
	if err != nil {
		return err
	}

	result := nodeInfoResult{
		Network:          env.ledger.Params().Name,
		FeePerKB:         int64(feePerKB),
		DustThreshold:    int64(env.wallet.DustThreshold()),
		MinTxFee:         int64(env.wallet.MinTxFee()),
		DataAmount:       int64(env.wallet.DataAmount()),
		StoreUp:          env.store.IsUp(ctx),
		ContentDirectory: env.manager.Config().RootDir,
	}

	if result.StoreUp {
		if result.StoreVersion, err = env.store.Version(ctx); err != nil {
			return err
		}
	}

	if *outputJSONFlag {
		return printJSON(result)
	}

	fmt.Println("Network:           ", result.Network)
	fmt.Println("Fee per kB:        ", result.FeePerKB)
	fmt.Println("Dust threshold:    ", result.DustThreshold)
	fmt.Println("Min tx fee:        ", result.MinTxFee)
	fmt.Println("Data amount:       ", result.DataAmount)
	fmt.Println("Object store up:   ", yesOrNo(result.StoreUp))
	if result.StoreVersion != "" {
		fmt.Println("Object store:      ", result.StoreVersion)
	}
	fmt.Println("Content directory: ", result.ContentDirectory)

	return nil
}
