package toolset

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/iotaledger/hive.go/app/configuration"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/ledger-ipfs/pkg/content"
	"github.com/iotaledger/ledger-ipfs/pkg/model"
)

type handleInfo struct {
	CID       string `json:"cid,omitempty"`
	Owner     string `json:"owner,omitempty"`
	Path      string `json:"path,omitempty"`
	LocalPath string `json:"localPath,omitempty"`
	TxID      string `json:"txId,omitempty"`
	State     string `json:"state"`
	Attempts  int    `json:"attempts,omitempty"`
}

func newHandleInfo(handle *content.FHandle) handleInfo {
	info := handleInfo{
		CID:       handle.CID(),
		Path:      handle.Path(),
		LocalPath: handle.LocalPath(),
		TxID:      handle.TxID(),
		State:     handle.State().String(),
		Attempts:  handle.Attempts(),
	}

	if owner := handle.Owner(); owner != nil {
		info.Owner = owner.String()
	}

	return info
}

func printHandles(handles []*content.FHandle, outputJSON bool) error {
	infos := make([]handleInfo, 0, len(handles))
	for _, handle := range handles {
		infos = append(infos, newHandleInfo(handle))
	}

	if outputJSON {
		return printJSON(infos)
	}

	if len(infos) == 0 {
		fmt.Println("no content found")

		return nil
	}

	for _, info := range infos {
		fmt.Printf("%-10s %-60s %s\n", info.State, info.CID, info.Path)
		if info.TxID != "" {
			fmt.Printf("%-10s tx %s\n", "", info.TxID)
		}
	}

	return nil
}

// ownerFlags adds the flags selecting the address a tool acts for.
func ownerFlags(fs *flag.FlagSet) (addressFlag *string, labelFlag *string) {
	return fs.String(FlagToolAddress, "", "the address to act for"),
		fs.String(FlagToolLabel, "", "the label of the address to act for, used if no address is given")
}

func usage(fs *flag.FlagSet, tool string, example string) func() {
	return func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", tool)
		fs.PrintDefaults()
		println(fmt.Sprintf("\nexample: %s %s", tool, example))
	}
}

// runInEnvironment loads the parameters, connects to the collaborators and runs fn for the selected address.
func runInEnvironment(fs *flag.FlagSet, p *parameters, addressFlag *string, labelFlag *string, fn func(ctx context.Context, env *environment, owner *model.Address) error) error {
	if err := p.load(fs); err != nil {
		return err
	}

	env, err := newEnvironment(p)
	if err != nil {
		return err
	}
	defer env.shutdown()

	ctx := context.Background()

	owner, err := env.address(ctx, *addressFlag, *labelFlag)
	if err != nil {
		return err
	}

	return fn(ctx, env, owner)
}

func register(args []string) error {
	fs := configuration.NewUnsortedFlagSet("", flag.ContinueOnError)
	p := bindParameters(fs)
	addressFlag, labelFlag := ownerFlags(fs)
	outputJSONFlag := fs.Bool(FlagToolOutputJSON, false, FlagToolDescriptionOutputJSON)

	fs.Usage = usage(fs, ToolRegister, fmt.Sprintf("--%s %s", FlagToolLabel, "alice"))

	if err := parseFlagSet(fs, args); err != nil {
		return err
	}

	return runInEnvironment(fs, p, addressFlag, labelFlag, func(ctx context.Context, env *environment, owner *model.Address) error {
		publicKey, err := env.manager.Register(ctx, owner)
		if err != nil {
			return err
		}

		result := struct {
			Address   string `json:"address"`
			PublicKey string `json:"publicKey"`
		}{
			Address:   owner.String(),
			PublicKey: hex.EncodeToString(publicKey.SerializeCompressed()),
		}

		if *outputJSONFlag {
			return printJSON(result)
		}

		fmt.Println("Registered address: ", result.Address)
		fmt.Println("Encryption key:     ", result.PublicKey)

		return nil
	})
}

func unregister(args []string) error {
	fs := configuration.NewUnsortedFlagSet("", flag.ContinueOnError)
	p := bindParameters(fs)
	addressFlag, labelFlag := ownerFlags(fs)

	fs.Usage = usage(fs, ToolUnregister, fmt.Sprintf("--%s %s", FlagToolLabel, "alice"))

	if err := parseFlagSet(fs, args); err != nil {
		return err
	}

	return runInEnvironment(fs, p, addressFlag, labelFlag, func(ctx context.Context, env *environment, owner *model.Address) error {
		if err := env.manager.Unregister(ctx, owner); err != nil {
			return err
		}

		fmt.Println("Unregistered address: ", owner.String())

		return nil
	})
}

func add(args []string) error {
	fs := configuration.NewUnsortedFlagSet("", flag.ContinueOnError)
	p := bindParameters(fs)
	addressFlag, labelFlag := ownerFlags(fs)
	fileFlag := fs.String(FlagToolFile, "", "a file to copy into the plain directory and publish (optional)")
	pathFlag := fs.String(FlagToolPath, "", "the path below the plain directory, a directory publishes all files below it")
	outputJSONFlag := fs.Bool(FlagToolOutputJSON, false, FlagToolDescriptionOutputJSON)

	fs.Usage = usage(fs, ToolAdd, fmt.Sprintf("--%s %s --%s %s", FlagToolLabel, "alice", FlagToolFile, "report.pdf"))

	if err := parseFlagSet(fs, args); err != nil {
		return err
	}

	if *fileFlag == "" && *pathFlag == "" {
		return ierrors.Errorf("either --%s or --%s is required", FlagToolFile, FlagToolPath)
	}

	return runInEnvironment(fs, p, addressFlag, labelFlag, func(ctx context.Context, env *environment, owner *model.Address) error {
		if *fileFlag == "" {
			handles, err := env.manager.AddPath(ctx, owner, *pathFlag)
			if err != nil {
				return err
			}

			return printHandles(handles, *outputJSONFlag)
		}

		relPath := *pathFlag
		if relPath == "" {
			relPath = filepath.Base(*fileFlag)
		}

		file, err := os.Open(*fileFlag)
		if err != nil {
			return ierrors.Wrapf(err, "unable to open %s", *fileFlag)
		}
		defer file.Close()

		handle, err := env.manager.Add(ctx, owner, file, relPath)
		if err != nil {
			return err
		}

		return printHandles([]*content.FHandle{handle}, *outputJSONFlag)
	})
}

func get(args []string) error {
	fs := configuration.NewUnsortedFlagSet("", flag.ContinueOnError)
	p := bindParameters(fs)
	addressFlag, labelFlag := ownerFlags(fs)
	cidFlag := fs.String(FlagToolCID, "", "the content id to fetch")
	pathFlag := fs.String(FlagToolPath, "", "the destination below the plain directory (defaults to the content id)")
	timeoutFlag := fs.Duration(FlagToolTimeout, 0, "the fetch timeout, zero uses content.fetchTimeout")
	outputJSONFlag := fs.Bool(FlagToolOutputJSON, false, FlagToolDescriptionOutputJSON)

	fs.Usage = usage(fs, ToolGet, fmt.Sprintf("--%s %s --%s %s", FlagToolLabel, "bob", FlagToolCID, "bafkrei..."))

	if err := parseFlagSet(fs, args); err != nil {
		return err
	}

	if *cidFlag == "" {
		return ierrors.Errorf("--%s is required", FlagToolCID)
	}

	destPath := *pathFlag
	if destPath == "" {
		destPath = *cidFlag
	}

	return runInEnvironment(fs, p, addressFlag, labelFlag, func(ctx context.Context, env *environment, owner *model.Address) error {
		handle, err := env.manager.Get(ctx, owner, *cidFlag, destPath, *timeoutFlag)
		if err != nil {
			return err
		}

		return printHandles([]*content.FHandle{handle}, *outputJSONFlag)
	})
}

func send(args []string) error {
	fs := configuration.NewUnsortedFlagSet("", flag.ContinueOnError)
	p := bindParameters(fs)
	addressFlag, labelFlag := ownerFlags(fs)
	cidFlag := fs.String(FlagToolCID, "", "the content id to send")
	targetFlag := fs.String(FlagToolTarget, "", "the registered address to send the content to")
	timeoutFlag := fs.Duration(FlagToolTimeout, 0, "the fetch timeout, zero uses content.fetchTimeout")
	outputJSONFlag := fs.Bool(FlagToolOutputJSON, false, FlagToolDescriptionOutputJSON)

	fs.Usage = usage(fs, ToolSend, fmt.Sprintf("--%s %s --%s %s --%s %s", FlagToolLabel, "alice", FlagToolCID, "bafkrei...", FlagToolTarget, "bcrt1q..."))

	if err := parseFlagSet(fs, args); err != nil {
		return err
	}

	if *cidFlag == "" || *targetFlag == "" {
		return ierrors.Errorf("--%s and --%s are required", FlagToolCID, FlagToolTarget)
	}

	return runInEnvironment(fs, p, addressFlag, labelFlag, func(ctx context.Context, env *environment, owner *model.Address) error {
		handle, err := env.manager.Send(ctx, owner, *cidFlag, model.NewAddress(*targetFlag), *timeoutFlag)
		if err != nil {
			return err
		}

		return printHandles([]*content.FHandle{handle}, *outputJSONFlag)
	})
}

func find(args []string) error {
	fs := configuration.NewUnsortedFlagSet("", flag.ContinueOnError)
	p := bindParameters(fs)
	addressFlag, labelFlag := ownerFlags(fs)
	timeoutFlag := fs.Duration(FlagToolTimeout, 0, "how long to wait for fetches, zero uses content.fetchTimeout")
	outputJSONFlag := fs.Bool(FlagToolOutputJSON, false, FlagToolDescriptionOutputJSON)

	fs.Usage = usage(fs, ToolFind, fmt.Sprintf("--%s %s --%s", FlagToolLabel, "bob", FlagToolOutputJSON))

	if err := parseFlagSet(fs, args); err != nil {
		return err
	}

	return runInEnvironment(fs, p, addressFlag, labelFlag, func(ctx context.Context, env *environment, owner *model.Address) error {
		handles, err := env.manager.FindContent(ctx, owner, *timeoutFlag)
		if err != nil {
			return err
		}

		return printHandles(handles, *outputJSONFlag)
	})
}

func local(args []string) error {
	fs := configuration.NewUnsortedFlagSet("", flag.ContinueOnError)
	p := bindParameters(fs)
	addressFlag, labelFlag := ownerFlags(fs)
	outputJSONFlag := fs.Bool(FlagToolOutputJSON, false, FlagToolDescriptionOutputJSON)

	fs.Usage = usage(fs, ToolLocal, fmt.Sprintf("--%s %s", FlagToolLabel, "alice"))

	if err := parseFlagSet(fs, args); err != nil {
		return err
	}

	return runInEnvironment(fs, p, addressFlag, labelFlag, func(_ context.Context, env *environment, owner *model.Address) error {
		handles, err := env.manager.FindLocalContent(owner)
		if err != nil {
			return err
		}

		return printHandles(handles, *outputJSONFlag)
	})
}

func unpublish(args []string) error {
	fs := configuration.NewUnsortedFlagSet("", flag.ContinueOnError)
	p := bindParameters(fs)
	addressFlag, labelFlag := ownerFlags(fs)
	cidsFlag := fs.StringSlice(FlagToolCID, nil, "the content ids to unpublish, all content of the address if none is given")

	fs.Usage = usage(fs, ToolUnpublish, fmt.Sprintf("--%s %s --%s %s", FlagToolLabel, "alice", FlagToolCID, "bafkrei..."))

	if err := parseFlagSet(fs, args); err != nil {
		return err
	}

	return runInEnvironment(fs, p, addressFlag, labelFlag, func(ctx context.Context, env *environment, owner *model.Address) error {
		if err := env.manager.Unpublish(ctx, owner, *cidsFlag...); err != nil {
			return err
		}

		fmt.Println("Unpublished content of: ", owner.String())

		return nil
	})
}
